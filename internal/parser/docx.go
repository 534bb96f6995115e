package parser

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// maxDocxBytes bounds the size of DOCX files accepted for parsing.
const maxDocxBytes = 5 * 1024 * 1024

// DocxParser extracts text from DOCX files on local disk. A DOCX file
// is a zip archive whose word/document.xml holds the body text; table
// cell text lives in nested paragraphs and is picked up by the same
// traversal.
type DocxParser struct {
	logger *slog.Logger
}

// NewDocxParser creates a DOCX parser.
func NewDocxParser(logger *slog.Logger) *DocxParser {
	return &DocxParser{logger: logger.With(slog.String("component", "docx_parser"))}
}

// Parse extracts paragraph text from the DOCX file at source.
func (p *DocxParser) Parse(ctx context.Context, source string) (*Result, error) {
	info, err := os.Stat(source)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, source)
		}
		return nil, fmt.Errorf("failed to stat DOCX file: %w", err)
	}
	if info.Size() > maxDocxBytes {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrSourceTooLarge, info.Size(), maxDocxBytes)
	}

	archive, err := zip.OpenReader(source)
	if err != nil {
		return nil, fmt.Errorf("%w: not a valid DOCX archive: %v", ErrInvalidSource, err)
	}
	defer func() {
		if closeErr := archive.Close(); closeErr != nil {
			p.logger.WarnContext(ctx, "failed to close DOCX archive",
				slog.String("path", source),
				slog.String("error", closeErr.Error()))
		}
	}()

	var paragraphs []string
	var title string
	for _, entry := range archive.File {
		switch entry.Name {
		case "word/document.xml":
			paragraphs, err = extractDocxParagraphs(entry)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
			}
		case "docProps/core.xml":
			title = extractDocxTitle(entry)
		}
	}

	if len(paragraphs) == 0 {
		return nil, fmt.Errorf("%w: DOCX %s", ErrEmptyContent, source)
	}
	if title == "" {
		title = fileStem(source)
	}

	return &Result{
		Title:   title,
		Content: strings.Join(paragraphs, "\n\n"),
	}, nil
}

// extractDocxParagraphs streams through document.xml collecting the text
// runs of each paragraph.
func extractDocxParagraphs(entry *zip.File) ([]string, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open document.xml: %w", err)
	}
	defer func() { _ = rc.Close() }()

	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
	)
	decoder := xml.NewDecoder(rc)
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode document.xml: %w", err)
		}

		switch tok := token.(type) {
		case xml.StartElement:
			switch tok.Name.Local {
			case "t":
				inText = true
			case "tab":
				current.WriteByte('\t')
			case "br":
				current.WriteByte('\n')
			}
		case xml.EndElement:
			switch tok.Name.Local {
			case "t":
				inText = false
			case "p":
				if text := strings.TrimSpace(current.String()); text != "" {
					paragraphs = append(paragraphs, text)
				}
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(tok)
			}
		}
	}

	return paragraphs, nil
}

// extractDocxTitle reads the dc:title core property, if present.
func extractDocxTitle(entry *zip.File) string {
	rc, err := entry.Open()
	if err != nil {
		return ""
	}
	defer func() { _ = rc.Close() }()

	var props struct {
		Title string `xml:"title"`
	}
	if err := xml.NewDecoder(rc).Decode(&props); err != nil {
		return ""
	}
	return strings.TrimSpace(props.Title)
}
