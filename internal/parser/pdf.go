package parser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// maxPDFBytes bounds the size of PDF files accepted for parsing.
const maxPDFBytes = 10 * 1024 * 1024

// PDFParser extracts text from PDF files on local disk.
type PDFParser struct {
	logger *slog.Logger
}

// NewPDFParser creates a PDF parser.
func NewPDFParser(logger *slog.Logger) *PDFParser {
	return &PDFParser{logger: logger.With(slog.String("component", "pdf_parser"))}
}

// Parse extracts the plain text of every page in the PDF at source,
// separated by page markers.
func (p *PDFParser) Parse(ctx context.Context, source string) (*Result, error) {
	info, err := os.Stat(source)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, source)
		}
		return nil, fmt.Errorf("failed to stat PDF file: %w", err)
	}
	if info.Size() > maxPDFBytes {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrSourceTooLarge, info.Size(), maxPDFBytes)
	}

	file, reader, err := pdf.Open(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			p.logger.WarnContext(ctx, "failed to close PDF file",
				slog.String("path", source),
				slog.String("error", closeErr.Error()))
		}
	}()

	var parts []string
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			p.logger.WarnContext(ctx, "failed to extract PDF page text",
				slog.Int("page", pageNum),
				slog.String("error", err.Error()))
			continue
		}
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			parts = append(parts, fmt.Sprintf("--- Page %d ---\n%s", pageNum, trimmed))
		}
	}

	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: PDF %s", ErrEmptyContent, filepath.Base(source))
	}

	return &Result{
		Title:   pdfTitle(reader, source),
		Content: strings.Join(parts, "\n\n"),
	}, nil
}

// pdfTitle reads the document Info title, falling back to the filename.
func pdfTitle(reader *pdf.Reader, source string) (title string) {
	title = fileStem(source)

	// Malformed trailers can panic inside the pdf package.
	defer func() { _ = recover() }()

	info := reader.Trailer().Key("Info")
	if !info.IsNull() {
		if t := strings.TrimSpace(info.Key("Title").Text()); t != "" {
			title = t
		}
	}
	return title
}

// fileStem returns the filename without directory or extension.
func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
