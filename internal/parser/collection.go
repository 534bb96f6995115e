package parser

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// maxCollectionEntries bounds how many sources one collection may list.
const maxCollectionEntries = 50

// CollectionParser aggregates the text of several sources listed in a
// manifest file, one source per line. Blank lines and lines starting
// with '#' are skipped. Each listed source is classified and parsed by
// the registered parser for its kind.
type CollectionParser struct {
	registry *Registry
	logger   *slog.Logger
}

// NewCollectionParser creates a collection parser that dispatches
// entries through the given registry.
func NewCollectionParser(registry *Registry, logger *slog.Logger) *CollectionParser {
	return &CollectionParser{
		registry: registry,
		logger:   logger.With(slog.String("component", "collection_parser")),
	}
}

// Parse reads the manifest at source and concatenates the extracted
// text of every listed entry. Entries that fail to parse are skipped
// with a warning; the collection fails only when no entry yields text.
func (p *CollectionParser) Parse(ctx context.Context, source string) (*Result, error) {
	file, err := os.Open(source)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, source)
		}
		return nil, fmt.Errorf("failed to open collection manifest: %w", err)
	}
	defer func() { _ = file.Close() }()

	var entries []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read collection manifest: %w", err)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: collection manifest lists no sources", ErrEmptyContent)
	}
	if len(entries) > maxCollectionEntries {
		return nil, fmt.Errorf("%w: collection lists %d sources (max %d)",
			ErrSourceTooLarge, len(entries), maxCollectionEntries)
	}

	var sections []string
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := p.parseEntry(ctx, entry)
		if err != nil {
			p.logger.WarnContext(ctx, "skipping collection entry",
				slog.String("entry", entry),
				slog.String("error", err.Error()))
			continue
		}
		sections = append(sections, fmt.Sprintf("=== %s ===\n%s", result.Title, result.Content))
	}

	if len(sections) == 0 {
		return nil, fmt.Errorf("%w: no collection entry yielded text", ErrEmptyContent)
	}

	return &Result{
		Title:   "Collection: " + fileStem(source),
		Content: strings.Join(sections, "\n\n"),
	}, nil
}

func (p *CollectionParser) parseEntry(ctx context.Context, entry string) (*Result, error) {
	kind, err := KindForSource(entry)
	if err != nil {
		return nil, err
	}
	sub, err := p.registry.ForKind(kind)
	if err != nil {
		return nil, err
	}
	return sub.Parse(ctx, entry)
}
