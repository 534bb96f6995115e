package parser

import (
	"fmt"
	"strings"

	"github.com/phrazzld/lectern-api/internal/domain"
)

// Registry maps source kinds to the parser that handles them. It is
// populated once during startup and read-only afterwards.
type Registry struct {
	parsers map[domain.SourceKind]Parser
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[domain.SourceKind]Parser)}
}

// Register associates a parser with a source kind, replacing any
// previously registered parser for that kind.
func (r *Registry) Register(kind domain.SourceKind, p Parser) {
	r.parsers[kind] = p
}

// ForKind returns the parser registered for the given source kind.
func (r *Registry) ForKind(kind domain.SourceKind) (Parser, error) {
	p, ok := r.parsers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no parser registered for kind %q", ErrUnsupportedSource, kind)
	}
	return p, nil
}

// Kinds returns the source kinds with a registered parser.
func (r *Registry) Kinds() []domain.SourceKind {
	kinds := make([]domain.SourceKind, 0, len(r.parsers))
	for k := range r.parsers {
		kinds = append(kinds, k)
	}
	return kinds
}

// KindForSource classifies a raw source reference into the source kind
// its parser expects. URLs are web pages, everything else is matched by
// file extension.
func KindForSource(source string) (domain.SourceKind, error) {
	trimmed := strings.TrimSpace(source)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty source", ErrInvalidSource)
	}

	lower := strings.ToLower(trimmed)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return domain.SourceKindWeb, nil
	case strings.HasSuffix(lower, ".pdf"):
		return domain.SourceKindPDF, nil
	// Legacy binary .doc files are not ZIP archives and cannot be read
	// by the DOCX parser, so they are rejected here.
	case strings.HasSuffix(lower, ".docx"):
		return domain.SourceKindDocx, nil
	default:
		return "", fmt.Errorf("%w: cannot classify source %q", ErrUnsupportedSource, source)
	}
}
