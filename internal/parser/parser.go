// Package parser extracts plain text from non-video content sources
// (PDF and DOCX files, web pages, and source collections) so the
// downstream analysis stages can treat every source kind uniformly.
package parser

import (
	"context"
	"errors"
)

// Sentinel errors returned by parsers. Callers match with errors.Is.
var (
	// ErrUnsupportedSource indicates no parser is registered for the source kind.
	ErrUnsupportedSource = errors.New("unsupported content source")

	// ErrSourceNotFound indicates the source file does not exist.
	ErrSourceNotFound = errors.New("content source not found")

	// ErrSourceTooLarge indicates the source exceeds the parser's size limit.
	ErrSourceTooLarge = errors.New("content source too large")

	// ErrEmptyContent indicates the source yielded no extractable text.
	ErrEmptyContent = errors.New("no text content found in source")

	// ErrFetchFailed indicates a remote source could not be retrieved.
	ErrFetchFailed = errors.New("failed to fetch content source")

	// ErrInvalidSource indicates the source reference itself is malformed.
	ErrInvalidSource = errors.New("invalid content source")
)

// Result holds the text extracted from a content source.
type Result struct {
	// Title is a human-readable name for the source, when one could be
	// determined (document metadata, page title, or filename).
	Title string

	// Content is the extracted plain text.
	Content string
}

// Parser extracts text from one kind of content source.
type Parser interface {
	// Parse extracts text from the given source. The source is a file
	// path, URL, or collection manifest path depending on the parser.
	Parse(ctx context.Context, source string) (*Result, error)
}
