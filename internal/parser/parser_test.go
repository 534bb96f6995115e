package parser

import (
	"archive/zip"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/phrazzld/lectern-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestKindForSource(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		want    domain.SourceKind
		wantErr bool
	}{
		{name: "https URL", source: "https://example.com/article", want: domain.SourceKindWeb},
		{name: "http URL", source: "http://example.com", want: domain.SourceKindWeb},
		{name: "pdf file", source: "/uploads/lecture.PDF", want: domain.SourceKindPDF},
		{name: "docx file", source: "/uploads/notes.docx", want: domain.SourceKindDocx},
		{name: "legacy doc file", source: "/uploads/old.doc", wantErr: true},
		{name: "empty", source: "  ", wantErr: true},
		{name: "unknown extension", source: "/uploads/data.csv", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := KindForSource(tt.source)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()

	t.Run("unregistered kind", func(t *testing.T) {
		_, err := registry.ForKind(domain.SourceKindPDF)
		assert.ErrorIs(t, err, ErrUnsupportedSource)
	})

	t.Run("registered kind", func(t *testing.T) {
		web := NewWebParser(testLogger(), 1000)
		registry.Register(domain.SourceKindWeb, web)

		got, err := registry.ForKind(domain.SourceKindWeb)
		require.NoError(t, err)
		assert.Same(t, web, got)
		assert.Contains(t, registry.Kinds(), domain.SourceKindWeb)
	})
}

func TestWebParser(t *testing.T) {
	ctx := context.Background()

	t.Run("extracts main content", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, `<html><head><title>Goroutines Explained</title></head><body>
				<nav><a href="/">this navigation text should disappear entirely</a></nav>
				<article>
					<h1>Understanding goroutines and the scheduler</h1>
					<p>Goroutines are multiplexed onto a small number of OS threads.</p>
					<p>short</p>
				</article>
				<footer>footer boilerplate that should also be stripped from output</footer>
			</body></html>`)
		}))
		defer server.Close()

		result, err := NewWebParser(testLogger(), 100000).Parse(ctx, server.URL)
		require.NoError(t, err)
		assert.Equal(t, "Goroutines Explained", result.Title)
		assert.Contains(t, result.Content, "Understanding goroutines and the scheduler")
		assert.Contains(t, result.Content, "multiplexed onto a small number of OS threads")
		assert.NotContains(t, result.Content, "navigation text")
		assert.NotContains(t, result.Content, "footer boilerplate")
		assert.NotContains(t, result.Content, "short")
	})

	t.Run("truncates long content", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, "<html><body><p>")
			for i := 0; i < 100; i++ {
				fmt.Fprint(w, "This sentence pads the page well past the parser limit. ")
			}
			fmt.Fprint(w, "</p></body></html>")
		}))
		defer server.Close()

		result, err := NewWebParser(testLogger(), 200).Parse(ctx, server.URL)
		require.NoError(t, err)
		assert.Contains(t, result.Content, "[Content truncated]")
		assert.LessOrEqual(t, len(result.Content), 200+len("... [Content truncated]"))
	})

	t.Run("non-HTML content type", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{}`)
		}))
		defer server.Close()

		_, err := NewWebParser(testLogger(), 1000).Parse(ctx, server.URL)
		assert.ErrorIs(t, err, ErrFetchFailed)
	})

	t.Run("server error status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		_, err := NewWebParser(testLogger(), 1000).Parse(ctx, server.URL)
		assert.ErrorIs(t, err, ErrFetchFailed)
	})

	t.Run("invalid URL", func(t *testing.T) {
		_, err := NewWebParser(testLogger(), 1000).Parse(ctx, "not-a-url")
		assert.ErrorIs(t, err, ErrInvalidSource)
	})
}

// writeTestDocx assembles a minimal DOCX archive on disk.
func writeTestDocx(t *testing.T, dir string, documentXML, coreXML string) string {
	t.Helper()

	path := filepath.Join(dir, "test.docx")
	file, err := os.Create(path)
	require.NoError(t, err)

	archive := zip.NewWriter(file)
	doc, err := archive.Create("word/document.xml")
	require.NoError(t, err)
	_, err = doc.Write([]byte(documentXML))
	require.NoError(t, err)

	if coreXML != "" {
		core, err := archive.Create("docProps/core.xml")
		require.NoError(t, err)
		_, err = core.Write([]byte(coreXML))
		require.NoError(t, err)
	}

	require.NoError(t, archive.Close())
	require.NoError(t, file.Close())
	return path
}

func TestDocxParser(t *testing.T) {
	ctx := context.Background()
	parser := NewDocxParser(testLogger())

	t.Run("extracts paragraphs and title", func(t *testing.T) {
		documentXML := `<?xml version="1.0"?>
			<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
			<w:body>
				<w:p><w:r><w:t>First paragraph of the lecture notes.</w:t></w:r></w:p>
				<w:p><w:r><w:t>Second</w:t></w:r><w:r><w:t> paragraph.</w:t></w:r></w:p>
				<w:p><w:r><w:t xml:space="preserve">   </w:t></w:r></w:p>
			</w:body>
			</w:document>`
		coreXML := `<?xml version="1.0"?>
			<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
				xmlns:dc="http://purl.org/dc/elements/1.1/">
			<dc:title>Lecture Notes</dc:title>
			</cp:coreProperties>`

		path := writeTestDocx(t, t.TempDir(), documentXML, coreXML)

		result, err := parser.Parse(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, "Lecture Notes", result.Title)
		assert.Contains(t, result.Content, "First paragraph of the lecture notes.")
		assert.Contains(t, result.Content, "Second paragraph.")
	})

	t.Run("falls back to filename title", func(t *testing.T) {
		documentXML := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
			<w:body><w:p><w:r><w:t>Body text.</w:t></w:r></w:p></w:body></w:document>`

		path := writeTestDocx(t, t.TempDir(), documentXML, "")

		result, err := parser.Parse(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, "test", result.Title)
	})

	t.Run("empty document", func(t *testing.T) {
		documentXML := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
			<w:body></w:body></w:document>`

		path := writeTestDocx(t, t.TempDir(), documentXML, "")

		_, err := parser.Parse(ctx, path)
		assert.ErrorIs(t, err, ErrEmptyContent)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := parser.Parse(ctx, filepath.Join(t.TempDir(), "missing.docx"))
		assert.ErrorIs(t, err, ErrSourceNotFound)
	})

	t.Run("not a zip archive", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.docx")
		require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o600))

		_, err := parser.Parse(ctx, path)
		assert.ErrorIs(t, err, ErrInvalidSource)
	})
}

func TestPDFParser(t *testing.T) {
	ctx := context.Background()
	parser := NewPDFParser(testLogger())

	t.Run("missing file", func(t *testing.T) {
		_, err := parser.Parse(ctx, filepath.Join(t.TempDir(), "missing.pdf"))
		assert.ErrorIs(t, err, ErrSourceNotFound)
	})

	t.Run("not a PDF", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bogus.pdf")
		require.NoError(t, os.WriteFile(path, []byte("not a pdf at all"), 0o600))

		_, err := parser.Parse(ctx, path)
		assert.ErrorIs(t, err, ErrInvalidSource)
	})
}

// stubParser returns a fixed result for collection dispatch tests.
type stubParser struct {
	result *Result
	err    error
}

func (s *stubParser) Parse(ctx context.Context, source string) (*Result, error) {
	return s.result, s.err
}

func TestCollectionParser(t *testing.T) {
	ctx := context.Background()

	writeManifest := func(t *testing.T, lines string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "sources.txt")
		require.NoError(t, os.WriteFile(path, []byte(lines), 0o600))
		return path
	}

	t.Run("aggregates entries", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(domain.SourceKindWeb, &stubParser{
			result: &Result{Title: "Page", Content: "web text"},
		})
		registry.Register(domain.SourceKindPDF, &stubParser{
			result: &Result{Title: "Paper", Content: "pdf text"},
		})

		manifest := writeManifest(t, "# course readings\nhttps://example.com/a\n/uploads/paper.pdf\n\n")

		result, err := NewCollectionParser(registry, testLogger()).Parse(ctx, manifest)
		require.NoError(t, err)
		assert.Contains(t, result.Title, "Collection:")
		assert.Contains(t, result.Content, "=== Page ===\nweb text")
		assert.Contains(t, result.Content, "=== Paper ===\npdf text")
	})

	t.Run("skips failing entries", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(domain.SourceKindWeb, &stubParser{err: ErrFetchFailed})
		registry.Register(domain.SourceKindPDF, &stubParser{
			result: &Result{Title: "Paper", Content: "pdf text"},
		})

		manifest := writeManifest(t, "https://example.com/broken\n/uploads/paper.pdf\n")

		result, err := NewCollectionParser(registry, testLogger()).Parse(ctx, manifest)
		require.NoError(t, err)
		assert.NotContains(t, result.Content, "broken")
		assert.Contains(t, result.Content, "pdf text")
	})

	t.Run("all entries fail", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(domain.SourceKindWeb, &stubParser{err: ErrFetchFailed})

		manifest := writeManifest(t, "https://example.com/broken\n")

		_, err := NewCollectionParser(registry, testLogger()).Parse(ctx, manifest)
		assert.ErrorIs(t, err, ErrEmptyContent)
	})

	t.Run("empty manifest", func(t *testing.T) {
		manifest := writeManifest(t, "# nothing here\n\n")

		_, err := NewCollectionParser(NewRegistry(), testLogger()).Parse(ctx, manifest)
		assert.ErrorIs(t, err, ErrEmptyContent)
	})

	t.Run("missing manifest", func(t *testing.T) {
		_, err := NewCollectionParser(NewRegistry(), testLogger()).Parse(ctx, filepath.Join(t.TempDir(), "nope.txt"))
		assert.ErrorIs(t, err, ErrSourceNotFound)
	})
}
