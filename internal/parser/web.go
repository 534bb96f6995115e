package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// webUserAgent identifies fetches to sites that block default Go clients.
const webUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// mainContentSelectors are tried in order to locate the primary content
// region of a page before falling back to the whole body.
var mainContentSelectors = []string{
	"main",
	"article",
	".content",
	".main-content",
	"#content",
	"#main",
	".post-content",
	".entry-content",
}

// WebParser fetches a web page and extracts its readable text.
type WebParser struct {
	client   *http.Client
	maxChars int
	logger   *slog.Logger
}

// NewWebParser creates a web parser. maxChars bounds the length of the
// extracted text; longer pages are truncated.
func NewWebParser(logger *slog.Logger, maxChars int) *WebParser {
	return &WebParser{
		client:   &http.Client{Timeout: 30 * time.Second},
		maxChars: maxChars,
		logger:   logger.With(slog.String("component", "web_parser")),
	}
}

// Parse fetches the page at source and extracts headings, paragraphs,
// and list items from its main content region.
func (p *WebParser) Parse(ctx context.Context, source string) (*Result, error) {
	parsed, err := url.Parse(source)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: not a valid URL: %s", ErrInvalidSource, source)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}
	req.Header.Set("User-Agent", webUserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d from %s", ErrFetchFailed, resp.StatusCode, parsed.Host)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(contentType, "text/html") {
		return nil, fmt.Errorf("%w: unsupported content type %q", ErrFetchFailed, contentType)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse HTML: %v", ErrFetchFailed, err)
	}

	doc.Find("script, style, nav, header, footer").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = parsed.Host
	}

	content := extractMainContent(doc)
	if content == "" {
		return nil, fmt.Errorf("%w: no readable content on %s", ErrEmptyContent, parsed.Host)
	}
	if len(content) > p.maxChars {
		p.logger.InfoContext(ctx, "truncating web content",
			slog.String("url", source),
			slog.Int("length", len(content)),
			slog.Int("max_chars", p.maxChars))
		content = content[:p.maxChars] + "... [Content truncated]"
	}

	return &Result{Title: title, Content: content}, nil
}

// extractMainContent collects text blocks from the page's main content
// region, skipping fragments too short to carry meaning.
func extractMainContent(doc *goquery.Document) string {
	region := doc.Selection
	for _, selector := range mainContentSelectors {
		if match := doc.Find(selector); match.Length() > 0 {
			region = match.First()
			break
		}
	}
	if region == doc.Selection {
		if body := doc.Find("body"); body.Length() > 0 {
			region = body.First()
		}
	}

	var parts []string
	region.Find("p, h1, h2, h3, h4, h5, h6, li").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if len(text) > 20 {
			parts = append(parts, text)
		}
	})

	return strings.Join(parts, "\n\n")
}
