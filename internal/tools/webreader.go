package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"koda/internal/errs"
	"koda/internal/gateway"
)

// WebReaderName is the registry name for web page fetching.
const WebReaderName = "WebReader"

// DefaultFetchMaxBytes caps how much of a response body is read.
const DefaultFetchMaxBytes = 1024 * 1024

// WebReader fetches a web page and extracts its visible text.
type WebReader struct {
	client   *http.Client
	maxBytes int64
}

// NewWebReader creates a WebReader. maxBytes <= 0 uses the default cap.
func NewWebReader(maxBytes int64) *WebReader {
	if maxBytes <= 0 {
		maxBytes = DefaultFetchMaxBytes
	}
	return &WebReader{
		client:   &http.Client{Timeout: 30 * time.Second},
		maxBytes: maxBytes,
	}
}

func (w *WebReader) Name() string { return WebReaderName }

func (w *WebReader) Commands() []gateway.CommandSpec {
	return []gateway.CommandSpec{
		{Name: "fetchPage", Signature: "(url)", Description: "fetch a web page and return its text content"},
	}
}

func (w *WebReader) Execute(ctx context.Context, command string, params []any) (Result, error) {
	raw, err := stringParam(params, 0, "url")
	if err != nil {
		return Result{}, err
	}

	parsed, err := url.Parse(raw)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return Result{}, fmt.Errorf("invalid url %q: only http and https are supported", raw)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", raw, nil)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := w.client.Do(req)
	if err != nil {
		return Result{}, errs.Unreachable("web", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, errs.APIFromStatus("web", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, w.maxBytes))
	if err != nil {
		return Result{}, errs.Unreachable("web", err)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if strings.Contains(contentType, "text/html") || strings.Contains(contentType, "xhtml") {
		return Result{Content: ExtractText(string(body))}, nil
	}
	return Result{Content: string(body)}, nil
}

// skipElements are HTML subtrees that never hold page text.
var skipElements = map[string]bool{
	"script": true, "style": true, "noscript": true,
	"head": true, "svg": true, "iframe": true,
}

// blockElements get a line break between their text runs.
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"article": true, "section": true, "blockquote": true, "pre": true,
}

// ExtractText strips markup from an HTML document, returning visible
// text with block elements separated by newlines.
func ExtractText(page string) string {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return page
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
					b.WriteString(" ")
				}
				b.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] && b.Len() > 0 {
			if !strings.HasSuffix(b.String(), "\n") {
				b.WriteString("\n")
			}
		}
	}
	walk(doc)

	return strings.TrimSpace(b.String())
}
