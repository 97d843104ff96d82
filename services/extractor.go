package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// maxBodyBytes caps how much of a page is read for extraction.
const maxBodyBytes = 2 << 20

// mainContentSelectors are tried in priority order before falling back to
// the whole body.
var mainContentSelectors = []string{"main", "article", "#content", "#main-content"}

// Consumer-side interfaces
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*http.Response, error)
}

// Extractor pulls the main textual content out of a web page. An empty
// string with a nil error means the page was reachable but had no
// extractable content.
type Extractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

type PageExtractor struct {
	fetcher PageFetcher
	logger  *zap.Logger
}

// Functional Options Pattern
type ExtractorOption func(*PageExtractor)

func WithFetcher(f PageFetcher) ExtractorOption {
	return func(e *PageExtractor) { e.fetcher = f }
}

func WithExtractorLogger(l *zap.Logger) ExtractorOption {
	return func(e *PageExtractor) { e.logger = l }
}

func NewPageExtractor(opts ...ExtractorOption) *PageExtractor {
	e := &PageExtractor{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *PageExtractor) Extract(ctx context.Context, url string) (string, error) {
	resp, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d for URL %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read body of %s: %w", url, err)
	}

	if text := e.extractParagraphs(body); text != "" {
		e.logger.Debug("extracted content with selector strategy",
			zap.String("url", url), zap.Int("length", len(text)))
		return text, nil
	}

	// Last resort: walk the raw token stream
	text := extractPlainText(bytes.NewReader(body))
	if text != "" {
		e.logger.Debug("extracted content with token-walk fallback",
			zap.String("url", url), zap.Int("length", len(text)))
	} else {
		e.logger.Debug("no extractable content", zap.String("url", url))
	}
	return text, nil
}

// extractParagraphs joins the paragraph text of the first matching main
// content area, falling back to all paragraphs in the body.
func (e *PageExtractor) extractParagraphs(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	target := doc.Selection
	for _, sel := range mainContentSelectors {
		if s := doc.Find(sel); s.Length() > 0 {
			target = s.First()
			break
		}
	}

	var parts []string
	target.Find("p").Each(func(_ int, p *goquery.Selection) {
		if text := strings.TrimSpace(p.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, " ")
}

// extractPlainText collects visible text from an HTML token stream,
// skipping script and style blocks.
func extractPlainText(r io.Reader) string {
	tokenizer := html.NewTokenizer(r)
	var builder strings.Builder
	inScript := false
	inStyle := false

	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			break
		}

		switch tt {
		case html.TextToken:
			if !inScript && !inStyle {
				if text := strings.TrimSpace(string(tokenizer.Text())); text != "" {
					if builder.Len() > 0 {
						builder.WriteString(" ")
					}
					builder.WriteString(text)
				}
			}
		case html.StartTagToken:
			token := tokenizer.Token()
			if token.Data == "script" {
				inScript = true
			} else if token.Data == "style" {
				inStyle = true
			}
		case html.EndTagToken:
			token := tokenizer.Token()
			if token.Data == "script" {
				inScript = false
			} else if token.Data == "style" {
				inStyle = false
			}
		}
	}
	return builder.String()
}
