// Package webfetch is the built-in web retrieval tool server. It fetches
// pages for the model and pulls structured recipes out of recipe sites.
package webfetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

const (
	DefaultMaxChars  = 20000
	DefaultTimeout   = 20 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_7_2) AppleWebKit/537.36 recipebox"

	maxRedirects = 5
	maxBodyBytes = 5 << 20
)

// Options configures a Fetcher. Zero values fall back to the defaults.
type Options struct {
	MaxChars  int
	Timeout   time.Duration
	UserAgent string
}

// Fetcher downloads pages and turns them into model-readable text.
type Fetcher struct {
	maxChars   int
	userAgent  string
	httpClient *http.Client
}

// NewFetcher creates a Fetcher.
func NewFetcher(opts Options) *Fetcher {
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	client := &http.Client{
		Timeout: opts.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
	return &Fetcher{maxChars: opts.MaxChars, userAgent: opts.UserAgent, httpClient: client}
}

// Page is the result of FetchPage.
type Page struct {
	URL       string `json:"url"`
	FinalURL  string `json:"finalUrl"`
	Status    int    `json:"status"`
	Extractor string `json:"extractor"`
	Title     string `json:"title,omitempty"`
	Truncated bool   `json:"truncated"`
	Length    int    `json:"length"`
	Text      string `json:"text"`
}

// JSON renders the page as the tool result the model sees.
func (p Page) JSON() string {
	out, _ := json.Marshal(p)
	return string(out)
}

// document is a downloaded response body.
type document struct {
	finalURL    *url.URL
	status      int
	contentType string
	body        []byte
}

func (d *document) isHTML() bool {
	return strings.Contains(d.contentType, "text/html") || isHTMLPrefix(d.body)
}

// FetchPage downloads rawURL and extracts its readable content. maxChars <= 0
// uses the fetcher's limit.
func (f *Fetcher) FetchPage(ctx context.Context, rawURL string, maxChars int) (Page, error) {
	if maxChars <= 0 {
		maxChars = f.maxChars
	}
	doc, err := f.get(ctx, rawURL)
	if err != nil {
		return Page{}, err
	}

	page := Page{URL: rawURL, FinalURL: doc.finalURL.String(), Status: doc.status}
	switch {
	case strings.Contains(doc.contentType, "application/json"):
		var v any
		if err := json.Unmarshal(doc.body, &v); err == nil {
			formatted, _ := json.MarshalIndent(v, "", "  ")
			page.Text = string(formatted)
		} else {
			page.Text = string(doc.body)
		}
		page.Extractor = "json"

	case doc.isHTML():
		page.Title, page.Text = readable(doc)
		page.Extractor = "readability"

	default:
		page.Text = string(doc.body)
		page.Extractor = "raw"
	}

	page.Text, page.Truncated = truncate(page.Text, maxChars)
	page.Length = len(page.Text)
	return page, nil
}

// get performs the request. Non-2xx responses are errors.
func (f *Fetcher) get(ctx context.Context, rawURL string) (*document, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, fmt.Errorf("URL validation failed: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: HTTP %d", rawURL, resp.StatusCode)
	}
	return &document{
		finalURL:    resp.Request.URL,
		status:      resp.StatusCode,
		contentType: resp.Header.Get("Content-Type"),
		body:        body,
	}, nil
}

// readable runs readability over an HTML document, falling back to tag
// stripping when no article is found.
func readable(doc *document) (title, text string) {
	article, err := readability.FromReader(bytes.NewReader(doc.body), doc.finalURL)
	if err != nil || strings.TrimSpace(article.Content) == "" {
		return "", stripHTMLTags(string(doc.body))
	}
	text = htmlToMarkdown(article.Content)
	if article.Title != "" {
		text = "# " + article.Title + "\n\n" + text
	}
	return article.Title, text
}

// validateURL checks that url is http(s) with a host.
func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("only http/https allowed, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing domain in URL")
	}
	return nil
}

// isHTMLPrefix returns true if the body starts with an HTML declaration.
func isHTMLPrefix(b []byte) bool {
	prefix := strings.ToLower(strings.TrimSpace(string(b[:min(256, len(b))])))
	return strings.HasPrefix(prefix, "<!doctype") || strings.HasPrefix(prefix, "<html")
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) (string, bool) {
	if len(s) <= n {
		return s, false
	}
	for n > 0 && !utf8RuneStart(s[n]) {
		n--
	}
	return s[:n], true
}

func utf8RuneStart(b byte) bool { return b&0xC0 != 0x80 }
