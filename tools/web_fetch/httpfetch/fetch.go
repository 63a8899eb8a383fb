package httpfetch

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	nurl "net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"

	"github.com/mohammad-safakhou/postforge/tools/web_fetch/models"
	"github.com/mohammad-safakhou/postforge/utils"
)

const maxBodyBytes = 2 << 20 // cap page download at 2MB

// Fetch retrieves pages with a plain HTTP GET and extracts a title plus a
// short plain-text excerpt.
type Fetch struct {
	MaxChars int

	client *http.Client
	policy *bluemonday.Policy
	logger *log.Logger
}

func New(timeout time.Duration, maxChars int) *Fetch {
	return &Fetch{
		MaxChars: maxChars,
		client:   &http.Client{Timeout: timeout},
		policy:   bluemonday.StrictPolicy(),
		logger:   log.New(log.Writer(), "[FETCH] ", log.LstdFlags),
	}
}

func (f *Fetch) Exec(ctx context.Context, rawURL string) models.Result {
	if strings.TrimSpace(rawURL) == "" {
		return models.Result{URL: rawURL, Error: "invalid url"}
	}
	parsed, err := nurl.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return models.Result{URL: rawURL, Error: "invalid url"}
	}

	t0 := time.Now()
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return models.Result{URL: rawURL, Error: "invalid url"}
	}
	req.Header.Set("User-Agent", "postforge/1.0 (+https://github.com/mohammad-safakhou/postforge)")

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Printf("warn: fetch %s failed: %v", rawURL, err)
		return models.Result{URL: rawURL, Error: "Network error fetching URL"}
	}
	defer resp.Body.Close()

	elapsed := int(time.Since(t0) / time.Millisecond)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		f.logger.Printf("warn: fetch %s returned %d", rawURL, resp.StatusCode)
		return models.Result{
			URL:     rawURL,
			Status:  resp.StatusCode,
			FetchMS: elapsed,
			Error:   fmt.Sprintf("Non-200 response: %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return models.Result{URL: rawURL, Status: resp.StatusCode, FetchMS: elapsed, Error: "Network error fetching URL"}
	}

	title, excerpt := f.extract(string(body), parsed)
	return models.Result{
		URL:     rawURL,
		Title:   title,
		Excerpt: excerpt,
		Status:  resp.StatusCode,
		FetchMS: elapsed,
	}
}

// extract pulls title and text via readability, falling back to a sanitised
// body when the page is not article-shaped.
func (f *Fetch) extract(html string, u *nurl.URL) (string, string) {
	article, err := readability.FromReader(strings.NewReader(html), u)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		text := utils.CollapseWhitespace(article.TextContent)
		return strings.TrimSpace(article.Title), utils.Limit(text, f.MaxChars)
	}

	text := utils.CollapseWhitespace(f.policy.Sanitize(html))
	title := ""
	if start := strings.Index(strings.ToLower(html), "<title>"); start >= 0 {
		rest := html[start+len("<title>"):]
		if end := strings.Index(strings.ToLower(rest), "</title>"); end >= 0 {
			title = strings.TrimSpace(rest[:end])
		}
	}
	return title, utils.Limit(text, f.MaxChars)
}
