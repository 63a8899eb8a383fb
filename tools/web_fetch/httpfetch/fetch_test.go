package httpfetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const page = `<!DOCTYPE html><html><head><title>AI Report</title></head>
<body><article><h1>AI Report</h1><p>Generative AI adoption grew 40 percent year over year across the surveyed industries, with the strongest growth in marketing and customer support teams.</p>
<p>Analysts expect the trend to continue through next year as tooling matures.</p></article></body></html>`

func TestExecExtractsTitleAndExcerpt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	f := New(5*time.Second, 120)
	res := f.Exec(context.Background(), srv.URL)

	if res.Error != "" {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	if !strings.Contains(res.Title, "AI Report") {
		t.Fatalf("title = %q", res.Title)
	}
	if res.Excerpt == "" || !strings.Contains(res.Excerpt, "adoption") {
		t.Fatalf("excerpt = %q", res.Excerpt)
	}
	if len(res.Excerpt) > 130 {
		t.Fatalf("excerpt not capped: %d chars", len(res.Excerpt))
	}
}

func TestExecReportsNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(5*time.Second, 1200)
	res := f.Exec(context.Background(), srv.URL)

	if res.Error != "Non-200 response: 404" {
		t.Fatalf("error = %q", res.Error)
	}
	if res.Status != http.StatusNotFound {
		t.Fatalf("status = %d", res.Status)
	}
}

func TestExecNeverPanicsOnBadInput(t *testing.T) {
	f := New(time.Second, 1200)

	for _, url := range []string{"", "   ", "not-a-url", "ftp://example.com/x"} {
		res := f.Exec(context.Background(), url)
		if res.Error == "" {
			t.Fatalf("expected structured error for %q", url)
		}
	}
}

func TestExecNetworkErrorIsStructured(t *testing.T) {
	f := New(500*time.Millisecond, 1200)
	res := f.Exec(context.Background(), "http://127.0.0.1:1/unreachable")
	if res.Error != "Network error fetching URL" {
		t.Fatalf("error = %q", res.Error)
	}
}
