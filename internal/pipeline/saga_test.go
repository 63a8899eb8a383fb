package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mohammad-safakhou/postforge/internal/agent"
	"github.com/mohammad-safakhou/postforge/internal/runstate"
	searchmodels "github.com/mohammad-safakhou/postforge/tools/web_search/models"
	fetchmodels "github.com/mohammad-safakhou/postforge/tools/web_fetch/models"
	"github.com/mohammad-safakhou/postforge/tools/web_search"
)

// fakeProvider scripts per-stage responses, routed by system prompt.
type fakeProvider struct {
	research func() (string, error)
	analysis func() (string, error)
	creation func() (string, error)
}

func (f *fakeProvider) Chat(ctx context.Context, system, user string) (string, error) {
	switch {
	case strings.Contains(system, "Web Researcher"):
		return f.research()
	case strings.Contains(system, "Data Analyst"):
		return f.analysis()
	case strings.Contains(system, "LinkedIn Content Creator"):
		return f.creation()
	default:
		return "", errors.New("unknown persona")
	}
}

func ok(s string) func() (string, error) {
	return func() (string, error) { return s, nil }
}

func alwaysRateLimited() (string, error) { return "", rateLimitErr() }

type fakeSearcher struct {
	results []searchmodels.Result
	err     error
	calls   int
}

func (f *fakeSearcher) Name() string { return "fake" }

func (f *fakeSearcher) Configured() bool { return true }

func (f *fakeSearcher) Discover(ctx context.Context, q string, k int) ([]searchmodels.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) > k {
		return f.results[:k], nil
	}
	return f.results, nil
}

type fakeFetcher struct {
	pages map[string]fetchmodels.Result
}

func (f *fakeFetcher) Exec(ctx context.Context, url string) fetchmodels.Result {
	if page, ok := f.pages[url]; ok {
		return page
	}
	return fetchmodels.Result{URL: url, Error: "Network error fetching URL"}
}

func newTestSaga(t *testing.T, p *fakeProvider, searcher web_search.WebSearcher, fetcher *fakeFetcher) (*Saga, runstate.Store) {
	t.Helper()
	store := runstate.NewFileStore(t.TempDir())
	iv := NewInvoker(3, nil)
	iv.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	iv.jitter = func() int { return 0 }
	if fetcher == nil {
		fetcher = &fakeFetcher{}
	}
	saga := NewSaga(
		store,
		iv,
		agent.NewResearcher(p),
		agent.NewAnalyst(p),
		agent.NewCreator(p),
		web_search.NewTool(searcher, web_search.NewBudget(3)),
		fetcher,
		nil,
	)
	return saga, store
}

func TestSagaHappyPath(t *testing.T) {
	p := &fakeProvider{
		research: ok(`{"findings":[{"fact":"AI adoption up 40%","source_url":"https://a.example"}]}`),
		analysis: ok("## Validated Facts\n- adoption up 40%"),
		creation: ok(`{"post_text":"AI is moving fast.","slides":[{"title":"Intro"}]}`),
	}
	saga, store := newTestSaga(t, p, &fakeSearcher{}, nil)

	if err := saga.Execute(context.Background(), "r1", "future of AI"); err != nil {
		t.Fatalf("execute: %v", err)
	}

	rec, err := store.Read(context.Background(), "r1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if rec.Status != runstate.StatusCompleted {
		t.Fatalf("expected completed, got %s", rec.Status)
	}
	if rec.Topic != "future of AI" || rec.Research == "" || rec.Analysis == "" {
		t.Fatalf("intermediate fields missing: %+v", rec)
	}
	post, _ := rec.Final["post_text"].(string)
	if post == "" {
		t.Fatalf("final.post_text empty: %+v", rec.Final)
	}
	if _, isArray := rec.Final["slides"].([]interface{}); !isArray {
		t.Fatalf("final.slides is not an array: %+v", rec.Final)
	}
	for _, status := range []string{"running", "research_completed", "analysis_completed", "completed"} {
		if _, ok := rec.Timestamps[status]; !ok {
			t.Fatalf("missing %s timestamp: %+v", status, rec.Timestamps)
		}
	}
}

func TestSagaFallbackOnExhaustedRateLimit(t *testing.T) {
	p := &fakeProvider{
		research: alwaysRateLimited,
		analysis: ok("report"),
		creation: ok(`{"post_text":"hi","slides":[]}`),
	}
	searcher := &fakeSearcher{results: []searchmodels.Result{
		{Title: "AI stats", URL: "https://a.example", Snippet: "40% growth"},
		{Title: "No link item"},
		{Title: "Another", URL: "https://b.example", Snippet: "details"},
	}}
	fetcher := &fakeFetcher{pages: map[string]fetchmodels.Result{
		"https://a.example": {URL: "https://a.example", Title: "AI stats", Excerpt: "Industry grew 40% YoY."},
		// b.example intentionally failing; must not abort the fallback
	}}
	saga, store := newTestSaga(t, p, searcher, fetcher)

	if err := saga.Execute(context.Background(), "r1", "future of AI"); err != nil {
		t.Fatalf("execute should recover via fallback, got %v", err)
	}

	rec, _ := store.Read(context.Background(), "r1")
	if rec.Status != runstate.StatusCompleted {
		t.Fatalf("expected completed, got %s (error %q)", rec.Status, rec.Error)
	}
	if !strings.Contains(rec.Research, "https://a.example") {
		t.Fatalf("synthesized research missing findings: %s", rec.Research)
	}
	if !strings.Contains(rec.Research, "Industry grew 40% YoY.") {
		t.Fatalf("fetched excerpt not folded into findings: %s", rec.Research)
	}
	if strings.Contains(rec.Research, "No link item") {
		t.Fatalf("finding without URL should be skipped: %s", rec.Research)
	}
	if searcher.calls != 1 {
		t.Fatalf("expected one direct search call, got %d", searcher.calls)
	}
}

func TestSagaFallbackDoubleFailureKeepsRootCause(t *testing.T) {
	p := &fakeProvider{
		research: alwaysRateLimited,
		analysis: ok("unused"),
		creation: ok("unused"),
	}
	searcher := &fakeSearcher{err: errors.New("search provider down")}
	saga, store := newTestSaga(t, p, searcher, nil)

	err := saga.Execute(context.Background(), "r1", "future of AI")
	if err == nil {
		t.Fatalf("expected failure")
	}
	var inv *InvocationError
	if !errors.As(err, &inv) || !inv.RateLimited {
		t.Fatalf("expected original rate-limit error, got %v", err)
	}

	rec, _ := store.Read(context.Background(), "r1")
	if rec.Status != runstate.StatusFailed {
		t.Fatalf("expected failed, got %s", rec.Status)
	}
	if rec.Error != quotaExceededMessage {
		t.Fatalf("persisted error should reflect the rate limit, got %q", rec.Error)
	}
}

func TestSagaGenericErrorFailsWithRawMessage(t *testing.T) {
	p := &fakeProvider{
		research: ok("findings"),
		analysis: func() (string, error) { return "", errors.New("model exploded") },
		creation: ok("unused"),
	}
	saga, store := newTestSaga(t, p, &fakeSearcher{}, nil)

	if err := saga.Execute(context.Background(), "r1", "topic"); err == nil {
		t.Fatalf("expected failure")
	}
	rec, _ := store.Read(context.Background(), "r1")
	if rec.Status != runstate.StatusFailed {
		t.Fatalf("expected failed, got %s", rec.Status)
	}
	if !strings.Contains(rec.Error, "model exploded") {
		t.Fatalf("raw cause missing from error: %q", rec.Error)
	}
	if rec.Research != "findings" {
		t.Fatalf("research snapshot lost on failure: %+v", rec)
	}
}

func TestSagaMalformedFinalJSON(t *testing.T) {
	p := &fakeProvider{
		research: ok("findings"),
		analysis: ok("report"),
		creation: ok("not json"),
	}
	saga, store := newTestSaga(t, p, &fakeSearcher{}, nil)

	if err := saga.Execute(context.Background(), "r1", "topic"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	rec, _ := store.Read(context.Background(), "r1")
	if rec.FinalRaw != "not json" {
		t.Fatalf("final_raw = %q", rec.FinalRaw)
	}
	if rec.Final["post_text"] != "not json" {
		t.Fatalf("fallback post_text = %v", rec.Final["post_text"])
	}
	slides, isArray := rec.Final["slides"].([]interface{})
	if !isArray || len(slides) != 0 {
		t.Fatalf("fallback slides = %v", rec.Final["slides"])
	}
	warning, _ := rec.Final["warning"].(string)
	if !strings.Contains(warning, "did not return valid JSON") {
		t.Fatalf("fallback warning = %q", warning)
	}
}

func TestStripCodeFences(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{`{"a":1}`, `{"a":1}`},
		{"  plain text with ``` inside ", "plain text with ``` inside"},
	}
	for _, c := range cases {
		if got := stripCodeFences(c.in); got != c.want {
			t.Fatalf("stripCodeFences(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParseFinal(t *testing.T) {
	final := parseFinal("```json\n{\"post_text\":\"hi\",\"slides\":[]}\n```")
	if final["post_text"] != "hi" {
		t.Fatalf("fenced JSON not parsed: %v", final)
	}
	if _, hasWarning := final["warning"]; hasWarning {
		t.Fatalf("valid JSON should not carry a warning: %v", final)
	}

	// a non-object parse result is treated like a parse failure
	final = parseFinal(`["a","b"]`)
	if final["post_text"] != `["a","b"]` {
		t.Fatalf("array output should fall back to raw capture: %v", final)
	}
}
