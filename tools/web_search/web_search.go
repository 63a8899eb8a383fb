package web_search

import (
	"context"
	"log"
	"sync"

	"github.com/mohammad-safakhou/postforge/tools/web_search/brave"
	"github.com/mohammad-safakhou/postforge/tools/web_search/models"
	"github.com/mohammad-safakhou/postforge/tools/web_search/serper"
	"github.com/mohammad-safakhou/postforge/utils"
)

// WebSearcher issues one query against a search provider and returns at most
// k raw results.
type WebSearcher interface {
	Name() string
	Configured() bool
	Discover(ctx context.Context, q string, k int) ([]models.Result, error)
}

type Provider string

const (
	SerperProvider Provider = "serper"
	BraveProvider  Provider = "brave"
)

var ErrUnsupportedProvider = &Error{"unsupported provider"}

type Error struct{ Msg string }

func (e *Error) Error() string { return e.Msg }

func NewWebSearcher(provider Provider, apiKey string) (WebSearcher, error) {
	switch provider {
	case SerperProvider:
		return serper.Search{ApiKey: apiKey}, nil
	case BraveProvider:
		return brave.Search{ApiKey: apiKey}, nil
	default:
		return nil, ErrUnsupportedProvider
	}
}

// Finding is one search hit reshaped for agent consumption.
type Finding struct {
	Fact      string `json:"fact"`
	Context   string `json:"context"`
	SourceURL string `json:"source_url"`
}

// Findings is the structured search payload. Error is set instead of a Go
// error so degraded calls still yield a well-formed document.
type Findings struct {
	Findings []Finding `json:"findings"`
	Provider string    `json:"provider,omitempty"`
	Error    string    `json:"error,omitempty"`
}

const maxCachedQueries = 32

// Budget is the per-process call budget and query cache for one search
// collaborator. It replaces hidden per-call statics so behaviour is testable
// and cannot leak across run boundaries unnoticed: the counter caps total
// provider calls and the bounded cache answers repeat queries for free.
// One Budget is shared by every worker, so all state lives behind a mutex.
type Budget struct {
	MaxCalls int

	mu    sync.Mutex
	calls int
	cache map[string]Findings
}

func NewBudget(maxCalls int) *Budget {
	if maxCalls <= 0 {
		maxCalls = 3
	}
	return &Budget{MaxCalls: maxCalls, cache: make(map[string]Findings)}
}

func (b *Budget) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func (b *Budget) lookup(query string) (Findings, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cached, ok := b.cache[query]
	return cached, ok
}

// take claims one provider call, reporting false once the budget is spent.
func (b *Budget) take() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.calls >= b.MaxCalls {
		return false
	}
	b.calls++
	return true
}

func (b *Budget) store(query string, out Findings) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.cache) < maxCachedQueries {
		b.cache[query] = out
	}
}

// Tool wraps a WebSearcher with budget accounting and the findings mapping.
type Tool struct {
	searcher WebSearcher
	budget   *Budget
	logger   *log.Logger
}

func NewTool(searcher WebSearcher, budget *Budget) *Tool {
	return &Tool{
		searcher: searcher,
		budget:   budget,
		logger:   log.New(log.Writer(), "[SEARCH] ", log.LstdFlags),
	}
}

// Search issues one query, returning up to k findings. It never fails:
// missing configuration, exhausted budget and provider errors all come back
// as an empty findings list with a reason in Error.
func (t *Tool) Search(ctx context.Context, query string, k int) Findings {
	if t.searcher == nil {
		return Findings{Findings: []Finding{}, Error: "search provider is not configured"}
	}
	if !t.searcher.Configured() {
		return Findings{Findings: []Finding{}, Error: "Search API key is missing in environment."}
	}
	if cached, ok := t.budget.lookup(query); ok {
		return cached
	}
	if !t.budget.take() {
		return Findings{Findings: []Finding{}, Error: "Too many search attempts in one run. Reuse prior results."}
	}

	results, err := t.searcher.Discover(ctx, query, k)
	if err != nil {
		t.logger.Printf("warn: %s search failed: %v", t.searcher.Name(), err)
		return Findings{Findings: []Finding{}, Error: "Search provider returned an error."}
	}

	findings := make([]Finding, 0, len(results))
	for _, r := range results {
		if r.URL == "" {
			continue
		}
		title := r.Title
		if title == "" {
			title = "Untitled"
		}
		findings = append(findings, Finding{
			Fact:      title,
			Context:   utils.Limit(r.Snippet, 240),
			SourceURL: r.URL,
		})
	}

	out := Findings{Findings: findings, Provider: t.searcher.Name()}
	t.budget.store(query, out)
	return out
}
