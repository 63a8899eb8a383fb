package web_fetch

import (
	"context"
	"time"

	"github.com/mohammad-safakhou/postforge/tools/web_fetch/httpfetch"
	"github.com/mohammad-safakhou/postforge/tools/web_fetch/models"
)

const (
	DefaultTimeout  = 8 * time.Second
	MaxCharsDefault = 1200
)

// WebFetcher retrieves one page and returns a structured result. Exec never
// returns a Go error for page-level failures; those land in Result.Error so
// one bad URL cannot abort a batch.
type WebFetcher interface {
	Exec(ctx context.Context, url string) models.Result
}

type FetcherType string

const (
	HTTPFetcherType FetcherType = "http"
)

type Error struct{ Msg string }

func (e *Error) Error() string { return e.Msg }

func NewWebFetcher(fetcherType FetcherType, timeout time.Duration, maxChars int) (WebFetcher, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxChars <= 0 {
		maxChars = MaxCharsDefault
	}

	switch fetcherType {
	case HTTPFetcherType:
		return httpfetch.New(timeout, maxChars), nil
	default:
		return nil, &Error{"unsupported fetcher type"}
	}
}
