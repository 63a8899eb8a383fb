package pipeline

import (
	"context"
	"log"
	"math/rand"
	"time"

	"github.com/mohammad-safakhou/postforge/internal/telemetry"
	"github.com/mohammad-safakhou/postforge/provider"
)

const (
	// DefaultMaxAttempts bounds rate-limit retries per stage invocation.
	DefaultMaxAttempts = 6
	maxBackoffSeconds  = 60
	maxJitterSeconds   = 3
)

// StageCall is one attempt at a stage's underlying operation.
type StageCall func(ctx context.Context) (string, error)

// Invoker calls a stage operation with bounded exponential backoff on
// rate-limit rejections. Any other failure, or rate-limit exhaustion,
// surfaces immediately as an *InvocationError; the caller never retries
// further.
type Invoker struct {
	MaxAttempts int

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() int
	logger *log.Logger
	tele   *telemetry.Telemetry
}

func NewInvoker(maxAttempts int, tele *telemetry.Telemetry) *Invoker {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Invoker{
		MaxAttempts: maxAttempts,
		sleep:       sleepCtx,
		jitter:      func() int { return rand.Intn(maxJitterSeconds + 1) },
		logger:      log.New(log.Writer(), "[INVOKER] ", log.LstdFlags),
		tele:        tele,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// backoff computes the wait before retrying after the k-th failed attempt:
// min(60, 2^k + jitter[0,3]) seconds.
func (iv *Invoker) backoff(attempt int) time.Duration {
	secs := (1 << attempt) + iv.jitter()
	if secs > maxBackoffSeconds {
		secs = maxBackoffSeconds
	}
	return time.Duration(secs) * time.Second
}

// Invoke runs call until it succeeds, fails with a non-rate-limit error, or
// the attempt budget is spent.
func (iv *Invoker) Invoke(ctx context.Context, stage string, call StageCall) (string, error) {
	t0 := time.Now()
	defer func() { iv.tele.StageObserved(stage, time.Since(t0).Seconds()) }()

	for attempt := 1; ; attempt++ {
		content, err := call(ctx)
		if err == nil {
			return content, nil
		}
		if !provider.IsRateLimited(err) {
			iv.logger.Printf("error: stage %s failed: %v", stage, err)
			return "", &InvocationError{Stage: stage, Attempts: attempt, Err: err}
		}
		if attempt >= iv.MaxAttempts {
			iv.logger.Printf("error: stage %s rate limited, retries exhausted after %d attempts", stage, attempt)
			return "", &InvocationError{Stage: stage, Attempts: attempt, RateLimited: true, Err: err}
		}

		wait := iv.backoff(attempt)
		iv.logger.Printf("warn: stage %s returned 429; retrying attempt %d/%d after %s", stage, attempt, iv.MaxAttempts, wait)
		iv.tele.StageRetried(stage)
		if err := iv.sleep(ctx, wait); err != nil {
			return "", &InvocationError{Stage: stage, Attempts: attempt, Err: err}
		}
	}
}
