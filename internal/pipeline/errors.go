package pipeline

import (
	"errors"
	"fmt"
)

// InvocationError is the single failure type surfaced by the Invoker. It
// carries the original cause and whether the failure was a rate-limit whose
// retry budget is spent.
type InvocationError struct {
	Stage       string
	Attempts    int
	RateLimited bool
	Err         error
}

func (e *InvocationError) Error() string {
	if e.RateLimited {
		return fmt.Sprintf("stage %s rate limited after %d attempts: %v", e.Stage, e.Attempts, e.Err)
	}
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// ToolRetryExhaustedError means a downstream tool-call budget was spent. It
// is never retried at the saga level and maps to its own user-facing message.
type ToolRetryExhaustedError struct {
	Tool string
}

func (e *ToolRetryExhaustedError) Error() string {
	return fmt.Sprintf("tool %s exhausted its retry budget", e.Tool)
}

const (
	quotaExceededMessage  = "The generative provider's request quota is exhausted. Please try again later."
	toolExhaustedMessage  = "A downstream tool exhausted its retry budget. Please try again later."
	fallbackWarningSuffix = "did not return valid JSON; raw content captured."
)

// UserFacingMessage classifies err into a message suitable for direct
// display on the polling client.
func UserFacingMessage(err error) string {
	var inv *InvocationError
	if errors.As(err, &inv) && inv.RateLimited {
		return quotaExceededMessage
	}
	var tool *ToolRetryExhaustedError
	if errors.As(err, &tool) {
		return toolExhaustedMessage
	}
	return err.Error()
}
