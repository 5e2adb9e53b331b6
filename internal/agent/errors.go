package agent

import (
	"errors"
	"fmt"
)

// ErrRateLimited marks a provider rejection due to rate limiting. The loop
// retries these with backoff before giving up.
var ErrRateLimited = errors.New("model backend rate limited")

// ErrToolRoundsExceeded is fatal: the model kept requesting tools past the
// per-turn round limit.
var ErrToolRoundsExceeded = errors.New("tool call rounds exceeded")

// TransientBackendError wraps a backend failure that the student can recover
// from by retrying the turn. UserMessage is safe to show verbatim.
type TransientBackendError struct {
	UserMessage string
	Err         error
}

func (e *TransientBackendError) Error() string {
	if e == nil {
		return "transient backend error"
	}
	return fmt.Sprintf("transient backend error: %v", e.Err)
}

func (e *TransientBackendError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
