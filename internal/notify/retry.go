package notify

import (
	"context"
	"errors"
	"time"

	tgbot "github.com/go-telegram/bot"
)

// ErrRetriesExhausted reports that a retryable transport failure survived
// every attempt. For the affected (listing, subscriber) pair this is fatal:
// the caller must surface it and must not mark the pair as seen, so the
// next poll cycle retries the delivery.
var ErrRetriesExhausted = errors.New("delivery retries exhausted")

// RetryPolicy is the injected retry contract: bounded attempts, a fixed
// backoff between them, and the transport's own error classification.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
	IsRetryable func(error) bool
}

// DefaultRetryPolicy retries rate limits, timeouts and network errors, and
// treats payload rejections (bad request, forbidden, unauthorized, not
// found) as terminal.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 8,
		Backoff:     60 * time.Second,
		IsRetryable: func(err error) bool {
			switch {
			case errors.Is(err, tgbot.ErrorBadRequest),
				errors.Is(err, tgbot.ErrorForbidden),
				errors.Is(err, tgbot.ErrorUnauthorized),
				errors.Is(err, tgbot.ErrorNotFound):
				return false
			}
			return true
		},
	}
}

// sleep waits out the backoff unless the context ends first.
func (p RetryPolicy) sleep(ctx context.Context) error {
	timer := time.NewTimer(p.Backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
