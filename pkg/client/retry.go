package client

import (
	"context"
	"time"
)

// DefaultReconnectDelay is the pause between reconnection attempts
const DefaultReconnectDelay = 5 * time.Second

// RetryPolicy retries with a fixed delay and no attempt limit. Only the
// context ends the retries.
type RetryPolicy struct {
	Delay time.Duration
}

// Wait blocks for one delay. It returns ctx.Err() if ctx ends first.
func (p RetryPolicy) Wait(ctx context.Context) error {
	timer := time.NewTimer(p.delay())
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Retry calls attempt until it succeeds or ctx ends. onFailure, if set, is
// told about each failed attempt before the wait.
func (p RetryPolicy) Retry(ctx context.Context, attempt func() error, onFailure func(n int, err error)) error {
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := attempt()
		if err == nil {
			return nil
		}
		if onFailure != nil {
			onFailure(n, err)
		}
		if err := p.Wait(ctx); err != nil {
			return err
		}
	}
}

func (p RetryPolicy) delay() time.Duration {
	if p.Delay <= 0 {
		return DefaultReconnectDelay
	}
	return p.Delay
}
