// Package polling implements the client-side polling schedule for long-running tailoring work:
// waits grow linearly from Initial by Increment up to Cap, and polling stops for good once a
// terminal value is observed.
package polling

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Backoff is a linear, capped polling schedule.
type Backoff struct {
	Initial   time.Duration `json:"initial"`
	Increment time.Duration `json:"increment"`
	Cap       time.Duration `json:"cap"`
}

// DefaultBackoff waits 1s, 2s, 3s, 4s, then 5s between polls.
var DefaultBackoff = Backoff{Initial: time.Second, Increment: time.Second, Cap: 5 * time.Second}

// Validate rejects schedules that would spin or never grow to the cap.
func (b Backoff) Validate() error {
	if b.Initial <= 0 {
		return fmt.Errorf("initial must be positive, got %s", b.Initial)
	}
	if b.Increment < 0 {
		return fmt.Errorf("increment must not be negative, got %s", b.Increment)
	}
	if b.Cap < b.Initial {
		return fmt.Errorf("cap %s must be at least initial %s", b.Cap, b.Initial)
	}
	return nil
}

// Delay returns the wait before poll number attempt (0-based).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := b.Initial + time.Duration(attempt)*b.Increment
	if d > b.Cap || d < b.Initial {
		return b.Cap
	}
	return d
}

// ErrMaxAttempts is returned when Poller.MaxAttempts polls saw no terminal value.
var ErrMaxAttempts = errors.New("polling: max attempts reached")

// Poller drives a Backoff. The zero value polls forever with DefaultBackoff and real sleeps.
type Poller struct {
	Backoff Backoff
	// MaxAttempts bounds the number of polls. Zero means unbounded.
	MaxAttempts int
	// Sleep waits for d or until ctx is done. Defaults to a timer-based wait.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnPoll is called after every poll with the 0-based attempt number.
	OnPoll func(attempt int, delay time.Duration)
}

// Poll waits, fetches, and repeats until done reports a terminal value, fetch fails, ctx is
// cancelled or MaxAttempts is exhausted. Nothing is fetched after the terminal value.
func Poll[T any](ctx context.Context, p Poller, fetch func(context.Context) (T, error), done func(T) bool) (T, error) {
	b := p.Backoff
	if b == (Backoff{}) {
		b = DefaultBackoff
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var last T
	for attempt := 0; p.MaxAttempts == 0 || attempt < p.MaxAttempts; attempt++ {
		delay := b.Delay(attempt)
		if err := sleep(ctx, delay); err != nil {
			return last, err
		}
		v, err := fetch(ctx)
		if err != nil {
			return last, err
		}
		last = v
		if p.OnPoll != nil {
			p.OnPoll(attempt, delay)
		}
		if done(v) {
			return v, nil
		}
	}
	return last, ErrMaxAttempts
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
