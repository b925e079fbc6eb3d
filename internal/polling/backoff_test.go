package polling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoff_DefaultSchedule(t *testing.T) {
	var got []time.Duration
	for i := range 8 {
		got = append(got, DefaultBackoff.Delay(i)/time.Second)
	}
	assert.Equal(t, []time.Duration{1, 2, 3, 4, 5, 5, 5, 5}, got)
}

func TestBackoff_Validate(t *testing.T) {
	assert.NoError(t, DefaultBackoff.Validate())
	assert.Error(t, Backoff{Initial: 0, Cap: time.Second}.Validate())
	assert.Error(t, Backoff{Initial: time.Second, Increment: -1, Cap: time.Second}.Validate())
	assert.Error(t, Backoff{Initial: 2 * time.Second, Cap: time.Second}.Validate())
}

func TestBackoff_NoIncrementStaysFlat(t *testing.T) {
	b := Backoff{Initial: time.Second, Cap: 5 * time.Second}
	assert.Equal(t, time.Second, b.Delay(10))
}

type fakeSleeper struct {
	waits []time.Duration
}

func (f *fakeSleeper) sleep(ctx context.Context, d time.Duration) error {
	f.waits = append(f.waits, d)
	return ctx.Err()
}

func TestPoll_StopsAtTerminal(t *testing.T) {
	fs := &fakeSleeper{}
	calls := 0
	fetch := func(context.Context) (string, error) {
		calls++
		if calls == 6 {
			return "completed", nil
		}
		return "processing", nil
	}

	got, err := Poll(context.Background(), Poller{Sleep: fs.sleep}, fetch, func(s string) bool { return s == "completed" })
	require.NoError(t, err)
	assert.Equal(t, "completed", got)
	assert.Equal(t, 6, calls, "no fetch after the terminal value")
	assert.Equal(t, []time.Duration{1, 2, 3, 4, 5, 5}, scale(fs.waits))
}

func TestPoll_TerminalIsIdempotent(t *testing.T) {
	fs := &fakeSleeper{}
	fetch := func(context.Context) (string, error) { return "failed", nil }
	done := func(s string) bool { return s == "failed" }

	for range 3 {
		got, err := Poll(context.Background(), Poller{Sleep: fs.sleep}, fetch, done)
		require.NoError(t, err)
		assert.Equal(t, "failed", got)
	}
	assert.Len(t, fs.waits, 3)
}

func TestPoll_FetchError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Poll(context.Background(), Poller{Sleep: (&fakeSleeper{}).sleep},
		func(context.Context) (int, error) { return 0, boom },
		func(int) bool { return false })
	assert.ErrorIs(t, err, boom)
}

func TestPoll_MaxAttempts(t *testing.T) {
	var attempts []int
	p := Poller{
		Sleep:       (&fakeSleeper{}).sleep,
		MaxAttempts: 3,
		OnPoll:      func(a int, _ time.Duration) { attempts = append(attempts, a) },
	}
	got, err := Poll(context.Background(), p,
		func(context.Context) (int, error) { return 7, nil },
		func(int) bool { return false })
	assert.ErrorIs(t, err, ErrMaxAttempts)
	assert.Equal(t, 7, got)
	assert.Equal(t, []int{0, 1, 2}, attempts)
}

func TestPoll_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	_, err := Poll(ctx, Poller{}, func(context.Context) (int, error) {
		calls++
		return 0, nil
	}, func(int) bool { return false })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func scale(ds []time.Duration) []time.Duration {
	out := make([]time.Duration, len(ds))
	for i, d := range ds {
		out[i] = d / time.Second
	}
	return out
}
