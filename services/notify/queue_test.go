package notifysvc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core"
)

type flakyNotifier struct {
	mu    sync.Mutex
	fails int // fail this many calls, then succeed
	err   error
	calls int
}

func (fn *flakyNotifier) Notify(context.Context, core.Notification) error {
	fn.mu.Lock()
	defer fn.mu.Unlock()
	fn.calls++
	if fn.calls <= fn.fails {
		return fn.err
	}
	return nil
}

type nopLogger struct{ errors, warns int }

func (l *nopLogger) Debug(string, ...interface{}) {}
func (l *nopLogger) Info(string, ...interface{})  {}
func (l *nopLogger) Warn(string, ...interface{})  { l.warns++ }
func (l *nopLogger) Error(string, ...interface{}) { l.errors++ }
func (l *nopLogger) Fatal(string, ...interface{}) { l.errors++ }

var parent = core.Notification{To: core.Recipient{Name: "Parent", Email: "parent@test.ph"}, Subject: "hi", Body: "hello"}

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 0},
		{1, 5 * time.Minute},
		{2, 15 * time.Minute},
		{3, 45 * time.Minute},
		{4, 120 * time.Minute},
		{5, 120 * time.Minute},
		{42, 120 * time.Minute},
	}
	for _, tt := range tests {
		if got := Backoff(tt.attempt); got != tt.want {
			t.Errorf("Backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func newTestQueue(n core.Notifier, maxAttempts int) (*Queue, *nopLogger, *time.Time) {
	logger := &nopLogger{}
	q := NewQueue(n, logger, maxAttempts)
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return now }
	return q, logger, &now
}

func TestQueue_RetriesOnSchedule(t *testing.T) {
	ctx := context.Background()
	fn := &flakyNotifier{fails: 2, err: errors.New("503")}
	q, logger, now := newTestQueue(fn, 0)

	require.NoError(t, q.Notify(ctx, parent))
	require.NoError(t, q.Notify(ctx, core.Notification{Subject: "nobody"}))
	require.Len(t, q.Items(), 1, "notifications without recipient are dropped")

	delivered, failed := q.ProcessDue(ctx, *now)
	assert.Zero(t, delivered)
	assert.Zero(t, failed)
	it := q.Items()[0]
	assert.Equal(t, 1, it.Attempts)
	assert.Equal(t, now.Add(5*time.Minute), it.NextAttemptAt)
	assert.Equal(t, "503", it.LastError)

	// not due yet
	q.ProcessDue(ctx, now.Add(4*time.Minute))
	assert.Equal(t, 1, fn.calls)

	q.ProcessDue(ctx, now.Add(5*time.Minute))
	it = q.Items()[0]
	assert.Equal(t, 2, it.Attempts)
	assert.Equal(t, now.Add(20*time.Minute), it.NextAttemptAt)

	delivered, _ = q.ProcessDue(ctx, now.Add(20*time.Minute))
	assert.Equal(t, 1, delivered)
	it = q.Items()[0]
	assert.Equal(t, StatusDelivered, it.Status)
	assert.Empty(t, it.LastError)
	assert.Equal(t, 2, logger.warns)

	q.Prune()
	assert.Empty(t, q.Items())
}

func TestQueue_GivesUp(t *testing.T) {
	ctx := context.Background()
	fn := &flakyNotifier{fails: 100, err: errors.New("timeout")}
	q, logger, now := newTestQueue(fn, 3)
	require.NoError(t, q.Notify(ctx, parent))

	at := *now
	for i := 0; i < 3; i++ {
		q.ProcessDue(ctx, at)
		at = at.Add(3 * time.Hour)
	}
	q.ProcessDue(ctx, at)
	assert.Equal(t, 3, fn.calls, "no attempts after giving up")

	needs := q.NeedsAttention()
	require.Len(t, needs, 1)
	assert.Equal(t, StatusFailed, needs[0].Status)
	assert.Equal(t, 3, needs[0].Attempts)
	assert.Equal(t, 1, logger.errors)

	q.Prune()
	assert.Len(t, q.Items(), 1, "failed items are kept")
}

func TestQueue_NoEmailFailsImmediately(t *testing.T) {
	ctx := context.Background()
	fn := &flakyNotifier{fails: 1, err: ErrNoEmail}
	q, _, now := newTestQueue(fn, 0)
	require.NoError(t, q.Notify(ctx, core.Notification{To: core.Recipient{Phone: "09171234567"}}))

	_, failed := q.ProcessDue(ctx, *now)
	assert.Equal(t, 1, failed)
	assert.Len(t, q.NeedsAttention(), 1)
}

func TestQueue_Run(t *testing.T) {
	fn := &flakyNotifier{}
	q := NewQueue(fn, &nopLogger{}, 0)
	require.NoError(t, q.Notify(context.Background(), parent))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		q.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return len(q.Items()) == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	fn.mu.Lock()
	defer fn.mu.Unlock()
	assert.Equal(t, 1, fn.calls)
}
