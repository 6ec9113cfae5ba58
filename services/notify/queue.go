package notifysvc

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core"
)

const DefaultMaxAttempts = 5

// BackoffSteps are the delays before each retry; the last one repeats.
var BackoffSteps = []time.Duration{5 * time.Minute, 15 * time.Minute, 45 * time.Minute, 120 * time.Minute}

// Backoff is the delay after the given failed attempt (1-based).
func Backoff(attempt int) time.Duration {
	switch {
	case attempt < 1:
		return 0
	case attempt > len(BackoffSteps):
		return BackoffSteps[len(BackoffSteps)-1]
	}
	return BackoffSteps[attempt-1]
}

type ItemStatus string

const (
	StatusPending   ItemStatus = "pending"
	StatusDelivered ItemStatus = "delivered"
	StatusFailed    ItemStatus = "failed"
)

type Item struct {
	ID             string
	Notification   core.Notification
	Status         ItemStatus
	Attempts       int
	NextAttemptAt  time.Time
	LastError      string
	NeedsAttention bool // failed for good, needs manual follow-up
	CreatedAt      time.Time

	inFlight bool
}

// Queue delivers notifications through another notifier in the background, retrying failures
// on a fixed backoff schedule. It is best-effort and in-memory.
type Queue struct {
	notifier    core.Notifier
	logger      core.Logger
	maxAttempts int

	mu    sync.Mutex
	items []*Item

	now func() time.Time // mockable
}

var _ core.Notifier = (*Queue)(nil)

func NewQueue(notifier core.Notifier, logger core.Logger, maxAttempts int) *Queue {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Queue{notifier: notifier, logger: logger, maxAttempts: maxAttempts, now: time.Now}
}

// Notify enqueues n for immediate delivery on the next run.
func (q *Queue) Notify(_ context.Context, n core.Notification) error {
	if !n.HasRecipient() {
		return nil
	}
	now := q.now()
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, &Item{
		ID:            uuid.New().String(),
		Notification:  n,
		Status:        StatusPending,
		NextAttemptAt: now,
		CreatedAt:     now,
	})
	return nil
}

func (q *Queue) due(now time.Time) []*Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []*Item
	for _, it := range q.items {
		if it.Status == StatusPending && !it.inFlight && !it.NextAttemptAt.After(now) {
			it.inFlight = true
			due = append(due, it)
		}
	}
	return due
}

// ProcessDue attempts every pending item whose next attempt is due at now.
func (q *Queue) ProcessDue(ctx context.Context, now time.Time) (delivered, failed int) {
	for _, it := range q.due(now) {
		err := q.notifier.Notify(ctx, it.Notification)

		q.mu.Lock()
		it.inFlight = false
		it.Attempts++
		switch {
		case err == nil:
			it.Status = StatusDelivered
			it.LastError = ""
			delivered++
		case it.Attempts >= q.maxAttempts || errors.Cause(err) == ErrNoEmail:
			it.Status = StatusFailed
			it.LastError = err.Error()
			it.NeedsAttention = true
			failed++
		default:
			it.LastError = err.Error()
			it.NextAttemptAt = now.Add(Backoff(it.Attempts))
		}
		q.mu.Unlock()

		if err != nil && it.NeedsAttention {
			q.logger.Error("notification permanently failed", err, map[string]interface{}{"id": it.ID, "attempts": it.Attempts})
		} else if err != nil {
			q.logger.Warn("notification attempt failed", err, map[string]interface{}{"id": it.ID, "attempts": it.Attempts})
		}
	}
	return delivered, failed
}

func (q *Queue) snapshot(keep func(*Item) bool) []Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Item, 0, len(q.items))
	for _, it := range q.items {
		if keep == nil || keep(it) {
			out = append(out, *it)
		}
	}
	return out
}

func (q *Queue) Items() []Item {
	return q.snapshot(nil)
}

// NeedsAttention lists items that exhausted their attempts.
func (q *Queue) NeedsAttention() []Item {
	return q.snapshot(func(it *Item) bool { return it.NeedsAttention })
}

// Prune drops delivered items.
func (q *Queue) Prune() {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.items[:0]
	for _, it := range q.items {
		if it.Status != StatusDelivered {
			kept = append(kept, it)
		}
	}
	for i := len(kept); i < len(q.items); i++ {
		q.items[i] = nil
	}
	q.items = kept
}

// Run processes due items every interval until ctx is done.
func (q *Queue) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.ProcessDue(ctx, q.now())
			q.Prune()
		}
	}
}
