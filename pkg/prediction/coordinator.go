package prediction

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/theawareai/stealth/pkg/datastructure"
	"github.com/theawareai/stealth/pkg/gateway"
)

var (
	// ErrNotFound: never triggered, already consumed, or expired.
	ErrNotFound = errors.New("no prediction found")
	// ErrStillProcessing: the poll timeout elapsed before the upstream
	// finished. The computation keeps running in the background.
	ErrStillProcessing = errors.New("prediction still processing")
)

type Upstream interface {
	Predict(ctx context.Context, request gateway.PredictRequest) (json.RawMessage, error)
}

// pendingEntry is the completion handle for one in-flight prediction.
// done is closed exactly once, after result/err are set.
type pendingEntry struct {
	done      chan struct{}
	result    json.RawMessage
	err       error
	createdAt time.Time
}

type completedResult struct {
	value     json.RawMessage
	createdAt time.Time
	// consumed flips once a poller has taken delivery. The value stays
	// until its TTL for late pollers, but a new Trigger is allowed again.
	consumed bool
}

type task struct {
	email   string
	entry   *pendingEntry
	request gateway.PredictRequest
}

// Coordinator runs at most one prediction per requester at a time. Trigger
// starts the upstream call detached on a small worker pool and never blocks,
// Poll waits up to pollTimeout for completion. Completed values are kept in
// a short-lived secondary store so a late poller still finds them after the
// pending entry is gone.
type Coordinator struct {
	upstream Upstream

	mu        sync.Mutex
	pending   map[string]*pendingEntry
	completed map[string]completedResult

	pendingTTL  time.Duration
	resultTTL   time.Duration
	pollTimeout time.Duration
	maxPending  int

	tasks chan task
}

type Option func(*Coordinator)

func WithPollTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.pollTimeout = d }
}

func WithPendingTTL(d time.Duration) Option {
	return func(c *Coordinator) { c.pendingTTL = d }
}

func WithResultTTL(d time.Duration) Option {
	return func(c *Coordinator) { c.resultTTL = d }
}

func WithMaxPending(n int) Option {
	return func(c *Coordinator) { c.maxPending = n }
}

func NewCoordinator(upstream Upstream, opts ...Option) *Coordinator {
	c := &Coordinator{
		upstream:    upstream,
		pending:     make(map[string]*pendingEntry),
		completed:   make(map[string]completedResult),
		pendingTTL:  2 * time.Minute,
		resultTTL:   2 * time.Minute,
		pollTimeout: 30 * time.Second,
		maxPending:  1000,
		tasks:       make(chan task, 64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start launches the worker pool and the TTL sweeper. Workers stop when ctx
// is cancelled.
func (c *Coordinator) Start(ctx context.Context, workers int) {
	for i := 0; i < workers; i++ {
		go c.worker(ctx)
	}
	go c.sweep(ctx)
}

// Trigger starts a prediction for the requester unless one is already
// pending or an unconsumed completed value exists. Duplicate triggers are
// dropped, not queued. Never blocks on the upstream.
func (c *Coordinator) Trigger(email string, origin, destination datastructure.Coordinate) {
	c.mu.Lock()
	if _, ok := c.pending[email]; ok {
		c.mu.Unlock()
		return
	}
	if done, ok := c.completed[email]; ok && !done.consumed {
		c.mu.Unlock()
		return
	}
	if len(c.pending) >= c.maxPending {
		c.mu.Unlock()
		log.Printf("prediction trigger for %s dropped: pending map full", email)
		return
	}
	entry := &pendingEntry{
		done:      make(chan struct{}),
		createdAt: time.Now(),
	}
	c.pending[email] = entry
	c.mu.Unlock()

	t := task{
		email: email,
		entry: entry,
		request: gateway.PredictRequest{
			SLat: origin.Lat,
			SLon: origin.Lon,
			DLat: destination.Lat,
			DLon: destination.Lon,
		},
	}
	select {
	case c.tasks <- t:
	default:
		// queue full, give the slot back so a later trigger can retry
		c.mu.Lock()
		delete(c.pending, email)
		c.mu.Unlock()
		log.Printf("prediction trigger for %s dropped: task queue full", email)
	}
}

// Poll blocks up to the poll timeout waiting for the requester's pending
// prediction. A timeout returns ErrStillProcessing without cancelling the
// upstream call, so a later Poll can still pick the result up from the
// completed store.
func (c *Coordinator) Poll(ctx context.Context, email string) (json.RawMessage, error) {
	c.mu.Lock()
	entry, pendingExists := c.pending[email]
	if !pendingExists {
		if done, ok := c.completed[email]; ok {
			done.consumed = true
			c.completed[email] = done
			c.mu.Unlock()
			return done.value, nil
		}
		c.mu.Unlock()
		return nil, ErrNotFound
	}
	c.mu.Unlock()

	timer := time.NewTimer(c.pollTimeout)
	defer timer.Stop()

	select {
	case <-entry.done:
		if entry.err != nil {
			return nil, entry.err
		}
		c.markConsumed(email)
		return entry.result, nil
	case <-timer.C:
		return nil, ErrStillProcessing
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Coordinator) markConsumed(email string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if done, ok := c.completed[email]; ok {
		done.consumed = true
		c.completed[email] = done
	}
}

func (c *Coordinator) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-c.tasks:
			c.run(ctx, t)
		}
	}
}

func (c *Coordinator) run(ctx context.Context, t task) {
	result, err := c.upstream.Predict(ctx, t.request)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		log.Printf("prediction error for %s: %v", t.email, err)
		t.entry.err = err
	} else {
		t.entry.result = result
		c.completed[t.email] = completedResult{value: result, createdAt: time.Now()}
	}
	close(t.entry.done)

	// the map may already hold a newer entry if this one was swept
	if c.pending[t.email] == t.entry {
		delete(c.pending, t.email)
	}
}

func (c *Coordinator) sweep(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *Coordinator) removeExpired() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for email, entry := range c.pending {
		if now.Sub(entry.createdAt) >= c.pendingTTL {
			delete(c.pending, email)
		}
	}
	for email, done := range c.completed {
		if now.Sub(done.createdAt) >= c.resultTTL {
			delete(c.completed, email)
		}
	}
}
