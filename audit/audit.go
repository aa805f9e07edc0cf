// Package audit implements the bounded, best-effort event queue that
// carries Safe Fetch engine telemetry (dns_start, redirect, policy_block,
// ...) out to a caller-supplied hook without ever blocking the fetch
// that produced the event.
package audit

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// MaxPendingEvents bounds the queue; an enqueue past this capacity is
// dropped rather than blocking the producer.
const MaxPendingEvents = 1000

const maxMessageLen = 200

// Event is one audit record. Fields beyond Type/Timestamp/URL are
// carried in Meta so that new event shapes never require a schema
// change here.
type Event struct {
	SchemaVersion string         `json:"schema_version"`
	Type          string         `json:"type"`
	Timestamp     int64          `json:"timestamp"`
	URL           string         `json:"url,omitempty"`
	Meta          map[string]any `json:"meta,omitempty"`
}

const schemaVersion = "peac-safe-fetch-event/0.1"

// NewEvent builds an Event with the schema version already filled in.
func NewEvent(eventType string, timestamp int64, url string, meta map[string]any) Event {
	return Event{
		SchemaVersion: schemaVersion,
		Type:          eventType,
		Timestamp:     timestamp,
		URL:           url,
		Meta:          meta,
	}
}

// Hook receives drained events. A Hook must not itself call back into
// Queue.Emit synchronously in a way that could deadlock. Buffered events
// reach the hook on the Run goroutine, outside the producer's call stack;
// the single audit_overflow event is delivered synchronously inside the
// Emit call that overflowed the queue.
type Hook func(Event)

// Queue is a bounded, single-drain-loop audit sink. Enqueue never
// blocks: once MaxPendingEvents events are outstanding, further events
// are dropped and counted, and a single audit_overflow event bypasses
// the queue to notify the hook directly.
type Queue struct {
	hook Hook

	mu      sync.Mutex
	buf     []Event
	closed  bool
	wake    chan struct{}
	pending int64
	dropped int64

	overflowOnce  sync.Once
	hookErrorOnce sync.Once
}

// New creates a Queue that drains into hook. hook may be nil, in which
// case events are still buffered and counted like any other, and are
// discarded when drained.
func New(hook Hook) *Queue {
	return &Queue{
		hook: hook,
		wake: make(chan struct{}, 1),
	}
}

// Pending returns the number of events currently buffered.
func (q *Queue) Pending() int64 { return atomic.LoadInt64(&q.pending) }

// Dropped returns the number of events dropped for capacity reasons
// since the queue was created.
func (q *Queue) Dropped() int64 { return atomic.LoadInt64(&q.dropped) }

// Emit enqueues ev for asynchronous delivery to the hook. It never
// blocks and never returns an error: a full queue drops the event and
// records it, delivering a single audit_overflow event directly.
func (q *Queue) Emit(ev Event) {
	ev.Meta = sanitizeMeta(ev.Meta)

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	if len(q.buf) >= MaxPendingEvents {
		q.mu.Unlock()
		atomic.AddInt64(&q.dropped, 1)
		q.overflowOnce.Do(func() {
			q.deliver(NewEvent("audit_overflow", ev.Timestamp, ev.URL, nil))
		})
		return
	}
	q.buf = append(q.buf, ev)
	atomic.AddInt64(&q.pending, 1)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Run drains the queue until ctx is cancelled, then returns ctx's error.
// The drain loop runs under an errgroup. Close does not end Run: after
// Close the loop keeps draining whatever is buffered until ctx is
// cancelled.
func (q *Queue) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-q.wake:
				q.drainOnce()
			}
		}
	})
	return g.Wait()
}

// Close stops accepting new events. Already-buffered events are not
// discarded; a final drain should be performed by the caller before
// relying on this to mean "fully flushed".
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

func (q *Queue) drainOnce() {
	for {
		q.mu.Lock()
		if len(q.buf) == 0 {
			q.mu.Unlock()
			return
		}
		ev := q.buf[0]
		q.buf = q.buf[1:]
		q.mu.Unlock()

		atomic.AddInt64(&q.pending, -1)
		q.deliver(ev)
	}
}

func (q *Queue) deliver(ev Event) {
	if q.hook == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			q.hookErrorOnce.Do(func() {
				q.deliver(NewEvent("audit_hook_error", ev.Timestamp, ev.URL, map[string]any{
					"message": sanitizeMessage("hook panicked"),
				}))
			})
		}
	}()
	q.hook(ev)
}

// sanitizeMeta redacts known-sensitive keys and truncates any string
// value that looks like a free-form error message.
func sanitizeMeta(meta map[string]any) map[string]any {
	if meta == nil {
		return nil
	}
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		if s, ok := v.(string); ok {
			out[k] = sanitizeMessage(s)
			continue
		}
		out[k] = v
	}
	return out
}

var redactPrefixes = []string{"bearer ", "key=", "password="}

// sanitizeMessage strips common credential-bearing substrings and caps
// message length so an audit event can never become an exfiltration
// channel for secrets accidentally embedded in an error string.
func sanitizeMessage(msg string) string {
	lower := strings.ToLower(msg)
	for _, prefix := range redactPrefixes {
		if idx := strings.Index(lower, prefix); idx >= 0 {
			msg = msg[:idx] + "[REDACTED]"
			break
		}
	}
	if len(msg) > maxMessageLen {
		msg = msg[:maxMessageLen] + "..."
	}
	return msg
}
