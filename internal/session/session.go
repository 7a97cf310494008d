// Package session holds per-conversation state: the current resume insights
// and the FIFO queue that serializes a session's chat turns.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kalambet/jobpilot/internal/resume"
)

// ErrClosed is returned by Do after the session has been torn down.
var ErrClosed = errors.New("session closed")

// queueDepth bounds how many turns may wait behind the running one before Do
// blocks the caller.
const queueDepth = 16

type turn struct {
	ctx  context.Context
	fn   func(context.Context)
	done chan struct{}
}

// Session is one conversation. Its insights pointer is swapped atomically on
// every successful analysis; readers get a private copy.
type Session struct {
	id        string
	createdAt time.Time

	insights atomic.Pointer[resume.Insights]

	turns     chan turn
	quit      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

func newSession(id string, createdAt time.Time) *Session {
	s := &Session{
		id:        id,
		createdAt: createdAt,
		turns:     make(chan turn, queueDepth),
		quit:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) CreatedAt() time.Time { return s.createdAt }

// ResumeInsights returns a deep copy of the current insights, or nil when no
// resume has been analysed yet.
func (s *Session) ResumeInsights() *resume.Insights {
	return s.insights.Load().Clone()
}

// HasResume reports whether insights are present.
func (s *Session) HasResume() bool {
	return s.insights.Load() != nil
}

// Do runs fn on the session's worker after every earlier turn has finished.
// It returns ctx.Err() if ctx ends first and ErrClosed if the session is torn
// down; in both cases the caller must not read state fn writes.
func (s *Session) Do(ctx context.Context, fn func(context.Context)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := turn{ctx: ctx, fn: fn, done: make(chan struct{})}

	select {
	case s.turns <- t:
	case <-s.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-t.done:
		return nil
	case <-s.stopped:
		// The worker may have finished t just before stopping.
		select {
		case <-t.done:
			return nil
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) loop() {
	defer close(s.stopped)
	for {
		select {
		case <-s.quit:
			return
		case t := <-s.turns:
			s.run(t)
		}
	}
}

func (s *Session) run(t turn) {
	defer close(t.done)
	if t.ctx.Err() != nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("session turn panicked", "session_id", s.id, "panic", r)
		}
	}()
	t.fn(t.ctx)
}

// close stops the worker. Queued turns that have not started are dropped.
func (s *Session) close() {
	s.closeOnce.Do(func() { close(s.quit) })
	<-s.stopped
}
