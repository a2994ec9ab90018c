package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Closer allows flushing and stopping the async handler.
type Closer interface {
	Close()
}

type nopCloser struct{}

func (nopCloser) Close() {}

// asyncQueue is shared by an AsyncHandler and every handler derived from it
// through WithAttrs/WithGroup.
type asyncQueue struct {
	ch      chan queued
	wg      sync.WaitGroup
	dropped atomic.Int64
	once    sync.Once
}

type queued struct {
	h   slog.Handler
	rec slog.Record
}

// AsyncHandler hands records to a small worker pool so request handlers never
// block on stdout. Records are dropped, and counted, when the buffer is full.
type AsyncHandler struct {
	inner slog.Handler
	q     *asyncQueue
}

// NewAsyncHandler creates an AsyncHandler with the given buffer size and worker count.
func NewAsyncHandler(inner slog.Handler, bufferSize, workers int) *AsyncHandler {
	q := &asyncQueue{ch: make(chan queued, bufferSize)}
	for range workers {
		q.wg.Add(1)
		go q.drain()
	}
	return &AsyncHandler{inner: inner, q: q}
}

func (q *asyncQueue) drain() {
	defer q.wg.Done()
	for item := range q.ch {
		_ = item.h.Handle(context.Background(), item.rec)
	}
}

// Enabled delegates to the inner handler.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle enqueues the record for the handler chain it was logged through.
func (h *AsyncHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	select {
	case h.q.ch <- queued{h: h.inner, rec: rec.Clone()}:
	default:
		h.q.dropped.Add(1)
	}
	return nil
}

// WithAttrs returns a handler that shares the queue but wraps a derived inner handler.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithAttrs(attrs), q: h.q}
}

// WithGroup returns a handler that shares the queue but wraps a derived inner handler.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithGroup(name), q: h.q}
}

// DroppedCount returns the number of records dropped because the buffer was full.
func (h *AsyncHandler) DroppedCount() int64 {
	return h.q.dropped.Load()
}

// Close stops accepting records and waits for queued ones to be written.
// It is safe to call more than once.
func (h *AsyncHandler) Close() {
	h.q.once.Do(func() {
		close(h.q.ch)
		h.q.wg.Wait()
	})
}
