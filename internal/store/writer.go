package store

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/weiawesome/huddle-sync/internal/domain"
	"github.com/weiawesome/huddle-sync/pkg/log"
)

const defaultQueueSize = 1024

type jobKind int

const (
	jobSavePlayback jobKind = iota
	jobDeletePlayback
	jobSetUnread
)

type job struct {
	kind   jobKind
	roomID string
	userID string
	state  domain.PlaybackState
	count  int
}

// Writer applies state writes on a single goroutine so callers never block
// on Redis. Writes are applied in submission order. A full queue drops the
// write.
type Writer struct {
	store   StateStore
	jobs    chan job
	timeout time.Duration
	logger  zerolog.Logger

	mu      sync.RWMutex
	stopped bool
	done    chan struct{}
}

func NewWriter(store StateStore, queueSize int, timeout time.Duration, logger zerolog.Logger) *Writer {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Writer{
		store:   store,
		jobs:    make(chan job, queueSize),
		timeout: timeout,
		logger:  logger.With().Str("component", "state_writer").Logger(),
		done:    make(chan struct{}),
	}
}

func (w *Writer) SavePlayback(roomID string, state domain.PlaybackState) {
	if state.Media != nil {
		media := *state.Media
		state.Media = &media
	}
	w.enqueue(job{kind: jobSavePlayback, roomID: roomID, state: state})
}

func (w *Writer) DeletePlayback(roomID string) {
	w.enqueue(job{kind: jobDeletePlayback, roomID: roomID})
}

func (w *Writer) PutUnread(userID, roomID string, count int) {
	w.enqueue(job{kind: jobSetUnread, userID: userID, roomID: roomID, count: count})
}

func (w *Writer) enqueue(j job) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return
	}
	select {
	case w.jobs <- j:
	default:
		w.logger.Warn().
			Str(log.FieldRoomID, j.roomID).
			Str(log.FieldUserID, j.userID).
			Msg("state write queue full, dropping write")
	}
}

// Run drains the queue until Stop is called or ctx is cancelled. Pending
// writes are flushed on Stop.
func (w *Writer) Run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-w.jobs:
			if !ok {
				return
			}
			w.apply(ctx, j)
		}
	}
}

// Stop closes the queue and waits for Run to finish the remaining writes.
func (w *Writer) Stop() {
	w.mu.Lock()
	if !w.stopped {
		w.stopped = true
		close(w.jobs)
	}
	w.mu.Unlock()
	<-w.done
}

func (w *Writer) apply(ctx context.Context, j job) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.timeout)
	defer cancel()

	var err error
	switch j.kind {
	case jobSavePlayback:
		err = w.store.SavePlayback(ctx, j.roomID, j.state)
	case jobDeletePlayback:
		err = w.store.DeletePlayback(ctx, j.roomID)
	case jobSetUnread:
		err = w.store.SetUnread(ctx, j.userID, j.roomID, j.count)
	}
	if err != nil {
		w.logger.Error().Err(err).
			Str(log.FieldRoomID, j.roomID).
			Str(log.FieldUserID, j.userID).
			Msg("state write failed")
	}
}
