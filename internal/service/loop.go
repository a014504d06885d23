package service

import (
	"context"
	"errors"
	"sync"
)

// ErrStopped is returned once the event loop has stopped.
var ErrStopped = errors.New("sync service stopped")

// loop runs submitted closures one at a time on a single goroutine. Every
// piece of room and connection state is touched only from inside a closure.
// A closure must never call do itself.
type loop struct {
	ops      chan func()
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newLoop() *loop {
	return &loop{
		ops:  make(chan func()),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (l *loop) run() {
	defer close(l.done)
	for {
		select {
		case op := <-l.ops:
			op()
		case <-l.quit:
			return
		}
	}
}

// do runs fn on the loop and waits for it. ops is unbuffered, so an accepted
// closure always runs to completion.
func (l *loop) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	op := func() {
		defer close(finished)
		fn()
	}

	select {
	case l.ops <- op:
	case <-l.quit:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}

func (l *loop) stop() {
	l.stopOnce.Do(func() { close(l.quit) })
	<-l.done
}
