// Package uiloop serializes UI work onto a single goroutine.
//
// Every handler of the selection manager and the submission controller runs
// through a Dispatcher, so component state is only ever touched by one
// goroutine at a time. The GUI dispatches through fyne.Do; the CLI and the
// tests use Loop.
package uiloop

import (
	"sync"
)

// Dispatcher schedules fn to run on the UI goroutine.
type Dispatcher interface {
	Do(fn func())
}

// DispatcherFunc adapts a plain function to a Dispatcher.
type DispatcherFunc func(fn func())

// Do calls f(fn).
func (f DispatcherFunc) Do(fn func()) { f(fn) }

// Inline runs tasks on the caller's goroutine. Only safe when the caller is
// itself the UI goroutine.
var Inline Dispatcher = DispatcherFunc(func(fn func()) { fn() })

// Loop is a FIFO task queue drained by one goroutine.
type Loop struct {
	tasks    chan func()
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a loop whose queue holds up to queueSize pending tasks.
func New(queueSize int) *Loop {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Loop{
		tasks: make(chan func(), queueSize),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Start runs the loop on a new goroutine.
func (l *Loop) Start() {
	go l.Run()
}

// Run drains tasks until Stop is called. Tasks still queued at that point
// are discarded.
func (l *Loop) Run() {
	defer close(l.done)
	for {
		select {
		case fn := <-l.tasks:
			fn()
		case <-l.quit:
			return
		}
	}
}

// Do enqueues fn. It blocks while the queue is full and drops fn once the
// loop has been stopped.
func (l *Loop) Do(fn func()) {
	select {
	case <-l.quit:
		return
	default:
	}
	select {
	case l.tasks <- fn:
	case <-l.quit:
	}
}

// Call runs fn on the loop and waits for it to return. Returns false if the
// loop stopped before fn ran. Must not be called from a loop task.
func (l *Loop) Call(fn func()) bool {
	finished := make(chan struct{})
	l.Do(func() {
		defer close(finished)
		fn()
	})
	select {
	case <-finished:
		return true
	case <-l.done:
		return false
	}
}

// Stop terminates the loop. Safe to call more than once and from a task.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.quit) })
}

// Wait blocks until Run has returned.
func (l *Loop) Wait() {
	<-l.done
}
