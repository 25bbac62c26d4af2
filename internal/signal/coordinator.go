// Package signal provides the pause/resume/cancel contract between the single
// automation loop and the operator. The coordinator is a level-triggered shared
// state: any component may request a pause, but only an explicit external resume
// clears it. An internally-detected error therefore always waits for a human.
package signal

import (
	"context"
	"errors"
	"sync"
)

// ErrCancelled is returned from Checkpoint once a cancel request has been
// observed. The caller records the in-flight job as failed and lets the outer
// loop wind down; no further session-visible mutation is allowed.
var ErrCancelled = errors.New("session cancelled")

// EventKind identifies an inbound operator event.
type EventKind int

const (
	EventPause EventKind = iota
	EventResume
	EventCancel
)

// Event is delivered asynchronously from whatever transport the operator uses
// (keyboard, HTTP, queue); the coordinator does not care which.
type Event struct {
	Kind   EventKind
	Reason string
}

// Coordinator owns the paused/cancelled state. It is injected into both the
// event listener and the session loop; there is no ambient global.
type Coordinator struct {
	mu        sync.Mutex
	paused    bool
	reason    string
	cancelled bool
	resumed   chan struct{}
}

func NewCoordinator() *Coordinator {
	return &Coordinator{resumed: make(chan struct{})}
}

// Pause requests suspension with a human-readable reason. Idempotent while
// already paused; the first reason is kept so the operator sees what tripped it.
func (c *Coordinator) Pause(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		return
	}
	c.paused = true
	c.reason = reason
	c.resumed = make(chan struct{})
}

// Resume clears the paused state. Only an external operator signal should call
// this; the automation never resumes itself.
func (c *Coordinator) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused {
		return
	}
	c.paused = false
	c.reason = ""
	close(c.resumed)
}

// Cancel aborts the session cooperatively. It also releases any checkpoint
// currently blocked on a pause so the loop can observe the cancellation.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelled {
		return
	}
	c.cancelled = true
	if c.paused {
		c.paused = false
		c.reason = ""
		close(c.resumed)
	}
}

// State returns the current pause flag and its reason.
func (c *Coordinator) State() (paused bool, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused, c.reason
}

// Cancelled reports whether a cancel request has been made.
func (c *Coordinator) Cancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

// Apply maps an inbound event onto the coordinator.
func (c *Coordinator) Apply(ev Event) {
	switch ev.Kind {
	case EventPause:
		c.Pause(ev.Reason)
	case EventResume:
		c.Resume()
	case EventCancel:
		c.Cancel()
	}
}

// Checkpoint is the suspension point. It returns nil immediately while running,
// blocks while paused, and returns ErrCancelled once a cancel has been observed.
// Context cancellation unblocks a paused checkpoint without clearing the pause.
func (c *Coordinator) Checkpoint(ctx context.Context) error {
	for {
		c.mu.Lock()
		if c.cancelled {
			c.mu.Unlock()
			return ErrCancelled
		}
		if !c.paused {
			c.mu.Unlock()
			return nil
		}
		resumed := c.resumed
		c.mu.Unlock()

		select {
		case <-resumed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
