package plakat

import (
	"context"

	"k8s.io/klog/v2"
)

// loadResult is the outcome of one background load.
type loadResult struct {
	path string
	src  *Source
	err  error
}

// mailbox is a single-slot queue: posting replaces any result not yet
// received, so the receiver only ever sees the newest load.
type mailbox struct {
	ch chan loadResult
}

func newMailbox() *mailbox {
	return &mailbox{ch: make(chan loadResult, 1)}
}

// post never blocks.
func (m *mailbox) post(r loadResult) {
	for {
		select {
		case m.ch <- r:
			return
		default:
		}
		// slot is full: drop the stale result and retry
		select {
		case old := <-m.ch:
			klog.V(1).Infof("dropping superseded load of %s", old.path)
		default:
		}
	}
}

func (m *mailbox) tryReceive() (loadResult, bool) {
	select {
	case r := <-m.ch:
		return r, true
	default:
		return loadResult{}, false
	}
}

func (m *mailbox) receive(ctx context.Context) (loadResult, error) {
	select {
	case r := <-m.ch:
		return r, nil
	case <-ctx.Done():
		return loadResult{}, ctx.Err()
	}
}
