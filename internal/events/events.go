// Package events carries structured pipeline progress from the discovery
// phases to the SSE layer. Progress is typed (phase + numeric fields) rather
// than free text, so the transport never has to pattern-match messages.
package events

import (
	"context"
	"sync"
)

const (
	TypeConnected = "connected"
	TypeProgress  = "progress"
	TypeComplete  = "complete"
	TypeError     = "error"
)

const (
	PhaseScout    = "scout"
	PhaseExplore  = "explore"
	PhaseCoverage = "coverage"
)

// ProgressEvent is one frame of pipeline progress for a single request.
type ProgressEvent struct {
	RequestID string         `json:"request_id"`
	Seq       int64          `json:"seq"`
	Type      string         `json:"type"`
	Phase     string         `json:"phase,omitempty"`
	Percent   int            `json:"percent"`
	Message   string         `json:"message,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Broker fans progress events out to per-request subscribers. Publishing
// never blocks; a slow subscriber misses frames rather than stalling the
// pipeline.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan ProgressEvent]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subscribers: map[string]map[chan ProgressEvent]struct{}{},
	}
}

func (b *Broker) Subscribe(ctx context.Context, requestID string) <-chan ProgressEvent {
	ch := make(chan ProgressEvent, 16)

	b.mu.Lock()
	if b.subscribers[requestID] == nil {
		b.subscribers[requestID] = map[chan ProgressEvent]struct{}{}
	}
	b.subscribers[requestID][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		// Close under the write lock: Publish sends while holding the read
		// lock, so a send on the closed channel is impossible.
		b.mu.Lock()
		if b.subscribers[requestID] != nil {
			delete(b.subscribers[requestID], ch)
			if len(b.subscribers[requestID]) == 0 {
				delete(b.subscribers, requestID)
			}
		}
		close(ch)
		b.mu.Unlock()
	}()

	return ch
}

// Publish holds the read lock for the duration of the sends. Every send is
// non-blocking, so the lock is never held across a wait.
func (b *Broker) Publish(event ProgressEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[event.RequestID] {
		select {
		case ch <- event:
		default:
		}
	}
}
