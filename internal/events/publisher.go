// Package events provides the in-memory telemetry bus the external HTTP/SSE
// boundary subscribes to. Durable replay comes from the events table; this
// bus only carries live fan-out.
package events

import (
	"sync"
	"time"
)

// GlobalProjectID is the special id for subscribing to all projects' events.
const GlobalProjectID = "*"

// Kind identifies the stream event type.
type Kind string

const (
	// KindLog carries one ledger telemetry entry.
	KindLog Kind = "log"
	// KindGraphUpdate signals that the graph projection changed.
	KindGraphUpdate Kind = "graph_update"
	// KindHeartbeat keeps idle stream connections alive.
	KindHeartbeat Kind = "heartbeat"
)

// Event is one bus emission.
type Event struct {
	Kind      Kind           `json:"kind"`
	ProjectID string         `json:"project_id"`
	Data      map[string]any `json:"data"`
	Time      time.Time      `json:"time"`
}

// NewEvent creates an event stamped with the current time.
func NewEvent(kind Kind, projectID string, data map[string]any) Event {
	return Event{Kind: kind, ProjectID: projectID, Data: data, Time: time.Now()}
}

// Publisher defines the interface for event publishing.
type Publisher interface {
	// Publish sends an event to all subscribers of its project.
	Publish(event Event)
	// Subscribe returns a channel receiving events for the given project.
	// Use GlobalProjectID ("*") to receive events for all projects.
	Subscribe(projectID string) <-chan Event
	// Unsubscribe removes a subscription channel.
	Unsubscribe(projectID string, ch <-chan Event)
	// Close shuts down the publisher and all subscriptions.
	Close()
}

// MemoryPublisher is an in-memory implementation of Publisher.
type MemoryPublisher struct {
	subscribers map[string][]chan Event
	mu          sync.RWMutex
	bufferSize  int
	closed      bool
}

// PublisherOption configures a MemoryPublisher.
type PublisherOption func(*MemoryPublisher)

// WithBufferSize sets the channel buffer size for subscribers.
func WithBufferSize(size int) PublisherOption {
	return func(p *MemoryPublisher) {
		p.bufferSize = size
	}
}

// NewMemoryPublisher creates a new in-memory publisher.
func NewMemoryPublisher(opts ...PublisherOption) *MemoryPublisher {
	p := &MemoryPublisher{
		subscribers: make(map[string][]chan Event),
		bufferSize:  100,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish sends an event to project-scoped and global subscribers.
// Non-blocking: subscribers with full buffers are skipped.
func (p *MemoryPublisher) Publish(event Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return
	}

	for _, ch := range p.subscribers[event.ProjectID] {
		select {
		case ch <- event:
		default:
		}
	}

	if event.ProjectID != GlobalProjectID {
		for _, ch := range p.subscribers[GlobalProjectID] {
			select {
			case ch <- event:
			default:
			}
		}
	}
}

// Subscribe returns a channel that receives events for the given project.
func (p *MemoryPublisher) Subscribe(projectID string) <-chan Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan Event, p.bufferSize)
	if p.closed {
		close(ch)
		return ch
	}
	p.subscribers[projectID] = append(p.subscribers[projectID], ch)
	return ch
}

// Unsubscribe removes and closes a subscription channel.
func (p *MemoryPublisher) Unsubscribe(projectID string, ch <-chan Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	subs := p.subscribers[projectID]
	for i, c := range subs {
		if c == ch {
			p.subscribers[projectID] = append(subs[:i], subs[i+1:]...)
			close(c)
			return
		}
	}
}

// Close shuts down the publisher and closes every subscription channel.
func (p *MemoryPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	for _, subs := range p.subscribers {
		for _, ch := range subs {
			close(ch)
		}
	}
	p.subscribers = make(map[string][]chan Event)
}
