// Package events publishes activity log entries to NATS.
package events

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"

	"github.com/nexumobscura/nexum/internal/model"
)

const queueSize = 256

// Conn is the subset of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

// Event is the wire payload for one activity entry.
type Event struct {
	Type      string              `json:"type"`
	Service   string              `json:"service"`
	Timestamp string              `json:"timestamp"`
	Activity  model.ActivityEntry `json:"activity"`
}

// Publisher sends activity entries asynchronously. Publish never blocks;
// entries are dropped when the queue is full.
type Publisher struct {
	conn    Conn
	subject string
	queue   chan model.ActivityEntry
	onError func()

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// Connect dials NATS and returns a running publisher.
func Connect(ctx context.Context, url, subject string, onError func()) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("nexum"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return New(ctx, nc, subject, onError), nil
}

// New starts a publisher over an existing connection.
func New(ctx context.Context, conn Conn, subject string, onError func()) *Publisher {
	p := &Publisher{
		conn:    conn,
		subject: subject,
		queue:   make(chan model.ActivityEntry, queueSize),
		onError: onError,
		done:    make(chan struct{}),
	}
	go p.run(ctx)
	return p
}

// Publish enqueues a. Entries published after Close are dropped.
func (p *Publisher) Publish(a model.ActivityEntry) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- a:
	default:
		p.failed(fmt.Errorf("queue full"))
	}
}

// Close drains the queue, flushes and closes the connection.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	if err := p.conn.FlushTimeout(2 * time.Second); err != nil {
		log.Printf("events: flush: %v", err)
	}
	p.conn.Close()
}

func (p *Publisher) run(ctx context.Context) {
	defer close(p.done)
	for {
		select {
		case a, ok := <-p.queue:
			if !ok {
				return
			}
			p.send(a)
		case <-ctx.Done():
			for {
				select {
				case a, ok := <-p.queue:
					if !ok {
						return
					}
					p.send(a)
				default:
					return
				}
			}
		}
	}
}

func (p *Publisher) send(a model.ActivityEntry) {
	data, err := json.Marshal(Event{
		Type:      "activity",
		Service:   "nexum",
		Timestamp: model.FormatISO(a.Time),
		Activity:  a,
	})
	if err != nil {
		p.failed(err)
		return
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		p.failed(err)
	}
}

func (p *Publisher) failed(err error) {
	log.Printf("events: publish to %s: %v", p.subject, err)
	if p.onError != nil {
		p.onError()
	}
}

// Noop discards every entry.
type Noop struct{}

func (Noop) Publish(model.ActivityEntry) {}
