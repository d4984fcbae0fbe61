package stream

import (
	"context"
	"fmt"
	"net/http"
	"sync"
)

// Transport opens one-way event streams for a set of request parameters.
type Transport interface {
	Open(ctx context.Context, params Params) (Conn, error)
}

// Conn is an open stream. Events is closed after the underlying connection
// has been torn down. Close is idempotent and safe from any goroutine.
type Conn interface {
	Events() <-chan Event
	Close() error
}

// Transport kinds accepted by NewTransport.
const (
	KindSSE       = "sse"
	KindWebSocket = "ws"
)

// NewTransport returns the transport implementation named by kind.
func NewTransport(kind, baseURL, endpoint string, httpClient *http.Client) (Transport, error) {
	switch kind {
	case KindSSE, "":
		return &SSETransport{BaseURL: baseURL, Endpoint: endpoint, Client: httpClient}, nil
	case KindWebSocket:
		return &WSTransport{BaseURL: baseURL, Endpoint: endpoint}, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", kind)
	}
}

const eventBuffer = 16

// pipe is the shared plumbing behind both transports: a reader goroutine
// pushes events until done is closed, then closes events.
type pipe struct {
	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
	teardown  func() error
}

func newPipe(teardown func() error) *pipe {
	return &pipe{
		events:   make(chan Event, eventBuffer),
		done:     make(chan struct{}),
		teardown: teardown,
	}
}

func (p *pipe) Events() <-chan Event {
	return p.events
}

func (p *pipe) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
		if p.teardown != nil {
			p.closeErr = p.teardown()
		}
	})
	return p.closeErr
}

// send delivers ev unless the pipe has been closed. It reports whether the
// reader should keep going.
func (p *pipe) send(ev Event) bool {
	select {
	case <-p.done:
		return false
	default:
	}
	select {
	case p.events <- ev:
		return true
	case <-p.done:
		return false
	}
}

func (p *pipe) closed() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}
