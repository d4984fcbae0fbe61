package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/primebench/primebench/internal/results"
)

// fakeConn is a Conn whose events are pushed by the test.
type fakeConn struct {
	events  chan Event
	mu      sync.Mutex
	closed  bool
	onClose func()
}

func newFakeConn() *fakeConn {
	return &fakeConn{events: make(chan Event, 64)}
}

func (c *fakeConn) Events() <-chan Event { return c.events }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed && c.onClose != nil {
		c.onClose()
	}
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fakeTransport hands out fakeConns that start with an EventOpened queued.
type fakeTransport struct {
	mu    sync.Mutex
	opens int
	conns []*fakeConn
	err   error
}

func (t *fakeTransport) Open(_ context.Context, _ Params) (Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.opens++
	if t.err != nil {
		return nil, t.err
	}
	c := newFakeConn()
	c.events <- Event{Kind: EventOpened}
	t.conns = append(t.conns, c)
	return c, nil
}

func (t *fakeTransport) openCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.opens
}

func (t *fakeTransport) conn(i int) *fakeConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conns[i]
}

var validParams = Params{ItemSize: 10, IterationCount: 5}

// openStreaming opens s and feeds it the transport's opened event.
func openStreaming(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, s.Open(context.Background(), validParams))
	ev, ok := s.Next(ctx)
	require.True(t, ok)
	require.Equal(t, EventOpened, ev.Kind)
	require.True(t, s.Handle(ev))
	require.Equal(t, Streaming, s.Status())
}

func dataEvent(payload string) Event {
	return Event{Kind: EventData, Data: payload}
}

func newTestSession(opts ...Option) (*Session, *fakeTransport, *results.Store) {
	store := results.NewStore()
	tr := &fakeTransport{}
	return NewSession(store, tr, opts...), tr, store
}

var errBoom = errors.New("boom")
