package stream

import (
	"context"
	"sync"

	"github.com/primebench/primebench/internal/results"
)

// Controller hands a single Store to one session at a time. Starting a new
// session first closes the previous session's connection and only then lets
// the new session reset the store, so a frame still in flight on the old
// connection can never land in the new log.
type Controller struct {
	store     *results.Store
	transport Transport
	opts      []Option

	mu      sync.Mutex
	current *Session
}

func NewController(store *results.Store, transport Transport, opts ...Option) *Controller {
	return &Controller{
		store:     store,
		transport: transport,
		opts:      opts,
	}
}

// Start validates params, supersedes the current session and opens a new
// one. A validation failure leaves the current session running.
func (c *Controller) Start(ctx context.Context, params Params) (*Session, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		c.current.Supersede()
	}

	s := NewSession(c.store, c.transport, c.opts...)
	if err := s.Open(ctx, params); err != nil {
		return nil, err
	}
	c.current = s
	return s, nil
}

// Current returns the most recently started session, or nil.
func (c *Controller) Current() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Cancel stops the current session if it is still running.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return false
	}
	return c.current.Cancel()
}

// Restore stops any running session and replaces the store's contents with
// items, replayed in order through Append.
func (c *Controller) Restore(items []results.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		c.current.Supersede()
	}
	c.store.Reset()
	for _, it := range items {
		c.store.Append(it)
	}
}

// Store returns the shared result store.
func (c *Controller) Store() *results.Store {
	return c.store
}

// Close stops the current session.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		c.current.Supersede()
	}
}
