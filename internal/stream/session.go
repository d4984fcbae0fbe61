package stream

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/primebench/primebench/internal/results"
)

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. Sessions log nothing by default.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Session) { s.log = log }
}

// WithIdleTimeout fails a session that sees no event for d. Zero waits
// forever.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Session) { s.idleTimeout = d }
}

// WithClock overrides time.Now for start and finish timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Session drives one request from Idle to Completed or Failed. Every
// transport event goes through Handle, which runs to completion before the
// next event is looked at. Once terminal, a session ignores all further
// events, so nothing reaches the store after its connection is closed.
type Session struct {
	id          uuid.UUID
	store       *results.Store
	transport   Transport
	log         *zap.SugaredLogger
	idleTimeout time.Duration
	now         func() time.Time

	mu         sync.Mutex
	params     Params
	status     Status
	err        error
	conn       Conn
	dialErr    error
	dialed     chan struct{}
	rejected   int
	startedAt  time.Time
	finishedAt time.Time
	// final is the store as this session left it, set once terminal.
	final *results.Snapshot
}

// NewSession creates an idle session that will write into store.
func NewSession(store *results.Store, transport Transport, opts ...Option) *Session {
	s := &Session{
		id:        uuid.New(),
		store:     store,
		transport: transport,
		log:       zap.NewNop().Sugar(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("session", s.id.String())
	return s
}

// Open validates params, resets the store and starts dialing. It returns a
// *ValidationError without touching the store or the transport when params
// are out of range. Dialing happens in the background: its outcome arrives
// through Next as EventOpened or EventError. ctx bounds the lifetime of the
// whole stream, not just the dial.
func (s *Session) Open(ctx context.Context, params Params) error {
	if err := params.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != Idle {
		return ErrAlreadyOpen
	}

	s.params = params
	s.store.Reset()
	s.status = Connecting
	s.startedAt = s.now()
	s.dialed = make(chan struct{})
	s.log.Infow("opening stream", "itemSize", params.ItemSize, "iterationCount", params.IterationCount)

	go s.dial(ctx, params, s.dialed)
	return nil
}

func (s *Session) dial(ctx context.Context, params Params, dialed chan struct{}) {
	conn, err := s.transport.Open(ctx, params)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer close(dialed)

	switch {
	case err != nil:
		s.dialErr = err
	case s.status.IsTerminal():
		// Superseded or cancelled while dialing.
		conn.Close()
	default:
		s.conn = conn
	}
}

// Next blocks until the next event for this session. The idle timeout, if
// any, covers dialing as well. It returns false once there is nothing more
// to read or ctx is done.
func (s *Session) Next(ctx context.Context) (Event, bool) {
	s.mu.Lock()
	dialed := s.dialed
	timeout := s.idleTimeout
	s.mu.Unlock()
	if dialed == nil {
		return Event{}, false
	}

	var idle <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		idle = t.C
	}

	select {
	case <-dialed:
	case <-idle:
		return Event{Kind: EventError, Err: ErrStalled}, true
	case <-ctx.Done():
		return Event{}, false
	}

	s.mu.Lock()
	conn, dialErr := s.conn, s.dialErr
	s.dialErr = nil
	s.mu.Unlock()

	if dialErr != nil {
		return Event{Kind: EventError, Err: dialErr}, true
	}
	if conn == nil {
		return Event{}, false
	}

	select {
	case ev, ok := <-conn.Events():
		return ev, ok
	case <-idle:
		return Event{Kind: EventError, Err: ErrStalled}, true
	case <-ctx.Done():
		return Event{}, false
	}
}

// Handle applies one event. It reports whether the status or the store
// changed. Malformed data frames are counted and dropped; they never end
// the stream.
func (s *Session) Handle(ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == Idle || s.status.IsTerminal() {
		return false
	}

	switch ev.Kind {
	case EventOpened:
		if s.status != Connecting {
			return false
		}
		s.status = Streaming
		s.log.Debugw("stream connected")
		return true

	case EventData:
		if !ev.isDefault() {
			s.log.Debugw("ignoring named frame", "event", ev.Name)
			return false
		}
		item, err := DecodeItem(ev.Data)
		if err != nil {
			s.rejected++
			s.log.Debugw("discarding malformed frame", "error", err, "rejected", s.rejected)
			return false
		}
		s.status = Streaming
		s.store.Append(item)
		return true

	case EventEnd:
		s.closeLocked()
		s.status = Completed
		s.finishedAt = s.now()
		s.freezeLocked()
		s.log.Infow("stream completed", "items", s.store.Len(), "rejected", s.rejected,
			"duration", s.finishedAt.Sub(s.startedAt))
		return true

	case EventError:
		var te *TransportError
		if !errors.As(ev.Err, &te) {
			te = &TransportError{Op: "read", Err: ev.Err}
		}
		s.failLocked(te)
		return true
	}
	return false
}

// Run pumps events through Handle until the session is terminal. It
// returns nil when the stream completed and the session error otherwise.
func (s *Session) Run(ctx context.Context) error {
	for {
		if st := s.Status(); st.IsTerminal() {
			return s.Err()
		}
		ev, ok := s.Next(ctx)
		if !ok {
			if ctx.Err() != nil {
				s.Cancel()
				return s.Err()
			}
			s.Handle(Event{Kind: EventError, Err: ErrUnexpectedEOF})
			continue
		}
		s.Handle(ev)
	}
}

// Supersede stops a session that has been replaced by a newer request. Its
// connection is closed before Supersede returns.
func (s *Session) Supersede() bool {
	return s.stop(ErrSuperseded)
}

// Cancel stops the session on user request.
func (s *Session) Cancel() bool {
	return s.stop(ErrCancelled)
}

func (s *Session) stop(reason error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.IsTerminal() {
		return false
	}
	s.failLocked(reason)
	return true
}

func (s *Session) failLocked(err error) {
	s.closeLocked()
	s.status = Failed
	s.err = err
	s.finishedAt = s.now()
	s.freezeLocked()
	if errors.Is(err, ErrSuperseded) || errors.Is(err, ErrCancelled) {
		s.log.Infow("stream stopped", "reason", err, "items", s.store.Len())
		return
	}
	s.log.Warnw("stream failed", "error", err, "items", s.store.Len())
}

// freezeLocked keeps the session's items once it stops owning the store. A
// session that never opened owns nothing.
func (s *Session) freezeLocked() {
	snap := results.Snapshot{}
	if s.dialed != nil {
		snap = s.store.Snapshot()
	}
	s.final = &snap
}

func (s *Session) closeLocked() {
	if s.conn == nil {
		return
	}
	if err := s.conn.Close(); err != nil {
		s.log.Debugw("closing transport", "error", err)
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() uuid.UUID {
	return s.id
}

func (s *Session) Params() Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Err returns why the session failed, or nil.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Rejected returns the number of malformed frames discarded so far.
func (s *Session) Rejected() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rejected
}

// Elapsed returns the time since Open, frozen once the session is terminal.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startedAt.IsZero() {
		return 0
	}
	if s.status.IsTerminal() {
		return s.finishedAt.Sub(s.startedAt)
	}
	return s.now().Sub(s.startedAt)
}

// Snapshot returns a copy of this session's items. While the session runs
// it reads the store; once terminal it returns what the session had
// collected, even after a newer session has reused the store.
func (s *Session) Snapshot() results.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.final != nil {
		return results.Snapshot{
			Items:     slices.Clone(s.final.Items),
			Aggregate: s.final.Aggregate,
		}
	}
	return s.store.Snapshot()
}
