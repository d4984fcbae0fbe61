package producer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/primebench/primebench/internal/stream"
)

const (
	writeTimeout    = 10 * time.Second
	wsLingerTimeout = 5 * time.Second
	shutdownTimeout = 5 * time.Second

	transportSSE = "sse"
	transportWS  = "ws"

	outcomeCompleted = "completed"
	outcomeAborted   = "aborted"
)

// Server exposes the generator over SSE and WebSocket.
type Server struct {
	gen       *Generator
	metrics   *Metrics
	log       *zap.SugaredLogger
	streams   chan struct{}
	upgrader  websocket.Upgrader
	hostProbe func(ctx context.Context) HostInfo
}

// NewServer limits concurrent streams to maxStreams; requests over the
// limit get 429.
func NewServer(gen *Generator, metrics *Metrics, log *zap.SugaredLogger, maxStreams int) *Server {
	if maxStreams < 1 {
		maxStreams = 1
	}
	return &Server{
		gen:     gen,
		metrics: metrics,
		log:     log,
		streams: make(chan struct{}, maxStreams),
		upgrader: websocket.Upgrader{
			// Any origin may connect, matching the CORS policy.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		hostProbe: collectHost,
	}
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/generate_prime", s.handleGenerate)
	mux.HandleFunc("/api/py/generate_prime", s.handleLegacyGenerate)
	mux.HandleFunc("/ws/generate_prime", s.handleWS)
	mux.HandleFunc("/api/host", s.handleHost)
	mux.HandleFunc("/healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}
}

// Handler returns the routed mux wrapped in the CORS policy.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return withCORS(mux)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) acquire() (release func(), ok bool) {
	select {
	case s.streams <- struct{}{}:
		return func() { <-s.streams }, true
	default:
		return nil, false
	}
}

func (s *Server) active() int {
	return len(s.streams)
}

// parseParams reads the two integer query parameters named by sizeKey and
// countKey and validates them.
func parseParams(r *http.Request, sizeKey, countKey string) (stream.Params, error) {
	q := r.URL.Query()
	size, err := strconv.Atoi(q.Get(sizeKey))
	if err != nil {
		return stream.Params{}, fmt.Errorf("%s: must be an integer", sizeKey)
	}
	count, err := strconv.Atoi(q.Get(countKey))
	if err != nil {
		return stream.Params{}, fmt.Errorf("%s: must be an integer", countKey)
	}
	p := stream.Params{ItemSize: size, IterationCount: count}
	if err := p.Validate(); err != nil {
		return stream.Params{}, err
	}
	return p, nil
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	s.serveSSE(w, r, "itemSize", "iterationCount")
}

// handleLegacyGenerate keeps the query names of the first web client.
func (s *Server) handleLegacyGenerate(w http.ResponseWriter, r *http.Request) {
	s.serveSSE(w, r, "primeDigits", "iter")
}

func (s *Server) serveSSE(w http.ResponseWriter, r *http.Request, sizeKey, countKey string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	params, err := parseParams(r, sizeKey, countKey)
	if err != nil {
		s.metrics.rejected("invalid")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	release, ok := s.acquire()
	if !ok {
		s.metrics.rejected("busy")
		http.Error(w, "too many concurrent streams", http.StatusTooManyRequests)
		return
	}
	defer release()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	s.metrics.streamStarted(transportSSE)
	s.log.Infow("stream opened", "transport", transportSSE, "remote", r.RemoteAddr,
		"itemSize", params.ItemSize, "iterationCount", params.IterationCount)

	rc := http.NewResponseController(w)
	sent := 0
	err = s.gen.Generate(r.Context(), params.ItemSize, params.IterationCount, func(rec Record) error {
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		_ = rc.SetWriteDeadline(time.Now().Add(writeTimeout))
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		sent++
		return nil
	})
	if err != nil {
		s.finish(transportSSE, outcomeAborted, sent, err)
		return
	}

	fmt.Fprintf(w, "event: %s\ndata: {\"count\":%d}\n\n", stream.EndEventName, sent)
	flusher.Flush()
	s.finish(transportSSE, outcomeCompleted, sent, nil)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	params, err := parseParams(r, "itemSize", "iterationCount")
	if err != nil {
		s.metrics.rejected("invalid")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	release, ok := s.acquire()
	if !ok {
		s.metrics.rejected("busy")
		http.Error(w, "too many concurrent streams", http.StatusTooManyRequests)
		return
	}
	defer release()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("ws upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The client never sends data; reading only detects its close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.metrics.streamStarted(transportWS)
	s.log.Infow("stream opened", "transport", transportWS, "remote", r.RemoteAddr,
		"itemSize", params.ItemSize, "iterationCount", params.IterationCount)

	sent := 0
	err = s.gen.Generate(ctx, params.ItemSize, params.IterationCount, func(rec Record) error {
		payload, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := writeEnvelope(conn, stream.Envelope{Type: stream.EnvelopeItem, Payload: payload}); err != nil {
			return err
		}
		sent++
		return nil
	})
	if err == nil {
		err = writeEnvelope(conn, stream.Envelope{Type: stream.EnvelopeEnd})
	}
	if err != nil {
		s.finish(transportWS, outcomeAborted, sent, err)
		return
	}
	s.finish(transportWS, outcomeCompleted, sent, nil)

	// Give the client a chance to hang up first so its read loop sees the
	// end envelope rather than a close frame.
	select {
	case <-ctx.Done():
	case <-time.After(wsLingerTimeout):
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	}
}

func writeEnvelope(conn *websocket.Conn, env stream.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Server) finish(transport, outcome string, sent int, err error) {
	s.metrics.streamFinished(transport, outcome)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warnw("stream aborted", "transport", transport, "sent", sent, "error", err)
		return
	}
	s.log.Infow("stream closed", "transport", transport, "outcome", outcome, "sent", sent)
}

func (s *Server) handleHost(w http.ResponseWriter, r *http.Request) {
	info := s.hostProbe(r.Context())
	info.ActiveStreams = s.active()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}

type healthResponse struct {
	Status        string `json:"status"`
	ActiveStreams int    `json:"activeStreams"`
	MaxStreams    int    `json:"maxStreams"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(healthResponse{
		Status:        "ok",
		ActiveStreams: s.active(),
		MaxStreams:    cap(s.streams),
	})
}

// ListenAndServe serves handler on host:port until ctx is cancelled, then
// shuts down gracefully.
func ListenAndServe(ctx context.Context, host string, port int, handler http.Handler, log *zap.SugaredLogger) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
