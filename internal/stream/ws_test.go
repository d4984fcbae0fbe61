package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primebench/primebench/internal/results"
)

func wsServer(t *testing.T, messages []string, sendClose bool) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()
		for _, m := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
				return
			}
		}
		if sendClose {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		}
		// Wait for the client to hang up.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestWSTransportEndToEnd(t *testing.T) {
	srv := wsServer(t, []string{
		`{"type":"item","payload":{"index":1,"prime":"2","time":0.5}}`,
		`{"type":"heartbeat"}`,
		`garbage`,
		`{"type":"item","payload":{"index":2,"prime":"3","time":1.5}}`,
		`{"type":"end"}`,
	}, false)

	store := results.NewStore()
	s := NewSession(store, &WSTransport{BaseURL: srv.URL, Endpoint: "/ws/generate_prime"})
	require.NoError(t, s.Open(context.Background(), validParams))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Run(ctx))

	assert.Equal(t, Completed, s.Status())
	assert.Equal(t, 1, s.Rejected())
	snap := store.Snapshot()
	require.Equal(t, 2, snap.Len())
	assert.InDelta(t, 1.0, snap.Aggregate.Mean, 1e-12)
}

func TestWSTransportCloseWithoutEnd(t *testing.T) {
	srv := wsServer(t, []string{`{"type":"item","payload":{"prime":"2","time":0.5}}`}, true)

	s := NewSession(results.NewStore(), &WSTransport{BaseURL: srv.URL, Endpoint: "/ws"})
	require.NoError(t, s.Open(context.Background(), validParams))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.ErrorIs(t, s.Run(ctx), ErrUnexpectedEOF)
}

func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		base, want string
		wantErr    bool
	}{
		{base: "http://127.0.0.1:8000", want: "ws://127.0.0.1:8000/ws?a=1"},
		{base: "https://example.com/", want: "wss://example.com/ws?a=1"},
		{base: "ws://h", want: "ws://h/ws?a=1"},
		{base: "ftp://h", wantErr: true},
	}
	for _, tt := range tests {
		got, err := websocketURL(tt.base, "/ws", "a=1")
		if tt.wantErr {
			assert.Error(t, err, tt.base)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
