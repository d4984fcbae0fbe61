package producer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/primebench/primebench/internal/results"
	"github.com/primebench/primebench/internal/stream"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func newTestServer(t *testing.T, maxStreams int) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(NewGenerator(20, 1, nil), NewMetrics(), zap.NewNop().Sugar(), maxStreams)
	s.hostProbe = func(context.Context) HostInfo {
		return HostInfo{Hostname: "test-host", CPUs: 4}
	}
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv
}

func runSession(t *testing.T, tr stream.Transport, params stream.Params) (*stream.Session, results.Snapshot) {
	t.Helper()
	store := results.NewStore()
	sess := stream.NewSession(store, tr, stream.WithIdleTimeout(10*time.Second))
	require.NoError(t, sess.Open(context.Background(), params))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, sess.Run(ctx))
	return sess, store.Snapshot()
}

func TestSSEStreamEndToEnd(t *testing.T) {
	s, srv := newTestServer(t, 4)

	tr := &stream.SSETransport{BaseURL: srv.URL, Endpoint: "/api/generate_prime", Client: srv.Client()}
	sess, snap := runSession(t, tr, stream.Params{ItemSize: 12, IterationCount: 5})

	assert.Equal(t, stream.Completed, sess.Status())
	assert.Zero(t, sess.Rejected())
	require.Equal(t, 5, snap.Len())
	assert.Equal(t, 5, snap.Aggregate.Count)
	for _, it := range snap.Items {
		assert.GreaterOrEqual(t, it.Digits(), 12)
		assert.True(t, it.Int().ProbablyPrime(20))
	}

	assert.Eventually(t, func() bool { return s.active() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1.0, counterValue(t, s.metrics.StreamsFinished.WithLabelValues("sse", "completed")))
}

func TestWSStreamEndToEnd(t *testing.T) {
	s, srv := newTestServer(t, 4)

	tr := &stream.WSTransport{BaseURL: srv.URL, Endpoint: "/ws/generate_prime"}
	sess, snap := runSession(t, tr, stream.Params{ItemSize: 9, IterationCount: 5})

	assert.Equal(t, stream.Completed, sess.Status())
	assert.Equal(t, 5, snap.Len())

	assert.Eventually(t, func() bool {
		return counterValue(t, s.metrics.StreamsFinished.WithLabelValues("ws", "completed")) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLegacyRouteFrames(t *testing.T) {
	_, srv := newTestServer(t, 4)

	resp, err := http.Get(srv.URL + "/api/py/generate_prime?primeDigits=3&iter=5")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	scanner := stream.NewScanner(resp.Body)
	var frames []stream.Frame
	for scanner.Next() {
		frames = append(frames, scanner.Frame())
	}
	require.NoError(t, scanner.Err())
	require.Len(t, frames, 6)

	for i, f := range frames[:5] {
		var rec Record
		require.NoError(t, json.Unmarshal([]byte(f.Data), &rec))
		assert.Equal(t, i+1, rec.Index)

		item, err := stream.DecodeItem(f.Data)
		require.NoError(t, err)
		assert.Equal(t, rec.Prime, item.Value)
	}
	assert.Equal(t, stream.EndEventName, frames[5].Name)
	assert.JSONEq(t, `{"count":5}`, frames[5].Data)
}

func TestGenerateRejectsInvalidParams(t *testing.T) {
	_, srv := newTestServer(t, 4)

	tests := []struct {
		name, query string
	}{
		{"missing", ""},
		{"not a number", "itemSize=ten&iterationCount=5"},
		{"item size too large", "itemSize=1501&iterationCount=5"},
		{"too few iterations", "itemSize=10&iterationCount=4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, path := range []string{"/api/generate_prime", "/ws/generate_prime"} {
				resp, err := http.Get(srv.URL + path + "?" + tt.query)
				require.NoError(t, err)
				resp.Body.Close()
				assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
			}
		})
	}
}

func TestStreamLimit(t *testing.T) {
	s, srv := newTestServer(t, 1)

	release, ok := s.acquire()
	require.True(t, ok)
	defer release()

	resp, err := http.Get(srv.URL + "/api/generate_prime?itemSize=5&iterationCount=5")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	tr := &stream.SSETransport{BaseURL: srv.URL, Endpoint: "/api/generate_prime"}
	_, err = tr.Open(context.Background(), stream.Params{ItemSize: 5, IterationCount: 5})
	var te *stream.TransportError
	require.ErrorAs(t, err, &te)
	assert.Contains(t, te.Error(), "429")

	assert.Equal(t, 2.0, counterValue(t, s.metrics.RequestsRejected.WithLabelValues("busy")))
}

func TestCORSPreflight(t *testing.T) {
	_, srv := newTestServer(t, 1)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/generate_prime", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestHostAndHealth(t *testing.T) {
	_, srv := newTestServer(t, 3)

	resp, err := http.Get(srv.URL + "/api/host")
	require.NoError(t, err)
	var host HostInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&host))
	resp.Body.Close()
	assert.Equal(t, "test-host", host.Hostname)
	assert.Equal(t, 4, host.CPUs)

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	var health healthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	assert.Equal(t, healthResponse{Status: "ok", ActiveStreams: 0, MaxStreams: 3}, health)
}

func TestMetricsEndpoint(t *testing.T) {
	_, srv := newTestServer(t, 1)

	resp, err := http.Get(srv.URL + "/api/generate_prime?itemSize=0&iterationCount=5")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	text := string(body)
	assert.True(t, strings.Contains(text, `primebench_requests_rejected_total{reason="invalid"} 1`), text)
	assert.Contains(t, text, "primebench_active_streams 0")
	assert.Contains(t, text, "go_goroutines")
}

func TestCollectHost(t *testing.T) {
	info := collectHost(context.Background())
	assert.NotEmpty(t, info.OS)
	assert.Positive(t, info.CPUs)
}
