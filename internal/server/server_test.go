package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-tempo/internal/config"
	"github.com/tartampluch/go-tempo/internal/pipeline"
)

func newTestServer() *TimelineServer {
	return NewTimelineServer(config.LocalhostBindAddr, "0", config.DefaultTickRate)
}

// -----------------------------------------------------------------------------
// Unit Tests (White-Box Testing of Handler Logic)
// -----------------------------------------------------------------------------

// TestHandler_ServingContent verifies that the handler correctly writes
// the standard HTTP headers and body content when data is available.
func TestHandler_ServingContent(t *testing.T) {
	srv := newTestServer()
	tl := pipeline.Timeline{
		Expr: "scale:2", From: 0, To: 1, Step: 1, Min: 0, Max: 2,
		Samples: []pipeline.Sample{{Time: 0, Value: 0}, {Time: 1, Value: 2}},
	}
	require.NoError(t, srv.Publish(tl))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	srv.handleTimelineRequest(w, req)

	resp := w.Result()
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, config.MimeJSON, resp.Header.Get(config.HeaderContentType))
	assert.Equal(t, config.MimeNoSniff, resp.Header.Get(config.HeaderXContentType))
	assert.Contains(t, resp.Header.Get(config.HeaderCacheControl), "no-cache")
	assert.NotEmpty(t, resp.Header.Get(config.HeaderETag))
	assert.NotEmpty(t, resp.Header.Get(config.HeaderLastModified))

	var got pipeline.Timeline
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, tl, got)
}

// TestHandler_Caching verifies that the server respects ETag headers (If-None-Match)
// and returns 304 Not Modified to save bandwidth.
func TestHandler_Caching(t *testing.T) {
	srv := newTestServer()
	srv.Update([]byte(`{"expr":"v1"}`))

	req1 := httptest.NewRequest(http.MethodGet, "/", nil)
	w1 := httptest.NewRecorder()
	srv.handleTimelineRequest(w1, req1)

	etag := w1.Result().Header.Get(config.HeaderETag)
	require.NotEmpty(t, etag, "Server must provide an ETag")

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.Header.Set(config.HeaderIfNoneMatch, etag)
	w2 := httptest.NewRecorder()

	srv.handleTimelineRequest(w2, req2)
	resp2 := w2.Result()
	defer func() { _ = resp2.Body.Close() }()

	assert.Equal(t, http.StatusNotModified, resp2.StatusCode)
	body, _ := io.ReadAll(resp2.Body)
	assert.Empty(t, body, "Body must be empty on 304 Not Modified")
}

func TestHandler_IfModifiedSince(t *testing.T) {
	srv := newTestServer()
	srv.Update([]byte(`{}`))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(config.HeaderIfModifiedSince, time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
	w := httptest.NewRecorder()
	srv.handleTimelineRequest(w, req)
	assert.Equal(t, http.StatusNotModified, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(config.HeaderIfModifiedSince, time.Now().Add(-time.Hour).UTC().Format(http.TimeFormat))
	w = httptest.NewRecorder()
	srv.handleTimelineRequest(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandler_Head(t *testing.T) {
	srv := newTestServer()
	srv.Update([]byte(`{"expr":"v1"}`))

	req := httptest.NewRequest(http.MethodHead, "/", nil)
	w := httptest.NewRecorder()
	srv.handleTimelineRequest(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.Bytes())
}

// TestHandler_MethodNotAllowed ensures strictly GET and HEAD are accepted.
func TestHandler_MethodNotAllowed(t *testing.T) {
	srv := newTestServer()

	for _, route := range []string{config.RouteRoot, config.RouteSample} {
		req := httptest.NewRequest(http.MethodPost, route, nil)
		w := httptest.NewRecorder()

		srv.Handler().ServeHTTP(w, req)

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code, route)
		assert.Equal(t, config.AllowedMethods, w.Header().Get(config.HeaderAllow), route)
	}
}

// TestHandler_Initializing verifies the 503 behavior when data is not yet ready.
func TestHandler_Initializing(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	srv.handleTimelineRequest(w, req)

	resp := w.Result()
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, config.RetryAfterSeconds, resp.Header.Get(config.HeaderRetryAfter))
}

func TestHandler_Sample(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/sample?expr=normalize:2&from=0&to=2&step=0.5", nil)
	w := httptest.NewRecorder()
	srv.handleSampleRequest(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, config.MimeJSON, w.Header().Get(config.HeaderContentType))

	var tl pipeline.Timeline
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tl))
	require.Len(t, tl.Samples, 5)
	assert.InDelta(t, 0.75, tl.Samples[3].Value, 1e-6)
	assert.InDelta(t, 1, tl.Max, 1e-6)
}

func TestHandler_SampleDefaults(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/sample?expr=scale:1", nil)
	w := httptest.NewRecorder()
	srv.handleSampleRequest(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var tl pipeline.Timeline
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tl))
	assert.Equal(t, config.DefaultFrom, tl.From)
	assert.Equal(t, config.DefaultTo, tl.To)
	assert.Equal(t, config.DefaultStep, tl.Step)
}

func TestHandler_SampleBadRequest(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr string
	}{
		{"Missing expression", "", config.ErrInvalidRequest},
		{"Bad number", "expr=scale:1&step=fast", config.ErrQueryNumber},
		{"Bad pipeline", "expr=easein", config.ErrNotNormalized},
		{"Reversed range", "expr=scale:1&from=3&to=1", config.ErrInvalidRequest},
		{"Too many samples", "expr=scale:1&step=0.000001", "sample limit"},
		{"Overflowing sample count", "expr=scale:1&to=1e300&step=1e-300", "sample limit"},
		{"Infinite bound", "expr=scale:1&to=Inf", config.ErrNonFiniteRange},
		{"Overflowing values", "expr=scale:1e30%7Cscale:1e30", config.ErrNonFinite},
	}

	srv := newTestServer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/sample?"+tt.query, nil)
			w := httptest.NewRecorder()
			srv.handleSampleRequest(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantErr)
		})
	}
}

func TestSetTickRate(t *testing.T) {
	srv := newTestServer()
	assert.Equal(t, config.DefaultTickRate, srv.TickRate())

	srv.SetTickRate(60)
	assert.Equal(t, 60, srv.TickRate())

	srv.SetTickRate(0)
	assert.Equal(t, config.DefaultTickRate, srv.TickRate())

	srv.SetTickRate(config.MaxTickRate + 1)
	assert.Equal(t, config.DefaultTickRate, srv.TickRate())
}

// -----------------------------------------------------------------------------
// Live Stream (WebSocket)
// -----------------------------------------------------------------------------

func liveURL(ts *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + config.RouteLive + "?" + query
}

func TestLive_StreamsFrames(t *testing.T) {
	srv := newTestServer()
	srv.SetTickRate(100)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial(liveURL(ts, "expr=normalize:1000&frames=3"), nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	var last pipeline.Sample
	for i := 0; i < 3; i++ {
		var frame pipeline.Sample
		require.NoError(t, conn.ReadJSON(&frame))

		assert.GreaterOrEqual(t, frame.Time, last.Time, "frames are ordered")
		assert.InDelta(t, frame.Time/1000, frame.Value, 1e-6, "value follows the chain")
		last = frame
	}

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestLive_BadPipeline(t *testing.T) {
	ts := httptest.NewServer(newTestServer().Handler())
	defer ts.Close()

	tests := []string{"expr=warp:1", "", "expr=scale:1&frames=-1"}
	for _, query := range tests {
		_, resp, err := websocket.DefaultDialer.Dial(liveURL(ts, query), nil)
		require.Error(t, err, query)
		require.NotNil(t, resp, query)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, query)
		_ = resp.Body.Close()
	}
}

func TestLive_ShutdownClosesStream(t *testing.T) {
	srv := newTestServer()
	ctx, cancel := context.WithCancel(context.Background())

	ts := httptest.NewUnstartedServer(srv.Handler())
	ts.Config.BaseContext = func(_ net.Listener) context.Context { return ctx }
	ts.Start()
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial(liveURL(ts, "expr=scale:1"), nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	var frame pipeline.Sample
	require.NoError(t, conn.ReadJSON(&frame))

	cancel()

	for {
		if _, _, err = conn.ReadMessage(); err != nil {
			break
		}
	}
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

// -----------------------------------------------------------------------------
// Concurrency Tests (Race Detection)
// -----------------------------------------------------------------------------

// TestServer_RaceCondition validates the thread-safety of atomic.Pointer usage.
// Run this with `go test -race`.
func TestServer_RaceCondition(t *testing.T) {
	srv := newTestServer()
	var wg sync.WaitGroup

	end := time.Now().Add(500 * time.Millisecond)

	for w := 0; w < 5; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			i := 0
			for time.Now().Before(end) {
				srv.Update([]byte(fmt.Sprintf(`{"expr":"%d-%d"}`, id, i)))
				srv.SetTickRate(1 + i%config.MaxTickRate)
				i++
				time.Sleep(1 * time.Microsecond)
			}
		}(w)
	}

	for r := 0; r < 20; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) {
				req := httptest.NewRequest(http.MethodGet, "/", nil)
				w := httptest.NewRecorder()

				srv.handleTimelineRequest(w, req)

				code := w.Code
				if code != http.StatusOK && code != http.StatusServiceUnavailable {
					t.Errorf("Unexpected status code during race test: %d", code)
				}
				_ = srv.TickRate()
			}
		}()
	}

	wg.Wait()
}

// -----------------------------------------------------------------------------
// Integration Tests (Real TCP Lifecycle)
// -----------------------------------------------------------------------------

// TestServer_Lifecycle spins up the actual TCP listener to verify network binding
// and graceful shutdown logic.
func TestServer_Lifecycle(t *testing.T) {
	const port = "18099"

	srv := NewTimelineServer(config.LocalhostBindAddr, port, config.DefaultTickRate)
	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)

	go func() {
		errChan <- srv.Start(ctx)
	}()

	url := "http://127.0.0.1:" + port + "/"

	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return true
	}, 2*time.Second, 50*time.Millisecond, "Server failed to bind/listen in time")

	// 1. Nothing published yet
	resp, err := http.Get(url)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	_ = resp.Body.Close()

	// 2. Publish
	require.NoError(t, srv.Publish(pipeline.Timeline{Expr: "bounce:2"}))

	resp, err = http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, config.MimeJSON, resp.Header.Get(config.HeaderContentType))

	body, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)
	assert.Contains(t, string(body), `"expr":"bounce:2"`)

	// 3. Shutdown
	cancel()

	select {
	case err := <-errChan:
		assert.NoError(t, err, "Server should shutdown gracefully without error")
	case <-time.After(5 * time.Second):
		t.Fatal("Server shutdown timed out")
	}
}

func TestServer_PortRequired(t *testing.T) {
	srv := NewTimelineServer("", "", config.DefaultTickRate)
	err := srv.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrPortRequired)
}
