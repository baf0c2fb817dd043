package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tartampluch/go-tempo/internal/config"
	"github.com/tartampluch/go-tempo/internal/pipeline"
	"github.com/tartampluch/go-tempo/pkg/clock"
)

// cacheItem stores the rendered timeline and its metadata for HTTP caching.
type cacheItem struct {
	data         []byte
	etag         string
	lastModified string // RFC1123 format required by HTTP headers
}

// TimelineServer publishes a precomputed timeline on "/", samples arbitrary
// pipelines on "/sample" and streams live clock values over WebSocket on "/live".
type TimelineServer struct {
	// cache uses atomic.Pointer for lock-free reads.
	// The timeline is read on every request but only replaced on settings reload.
	cache    atomic.Pointer[cacheItem]
	tickRate atomic.Int64

	Bind    string
	Port    string
	Sampler *pipeline.Sampler

	upgrader websocket.Upgrader
}

// NewTimelineServer creates a new instance of the server.
func NewTimelineServer(bind, port string, tickRate int) *TimelineServer {
	s := &TimelineServer{
		Bind:    bind,
		Port:    port,
		Sampler: pipeline.NewSampler(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.WSBufferSize,
			WriteBufferSize: config.WSBufferSize,
		},
	}
	s.SetTickRate(tickRate)
	return s
}

// SetTickRate changes the frame rate of live streams opened from now on.
// Values outside [1, config.MaxTickRate] fall back to the default.
func (s *TimelineServer) SetTickRate(rate int) {
	if rate < 1 || rate > config.MaxTickRate {
		rate = config.DefaultTickRate
	}
	s.tickRate.Store(int64(rate))
}

// TickRate returns the current live frame rate.
func (s *TimelineServer) TickRate() int {
	return int(s.tickRate.Load())
}

// Handler returns the routes of the server.
func (s *TimelineServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(config.RouteRoot, s.handleTimelineRequest)
	mux.HandleFunc(config.RouteSample, s.handleSampleRequest)
	mux.HandleFunc(config.RouteLive, s.handleLiveRequest)
	return mux
}

// Start initializes the HTTP server and blocks until the context is cancelled.
// Live streams are closed with a going-away frame on shutdown.
func (s *TimelineServer) Start(ctx context.Context) error {
	if s.Port == "" {
		return errors.New(config.ErrPortRequired)
	}

	bind := s.Bind
	if bind == "" {
		bind = config.LocalhostBindAddr
	}

	srv := &http.Server{
		Addr:         net.JoinHostPort(bind, s.Port),
		Handler:      s.Handler(),
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	serverError := make(chan error, config.ChannelBufferSize)

	go func() {
		slog.Info(config.MsgServerListen,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyPort, s.Port,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverError <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info(config.MsgServerStop, config.LogKeyComponent, config.CompServer)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: %w", config.ErrServerShutdown, err)
		}
		return nil

	case err := <-serverError:
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}
}

// Publish renders tl as JSON and makes it the content of the root route.
func (s *TimelineServer) Publish(tl pipeline.Timeline) error {
	var buf bytes.Buffer
	if err := pipeline.EncodeJSON(&buf, tl); err != nil {
		return fmt.Errorf("%s: %w", config.ErrPublish, err)
	}
	s.Update(buf.Bytes())
	return nil
}

// Update atomically replaces the served content.
func (s *TimelineServer) Update(data []byte) {
	hash := sha256.Sum256(data)
	etag := fmt.Sprintf(config.FormatETag, hex.EncodeToString(hash[:]))

	item := &cacheItem{
		data:         data,
		etag:         etag,
		lastModified: time.Now().UTC().Format(http.TimeFormat),
	}

	// Concurrent readers see either the old or the new complete item.
	s.cache.Store(item)

	slog.Debug(config.MsgCacheUpdated,
		config.LogKeyComponent, config.CompServer,
		config.LogKeySizeBytes, len(data),
		config.LogKeyETag, etag,
	)
}

// allowRead rejects anything but GET and HEAD.
func allowRead(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set(config.HeaderAllow, config.AllowedMethods)
		http.Error(w, config.HTTPMsgMethodNotAll, http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// handleTimelineRequest serves the published timeline with HTTP caching support.
func (s *TimelineServer) handleTimelineRequest(w http.ResponseWriter, r *http.Request) {
	if !allowRead(w, r) {
		return
	}

	item := s.cache.Load()
	if item == nil {
		w.Header().Set(config.HeaderRetryAfter, config.RetryAfterSeconds)
		http.Error(w, config.HTTPMsgInitializing, http.StatusServiceUnavailable)
		return
	}

	w.Header().Set(config.HeaderContentType, config.MimeJSON)
	w.Header().Set(config.HeaderXContentType, config.MimeNoSniff)
	w.Header().Set(config.HeaderCacheControl, config.CacheControlPrivate)
	w.Header().Set(config.HeaderETag, item.etag)
	w.Header().Set(config.HeaderLastModified, item.lastModified)

	if match := r.Header.Get(config.HeaderIfNoneMatch); match == item.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if since := r.Header.Get(config.HeaderIfModifiedSince); since != "" {
		if clientTime, err := time.Parse(http.TimeFormat, since); err == nil {
			if serverTime, err := time.Parse(http.TimeFormat, item.lastModified); err == nil {
				if !serverTime.After(clientTime) {
					w.WriteHeader(http.StatusNotModified)
					return
				}
			}
		}
	}

	if r.Method == http.MethodGet {
		if _, err := io.Copy(w, bytes.NewReader(item.data)); err != nil {
			slog.Error(config.ErrWriteResp,
				config.LogKeyComponent, config.CompServer,
				config.LogKeyError, err,
			)
		}
	}
}

// handleSampleRequest samples the pipeline given in the query string.
// Missing from/to/step fall back to the defaults.
func (s *TimelineServer) handleSampleRequest(w http.ResponseWriter, r *http.Request) {
	if !allowRead(w, r) {
		return
	}

	req, err := parseSampleQuery(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tl, err := s.Sampler.Sample(r.Context(), req)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set(config.HeaderContentType, config.MimeJSON)
	w.Header().Set(config.HeaderXContentType, config.MimeNoSniff)
	if r.Method == http.MethodHead {
		return
	}

	if err := pipeline.EncodeJSON(w, tl); err != nil {
		slog.Error(config.ErrWriteResp,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyError, err,
		)
	}
}

func parseSampleQuery(q url.Values) (pipeline.Request, error) {
	req := pipeline.Request{
		Expr: q.Get(config.QueryExpr),
		From: config.DefaultFrom,
		To:   config.DefaultTo,
		Step: config.DefaultStep,
	}

	fields := []struct {
		key string
		dst *float64
	}{
		{config.QueryFrom, &req.From},
		{config.QueryTo, &req.To},
		{config.QueryStep, &req.Step},
	}
	for _, f := range fields {
		raw := q.Get(f.key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return pipeline.Request{}, fmt.Errorf("%s: %s=%q", config.ErrQueryNumber, f.key, raw)
		}
		*f.dst = v
	}
	return req, nil
}

// handleLiveRequest upgrades to WebSocket and streams {"t","v"} frames of the
// pipeline driven by a system clock started at connection time.
func (s *TimelineServer) handleLiveRequest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if raw := q.Get(config.QueryFrames); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, fmt.Sprintf("%s: %s=%q", config.ErrQueryNumber, config.QueryFrames, raw), http.StatusBadRequest)
			return
		}
		limit = n
	}

	// The source is read once per frame, the chain then sees a single instant.
	source, err := clock.NewCached(clock.StartSystem())
	if err != nil {
		http.Error(w, config.HTTPMsgInternalErr, http.StatusInternalServerError)
		return
	}

	chain, err := pipeline.Build(source, q.Get(config.QueryExpr))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already replied with an HTTP error.
		slog.Warn(config.ErrWSUpgrade,
			config.LogKeyComponent, config.CompLive,
			config.LogKeyError, err,
		)
		return
	}

	s.stream(r.Context(), conn, source, chain, limit)
}

// stream writes one frame per tick until the client leaves, the limit is
// reached or ctx is cancelled.
func (s *TimelineServer) stream(ctx context.Context, conn *websocket.Conn, source *clock.Cached[clock.System], chain clock.Clock, limit int) {
	rate := s.TickRate()
	log := slog.With(
		config.LogKeyComponent, config.CompLive,
		config.LogKeyRemote, conn.RemoteAddr().String(),
	)
	log.Info(config.MsgLiveOpen, config.LogKeyTickRate, rate)

	sent := 0
	defer func() {
		_ = conn.Close()
		log.Info(config.MsgLiveClosed, config.LogKeyFrames, sent)
	}()

	// Reads are only needed for control frames (pong, close).
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		_ = conn.SetReadDeadline(time.Now().Add(config.WSPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(config.WSPongWait))
		})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()
	ping := time.NewTicker(config.WSPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			closeStream(conn, websocket.CloseGoingAway)
			return

		case <-gone:
			return

		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(config.WSWriteWait)); err != nil {
				log.Debug(config.ErrWSWrite, config.LogKeyError, err)
				return
			}

		case <-ticker.C:
			source.Update()
			frame := pipeline.Sample{Time: source.GetTime(), Value: chain.GetTime()}

			_ = conn.SetWriteDeadline(time.Now().Add(config.WSWriteWait))
			if err := conn.WriteJSON(frame); err != nil {
				log.Debug(config.ErrWSWrite, config.LogKeyError, err)
				return
			}

			sent++
			if limit > 0 && sent >= limit {
				closeStream(conn, websocket.CloseNormalClosure)
				return
			}
		}
	}
}

func closeStream(conn *websocket.Conn, code int) {
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, ""),
		time.Now().Add(config.WSCloseWait),
	)
}
