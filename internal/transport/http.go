// Copyright 2026 The Guidrive Authors
//
// HTTP/SSE transport for JSON-RPC 2.0 communication

package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// HTTPTransportConfig configures the HTTP/SSE transport. SocketPath, when
// set, takes precedence over Address and listens on a Unix domain socket.
// WriteTimeout defaults to 0 (disabled) because SSE streams are long-lived.
type HTTPTransportConfig struct {
	Address           string
	SocketPath        string
	CORSOrigin        string
	HeartbeatInterval time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	RateLimit         float64
}

// DefaultHTTPConfig returns the default HTTP transport configuration.
func DefaultHTTPConfig() *HTTPTransportConfig {
	return &HTTPTransportConfig{
		Address:           ":8080",
		CORSOrigin:        "*",
		HeartbeatInterval: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
	}
}

// HTTPTransport serves JSON-RPC over HTTP POST /message with responses also
// broadcast to SSE clients on /events. /health and /metrics round out the
// operational surface.
type HTTPTransport struct {
	config  *HTTPTransportConfig
	server  *http.Server
	handler Handler
	clients *clientRegistry
	metrics *MetricsRegistry

	shutdownCh chan struct{}
	eventID    atomic.Uint64
	closed     atomic.Bool
}

// sseEvent is one Server-Sent Event.
type sseEvent struct {
	id    string
	event string
	data  string
}

// sseClient is one connected /events consumer.
type sseClient struct {
	id string
	ch chan *sseEvent
}

// clientRegistry tracks connected SSE clients and keeps a bounded replay
// buffer for Last-Event-ID reconnection.
type clientRegistry struct {
	mu      sync.RWMutex
	clients map[string]*sseClient
	recent  []*sseEvent
	maxKeep int
	nextID  atomic.Uint64
}

func newClientRegistry() *clientRegistry {
	return &clientRegistry{
		clients: make(map[string]*sseClient),
		maxKeep: 1000,
	}
}

func (r *clientRegistry) add() *sseClient {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := &sseClient{
		id: "client-" + strconv.FormatUint(r.nextID.Add(1), 10),
		ch: make(chan *sseEvent, 100),
	}
	r.clients[c.id] = c
	return c
}

func (r *clientRegistry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[id]; ok {
		close(c.ch)
		delete(r.clients, id)
	}
}

func (r *clientRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// broadcast stores the event for replay and fans it out. Clients with full
// buffers lose the event rather than blocking the sender.
func (r *clientRegistry) broadcast(event *sseEvent) {
	r.mu.Lock()
	if len(r.recent) >= r.maxKeep {
		r.recent = r.recent[1:]
	}
	r.recent = append(r.recent, event)
	clients := make([]*sseClient, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	r.mu.Unlock()

	for _, c := range clients {
		select {
		case c.ch <- event:
		default:
			log.Printf("http transport: dropping event %s for %s (buffer full)", event.id, c.id)
		}
	}
}

// since returns events recorded after the given event ID.
func (r *clientRegistry) since(lastEventID string) []*sseEvent {
	if lastEventID == "" {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i, e := range r.recent {
		if e.id == lastEventID {
			out := make([]*sseEvent, len(r.recent)-i-1)
			copy(out, r.recent[i+1:])
			return out
		}
	}
	return nil
}

// NewHTTPTransport creates an HTTP/SSE transport. A nil config uses
// DefaultHTTPConfig. The metrics registry may be nil to disable /metrics
// instrumentation (the endpoint then serves an empty registry).
func NewHTTPTransport(config *HTTPTransportConfig, metrics *MetricsRegistry) *HTTPTransport {
	if config == nil {
		config = DefaultHTTPConfig()
	}
	if config.HeartbeatInterval == 0 {
		config.HeartbeatInterval = 15 * time.Second
	}
	if config.CORSOrigin == "" {
		config.CORSOrigin = "*"
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = 30 * time.Second
	}
	if metrics == nil {
		metrics = NewMetricsRegistry()
	}

	t := &HTTPTransport{
		config:     config,
		clients:    newClientRegistry(),
		metrics:    metrics,
		shutdownCh: make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/message", t.handleMessage)
	mux.HandleFunc("/events", t.handleSSE)
	mux.HandleFunc("/health", t.handleHealth)
	mux.HandleFunc("/metrics", t.handleMetrics)

	limiter := NewRateLimiter(config.RateLimit)
	t.server = &http.Server{
		Handler:      RateLimitMiddleware(limiter, t.corsMiddleware(mux)),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return t
}

// Mux returns the transport's HTTP handler, for tests driving it through
// httptest without a listener.
func (t *HTTPTransport) Mux() http.Handler { return t.server.Handler }

// SetHandler installs the request handler. Must be called before requests
// arrive; Serve does it from its argument.
func (t *HTTPTransport) SetHandler(handler Handler) { t.handler = handler }

func (t *HTTPTransport) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", t.config.CORSOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Last-Event-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleMessage handles POST /message: decode, dispatch, respond, and mirror
// the response to SSE listeners.
func (t *HTTPTransport) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var msg Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	if t.handler == nil {
		http.Error(w, "Handler not set", http.StatusInternalServerError)
		return
	}

	response, err := t.handler(&msg)
	if err != nil {
		response = NewError(msg.ID, ErrCodeInternalError, err.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	if response == nil {
		// Notification: acknowledge with an empty body.
		w.WriteHeader(http.StatusAccepted)
		return
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("http transport: encoding response: %v", err)
	}

	t.broadcastMessage(response)
}

// broadcastMessage mirrors a response onto the SSE stream.
func (t *HTTPTransport) broadcastMessage(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	t.clients.broadcast(&sseEvent{
		id:    strconv.FormatUint(t.eventID.Add(1), 10),
		event: "message",
		data:  string(data),
	})
	t.metrics.RecordSSEEvent()
}

// handleSSE handles GET /events: stream responses with heartbeats and
// Last-Event-ID replay.
func (t *HTTPTransport) handleSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client := t.clients.add()
	defer func() {
		t.clients.remove(client.id)
		t.metrics.SetSSEConnections(t.clients.count())
	}()
	t.metrics.SetSSEConnections(t.clients.count())
	log.Printf("http transport: SSE client connected: %s", client.id)

	for _, missed := range t.clients.since(r.Header.Get("Last-Event-ID")) {
		if err := writeSSEEvent(w, missed); err != nil {
			return
		}
	}
	flusher.Flush()

	heartbeat := time.NewTicker(t.config.HeartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			log.Printf("http transport: SSE client disconnected: %s", client.id)
			return
		case <-t.shutdownCh:
			fmt.Fprintf(w, "event: complete\ndata: server shutdown\n\n")
			flusher.Flush()
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprintf(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case event, ok := <-client.ch:
			if !ok {
				return
			}
			if err := writeSSEEvent(w, event); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeSSEEvent writes one event, splitting multiline data per the SSE spec.
func writeSSEEvent(w io.Writer, event *sseEvent) error {
	var b strings.Builder
	b.WriteString("id: " + event.id + "\n")
	b.WriteString("event: " + event.event + "\n")
	for _, line := range strings.Split(event.data, "\n") {
		b.WriteString("data: " + line + "\n")
	}
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// handleHealth handles GET /health.
func (t *HTTPTransport) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":      "ok",
		"clients":     t.clients.count(),
		"server_time": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleMetrics handles GET /metrics in Prometheus text format.
func (t *HTTPTransport) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	if err := t.metrics.WritePrometheus(w); err != nil {
		log.Printf("http transport: writing metrics: %v", err)
	}
}

// Serve installs the handler, binds the listener (Unix socket or TCP) and
// serves until Close.
func (t *HTTPTransport) Serve(handler Handler) error {
	t.handler = handler

	var listener net.Listener
	var err error
	if t.config.SocketPath != "" {
		if err := os.Remove(t.config.SocketPath); err != nil && !os.IsNotExist(err) {
			log.Printf("http transport: removing stale socket %s: %v", t.config.SocketPath, err)
		}
		listener, err = net.Listen("unix", t.config.SocketPath)
		if err != nil {
			return fmt.Errorf("listening on socket %s: %w", t.config.SocketPath, err)
		}
		log.Printf("http transport: listening on unix:%s", t.config.SocketPath)
	} else {
		listener, err = net.Listen("tcp", t.config.Address)
		if err != nil {
			return fmt.Errorf("listening on %s: %w", t.config.Address, err)
		}
		log.Printf("http transport: listening on %s", t.config.Address)
	}

	if err := t.server.Serve(listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// ReadMessage is unsupported; the HTTP transport delivers messages through
// the Serve handler callback.
func (t *HTTPTransport) ReadMessage() (*Message, error) {
	return nil, fmt.Errorf("ReadMessage is not supported by HTTPTransport; use Serve(handler)")
}

// WriteMessage broadcasts a server-initiated message to all SSE clients.
func (t *HTTPTransport) WriteMessage(msg *Message) error {
	if t.closed.Load() {
		return ErrTransportClosed
	}
	t.broadcastMessage(msg)
	return nil
}

// Close shuts the HTTP server down gracefully and removes any Unix socket.
// Idempotent.
func (t *HTTPTransport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	close(t.shutdownCh)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := t.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}

	if t.config.SocketPath != "" {
		if err := os.Remove(t.config.SocketPath); err != nil && !os.IsNotExist(err) {
			log.Printf("http transport: removing socket %s: %v", t.config.SocketPath, err)
		}
	}
	return nil
}

// IsClosed reports whether Close has been called.
func (t *HTTPTransport) IsClosed() bool { return t.closed.Load() }

var _ Transport = (*HTTPTransport)(nil)
