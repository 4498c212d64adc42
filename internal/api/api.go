// Package api provides the HTTP server for SupportPipe.
//
// It exposes the chat, health, and session administration endpoints and wires the order
// store, conversation history, and completion provider into the support flow.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BTreeMap/SupportPipe/internal/flow"
	"github.com/BTreeMap/SupportPipe/internal/genai"
	"github.com/BTreeMap/SupportPipe/internal/models"
	"github.com/BTreeMap/SupportPipe/internal/scheduler"
	"github.com/BTreeMap/SupportPipe/internal/store"
)

// Server defaults.
const (
	DefaultAddr              = ":5000"
	DefaultShutdownTimeout   = 10 * time.Second
	DefaultMaxBodyBytes      = 64 << 10
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultOrderLoadTimeout  = 30 * time.Second
	DefaultSessionTTL        = 24 * time.Hour
	DefaultPruneSchedule     = "@every 10m"
)

// DefaultAllowedOrigins are the trusted frontend origins.
var DefaultAllowedOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}

// Opts holds configuration options for the API server.
type Opts struct {
	Addr            string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
	SessionTTL      time.Duration // zero disables idle-session pruning
	PruneSchedule   string
}

// Option defines a function for configuring the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// WithAllowedOrigins replaces the CORS origin allow-list.
func WithAllowedOrigins(origins ...string) Option {
	return func(o *Opts) {
		o.AllowedOrigins = append([]string(nil), origins...)
	}
}

// WithShutdownTimeout bounds how long in-flight requests may drain on shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *Opts) {
		o.ShutdownTimeout = d
	}
}

// WithMaxBodyBytes caps the size of request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(o *Opts) {
		o.MaxBodyBytes = n
	}
}

// WithSessionTTL sets how long an idle session keeps its history. Zero disables pruning.
func WithSessionTTL(d time.Duration) Option {
	return func(o *Opts) {
		o.SessionTTL = d
	}
}

// WithPruneSchedule sets the cron expression of the idle-session sweep.
func WithPruneSchedule(expr string) Option {
	return func(o *Opts) {
		o.PruneSchedule = expr
	}
}

func buildOpts(opts []Option) Opts {
	cfg := Opts{
		Addr:            DefaultAddr,
		AllowedOrigins:  DefaultAllowedOrigins,
		ShutdownTimeout: DefaultShutdownTimeout,
		MaxBodyBytes:    DefaultMaxBodyBytes,
		SessionTTL:      DefaultSessionTTL,
		PruneSchedule:   DefaultPruneSchedule,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.SessionTTL < 0 {
		cfg.SessionTTL = 0
	}
	if cfg.PruneSchedule == "" {
		cfg.PruneSchedule = DefaultPruneSchedule
	}
	return cfg
}

// ChatProcessor answers chat requests.
type ChatProcessor interface {
	Process(ctx context.Context, req models.ChatRequest) (models.ChatResponse, error)
	Model() string
	Configured() bool
}

// SessionClearer drops the history of one session.
type SessionClearer interface {
	Clear(sessionID string) bool
}

// OrderCounter reports how many orders are available for lookup.
type OrderCounter interface {
	Len() int
}

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	chat     ChatProcessor
	sessions SessionClearer
	orders   OrderCounter
	cfg      Opts
	handler  http.Handler
}

// NewServer creates a server. sessions and orders may be nil.
func NewServer(chat ChatProcessor, sessions SessionClearer, orders OrderCounter, opts ...Option) *Server {
	s := &Server{chat: chat, sessions: sessions, orders: orders, cfg: buildOpts(opts)}
	s.handler = s.routes()
	slog.Debug("Server.NewServer: server created", "addr", s.cfg.Addr, "allowed_origins", s.cfg.AllowedOrigins)
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.cfg.Addr
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	for _, prefix := range []string{"/api", ""} {
		mux.HandleFunc(prefix+"/chat", s.chatHandler)
		mux.HandleFunc(prefix+"/health", s.healthHandler)
		mux.HandleFunc(prefix+"/sessions/{id}", s.sessionHandler)
	}
	mux.HandleFunc("/", s.notFoundHandler)

	var h http.Handler = mux
	h = corsMiddleware(s.cfg.AllowedOrigins)(h)
	h = recoverMiddleware(h)
	h = requestLogMiddleware(h)
	return h
}

// Serve accepts connections on ln until ctx is done, then drains in-flight requests.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Server.Serve: shutting down", "timeout", s.cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server.Serve: graceful shutdown failed", "error", err)
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("Server.Serve: server stopped")
	return nil
}

// ListenAndServe listens on the configured address and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	slog.Info("Server.ListenAndServe: SupportPipe API listening", "addr", ln.Addr().String())
	return s.Serve(ctx, ln)
}

// Run loads the orders, builds the completion client and support flow, and serves HTTP
// until SIGINT or SIGTERM. Order and provider failures degrade the service instead of
// stopping it.
func Run(orderOpts []store.Option, genaiOpts []genai.Option, apiOpts []Option) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orders := loadOrders(ctx, orderOpts)

	var completer genai.Completer
	client, err := genai.NewClient(genaiOpts...)
	if err != nil {
		slog.Warn("Run: completion provider not configured, chat requests will fail", "error", err)
	} else {
		completer = client
		slog.Info("Run: completion provider configured", "model", client.Model())
	}

	history := store.NewHistoryStore()
	support := flow.NewSupportFlow(flow.NewOrderResolver(orders), history, completer)
	server := NewServer(support, history, orders, apiOpts...)

	sched, err := startSessionPruning(history, server.cfg)
	if err != nil {
		return err
	}
	if sched != nil {
		defer sched.Stop()
	}
	return server.ListenAndServe(ctx)
}

// startSessionPruning schedules the idle-session sweep. It returns a nil scheduler when
// pruning is disabled.
func startSessionPruning(history *store.HistoryStore, cfg Opts) (*scheduler.Scheduler, error) {
	if cfg.SessionTTL <= 0 {
		slog.Info("Run: idle-session pruning disabled")
		return nil, nil
	}
	sched := scheduler.NewScheduler()
	if err := sched.AddJob("prune-idle-sessions", cfg.PruneSchedule, func() {
		history.PruneIdle(cfg.SessionTTL)
	}); err != nil {
		sched.Stop()
		return nil, fmt.Errorf("invalid session prune schedule %q: %w", cfg.PruneSchedule, err)
	}
	slog.Info("Run: idle-session pruning scheduled", "schedule", cfg.PruneSchedule, "ttl", cfg.SessionTTL)
	return sched, nil
}

func loadOrders(ctx context.Context, opts []store.Option) *store.OrderStore {
	loadCtx, cancel := context.WithTimeout(ctx, DefaultOrderLoadTimeout)
	defer cancel()

	orders, err := store.LoadOrders(loadCtx, opts...)
	if err != nil {
		source := "orders"
		var lerr *store.LoadError
		if errors.As(err, &lerr) {
			source = lerr.Source
		}
		slog.Error("Run: order data unavailable, order lookup disabled", "source", source, "error", err)
		return store.Unavailable(source)
	}
	slog.Info("Run: orders loaded", "source", orders.Source(), "count", orders.Len())
	return orders
}
