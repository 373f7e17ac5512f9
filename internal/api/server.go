package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Luks-code/luna-sub000/internal/dialog"
	"github.com/Luks-code/luna-sub000/internal/genai"
	"github.com/Luks-code/luna-sub000/internal/messaging"
	"github.com/Luks-code/luna-sub000/internal/retrieval"
	"github.com/Luks-code/luna-sub000/internal/session"
	"github.com/Luks-code/luna-sub000/internal/store"
	"github.com/Luks-code/luna-sub000/internal/twiliowhatsapp"
	"github.com/Luks-code/luna-sub000/internal/whatsapp"
)

// Transport names accepted by WithTransport.
const (
	TransportWhatsApp = "whatsapp"
	TransportTwilio   = "twilio"
)

// DefaultAddr is the API listen address used when none is configured.
const DefaultAddr = ":8080"

// Opts holds configuration options for the API server.
type Opts struct {
	Addr           string
	Transport      string
	DebounceWindow time.Duration
	RedisAddr      string
	RedisPassword  string
	SessionTTL     time.Duration
	WeaviateHost   string
	WeaviateScheme string
	WeaviateClass  string
	HistoryLimit   int
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the API server listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithTransport selects the messaging transport ("whatsapp" or "twilio").
func WithTransport(transport string) Option {
	return func(o *Opts) { o.Transport = transport }
}

// WithDebounceWindow sets the inbound message coalescing window.
func WithDebounceWindow(window time.Duration) Option {
	return func(o *Opts) { o.DebounceWindow = window }
}

// WithRedisAddr enables Redis session storage at the given address.
func WithRedisAddr(addr string) Option {
	return func(o *Opts) { o.RedisAddr = addr }
}

// WithRedisPassword sets the Redis password.
func WithRedisPassword(password string) Option {
	return func(o *Opts) { o.RedisPassword = password }
}

// WithSessionTTL sets the conversation session expiry.
func WithSessionTTL(ttl time.Duration) Option {
	return func(o *Opts) { o.SessionTTL = ttl }
}

// WithWeaviate enables Weaviate-backed retrieval at the given host.
func WithWeaviate(host, scheme, class string) Option {
	return func(o *Opts) {
		o.WeaviateHost = host
		o.WeaviateScheme = scheme
		o.WeaviateClass = class
	}
}

// WithHistoryLimit sets the bounded per-session message history length.
func WithHistoryLimit(limit int) Option {
	return func(o *Opts) { o.HistoryLimit = limit }
}

// Run wires every module and serves until SIGINT or SIGTERM: durable
// store, session store, completion client, retrieval, the conversation
// orchestrator, the selected messaging transport, and the HTTP API.
func Run(waOpts []whatsapp.Option, storeOpts []store.Option, genaiOpts []genai.Option, apiOpts []Option) error {
	cfg := Opts{
		Addr:           DefaultAddr,
		Transport:      TransportWhatsApp,
		DebounceWindow: messaging.DefaultDebounceWindow,
		SessionTTL:     session.DefaultTTL,
	}
	for _, opt := range apiOpts {
		opt(&cfg)
	}
	slog.Info("api.Run: starting", "addr", cfg.Addr, "transport", cfg.Transport,
		"redis_set", cfg.RedisAddr != "", "weaviate_set", cfg.WeaviateHost != "")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, err := buildStore(storeOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	sessions, err := buildSessionStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize session store: %w", err)
	}

	genaiClient, err := genai.NewClient(genaiOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize completion client: %w", err)
	}

	searcher, err := buildSearcher(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize retrieval: %w", err)
	}

	var orchOpts []dialog.Option
	if cfg.HistoryLimit > 0 {
		orchOpts = append(orchOpts, dialog.WithHistoryLimit(cfg.HistoryLimit))
	}
	orchestrator := dialog.NewOrchestrator(sessions, st, genaiClient, searcher, orchOpts...)

	service, twilioService, err := buildTransport(cfg, waOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging transport: %w", err)
	}
	if err := service.Start(ctx); err != nil {
		return fmt.Errorf("failed to start messaging transport: %w", err)
	}
	defer service.Stop()

	router := messaging.NewRouter(service, orchestrator, cfg.DebounceWindow)
	go router.Run(ctx)

	server := NewServer(st)
	mux := server.Handler()
	if twilioService != nil {
		mux.HandleFunc("POST /webhook/twilio", twilioService.WebhookHandler)
	}

	httpServer := &http.Server{Addr: cfg.Addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("api.Run: HTTP server listening", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("api.Run: shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("api.Run: HTTP shutdown failed", "error", err)
	}
	return nil
}

// buildStore selects the durable store from the DSN: PostgreSQL, SQLite,
// or in-memory when no DSN is configured.
func buildStore(storeOpts []store.Option) (store.Store, error) {
	var cfg store.Opts
	for _, opt := range storeOpts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Warn("api.buildStore: no database DSN configured, complaints will not survive restarts")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(cfg.DSN) == "postgres" {
		slog.Debug("api.buildStore: using PostgreSQL store")
		return store.NewPostgresStore(storeOpts...)
	}
	slog.Debug("api.buildStore: using SQLite store", "path", cfg.DSN)
	return store.NewSQLiteStore(storeOpts...)
}

// buildSessionStore selects Redis when configured, otherwise in-memory.
func buildSessionStore(cfg Opts) (session.Store, error) {
	if cfg.RedisAddr == "" {
		slog.Debug("api.buildSessionStore: using in-memory sessions", "ttl", cfg.SessionTTL)
		return session.NewMemoryStore(cfg.SessionTTL), nil
	}
	slog.Debug("api.buildSessionStore: using Redis sessions", "addr", cfg.RedisAddr, "ttl", cfg.SessionTTL)
	return session.NewRedisStore(
		session.WithAddr(cfg.RedisAddr),
		session.WithPassword(cfg.RedisPassword),
		session.WithTTL(cfg.SessionTTL),
	)
}

// buildSearcher selects Weaviate when configured, otherwise an empty
// in-memory searcher so informational answers degrade instead of failing.
func buildSearcher(cfg Opts) (retrieval.Searcher, error) {
	if cfg.WeaviateHost == "" {
		slog.Warn("api.buildSearcher: no Weaviate host configured, informational answers will not use documents")
		return retrieval.NewMemorySearcher(), nil
	}
	var opts []retrieval.Option
	opts = append(opts, retrieval.WithHost(cfg.WeaviateHost))
	if cfg.WeaviateScheme != "" {
		opts = append(opts, retrieval.WithScheme(cfg.WeaviateScheme))
	}
	if cfg.WeaviateClass != "" {
		opts = append(opts, retrieval.WithClass(cfg.WeaviateClass))
	}
	return retrieval.NewWeaviateSearcher(opts...)
}

// buildTransport constructs the selected messaging transport. The Twilio
// service is returned separately so its webhook can be mounted.
func buildTransport(cfg Opts, waOpts []whatsapp.Option) (messaging.Service, *messaging.TwilioService, error) {
	switch cfg.Transport {
	case TransportTwilio:
		client, err := twiliowhatsapp.NewClient()
		if err != nil {
			return nil, nil, err
		}
		service := messaging.NewTwilioService(client)
		return service, service, nil
	case TransportWhatsApp:
		client, err := whatsapp.NewClient(waOpts...)
		if err != nil {
			return nil, nil, err
		}
		return messaging.NewWhatsAppService(client), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}
