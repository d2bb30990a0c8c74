// Package server wires the admission gate, challenge endpoint and catalog
// API into one HTTP server with graceful shutdown and hot-reloadable bot
// signatures.
package server

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/partsflow/gatekeeper/internal/audit"
	"github.com/partsflow/gatekeeper/internal/botsig"
	"github.com/partsflow/gatekeeper/internal/catalog"
	"github.com/partsflow/gatekeeper/internal/challenge"
	"github.com/partsflow/gatekeeper/internal/classify"
	"github.com/partsflow/gatekeeper/internal/config"
	"github.com/partsflow/gatekeeper/internal/gate"
	"github.com/partsflow/gatekeeper/internal/metrics"
	"github.com/partsflow/gatekeeper/internal/ratelimit"
	"github.com/partsflow/gatekeeper/internal/token"
)

//go:embed web
var webFS embed.FS

// Server is the admission-gated catalog HTTP server.
type Server struct {
	cfg        *config.Config
	configHash string
	codec      *token.Codec
	store      catalog.Store
	auditLog   *audit.Log
	stats      ratelimit.StatsSink
	limiter    *ratelimit.Store
	templates  *template.Template

	// mu guards the components rebuilt on signature hot-reload.
	mu        sync.RWMutex
	gate      *gate.Gate
	evaluator *challenge.Evaluator

	httpServer *http.Server
	closers    []func() error
}

// New creates a server from config. The secret key must be present; the
// catalog store comes from catalog_db (sqlite) or catalog_json (memory).
func New(cfg *config.Config, configHash string) (*Server, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("server: secret key not configured; set GATEKEEPER_SECRET")
	}

	s := &Server{
		cfg:        cfg,
		configHash: configHash,
		codec:      token.NewCodec([]byte(cfg.SecretKey)),
		limiter:    ratelimit.NewStore(cfg.ChallengeRatePerMinute, cfg.ChallengeBurst),
	}

	tmpl, err := template.ParseFS(webFS, "web/templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("server: parse templates: %w", err)
	}
	s.templates = tmpl

	if err := s.openStore(); err != nil {
		return nil, err
	}

	if cfg.AuditLogPath != "" {
		auditLog, err := audit.Open(cfg.AuditLogPath)
		if err != nil {
			return nil, fmt.Errorf("server: open audit log: %w", err)
		}
		s.auditLog = auditLog
		s.closers = append(s.closers, auditLog.Close)
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		s.stats = ratelimit.NewRedisStats(rdb)
		s.closers = append(s.closers, rdb.Close)
	}

	sigs, err := botsig.Load(cfg.SignaturesPath)
	if err != nil {
		return nil, fmt.Errorf("server: load signatures: %w", err)
	}
	s.install(sigs)

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpServer = &http.Server{
		Addr:         cfg.Listen,
		Handler:      s.admission(recoverPanics(mux)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

func (s *Server) openStore() error {
	switch {
	case s.cfg.CatalogDB != "":
		store, err := catalog.OpenSQLite(s.cfg.CatalogDB)
		if err != nil {
			return err
		}
		s.store = store
		s.closers = append(s.closers, store.Close)
	case s.cfg.CatalogJSON != "":
		store, err := catalog.LoadJSON(s.cfg.CatalogJSON)
		if err != nil {
			return err
		}
		s.store = store
	default:
		s.store = catalog.NewMemoryStore(nil)
		log.Warn().Msg("no catalog source configured; serving an empty catalog")
	}
	return nil
}

// install builds the classifier, evaluator and gate over a signature
// snapshot. Called at startup and on every hot reload.
func (s *Server) install(sigs *botsig.Signatures) {
	classifier := classify.New(s.codec, sigs, classify.Config{
		APIPrefix:      s.cfg.APIPrefix,
		ExemptPaths:    s.cfg.ExemptPaths,
		ExemptPrefixes: s.cfg.ExemptPrefixes,
		BindToAddr:     s.cfg.RequireIPBinding,
	})

	checks := challenge.Checks{
		AutomationFlag: s.cfg.CheckEnabled("automation_flag"),
		FrameworkFlag:  s.cfg.CheckEnabled("framework_flag"),
		SoftwareRender: s.cfg.CheckEnabled("software_render"),
	}

	g := gate.New(gate.Options{
		Classifier:        classifier,
		CookieName:        s.cfg.CookieName,
		TokenTTL:          time.Duration(s.cfg.TokenTTLSeconds) * time.Second,
		TrustProxyHeaders: s.cfg.TrustProxyHeaders,
		ConfigHash:        s.configHash,
		RenderChallenge:   s.renderChallenge,
		Audit:             s.auditLog,
		Stats:             s.stats,
	})

	s.mu.Lock()
	s.gate = g
	s.evaluator = challenge.NewEvaluator(s.codec, sigs, checks)
	s.mu.Unlock()
}

// ReloadSignatures re-reads the signatures file and swaps the admission
// components. A broken file leaves the running snapshot in place.
func (s *Server) ReloadSignatures() error {
	sigs, err := botsig.Load(s.cfg.SignaturesPath)
	if err != nil {
		return err
	}
	s.install(sigs)
	return nil
}

func (s *Server) currentGate() *gate.Gate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gate
}

func (s *Server) currentEvaluator() *challenge.Evaluator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.evaluator
}

// admission applies CORS then the gate middleware, resolving the current
// gate per request so hot reloads take effect immediately.
func (s *Server) admission(next http.Handler) http.Handler {
	cors := gate.CORS(s.cfg.APIPrefix, s.cfg.CORSAllowedOrigins)
	return cors(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.currentGate().Middleware(next).ServeHTTP(w, r)
	}))
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/product/", s.handleProductPage)
	mux.HandleFunc("/api/products", s.handleListProducts)
	mux.HandleFunc("/api/products/", s.handleGetProduct)
	mux.HandleFunc("/verify-challenge", s.handleVerifyChallenge)
	mux.HandleFunc("/healthz", handleHealth)

	staticFS, err := fs.Sub(webFS, "web/static")
	if err == nil {
		mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	}
	mux.HandleFunc("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	metrics.Register(mux)
}

// Handler exposes the fully wired handler chain. For tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs the server and blocks until ctx is cancelled or the listener
// fails. Janitor and shutdown lifecycles are tied to ctx.
func (s *Server) Start(ctx context.Context) error {
	s.limiter.StartJanitor(ctx)

	errChan := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.httpServer.Addr).Msg("server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: shutdown: %w", err)
		}
		return nil
	case err := <-errChan:
		return err
	}
}

// Close releases the audit log, catalog database and Redis client.
func (s *Server) Close() error {
	var firstErr error
	for _, c := range s.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// recoverPanics converts an unexpected panic in any handler into a logged
// 500 with no internals leaked to the client.
func recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panic")
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
