package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/replaycheck/internal/config"
	"github.com/roach88/replaycheck/internal/metrics"
	"github.com/roach88/replaycheck/internal/replay"
	"github.com/roach88/replaycheck/internal/session"
	"github.com/roach88/replaycheck/internal/store"
)

// Options configures a Server.
type Options struct {
	// Config supplies defaults for new sessions and the session limit.
	Config *config.Config

	// Store, when set, records every session.
	Store *store.Store

	// Registerer and Gatherer back the /metrics endpoint. Both default to
	// the global Prometheus registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer

	Logger *slog.Logger

	// Tokens generates session tokens. Default: UUIDv7.
	Tokens session.TokenGenerator

	// Now is the wall clock for display times. Default: time.Now.
	Now func() time.Time
}

// Server hosts live sessions.
type Server struct {
	cfg      *config.Config
	store    *store.Store
	logger   *slog.Logger
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	tokens   session.TokenGenerator
	now      func() time.Time

	engine   *gin.Engine
	upgrader websocket.Upgrader

	// mu serialises session creation so a token generator need not be
	// safe for concurrent use.
	mu       sync.Mutex
	sessions *lru.Cache[string, *liveSession]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// liveSession is a session with its loop and stability timer.
type liveSession struct {
	sess      *session.Session
	stopTimer func() bool
	cancel    context.CancelFunc
}

// New creates a server. Call Close to release every session.
func New(opts Options) (*Server, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("server: config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	var tokens session.TokenGenerator = session.UUIDv7Generator{}
	if opts.Tokens != nil {
		tokens = opts.Tokens
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		cfg:      cfg,
		store:    opts.Store,
		logger:   logger,
		metrics:  metrics.MustNewMetrics(opts.Registerer),
		gatherer: gatherer,
		tokens:   tokens,
		now:      now,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		ctx:    ctx,
		cancel: cancel,
	}

	sessions, err := lru.NewWithEvict[string, *liveSession](cfg.MaxSessions, s.onEvict)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("server: session cache: %w", err)
	}
	s.sessions = sessions

	s.engine = gin.New()
	s.engine.Use(gin.Recovery())
	s.engine.Use(requestLogger(logger))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type"}
	corsConfig.AllowWebSockets = true
	s.engine.Use(cors.New(corsConfig))

	s.setupRoutes()

	return s, nil
}

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	api := s.engine.Group("/api")
	sessions := api.Group("/sessions")
	{
		sessions.POST("", s.handleCreateSession)
		sessions.GET("", s.handleListSessions)
		sessions.GET("/:token", s.handleGetSession)
		sessions.DELETE("/:token", s.handleDeleteSession)
		sessions.POST("/:token/events", s.handlePostEvent)
		sessions.POST("/:token/handoff", s.handlePostHandoff)
		sessions.POST("/:token/stable", s.handlePostStable)
		sessions.GET("/:token/stream", s.handleStream)
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully and closes every session.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		s.Close()
		s.logger.Info("server stopped")
		return err
	}
}

// Close releases every session and waits for their loops to exit.
func (s *Server) Close() {
	s.sessions.Purge()
	s.cancel()
	s.wg.Wait()
}

// Len returns the number of live sessions.
func (s *Server) Len() int {
	return s.sessions.Len()
}

// openSession creates a session, starts its loop and arms its stability timer.
func (s *Server) openSession(policy replay.Policy, dedupe bool, delay time.Duration) (*session.Session, error) {
	opts := []session.Option{
		session.WithTokenGenerator(s.tokens),
		session.WithLogger(s.logger),
		session.WithObserver(s.metrics),
		session.WithNow(s.now),
	}
	if s.store != nil {
		opts = append(opts, session.WithSink(store.NewRecorder(s.store, s.now)))
	}

	s.mu.Lock()
	sess, err := session.New(session.Config{Policy: policy, Dedupe: dedupe}, opts...)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(s.ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := sess.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("session loop failed", "session", sess.Token(), "error", err)
		}
	}()

	live := &liveSession{
		sess:      sess,
		stopTimer: sess.Gate().HoldFor(delay),
		cancel:    cancel,
	}
	s.metrics.SessionOpened()
	s.sessions.Add(sess.Token(), live)

	s.logger.Info("session opened",
		"session", sess.Token(),
		"policy", policy,
		"dedupe", dedupe,
		"stability_delay", delay,
	)
	return sess, nil
}

// onEvict closes a session dropped from the cache, whether by deletion,
// capacity pressure or shutdown.
func (s *Server) onEvict(token string, live *liveSession) {
	live.stopTimer()
	live.sess.Close()
	live.cancel()
	s.metrics.SessionClosed()
	s.logger.Info("session closed", "session", token)
}

func (s *Server) lookup(token string) (*session.Session, bool) {
	live, ok := s.sessions.Get(token)
	if !ok {
		return nil, false
	}
	return live.sess, true
}
