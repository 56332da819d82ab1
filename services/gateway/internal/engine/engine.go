package engine

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redbco/redb-gateway/pkg/anchor/adapter"
	"github.com/redbco/redb-gateway/pkg/config"
	"github.com/redbco/redb-gateway/pkg/health"
	"github.com/redbco/redb-gateway/pkg/logger"
	"github.com/redbco/redb-gateway/services/gateway/internal/schema"
)

// Stores resolves store names to live connections.
type Stores interface {
	Lookup(name string) (adapter.Connection, bool)
	Len() int
}

type Engine struct {
	config *config.Config
	stores Stores
	schema *schema.Service
	health *health.Checker
	server *http.Server
	logger *logger.Logger
	state  struct {
		sync.Mutex
		isRunning         bool
		ongoingOperations int32
	}
	metrics struct {
		requestsProcessed int64
		errors            int64
	}
}

func NewEngine(cfg *config.Config, stores Stores, schemaService *schema.Service, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{
		config: cfg,
		stores: stores,
		schema: schemaService,
		health: health.NewChecker(),
		logger: log,
	}
}

// Handler returns the engine's HTTP handler without starting a listener.
func (e *Engine) Handler() http.Handler {
	return NewServer(e)
}

// Start listens on the configured address and serves in the background.
func (e *Engine) Start(ctx context.Context) error {
	e.state.Lock()
	if e.state.isRunning {
		e.state.Unlock()
		return fmt.Errorf("engine is already running")
	}
	e.state.isRunning = true
	e.state.Unlock()

	addr := e.config.Server.Addr
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		e.state.Lock()
		e.state.isRunning = false
		e.state.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	e.server = &http.Server{
		Handler:      e.Handler(),
		ReadTimeout:  e.config.Server.ReadTimeout,
		WriteTimeout: e.config.Server.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	e.logger.Infof("Starting HTTP server on %s", listener.Addr())

	go func() {
		if err := e.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.logger.Errorf("HTTP server error: %v", err)
			atomic.AddInt64(&e.metrics.errors, 1)
		}
	}()

	return nil
}

// Stop shuts the server down gracefully.
func (e *Engine) Stop(ctx context.Context) error {
	e.state.Lock()
	if !e.state.isRunning {
		e.state.Unlock()
		return nil
	}
	e.state.isRunning = false
	e.state.Unlock()

	if e.server != nil {
		return e.server.Shutdown(ctx)
	}
	return nil
}

func (e *Engine) GetMetrics() map[string]int64 {
	return map[string]int64{
		"requests_processed": atomic.LoadInt64(&e.metrics.requestsProcessed),
		"errors":             atomic.LoadInt64(&e.metrics.errors),
		"ongoing_operations": int64(atomic.LoadInt32(&e.state.ongoingOperations)),
	}
}

func (e *Engine) TrackOperation() {
	atomic.AddInt32(&e.state.ongoingOperations, 1)
	atomic.AddInt64(&e.metrics.requestsProcessed, 1)
}

func (e *Engine) UntrackOperation() {
	atomic.AddInt32(&e.state.ongoingOperations, -1)
}

func (e *Engine) countError() {
	atomic.AddInt64(&e.metrics.errors, 1)
}

// pingTimeout bounds each store ping of a health check.
const pingTimeout = 5 * time.Second

// CheckHealth pings every configured store and reports the ones that fail.
// Stores without a live connection count as failed.
func (e *Engine) CheckHealth(ctx context.Context) map[string]error {
	failures := make(map[string]error)
	if e.config == nil {
		return failures
	}
	for _, store := range e.config.Databases {
		err := e.health.RunCheck(ctx, store.Name, func(ctx context.Context) error {
			conn, err := e.connection(store.Name)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(ctx, pingTimeout)
			defer cancel()
			return conn.Ping(ctx)
		})
		if err != nil {
			failures[store.Name] = err
		}
	}
	return failures
}
