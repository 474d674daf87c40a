// Package httpapi 为外部视图层（Web 前端）提供 REST + SSE 桥接
// Package httpapi bridges an external view layer (a web front end) to the
// orchestration manager over REST, with chat replies streamed as Server-Sent Events.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lumina/internal/metrics"
	"lumina/internal/orchestrator"
)

const maxBodyBytes = 1 << 20

type Options struct {
	Logger         *zap.Logger
	Metrics        *metrics.Collector
	AllowedOrigins []string
}

// Server HTTP 桥接服务 / the HTTP bridge
type Server struct {
	mgr      *orchestrator.Manager
	logger   *zap.Logger
	metrics  *metrics.Collector
	origins  []string
	validate *validator.Validate
}

func New(mgr *orchestrator.Manager, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		mgr:      mgr,
		logger:   logger.Named("http"),
		metrics:  opts.Metrics,
		origins:  opts.AllowedOrigins,
		validate: newValidator(),
	}
}

// Handler 构建路由 / builds the router
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(s.requestLogger)
	if len(s.origins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	router.Get("/health", s.health)
	if s.metrics != nil {
		router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	router.Route("/api", func(r chi.Router) {
		r.Get("/state", s.getState)
		r.Put("/view", s.putView)
		r.Put("/input", s.putInput)
		r.Post("/input/commit", s.commitInput)
		r.Post("/record", s.record)

		r.Route("/fragments", func(r chi.Router) {
			r.Get("/", s.listFragments)
			r.Post("/", s.addFragment)
			r.Delete("/{id}", s.removeFragment)
			r.Post("/{id}/toggle", s.toggleTodo)
			r.Post("/{id}/status", s.setStatus)
		})

		r.Post("/organize", s.organize)
		r.Post("/review", s.review)
		r.Post("/brainstorm", s.brainstorm)
		r.Post("/cancel/{kind}", s.cancel)

		r.Post("/chat", s.chat)
		r.Delete("/chat", s.clearChat)
	})
	return router
}

// requestLogger 记录请求日志并上报指标（按路由模式聚合）
// requestLogger logs each request and reports it to metrics under its route pattern.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		if s.metrics != nil {
			s.metrics.ObserveHTTP(r.Method, route, status, elapsed)
		}
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", elapsed),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
		)
	})
}

// ListenAndServe 监听 addr 直到 ctx 结束，然后优雅关闭
// ListenAndServe serves on addr until ctx ends, then shuts down gracefully.
// ready, when non-nil, receives the bound address once the listener is open.
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if ready != nil {
		ready(ln.Addr())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		// ctx 结束或 Serve 失败时关闭
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}
