package server

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/FaYMan2/terdel/pkg/pipeline"
	"github.com/FaYMan2/terdel/pkg/source"
)

// DefaultDataLimit caps GET /table-data rows when no limit is requested.
const DefaultDataLimit = 1000

// Options configures a [Server].
type Options struct {
	Addr            string
	AllowedOrigins  []string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Pipeline is the template for diagram builds; Refresh is set per request.
	Pipeline pipeline.Options

	// DataLimit caps rows returned by GET /table-data. Zero means
	// DefaultDataLimit.
	DataLimit int
}

// Server is the terdel HTTP API.
type Server struct {
	backend source.Backend
	runner  *pipeline.Runner
	logger  *log.Logger
	opts    Options
	router  chi.Router
}

// New creates a server. The runner must read from backend.
func New(backend source.Backend, runner *pipeline.Runner, logger *log.Logger, opts Options) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if opts.DataLimit <= 0 {
		opts.DataLimit = DefaultDataLimit
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	s := &Server{
		backend: backend,
		runner:  runner,
		logger:  logger,
		opts:    opts,
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger(s.logger))
	r.Use(recoverer(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader, CacheHeader},
		MaxAge:         300,
	}))
	r.Use(middleware.CleanPath)

	r.Get("/health", s.handleHealth)
	r.Get("/version", s.handleVersion)
	r.Get("/table-names", s.handleTableNames)
	r.Get("/table-schema/{table-name}", s.handleTableSchema)
	r.Get("/constraints", s.handleConstraints)
	r.Get("/table-data/{table-name}", s.handleTableData)
	r.Post("/table-data/{table-name}", s.handleInsertRow)

	r.Get("/diagram", s.handleDiagram)
	r.Get("/diagram.{format}", s.handleDiagramArtifact)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, notFound(r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{
			Status:  "error",
			Message: "method " + r.Method + " not allowed",
			Error:   "METHOD_NOT_ALLOWED",
		})
	})
	return r
}

func (s *Server) allowedOrigins() []string {
	if len(s.opts.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	return s.opts.AllowedOrigins
}

// ListenAndServe serves on opts.Addr until ctx is cancelled, then shuts
// down gracefully, waiting up to ShutdownTimeout for in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is [Server.ListenAndServe] on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadTimeout:       s.opts.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.opts.WriteTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", ln.Addr().String())
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", "timeout", s.opts.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
