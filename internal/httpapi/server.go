// Package httpapi exposes an Engine over HTTP, grounded on
// kailas-cloud/vecdex's internal/transport/chi pattern: thin handlers
// that decode a request, call exactly one docdb.Engine method, and
// encode the result, with writeError as the one place that knows how
// an engine error becomes an HTTP status.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hollowmap/docdb/internal/docdb"
)

// Server wires an Engine to a chi router.
type Server struct {
	engine *docdb.Engine
	log    *zap.Logger
	router chi.Router
}

// New builds the router and registers every route spec.md §6 names.
func New(engine *docdb.Engine, log *zap.Logger, apiKey string) *Server {
	s := &Server{engine: engine, log: log}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(recoverer(log))
	r.Use(wideEventMiddleware(log))
	r.Use(APIKeyMiddleware(apiKey))

	r.Get("/", s.handleHealth)
	r.Post("/set", s.handleSet)
	r.Post("/get", s.handleGet)
	r.Post("/get_partial", s.handleGetPartial)
	r.Post("/delete", s.handleDelete)
	r.Post("/batch_set", s.handleBatchSet)
	r.Post("/transaction", s.handleTransaction)
	r.Post("/clear_prefix", s.handleClearPrefix)
	r.Post("/drop_database", s.handleDropDatabase)
	r.Post("/query/ast", s.handleQueryAST)
	r.Post("/query/radius", s.handleQueryRadius)
	r.Post("/query/box", s.handleQueryBox)
	r.Get("/export", s.handleExport)
	r.Post("/import", s.handleImport)
	r.Get("/events", s.handleEvents)

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// NewHTTPServer builds, but does not start, the *http.Server for addr;
// cmd/docdbd runs ListenAndServe on it and calls Shutdown on signal,
// grounded on kailas-cloud/vecdex/cmd/vecdex/main.go's graceful-shutdown
// shape.
func NewHTTPServer(addr string, handler http.Handler, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
}
