package http

import (
	"context"
	"net/http"
	"time"
)

type Server struct {
	srv *http.Server
}

// ServerDeps bundles everything the HTTP surface needs.
type ServerDeps struct {
	Ledger    LedgerService
	Catalog   CatalogService
	Directory Directory
	Limiter   *LimiterStore
}

func NewServer(addr string, deps ServerDeps) *Server {
	mux := http.NewServeMux()
	h := NewHandler(deps.Ledger, deps.Catalog)
	h.Register(mux, Authenticate(deps.Directory))

	var handler http.Handler = mux
	if deps.Limiter != nil {
		handler = RateLimit(deps.Limiter)(handler)
	}

	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	return s.srv.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
