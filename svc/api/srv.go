package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/hlog"

	"bindrop/cfg"
	"bindrop/svc/db"
	"bindrop/svc/svc"
	"bindrop/svc/util"
)

type Server struct {
	router     *chi.Mux
	cfg        *cfg.Cfg
	store      db.Store
	httpServer *http.Server
}

func NewServer(c *cfg.Cfg, p *svc.Paste, t *Templates, store db.Store) *Server {
	r := chi.NewRouter()
	mw := NewMw(c)
	s := &Server{cfg: c, store: store}

	r.Group(func(r chi.Router) {
		r.Use(mw.Recoverer)
		r.Get("/health", s.Health)
		r.Get("/ready", s.Ready)
		r.Handle("/metrics", promhttp.Handler())
	})

	r.Group(func(r chi.Router) {
		r.Use(mw.Recoverer)
		r.Use(mw.RequestID)
		r.Use(hlog.NewHandler(util.GetLogger()))
		r.Use(hlog.AccessHandler(func(req *http.Request, status, size int, dur time.Duration) {
			hlog.FromRequest(req).Info().
				Str("method", req.Method).
				Str("url", req.URL.String()).
				Int("status", status).
				Int("size", size).
				Dur("duration", dur).
				Str("request_id", util.GetRequestID(req.Context())).
				Msg("http request")
		}))
		r.Use(mw.ContextTimeout)
		r.Use(mw.SecurityHeaders)
		r.Use(mw.Metrics)

		hdl := NewHdl(p, t, c)
		r.Get("/", hdl.UploadForm)
		r.Get("/{name}", hdl.GetOne)
		r.Get("/{name}/{filename}", hdl.GetNamed)
		r.Post("/", hdl.CreatePaste)
		r.Post("/{name}", hdl.CreatePaste)
		r.Put("/", hdl.CreatePaste)
		r.Put("/{name}", hdl.CreatePaste)
		r.Delete("/{name}", hdl.DeletePaste)
		r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusMethodNotAllowed)
		})
	})

	s.router = r
	s.httpServer = &http.Server{
		Addr:           ":" + c.Port,
		Handler:        r,
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 64 * 1024,
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) Start() error {
	util.Info().Str("port", s.cfg.Port).Msg("starting server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
