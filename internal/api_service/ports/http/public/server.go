package public

import (
	"context"
	"encoding/json"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/langowen/cryptoconvert/deploy/config"
	mwLogger "github.com/langowen/cryptoconvert/internal/api_service/ports/http/public/middleware/logger"
	"github.com/langowen/cryptoconvert/internal/custom"
	"github.com/langowen/cryptoconvert/internal/entities"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"log/slog"
	"net/http"
	"time"
)

const maxRequestBody = 1 << 20

type Server struct {
	Server  *http.Server
	service Service
	hub     *Hub
}

func NewServer(server *http.Server, service Service, hub *Hub) *Server {
	return &Server{
		Server:  server,
		service: service,
		hub:     hub,
	}
}

// NewRouter wires every public route.
func NewRouter(service Service, hub *Hub) (chi.Router, *Server) {
	server := NewServer(nil, service, hub)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mwLogger.New())
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/convert/{from}/{to}", server.Convert)
	r.Get("/tickers", server.GetTickers)
	r.Get("/list", server.GetList)
	r.Get("/info", server.GetInfo)
	r.Get("/status", server.GetStatus)

	r.Route("/currencies", func(r chi.Router) {
		r.Post("/", server.AddCurrency)
		r.Delete("/{base}", server.RemoveCurrency)
	})

	if hub != nil {
		r.Get("/stream", hub.ServeHTTP)
	}

	return r, server
}

func StartServer(ctx context.Context, service Service, hub *Hub, cfg *config.Config) <-chan struct{} {
	r, server := NewRouter(service, hub)

	server.Server = &http.Server{
		Addr:         ":" + cfg.HTTPServer.Port,
		Handler:      r,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	doneChan := make(chan struct{})

	go func() {
		if err := server.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if hub != nil {
			hub.Close()
		}

		if err := server.Server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to stop server", "error", err)
		}

		close(doneChan)
	}()

	return doneChan
}

func (s *Server) Convert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	from := chi.URLParam(r, "from")
	to := chi.URLParam(r, "to")

	amount := r.URL.Query().Get("amount")
	if amount == "" {
		amount = "1"
	}

	conversion, err := s.service.Convert(ctx, from, to, amount)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	RespondWithJSON(w, http.StatusOK, conversion)
}

func (s *Server) GetTickers(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, s.service.Tickers(r.Context()))
}

func (s *Server) GetList(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, s.service.Lists(r.Context()))
}

func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, s.service.Info(r.Context()))
}

func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	status := s.service.Status(r.Context())

	code := http.StatusOK
	if !status.Ready {
		code = http.StatusServiceUnavailable
	}

	RespondWithJSON(w, code, status)
}

type addCurrencyRequest struct {
	Base     string `json:"base"`
	Quote    string `json:"quote"`
	URL      string `json:"url"`
	Path     string `json:"path"`
	Interval string `json:"interval"`
}

func (s *Server) AddCurrency(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req addCurrencyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	entry := custom.Entry{
		Base:  req.Base,
		Quote: req.Quote,
		URL:   req.URL,
		Path:  req.Path,
	}
	if req.Interval != "" {
		interval, err := time.ParseDuration(req.Interval)
		if err != nil {
			RespondWithError(w, http.StatusBadRequest, "invalid interval", err.Error())
			return
		}
		entry.Interval = interval
	}

	if err := s.service.AddCurrency(ctx, entry); err != nil {
		respondWithServiceError(w, err)
		return
	}

	RespondWithJSON(w, http.StatusCreated, s.service.Lists(ctx))
}

func (s *Server) RemoveCurrency(w http.ResponseWriter, r *http.Request) {
	s.service.RemoveCurrency(r.Context(), chi.URLParam(r, "base"), r.URL.Query().Get("quote"))

	w.WriteHeader(http.StatusNoContent)
}

func respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entities.ErrNotReady):
		RespondWithError(w, http.StatusServiceUnavailable, entities.ErrNotReady.Error())
	case errors.Is(err, entities.ErrInvalidAmount), errors.Is(err, custom.ErrInvalidEntry):
		RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, entities.ErrUnknownSymbol), errors.Is(err, entities.ErrNoRoute):
		RespondWithError(w, http.StatusNotFound, err.Error())
	case entities.IsConflict(err):
		RespondWithError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("Request failed", "error", err)
		RespondWithError(w, http.StatusBadGateway, "upstream error", err.Error())
	}
}

func RespondWithJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func RespondWithError(w http.ResponseWriter, code int, message string, details ...string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)

	errorText := message
	if len(details) > 0 {
		errorText += "\nDetails: " + details[0]
	}

	if _, err := w.Write([]byte(errorText)); err != nil {
		slog.Error("Failed to write error response", "error", err)
	}
}
