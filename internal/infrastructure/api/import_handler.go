package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"commerce-import-layer/internal/application"
	"commerce-import-layer/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
)

type sessionStarter interface {
	Session(ctx context.Context, shopID, externalImportID string, importType domain.ImportType) (*application.ImportSession, error)
}

type hourlyRunner interface {
	RunHourly(ctx context.Context) (application.RunSummary, error)
}

// ImportHandler exposes import runs over HTTP
type ImportHandler struct {
	service sessionStarter
	runner  hourlyRunner
	baseCtx context.Context
	wg      conc.WaitGroup
	logger  zerolog.Logger
}

// NewImportHandler creates a new import handler. Background runs use baseCtx.
func NewImportHandler(baseCtx context.Context, service sessionStarter, runner hourlyRunner, logger zerolog.Logger) *ImportHandler {
	return &ImportHandler{
		service: service,
		runner:  runner,
		baseCtx: baseCtx,
		logger:  logger,
	}
}

// RouterOptions configures the admin router
type RouterOptions struct {
	AllowedOrigins []string
	Gatherer       prometheus.Gatherer // nil uses the default registry
}

// Router builds the admin router
func (h *ImportHandler) Router(opts RouterOptions) http.Handler {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Post("/shops/{shopID}/imports", h.runImport)
	r.Post("/imports/hourly", h.runHourly)
	return r
}

type runImportRequest struct {
	ExternalImportID string `json:"external_import_id"`
	ImportType       string `json:"import_type"`
}

func (h *ImportHandler) runImport(w http.ResponseWriter, r *http.Request) {
	shopID := chi.URLParam(r, "shopID")

	var req runImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	importType := domain.ImportType(req.ImportType)
	if importType != domain.ImportTypeFull && importType != domain.ImportTypeHourly {
		writeError(w, http.StatusBadRequest, "import_type must be empty or hourly")
		return
	}

	session, err := h.service.Session(r.Context(), shopID, req.ExternalImportID, importType)
	if err != nil {
		status := statusForSessionError(err)
		if status == http.StatusInternalServerError {
			h.logger.Error().Err(err).Str("shop", shopID).Msg("Failed to start import")
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, session.Run(r.Context()))
}

func (h *ImportHandler) runHourly(w http.ResponseWriter, _ *http.Request) {
	h.wg.Go(func() {
		if _, err := h.runner.RunHourly(h.baseCtx); err != nil {
			h.logger.Error().Err(err).Msg("Hourly import failed")
		}
	})
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// Wait blocks until background runs started by the handler finish
func (h *ImportHandler) Wait() {
	h.wg.Wait()
}

func statusForSessionError(err error) int {
	switch {
	case errors.Is(err, domain.ErrShopNotFound),
		errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrImportNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrShopInactive):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNoAdapter), errors.Is(err, domain.ErrNotConfigured):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
