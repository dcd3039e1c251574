// Package api serves the RLS manager over HTTP as JSON.
package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"qs-rls-manager/internal/domain"
	"qs-rls-manager/internal/metrics"
	"qs-rls-manager/internal/service/dataset"
	"qs-rls-manager/internal/service/permission"
	"qs-rls-manager/internal/service/rls"
)

const maxJSONBody = 1 << 20

// Handler serves the /api/v1 routes.
type Handler struct {
	datasets    *dataset.Service
	permissions *permission.Service
	rls         *rls.Service
	logger      *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(datasets *dataset.Service, permissions *permission.Service, rlsSvc *rls.Service, logger *slog.Logger) *Handler {
	return &Handler{
		datasets:    datasets,
		permissions: permissions,
		rls:         rlsSvc,
		logger:      logger.With("component", "api"),
	}
}

// Routes mounts every endpoint on r. Dataset ARNs contain '/', so clients
// must path-escape them.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/regions", h.listRegions)
		r.Put("/regions/{region}", h.putRegion)

		r.Get("/datasets", h.listDatasets)
		r.Route("/datasets/{arn}", func(r chi.Router) {
			r.Get("/", h.getDataset)
			r.Put("/", h.registerDataset)
			r.Get("/permissions", h.listPermissions)
			r.Post("/permissions", h.createPermission)
			r.Get("/rls.csv", h.exportCSV)
			r.Post("/rls.csv", h.importCSV)
			r.Get("/visibility", h.getVisibility)
			r.Put("/visibility", h.putVisibility)
			r.Post("/publish", h.publish)
			r.Get("/history", h.history)
			r.Post("/rollback", h.rollback)
		})

		r.Get("/permissions/{id}", h.getPermission)
		r.Put("/permissions/{id}", h.updatePermission)
		r.Delete("/permissions/{id}", h.deletePermission)

		r.Delete("/rls-datasets/{arn}", h.deleteRulesDataSet)
	})
}

// NewRouter builds the full router: health, metrics and the API behind the
// given middleware.
func NewRouter(h *Handler, m *metrics.Metrics, middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middlewares...)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}
	h.Routes(r)
	return r
}

// arnParam returns the unescaped {arn} path parameter.
func arnParam(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "arn")
	arn, err := url.PathUnescape(raw)
	if err != nil || arn == "" {
		return "", domain.ErrValidation("invalid dataset ARN %q", raw)
	}
	return arn, nil
}

// boolQuery parses an optional boolean query parameter.
func boolQuery(r *http.Request, name string) (bool, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, domain.ErrValidation("query parameter %s must be a boolean, got %q", name, v)
	}
	return b, nil
}

// pageFromQuery extracts a PageRequest from max_results/page_token.
func pageFromQuery(r *http.Request) (domain.PageRequest, error) {
	q := r.URL.Query()
	p := domain.PageRequest{PageToken: q.Get("page_token")}
	if v := q.Get("max_results"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, domain.ErrValidation("max_results must be a non-negative integer")
		}
		p.MaxResults = n
	}
	return p, nil
}
