package handler

import (
	"net/http"
	"time"

	"github.com/sandeepkv93/product-catalog-demo/internal/health"
	"github.com/sandeepkv93/product-catalog-demo/internal/http/response"
	"github.com/sandeepkv93/product-catalog-demo/internal/service"
)

type SystemHandler struct {
	products  service.ProductService
	readiness *health.ProbeRunner
	now       func() time.Time
}

func NewSystemHandler(products service.ProductService, readiness *health.ProbeRunner) *SystemHandler {
	return &SystemHandler{
		products:  products,
		readiness: readiness,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Health is the catalog status endpoint the browser page and demo scripts poll.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	total, err := h.products.Count(r.Context())
	if err != nil {
		internalError(w, r, "failed to count products", err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{
		"status":       "Healthy",
		"timestamp":    h.now(),
		"productCount": total,
	})
}

func (h *SystemHandler) Live(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *SystemHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ready, results := h.readiness.Ready(r.Context())
	if results == nil {
		results = []health.CheckResult{}
	}
	if ready {
		response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
		return
	}
	response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
}
