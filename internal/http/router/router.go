package router

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sandeepkv93/product-catalog-demo/internal/http/handler"
	"github.com/sandeepkv93/product-catalog-demo/internal/http/middleware"
)

const (
	DefaultAPIBasePath    = "/api"
	defaultBodyLimitBytes = 1 << 20

	ScopeProductCreate = "product_create"
)

type Dependencies struct {
	ProductHandler *handler.ProductHandler
	SystemHandler  *handler.SystemHandler
	CORSOrigins    []string
	BodyLimitBytes int64
	Idempotency    IdempotencyMiddlewareFactory
	APIBasePath    string
	// WebUI is mounted at / when set.
	WebUI          http.Handler
	EnableOTelHTTP bool
}

type IdempotencyMiddlewareFactory func(scope string) func(http.Handler) http.Handler

func NewRouter(dep Dependencies) http.Handler {
	bodyLimit := dep.BodyLimitBytes
	if bodyLimit <= 0 {
		bodyLimit = defaultBodyLimitBytes
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))
	r.Use(middleware.BodyLimit(bodyLimit))

	// /health is also served outside the API base path for probes that do not know it.
	r.Get("/health", dep.SystemHandler.Health)
	r.Get("/health/live", dep.SystemHandler.Live)
	r.Get("/health/ready", dep.SystemHandler.Ready)

	r.Route(normalizeBasePath(dep.APIBasePath), func(r chi.Router) {
		r.Get("/health", dep.SystemHandler.Health)
		r.Route("/products", func(r chi.Router) {
			r.Get("/", dep.ProductHandler.List)
			createChain := []func(http.Handler) http.Handler{}
			if dep.Idempotency != nil {
				createChain = append(createChain, dep.Idempotency(ScopeProductCreate))
			}
			r.With(createChain...).Post("/", dep.ProductHandler.Create)
			r.Delete("/", dep.ProductHandler.DeleteAll)
			r.Get("/count", dep.ProductHandler.Count)
			r.Get("/{id}", dep.ProductHandler.GetByID)
			r.Put("/{id}", dep.ProductHandler.Update)
			r.Delete("/{id}", dep.ProductHandler.Delete)
		})
	})

	if dep.WebUI != nil {
		r.Handle("/*", dep.WebUI)
	}

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}

func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || p == "/" {
		return DefaultAPIBasePath
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.TrimRight(p, "/")
}
