package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pitabwire/flowdeck/internal/catalog"
	"github.com/pitabwire/flowdeck/internal/config"
	"github.com/pitabwire/flowdeck/internal/observability"
	"github.com/pitabwire/flowdeck/internal/openapi"
)

// Dependencies holds all injected dependencies for the HTTP transport layer.
type Dependencies struct {
	Config       *config.Config
	Logger       *zap.Logger
	Authenticate func(http.Handler) http.Handler
	Usage        UsageReporter
	NodeTypes    NodeTypeRegistry
	Catalog      *catalog.Service
	APIIndex     *openapi.Index
	Readiness    observability.ReadinessChecks

	// Metrics is optional; when nil no HTTP metrics are recorded and the
	// metrics endpoint is not mounted.
	Metrics *observability.Metrics
}

// NewRouter creates a chi.Router with the full middleware pipeline and all
// route registrations. Health, readiness, and metrics endpoints bypass the
// authentication middleware.
func NewRouter(deps Dependencies) chi.Router {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	// Global middleware: applied to all routes including health.
	r.Use(Recovery(logger))
	r.Use(CORS(deps.Config.Server.CORS))
	r.Use(RequestID)
	r.Use(SecurityHeaders)
	r.Use(observability.TracingMiddleware)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.MetricsMiddleware)
	}

	// Public routes bypass authentication.
	r.Get("/healthz", observability.HandleHealth())
	r.Get("/healthz/readiness", observability.HandleReady(deps.Readiness))
	if deps.Metrics != nil && deps.Config.Observability.Metrics.Enabled {
		r.Handle(metricsPath(deps.Config), observability.Handler())
	}

	auth := deps.Authenticate
	if auth == nil {
		auth = func(next http.Handler) http.Handler { return next }
	}
	personalized := deps.Config.Catalog.Personalized

	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Use(BuildRequestContext)
		r.Use(HandlerTimeout(deps.Config.Server.HandlerTimeout))
		r.Use(RequestLogging(logger))

		r.Get("/rest/license", handleGetLicense(deps.Usage, logger))

		r.Route("/rest/node-types", func(r chi.Router) {
			r.Get("/", handleListNodeTypes(deps.NodeTypes))
			r.Get("/categories", handleGetCategories(deps.Catalog, personalized))
			r.Get("/catalog", handleGetCatalog(deps.Catalog, personalized))
			r.Get("/{name}", handleGetNodeType(deps.NodeTypes))
			r.Get("/{name}/auth", handleGetNodeAuth(deps.NodeTypes))
			r.Get("/{name}/auth/credential", handleGetCredentialForAuthType(deps.NodeTypes))
			r.Get("/{name}/auth/type", handleGetAuthTypeForCredential(deps.NodeTypes))
		})

		r.Get("/rest/community-packages/check", handleCheckCommunityPackage)
		r.Get("/rest/openapi.json", handleAPIDescription(deps.APIIndex))
	})

	return r
}

func metricsPath(cfg *config.Config) string {
	if p := cfg.Observability.Metrics.Path; p != "" {
		return p
	}
	return "/metrics"
}
