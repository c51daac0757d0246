package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/kitbuilder587/efmnb-optimizer/internal/metrics"
	"github.com/kitbuilder587/efmnb-optimizer/internal/service"
	"go.uber.org/zap"
)

// Container holds all dependencies for the router.
type Container struct {
	Analyzer *service.Analyzer
	Refiner  *service.Refiner
	Batch    *service.BatchAnalyzer

	// DefaultAPIKey используется, если клиент не прислал X-Api-Key
	DefaultAPIKey string
	DefaultModel  string

	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// NewRouter creates the API router with all endpoints.
func NewRouter(c *Container) http.Handler {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	r := mux.NewRouter()
	h := NewHandler(c)

	r.Use(requestMiddleware(c.Metrics, c.Logger))

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/analyze", h.Analyze).Methods(http.MethodPost).Name("analyze")
	v1.HandleFunc("/improve", h.Improve).Methods(http.MethodPost).Name("improve")
	v1.HandleFunc("/batch", h.Batch).Methods(http.MethodPost).Name("batch")

	r.HandleFunc("/health", Health).Methods(http.MethodGet).Name("health")
	if c.Metrics != nil {
		r.Handle("/metrics", c.Metrics.Handler()).Methods(http.MethodGet).Name("metrics")
	}

	return r
}

// NewMetricsRouter - только /health и /metrics, для режима бота
func NewMetricsRouter(m *metrics.Metrics) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", Health).Methods(http.MethodGet)
	if m != nil {
		r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	}
	return r
}

func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
