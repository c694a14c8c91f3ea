package httpapi

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/mehedi-exx/Hr/internal/metrics"
)

// Router plain http.ServeMux; requests are counted per registered pattern.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.Handle(pattern, instrument(pattern, h))
}

// HandleHandler mounts a plain http.Handler (promhttp).
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, instrument(pattern, h))
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterPaymentRoutes processor callbacks.
func (r *Router) RegisterPaymentRoutes(h *PaymentWebhookHandler) {
	r.Handle("/webhooks/payment", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Callback(w, req)
	})
}

// RegisterEmployeeRoutes read-only roster API for tenants holding a credential.
func (r *Router) RegisterEmployeeRoutes(h *EmployeesHandler) {
	r.Handle("/api/v1/employees", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.List(w, req)
	})
}

// RegisterOpsRoutes health and metrics.
func (r *Router) RegisterOpsRoutes(h *HealthHandler, metricsHandler http.Handler) {
	r.Handle("/healthz", h.Health)
	if metricsHandler != nil {
		r.HandleHandler("/metrics", metricsHandler)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func instrument(pattern string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rec, req)
		metrics.HTTPRequestsTotal.WithLabelValues(req.Method, pattern, strconv.Itoa(rec.status)).Inc()
	})
}
