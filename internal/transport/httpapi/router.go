package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/order-api/internal/auth"
	"github.com/vladislavdragonenkov/order-api/internal/metrics"
)

const defaultRequestTimeout = 10 * time.Second

// Config собирает зависимости HTTP API.
type Config struct {
	Orders         OrderService
	Authenticator  Authenticator
	Validator      auth.Validator
	Logger         *log.Entry
	Metrics        *metrics.HTTPMetrics
	RequestTimeout time.Duration
}

// NewRouter строит chi-роутер: /health и /auth/login открыты, /order/* требует bearer-токен.
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.WithField("component", "http-api")
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	orders := &orderHandler{orders: cfg.Orders, logger: logger}
	login := &authHandler{auth: cfg.Authenticator, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(instrument(cfg.Metrics))
	r.Use(middleware.Timeout(timeout))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, statusResponse{Status: "error", Message: "Not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, statusResponse{Status: "error", Message: "Method not allowed"})
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
	})
	r.Post("/auth/login", login.login)
	r.Get("/api-docs/openapi.yaml", serveOpenAPIYAML)
	r.Get("/api-docs/openapi.json", serveOpenAPIJSON)

	r.Route("/order", func(r chi.Router) {
		r.Use(auth.Middleware(cfg.Validator, logger))
		r.Post("/", orders.create)
		r.Put("/", orders.update)
		r.Get("/list", orders.list)
		r.Get("/{orderId}", orders.get)
		r.Delete("/{orderId}", orders.delete)
	})

	return r
}
