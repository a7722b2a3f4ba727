package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"

	"quill/internal/observability"
)

// InitMetrics creates the HTTP metrics collector for serviceName. Each call
// uses its own registry, which also exposes the application counters.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	registry := prometheus.NewRegistry()
	registry.MustRegister(observability.Collectors()...)
	return fiberprometheus.NewWithRegistry(registry, serviceName, "http", "", nil)
}

// MetricsMiddleware records request counts and latencies.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return prom.Middleware
}
