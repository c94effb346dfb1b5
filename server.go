package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Depado/ginprom"
	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	sloggin "github.com/samber/slog-gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// newHandler assembles the HTTP handler: middleware, dashboards, the
// route table and the CORS wrapper.
func newHandler(cfg *Config, q Querier) (http.Handler, error) {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(sloggin.New(slog.Default()))

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	p := ginprom.New(
		ginprom.Engine(r),
		ginprom.Registry(registry),
		ginprom.Path("/metrics"),
	)
	r.Use(p.Instrument())
	r.Use(otelgin.Middleware(serviceName))

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	if err := registerDashboards(r); err != nil {
		return nil, fmt.Errorf("register dashboards: %w", err)
	}

	NewAnalyticsService(q, p).Register(r, Routes())

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})

	return corsHandler(r), nil
}
