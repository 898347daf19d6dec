// Package api slotdb REST API
//
// @title           slotdb REST API
// @version         1.0.0
// @description     REST API for slotdb, a record store with per-record locks over a fixed-layout file.
// @host            localhost:8080
// @BasePath        /api/v1
//
// @securityDefinitions.apikey ApiKeyAuth
// @in              header
// @name            X-API-Key
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggo/swag"
	"golang.org/x/sync/errgroup"

	"github.com/ssargent/slotdb/pkg/coordinator"
)

const (
	shutdownTimeout = 10 * time.Second
	statsInterval   = 30 * time.Second
)

const swaggerUI = `<!DOCTYPE html>
<html>
<head>
	 <title>slotdb API Documentation</title>
	 <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@3.25.0/swagger-ui.css" />
</head>
<body>
	 <div id="swagger-ui"></div>
	 <script src="https://unpkg.com/swagger-ui-dist@3.25.0/swagger-ui-bundle.js"></script>
	 <script>
	   window.onload = function() {
	     SwaggerUIBundle({
	       url: '/swagger/swagger.json',
	       dom_id: '#swagger-ui',
	       presets: [
	         SwaggerUIBundle.presets.apis,
	         SwaggerUIBundle.presets.standalone
	       ]
	     });
	   };
	 </script>
</body>
</html>`

// StartServer serves the API until ctx is cancelled, then shuts down
// gracefully and releases the locks of every open session.
func StartServer(ctx context.Context, coord *coordinator.Coordinator, config ServerConfig) error {
	SwaggerInfo.Host = fmt.Sprintf("localhost:%d", config.Port)

	var reg prometheus.Registerer = prometheus.DefaultRegisterer
	if config.Registry != nil {
		reg = config.Registry
	}
	server := NewServer(coord, config, NewMetrics(reg))

	httpServer := &http.Server{
		Addr:              net.JoinHostPort(config.Bind, strconv.Itoa(config.Port)),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		server.logger.Info("starting slotdb REST API server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		server.startMetricsUpdater(ctx, statsInterval)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			// Requests still waiting on record locks hold their sessions.
			server.logger.Warn("server shutdown incomplete", "error", err)
			return nil
		}
		if err := server.sessions.CloseAll(); err != nil {
			server.logger.Warn("releasing session locks", "error", err)
		}
		server.logger.Info("server stopped")
		return nil
	})

	return g.Wait()
}

// Router builds the HTTP routes
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	if s.config.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.config.Registry, promhttp.HandlerOpts{}))
	} else {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.metrics.InstrumentAuthMiddleware(apiKeyMiddleware(s.config.APIKey)))

		r.Get("/health", s.metrics.InstrumentHandler("GET", "/api/v1/health", s.handleHealth))
		r.Get("/schema", s.metrics.InstrumentHandler("GET", "/api/v1/schema", s.handleSchema))
		r.Get("/stats", s.metrics.InstrumentHandler("GET", "/api/v1/stats", s.handleStats))

		// Sessions
		r.Post("/sessions", s.metrics.InstrumentHandler("POST", "/api/v1/sessions", s.handleOpenSession))
		r.Delete("/sessions/{id}", s.metrics.InstrumentHandler("DELETE", "/api/v1/sessions/{id}", s.handleCloseSession))

		// Records
		r.Group(func(r chi.Router) {
			r.Use(sessionMiddleware(s.sessions))

			r.Post("/records", s.metrics.InstrumentHandler("POST", "/api/v1/records", s.handleCreate))
			r.Post("/records/search", s.metrics.InstrumentHandler("POST", "/api/v1/records/search", s.handleSearch))
			r.Get("/records/{n}", s.metrics.InstrumentHandler("GET", "/api/v1/records/{n}", s.handleRead))
			r.Put("/records/{n}", s.metrics.InstrumentHandler("PUT", "/api/v1/records/{n}", s.handleUpdate))
			r.Delete("/records/{n}", s.metrics.InstrumentHandler("DELETE", "/api/v1/records/{n}", s.handleDelete))

			r.Post("/records/{n}/lock", s.metrics.InstrumentHandler("POST", "/api/v1/records/{n}/lock", s.handleLock))
			r.Delete("/records/{n}/lock", s.metrics.InstrumentHandler("DELETE", "/api/v1/records/{n}/lock", s.handleUnlock))
			r.Get("/records/{n}/lock", s.metrics.InstrumentHandler("GET", "/api/v1/records/{n}/lock", s.handleLockStatus))
		})
	})

	// Swagger documentation (unprotected)
	r.Get("/swagger/*", s.handleSwagger)

	return r
}

func (s *Server) handleSwagger(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/swagger/", "/swagger/index.html":
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerUI))
	case "/swagger/swagger.json":
		doc, err := swag.ReadDoc(SwaggerInfo.InstanceName())
		if err != nil {
			s.logger.Error("generating swagger doc", "error", err)
			http.Error(w, "Failed to generate Swagger documentation", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(doc))
	default:
		http.NotFound(w, r)
	}
}
