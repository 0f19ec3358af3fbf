package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/quizlive/go/internal/config"
	"github.com/mcdev12/quizlive/go/internal/health"
	"github.com/mcdev12/quizlive/go/internal/realtime/gateway"
)

func setupServer(cfg *config.Config, realtime *gateway.Service, services *Services) *http.Server {
	mux := http.NewServeMux()

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	realtime.RegisterRoutes(mux)
	setupHealthCheck(mux, realtime, services)
	setupInfo(mux, realtime)

	handler := c.Handler(mux)

	return &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func setupHealthCheck(mux *http.ServeMux, realtime *gateway.Service, services *Services) {
	checker := health.NewChecker(5 * time.Second)
	services.RegisterProbes(checker)
	checker.Add("nats", realtime.CheckEventIngress)
	checker.SetGauges(realtime.Gauges)

	mux.Handle("/health", checker)
	mux.Handle("/metrics", checker.MetricsHandler("quizlive"))
}

func setupInfo(mux *http.ServeMux, realtime *gateway.Service) {
	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		stats := realtime.GetStats()
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(map[string]any{
			"service":     "quiz-gateway",
			"connections": stats.TotalConnections,
			"rooms":       stats.ActiveRooms,
		})
		if err != nil {
			log.Error().Err(err).Msg("failed to write info response")
		}
	})
}
