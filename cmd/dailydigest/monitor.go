package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/deusflow/dailydigest/internal/metrics"
)

func monitoringHandler(m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		stats := m.GetStats()

		status := "ok"
		code := http.StatusOK
		if !m.Healthy() {
			status = "error"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":     status,
			"runs":       stats["runs"],
			"last_run":   stats["last_run_time"],
			"last_error": stats["last_error"],
		})
	})
	mux.Handle("/metrics", m.Handler())
	return mux
}

func startMonitoringServer(port string, m *metrics.Metrics) *http.Server {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           monitoringHandler(m),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("starting monitoring server", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("monitoring server error", "error", err)
		}
	}()
	return srv
}

func shutdownServer(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
