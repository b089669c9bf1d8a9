package router

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"Mansoor88-6/timekeeper/internal/handler"
)

func New(timers *handler.TimerHandler, reports *handler.ReportHandler, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Timer endpoints
	mux.HandleFunc("/api/v1/timers/active", timers.GetActive)
	mux.HandleFunc("/api/v1/timers/start", timers.Start)
	mux.HandleFunc("/api/v1/timers/pause", timers.Pause)
	mux.HandleFunc("/api/v1/timers/resume", timers.Resume)
	mux.HandleFunc("/api/v1/timers/stop", timers.Stop)

	// Report endpoints
	mux.HandleFunc("/api/v1/history", reports.GetHistory)
	mux.HandleFunc("/api/v1/insights", reports.GetInsights)

	// Logging middleware
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		mux.ServeHTTP(w, r)
		logger.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// http.Server for h, bound to localhost
func NewServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
