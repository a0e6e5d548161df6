package api

import (
	"log/slog"
	"net/http"
	"time"

	"monolithgo/pkg/version"
)

// NewServer creates and configures the HTTP server.
// control and recordings may be nil when no control channel or recorder is available.
func NewServer(addr string, pose *PoseHandler, stream *StreamHandler, control *ControlHandler, recordings *RecordingHandler, settings *SettingsHandler, stats *StatsHandler, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	// 1. Health and version
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /api/version", handleVersion)

	// 2. Pose
	mux.HandleFunc("GET /api/pose", pose.HandlePose)
	mux.HandleFunc("GET /api/view", pose.HandleView)
	mux.HandleFunc("GET /api/pose/stream", stream.HandleStream)

	// 3. Tracking control
	if control != nil {
		mux.HandleFunc("GET /api/tracking/status", control.HandleStatus)
		mux.HandleFunc("POST /api/tracking/start", control.HandleStart)
		mux.HandleFunc("POST /api/tracking/stop", control.HandleStop)
		mux.HandleFunc("GET /api/params", control.HandleGetParam)
		mux.HandleFunc("POST /api/params", control.HandleSetParam)
		mux.HandleFunc("GET /api/messages", control.HandleMessages)
	}

	// 4. Recordings
	if recordings != nil {
		mux.HandleFunc("GET /api/recordings", recordings.HandleList)
		mux.HandleFunc("GET /api/recordings/{id}/samples", recordings.HandleSamples)
		mux.HandleFunc("POST /api/recordings/start", recordings.HandleStart)
		mux.HandleFunc("POST /api/recordings/stop", recordings.HandleStop)
	}

	// 5. Settings, stats and logs
	mux.HandleFunc("GET /api/settings", settings.HandleGet)
	mux.HandleFunc("POST /api/settings", settings.HandleUpdate)
	mux.Handle("GET /api/stats", stats)
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)
	mux.HandleFunc("GET /api/log/events", handleLatestEvent)

	// 6. Shutdown
	mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Graceful shutdown initiated via API")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Shutting down...")); err != nil {
			slog.Error("Failed to write shutdown response", "error", err)
		}
		// Call shutdown in a goroutine to allow response to flush
		go func() {
			time.Sleep(100 * time.Millisecond)
			shutdown()
		}()
	})

	return &http.Server{
		Addr:        addr,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the pose stream is long-lived and sets per-message deadlines.
		IdleTimeout: 60 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, version.Current())
}
