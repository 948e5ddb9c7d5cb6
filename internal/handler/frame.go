package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"platewatch/internal/logger"
	"platewatch/internal/model"
	"platewatch/internal/service"
)

// FrameProvider exposes the most recent assembled frame.
type FrameProvider interface {
	LatestFrame() (model.Frame, bool)
}

// StatusProvider exposes the watcher's live status.
type StatusProvider interface {
	Status() service.Status
}

// LatestFrameHandler serves the latest assembled JPEG, or 404 before the first frame.
func LatestFrameHandler(frames FrameProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		frame, ok := frames.LatestFrame()
		if !ok {
			http.Error(w, "No frame yet", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("X-Frame-Seq", strconv.FormatUint(frame.Seq, 10))
		w.Header().Set("Last-Modified", frame.Timestamp.UTC().Format(http.TimeFormat))
		w.Write(frame.Data)
	}
}

// StatusHandler reports target, counters, relay state and the last decision as JSON.
func StatusHandler(status StatusProvider, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := status.Status()

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(struct {
			service.Status
			Uptime string `json:"uptime"`
		}{s, time.Since(s.StartedAt).Round(time.Second).String()}); err != nil {
			logger.Error("Error encoding JSON response: %v", err)
		}
	}
}
