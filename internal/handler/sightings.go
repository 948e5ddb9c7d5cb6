package handler

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"platewatch/internal/config"
	"platewatch/internal/dto"
	"platewatch/internal/logger"
	"platewatch/internal/model"
	"platewatch/internal/repository"
)

// GetSightingsHandler returns a filtered, paginated list of sightings.
func GetSightingsHandler(cfg *config.Config, logger *logger.Logger,
	sightingRepo repository.SightingRepository, snapshotRepo repository.SnapshotRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 24)

		filter := &model.SightingFilter{
			Plate:     q.Get("plate"),
			RunID:     q.Get("run"),
			StartDate: parseDate(q.Get("dateAfter")),
			EndDate:   parseDate(q.Get("dateBefore")),
			Limit:     limit,
			Offset:    (page - 1) * limit,
		}

		sightings, err := sightingRepo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying sightings from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		totalCount, err := sightingRepo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting sightings: %v", err)
			totalCount = len(sightings)
		}

		var totalSize int64
		if stats, err := sightingRepo.GetStats(); err != nil {
			logger.Error("Error getting sighting stats: %v", err)
		} else {
			totalSize = stats.TotalSizeBytes
		}

		infos := make([]dto.SightingInfo, 0, len(sightings))
		for _, s := range sightings {
			files := []string{}
			if snapshotRepo != nil {
				snapshots, err := snapshotRepo.GetBySightingID(s.ID)
				if err != nil {
					logger.Error("Error getting snapshots for sighting %d: %v", s.ID, err)
				}
				for _, snap := range snapshots {
					files = append(files, snap.Filename)
				}
			}
			infos = append(infos, dto.SightingInfo{Sighting: s, Snapshots: files})
		}

		data := dto.SightingsData{
			Sightings:   infos,
			ImagesDir:   cfg.ImageDirectory,
			Size:        totalSize,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logger.Error("Error encoding JSON response: %v", err)
		}
	}
}

// ViewSnapshotHandler serves a single evidence image named by the "filename" query parameter.
func ViewSnapshotHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename := r.URL.Query().Get("filename")
		if filename == "" {
			http.Error(w, "Filename parameter is required", http.StatusBadRequest)
			return
		}
		if filename != filepath.Base(filename) || filename == "." || filename == ".." {
			http.Error(w, "Invalid filename", http.StatusBadRequest)
			return
		}

		filePath := filepath.Join(cfg.ImageDirectory, filename)
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, filePath)
	}
}

// ClearSightingsHandler deletes all snapshot files and clears the database.
func ClearSightingsHandler(cfg *config.Config, logger *logger.Logger,
	sightingRepo repository.SightingRepository, snapshotRepo repository.SnapshotRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if snapshotRepo != nil {
			snapshots, err := snapshotRepo.GetAll()
			if err != nil {
				logger.Error("Error listing snapshots: %v", err)
			}
			for _, snap := range snapshots {
				if err := os.Remove(snap.FilePath); err != nil && !os.IsNotExist(err) {
					logger.Error("Error deleting file %s: %v", snap.Filename, err)
				}
			}
		}

		if err := sightingRepo.DeleteAll(); err != nil {
			logger.Error("Error clearing database: %v", err)
			http.Error(w, "Unable to clear sightings", http.StatusInternalServerError)
			return
		}

		logger.Info("All sightings cleared, snapshots removed from: %s", cfg.ImageDirectory)
		w.WriteHeader(http.StatusNoContent)
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseDate parses a date string in the format "2006-01-02" from the request (HTML input format).
func parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}
	}
	return t
}
