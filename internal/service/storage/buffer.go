package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"platewatch/internal/config"
	"platewatch/internal/logger"
	"platewatch/internal/model"
	"platewatch/internal/repository"
)

const (
	// DefaultBufferLimit limits how many snapshots are held between flushes.
	DefaultBufferLimit = 10
	// DefaultFlushInterval defines how often (seconds) buffered snapshots are flushed to disk.
	DefaultFlushInterval = 30

	timestampLayout = "2006-01-02_15-04-05.000"
)

// Annotator draws a label onto a JPEG frame.
type Annotator interface {
	Annotate(data []byte, label string) ([]byte, error)
}

type bufferedSnapshot struct {
	SightingID int64
	Plate      string
	Similarity float64
	Timestamp  time.Time
	Data       []byte
}

// BufferService buffers evidence frames in memory and periodically flushes them to disk.
type BufferService struct {
	imagesDir     string
	limit         int
	flushInterval time.Duration
	snapshots     []bufferedSnapshot
	dropped       uint64
	mu            sync.Mutex
	logger        *logger.Logger
	annotator     Annotator
	snapshotRepo  repository.SnapshotRepository
}

// NewBufferService creates a new BufferService. annotator may be nil, in which case frames are stored as-is.
func NewBufferService(config *config.Config, logger *logger.Logger, snapshotRepo repository.SnapshotRepository, annotator Annotator) *BufferService {
	limit := config.ImageBufferLimit
	if limit <= 0 {
		limit = DefaultBufferLimit
	}
	interval := config.ImageBufferFlushInterval
	if interval <= 0 {
		interval = DefaultFlushInterval
	}

	return &BufferService{
		imagesDir:     config.ImageDirectory,
		limit:         limit,
		flushInterval: time.Duration(interval) * time.Second,
		snapshots:     make([]bufferedSnapshot, 0, limit),
		logger:        logger,
		annotator:     annotator,
		snapshotRepo:  snapshotRepo,
	}
}

// Run flushes on a ticker until ctx is cancelled, then flushes once more.
func (s *BufferService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.FlushSnapshots()
		case <-ctx.Done():
			s.FlushSnapshots()
			return
		}
	}
}

// AddSnapshot queues a frame for the given sighting. It returns false when the buffer is full.
func (s *BufferService) AddSnapshot(sightingID int64, plate string, similarity float64, frame []byte, ts time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.snapshots) >= s.limit {
		s.dropped++
		return false
	}

	s.snapshots = append(s.snapshots, bufferedSnapshot{
		SightingID: sightingID,
		Plate:      plate,
		Similarity: similarity,
		Timestamp:  ts,
		Data:       frame,
	})
	s.logger.Info("Snapshot buffer size: %d/%d", len(s.snapshots), s.limit)
	return true
}

// Pending returns the number of snapshots waiting to be flushed.
func (s *BufferService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}

// Dropped returns how many snapshots were refused because the buffer was full.
func (s *BufferService) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Directory is where flushed snapshots are written.
func (s *BufferService) Directory() string {
	return s.imagesDir
}

// FlushSnapshots writes buffered snapshots to disk and records them in the database.
func (s *BufferService) FlushSnapshots() int {
	s.mu.Lock()
	pending := s.snapshots
	s.snapshots = make([]bufferedSnapshot, 0, s.limit)
	s.mu.Unlock()

	if len(pending) == 0 {
		return 0
	}

	if err := os.MkdirAll(s.imagesDir, 0755); err != nil {
		s.logger.Error("Error creating directory: %v", err)
		return 0
	}

	savedCount := 0
	for _, snap := range pending {
		data := snap.Data
		if s.annotator != nil {
			label := fmt.Sprintf("%s %.2f %s", snap.Plate, snap.Similarity, snap.Timestamp.Format(time.TimeOnly))
			if annotated, err := s.annotator.Annotate(data, label); err != nil {
				s.logger.Warning("Storing unannotated snapshot for sighting %d: %v", snap.SightingID, err)
			} else {
				data = annotated
			}
		}

		filename := fmt.Sprintf("%s_%s_%d.jpg", snap.Timestamp.Format(timestampLayout), filenamePlate(snap.Plate), snap.SightingID)
		fullpath := filepath.Join(s.imagesDir, filename)

		if err := os.WriteFile(fullpath, data, 0644); err != nil {
			s.logger.Error("Error saving snapshot %s: %v", filename, err)
			continue
		}

		if s.snapshotRepo != nil {
			_, err := s.snapshotRepo.Insert(&model.Snapshot{
				SightingID: snap.SightingID,
				Filename:   filename,
				FilePath:   fullpath,
				FileSize:   int64(len(data)),
				Timestamp:  snap.Timestamp,
			})
			if err != nil {
				s.logger.Error("Error saving snapshot to database %s: %v", filename, err)
				continue
			}
		}

		savedCount++
	}

	s.logger.Info("Flushed %d snapshots to disk", savedCount)
	return savedCount
}

// filenamePlate keeps only A-Z and 0-9 of plate so recognizer output can never
// leave the image directory or break the file name.
func filenamePlate(plate string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return -1
		}
	}, strings.ToUpper(plate))
	if cleaned == "" {
		return "UNKNOWN"
	}
	return cleaned
}
