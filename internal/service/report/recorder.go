package report

import (
	"time"

	"platewatch/internal/logger"
	"platewatch/internal/model"
	"platewatch/internal/repository"

	"github.com/google/uuid"
)

// SnapshotQueue accepts evidence frames for later persistence.
type SnapshotQueue interface {
	AddSnapshot(sightingID int64, plate string, similarity float64, frame []byte, ts time.Time) bool
}

// NewRunID returns a fresh identifier for one watcher process.
func NewRunID() string {
	return uuid.NewString()
}

// SightingRecorder stores every Matched decision as a sighting and queues its
// frame as evidence. Other decisions are ignored.
type SightingRecorder struct {
	runID     string
	target    string
	sightings repository.SightingRepository
	snapshots SnapshotQueue
	logger    *logger.Logger
}

// NewSightingRecorder creates a recorder; snapshots may be nil to skip evidence.
func NewSightingRecorder(runID, target string, sightings repository.SightingRepository, snapshots SnapshotQueue, logger *logger.Logger) *SightingRecorder {
	return &SightingRecorder{
		runID:     runID,
		target:    target,
		sightings: sightings,
		snapshots: snapshots,
		logger:    logger,
	}
}

func (r *SightingRecorder) Report(d model.Decision) {
	if !d.IsMatch() {
		return
	}

	id, err := r.sightings.Insert(&model.Sighting{
		RunID:      r.runID,
		Target:     r.target,
		Plate:      d.Plate,
		Similarity: d.Similarity,
		Candidates: d.Candidates,
		FrameSeq:   d.FrameSeq,
		Timestamp:  d.Timestamp,
	})
	if err != nil {
		r.logger.Error("Failed to record sighting of %s: %v", d.Plate, err)
		return
	}

	if r.snapshots != nil && len(d.Frame) > 0 {
		if !r.snapshots.AddSnapshot(id, d.Plate, d.Similarity, d.Frame, d.Timestamp) {
			r.logger.Warning("Snapshot buffer full, sighting %d stored without evidence", id)
		}
	}
}
