package model

import "time"

// Sighting is a persisted Matched decision.
type Sighting struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"run_id"`
	Target     string    `json:"target"`
	Plate      string    `json:"plate"`
	Similarity float64   `json:"similarity"`
	Candidates []string  `json:"candidates"`
	FrameSeq   uint64    `json:"frame_seq"`
	Timestamp  time.Time `json:"timestamp"`
}

// Snapshot is an evidence image written to disk for a sighting.
type Snapshot struct {
	ID         int64     `json:"id"`
	SightingID int64     `json:"sighting_id"`
	Filename   string    `json:"filename"`
	FilePath   string    `json:"filepath"`
	FileSize   int64     `json:"filesize"`
	Timestamp  time.Time `json:"timestamp"`
}

// SightingFilter contains filtering options for querying sightings.
type SightingFilter struct {
	Plate     string
	RunID     string
	StartDate time.Time
	EndDate   time.Time
	Limit     int
	Offset    int
}

// SightingStats contains aggregate numbers about stored sightings.
type SightingStats struct {
	TotalSightings int            `json:"total_sightings"`
	TotalSnapshots int            `json:"total_snapshots"`
	TotalSizeBytes int64          `json:"total_size_bytes"`
	PerPlate       map[string]int `json:"per_plate"`
	PerRun         map[string]int `json:"per_run"`
}
