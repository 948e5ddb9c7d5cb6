package repository

import (
	"platewatch/internal/model"
)

// SightingRepository defines the interface for sighting data operations.
type SightingRepository interface {
	// Create operations
	Insert(s *model.Sighting) (int64, error)

	// Read operations
	GetByID(id int64) (*model.Sighting, error)
	GetAll(filter *model.SightingFilter) ([]model.Sighting, error)
	GetTotalCount(filter *model.SightingFilter) (int, error)
	GetStats() (*model.SightingStats, error)

	// Delete operations
	DeleteAll() error
}

// SnapshotRepository defines the interface for evidence snapshot operations.
type SnapshotRepository interface {
	// Create operations
	Insert(s *model.Snapshot) (int64, error)

	// Read operations
	GetByFilename(filename string) (*model.Snapshot, error)
	GetBySightingID(sightingID int64) ([]model.Snapshot, error)
	GetAll() ([]model.Snapshot, error)

	// Delete operations
	DeleteAll() error
}
