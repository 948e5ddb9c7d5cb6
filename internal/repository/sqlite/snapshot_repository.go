package sqlite

import (
	"database/sql"
	"fmt"

	"platewatch/internal/model"
)

// SnapshotRepository implements repository.SnapshotRepository for SQLite.
type SnapshotRepository struct {
	db *DB
}

func NewSnapshotRepository(db *DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

func (r *SnapshotRepository) Insert(s *model.Snapshot) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO snapshots (sighting_id, filename, filepath, filesize, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`, s.SightingID, s.Filename, s.FilePath, s.FileSize, s.Timestamp)
	if err != nil {
		return 0, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return result.LastInsertId()
}

// GetByFilename returns nil when no snapshot has that filename.
func (r *SnapshotRepository) GetByFilename(filename string) (*model.Snapshot, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var s model.Snapshot
	err := r.db.Conn().QueryRow(`
		SELECT id, sighting_id, filename, filepath, filesize, timestamp
		FROM snapshots WHERE filename = ?
	`, filename).Scan(&s.ID, &s.SightingID, &s.Filename, &s.FilePath, &s.FileSize, &s.Timestamp)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return &s, nil
}

func (r *SnapshotRepository) GetBySightingID(sightingID int64) ([]model.Snapshot, error) {
	return r.query(`
		SELECT id, sighting_id, filename, filepath, filesize, timestamp
		FROM snapshots WHERE sighting_id = ? ORDER BY id
	`, sightingID)
}

func (r *SnapshotRepository) GetAll() ([]model.Snapshot, error) {
	return r.query(`
		SELECT id, sighting_id, filename, filepath, filesize, timestamp
		FROM snapshots ORDER BY id
	`)
}

func (r *SnapshotRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM snapshots`); err != nil {
		return fmt.Errorf("failed to delete snapshots: %w", err)
	}
	return nil
}

func (r *SnapshotRepository) query(query string, args ...interface{}) ([]model.Snapshot, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []model.Snapshot
	for rows.Next() {
		var s model.Snapshot
		if err := rows.Scan(&s.ID, &s.SightingID, &s.Filename, &s.FilePath, &s.FileSize, &s.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}
