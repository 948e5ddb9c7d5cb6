package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"platewatch/internal/model"
)

// SightingRepository implements repository.SightingRepository for SQLite.
type SightingRepository struct {
	db *DB
}

// NewSightingRepository creates a new SQLite sighting repository.
func NewSightingRepository(db *DB) *SightingRepository {
	return &SightingRepository{db: db}
}

// Insert adds a new sighting record to the database.
func (r *SightingRepository) Insert(s *model.Sighting) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO sightings (run_id, target, plate, similarity, candidates, frame_seq, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, s.RunID, s.Target, s.Plate, s.Similarity, strings.Join(s.Candidates, ","), int64(s.FrameSeq), s.Timestamp)
	if err != nil {
		return 0, fmt.Errorf("failed to insert sighting: %w", err)
	}

	return result.LastInsertId()
}

// GetByID retrieves a sighting by its ID, nil when absent.
func (r *SightingRepository) GetByID(id int64) (*model.Sighting, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	s, err := scanSighting(r.db.Conn().QueryRow(`
		SELECT id, run_id, target, plate, similarity, candidates, frame_seq, timestamp
		FROM sightings WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sighting: %w", err)
	}
	return s, nil
}

// GetAll retrieves sightings based on filter criteria, newest first.
func (r *SightingRepository) GetAll(filter *model.SightingFilter) ([]model.Sighting, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := filterClause(filter)
	query := `
		SELECT id, run_id, target, plate, similarity, candidates, frame_seq, timestamp
		FROM sightings
	` + where + " ORDER BY timestamp DESC, id DESC"

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sightings: %w", err)
	}
	defer rows.Close()

	var sightings []model.Sighting
	for rows.Next() {
		s, err := scanSighting(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sighting: %w", err)
		}
		sightings = append(sightings, *s)
	}

	return sightings, rows.Err()
}

// GetTotalCount returns the total count of sightings matching the filter.
func (r *SightingRepository) GetTotalCount(filter *model.SightingFilter) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := filterClause(filter)

	var count int
	if err := r.db.Conn().QueryRow("SELECT COUNT(*) FROM sightings "+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sightings: %w", err)
	}

	return count, nil
}

// GetStats returns aggregate statistics about sightings and their snapshots.
func (r *SightingRepository) GetStats() (*model.SightingStats, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	stats := &model.SightingStats{
		PerPlate: make(map[string]int),
		PerRun:   make(map[string]int),
	}

	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM sightings`).Scan(&stats.TotalSightings); err != nil {
		return nil, fmt.Errorf("failed to count sightings: %w", err)
	}

	if err := r.db.Conn().QueryRow(`SELECT COUNT(*), COALESCE(SUM(filesize), 0) FROM snapshots`).Scan(&stats.TotalSnapshots, &stats.TotalSizeBytes); err != nil {
		return nil, fmt.Errorf("failed to count snapshots: %w", err)
	}

	if err := r.countBy(`SELECT plate, COUNT(*) FROM sightings GROUP BY plate`, stats.PerPlate); err != nil {
		return nil, err
	}
	if err := r.countBy(`SELECT run_id, COUNT(*) FROM sightings GROUP BY run_id`, stats.PerRun); err != nil {
		return nil, err
	}

	return stats, nil
}

// DeleteAll removes all sightings and their snapshots.
func (r *SightingRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM snapshots`); err != nil {
		return fmt.Errorf("failed to delete snapshots: %w", err)
	}

	if _, err := r.db.Conn().Exec(`DELETE FROM sightings`); err != nil {
		return fmt.Errorf("failed to delete sightings: %w", err)
	}

	return nil
}

func (r *SightingRepository) countBy(query string, into map[string]int) error {
	rows, err := r.db.Conn().Query(query)
	if err != nil {
		return fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("failed to scan stats: %w", err)
		}
		into[key] = count
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSighting(row rowScanner) (*model.Sighting, error) {
	var s model.Sighting
	var candidates string
	var seq int64
	if err := row.Scan(&s.ID, &s.RunID, &s.Target, &s.Plate, &s.Similarity, &candidates, &seq, &s.Timestamp); err != nil {
		return nil, err
	}
	s.FrameSeq = uint64(seq)
	if candidates != "" {
		s.Candidates = strings.Split(candidates, ",")
	}
	return &s, nil
}

func filterClause(filter *model.SightingFilter) (string, []interface{}) {
	query := "WHERE 1=1"
	args := []interface{}{}

	if filter == nil {
		return query, args
	}

	if filter.Plate != "" {
		query += " AND plate = ?"
		args = append(args, strings.ToUpper(filter.Plate))
	}

	if filter.RunID != "" {
		query += " AND run_id = ?"
		args = append(args, filter.RunID)
	}

	if !filter.StartDate.IsZero() {
		query += " AND DATE(timestamp) >= DATE(?)"
		args = append(args, filter.StartDate.Format("2006-01-02"))
	}

	if !filter.EndDate.IsZero() {
		query += " AND DATE(timestamp) <= DATE(?)"
		args = append(args, filter.EndDate.Format("2006-01-02"))
	}

	return query, args
}
