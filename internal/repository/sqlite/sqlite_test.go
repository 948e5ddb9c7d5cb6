package sqlite

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"platewatch/internal/model"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestDatabase_CreatesDirectoryAndFile(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "nested", "sightings.db")

	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file should exist")
	}
}

func TestSightingRepository_InsertAndGet(t *testing.T) {
	repo := NewSightingRepository(newTestDB(t))

	id, err := repo.Insert(&model.Sighting{
		RunID:      "run-1",
		Target:     "ABC123",
		Plate:      "ABC124",
		Similarity: 0.83,
		Candidates: []string{"ABC124", "A8C124"},
		FrameSeq:   42,
		Timestamp:  day(2024, 3, 1),
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := repo.GetByID(id)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected sighting, got nil")
	}
	if got.Plate != "ABC124" || got.Similarity != 0.83 || got.FrameSeq != 42 {
		t.Errorf("Unexpected sighting: %+v", got)
	}
	if len(got.Candidates) != 2 || got.Candidates[1] != "A8C124" {
		t.Errorf("Expected candidates to round-trip, got %v", got.Candidates)
	}

	missing, err := repo.GetByID(id + 100)
	if err != nil || missing != nil {
		t.Errorf("Expected nil for missing sighting, got %+v (%v)", missing, err)
	}
}

func TestSightingRepository_Filters(t *testing.T) {
	repo := NewSightingRepository(newTestDB(t))

	rows := []model.Sighting{
		{RunID: "r1", Target: "ABC123", Plate: "ABC123", Similarity: 1, Timestamp: day(2024, 1, 10)},
		{RunID: "r1", Target: "ABC123", Plate: "ABC124", Similarity: 0.83, Timestamp: day(2024, 1, 20)},
		{RunID: "r2", Target: "ABC123", Plate: "ABC123", Similarity: 1, Timestamp: day(2024, 2, 5)},
	}
	for i := range rows {
		if _, err := repo.Insert(&rows[i]); err != nil {
			t.Fatalf("Insert %d failed: %v", i, err)
		}
	}

	tests := []struct {
		name   string
		filter *model.SightingFilter
		want   int
	}{
		{"all", &model.SightingFilter{}, 3},
		{"nil filter", nil, 3},
		{"plate lower-case", &model.SightingFilter{Plate: "abc123"}, 2},
		{"run", &model.SightingFilter{RunID: "r1"}, 2},
		{"after", &model.SightingFilter{StartDate: day(2024, 1, 15)}, 2},
		{"before", &model.SightingFilter{EndDate: day(2024, 1, 15)}, 1},
		{"range", &model.SightingFilter{StartDate: day(2024, 1, 15), EndDate: day(2024, 1, 31)}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.GetAll(tt.filter)
			if err != nil {
				t.Fatalf("GetAll failed: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("Expected %d sightings, got %d", tt.want, len(got))
			}
			count, err := repo.GetTotalCount(tt.filter)
			if err != nil {
				t.Fatalf("GetTotalCount failed: %v", err)
			}
			if count != tt.want {
				t.Errorf("Expected count %d, got %d", tt.want, count)
			}
		})
	}
}

func TestSightingRepository_PaginationNewestFirst(t *testing.T) {
	repo := NewSightingRepository(newTestDB(t))

	for i := 1; i <= 5; i++ {
		_, err := repo.Insert(&model.Sighting{RunID: "r", Target: "T", Plate: fmt.Sprintf("P%d", i), Similarity: 1, Timestamp: day(2024, 1, i)})
		if err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	page, err := repo.GetAll(&model.SightingFilter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(page))
	}
	if page[0].Plate != "P3" || page[1].Plate != "P2" {
		t.Errorf("Expected P3, P2 got %s, %s", page[0].Plate, page[1].Plate)
	}
}

func TestSightingRepository_StatsAndDeleteAll(t *testing.T) {
	db := newTestDB(t)
	sightings := NewSightingRepository(db)
	snapshots := NewSnapshotRepository(db)

	id1, _ := sightings.Insert(&model.Sighting{RunID: "r1", Target: "T", Plate: "ABC123", Similarity: 1, Timestamp: day(2024, 1, 1)})
	sightings.Insert(&model.Sighting{RunID: "r1", Target: "T", Plate: "ABC123", Similarity: 1, Timestamp: day(2024, 1, 2)})
	sightings.Insert(&model.Sighting{RunID: "r2", Target: "T", Plate: "XYZ999", Similarity: 0.7, Timestamp: day(2024, 1, 3)})

	if _, err := snapshots.Insert(&model.Snapshot{SightingID: id1, Filename: "a.jpg", FilePath: "/x/a.jpg", FileSize: 300, Timestamp: day(2024, 1, 1)}); err != nil {
		t.Fatalf("Snapshot insert failed: %v", err)
	}

	stats, err := sightings.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.TotalSightings != 3 {
		t.Errorf("Expected 3 sightings, got %d", stats.TotalSightings)
	}
	if stats.TotalSnapshots != 1 || stats.TotalSizeBytes != 300 {
		t.Errorf("Expected 1 snapshot of 300 bytes, got %d / %d", stats.TotalSnapshots, stats.TotalSizeBytes)
	}
	if stats.PerPlate["ABC123"] != 2 || stats.PerRun["r2"] != 1 {
		t.Errorf("Unexpected breakdown: %+v %+v", stats.PerPlate, stats.PerRun)
	}

	if err := sightings.DeleteAll(); err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}
	if count, _ := sightings.GetTotalCount(nil); count != 0 {
		t.Errorf("Expected no sightings after DeleteAll, got %d", count)
	}
	if all, _ := snapshots.GetAll(); len(all) != 0 {
		t.Errorf("Expected no snapshots after DeleteAll, got %d", len(all))
	}
}

func TestSnapshotRepository(t *testing.T) {
	db := newTestDB(t)
	sightings := NewSightingRepository(db)
	repo := NewSnapshotRepository(db)

	sid, err := sightings.Insert(&model.Sighting{RunID: "r", Target: "T", Plate: "P", Similarity: 1, Timestamp: day(2024, 1, 1)})
	if err != nil {
		t.Fatalf("Insert sighting failed: %v", err)
	}

	for _, name := range []string{"one.jpg", "two.jpg"} {
		if _, err := repo.Insert(&model.Snapshot{SightingID: sid, Filename: name, FilePath: "/s/" + name, FileSize: 10, Timestamp: day(2024, 1, 1)}); err != nil {
			t.Fatalf("Insert %s failed: %v", name, err)
		}
	}

	if _, err := repo.Insert(&model.Snapshot{SightingID: sid, Filename: "one.jpg", Timestamp: day(2024, 1, 1)}); err == nil {
		t.Error("Expected duplicate filename to be rejected")
	}

	got, err := repo.GetByFilename("two.jpg")
	if err != nil || got == nil {
		t.Fatalf("GetByFilename failed: %v", err)
	}
	if got.SightingID != sid || got.FilePath != "/s/two.jpg" {
		t.Errorf("Unexpected snapshot: %+v", got)
	}

	if missing, err := repo.GetByFilename("nope.jpg"); err != nil || missing != nil {
		t.Errorf("Expected nil for missing snapshot, got %+v (%v)", missing, err)
	}

	list, err := repo.GetBySightingID(sid)
	if err != nil {
		t.Fatalf("GetBySightingID failed: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("Expected 2 snapshots, got %d", len(list))
	}

	if err := repo.DeleteAll(); err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}
	if all, _ := repo.GetAll(); len(all) != 0 {
		t.Errorf("Expected empty table, got %d", len(all))
	}
}

func TestDatabase_ConcurrentInserts(t *testing.T) {
	repo := NewSightingRepository(newTestDB(t))

	done := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func(idx int) {
			_, err := repo.Insert(&model.Sighting{RunID: "r", Target: "T", Plate: fmt.Sprintf("C%d", idx), Similarity: 1, Timestamp: time.Now()})
			done <- err
		}(i)
	}
	for i := 0; i < 10; i++ {
		if err := <-done; err != nil {
			t.Errorf("Concurrent insert failed: %v", err)
		}
	}

	if count, _ := repo.GetTotalCount(nil); count != 10 {
		t.Errorf("Expected 10 sightings, got %d", count)
	}
}
