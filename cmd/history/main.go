package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"platewatch/internal/config"
	"platewatch/internal/model"
	"platewatch/internal/repository/sqlite"
)

func main() {
	cfg := config.Load()

	dbPath := flag.String("db", cfg.DatabasePath, "Database path")
	limit := flag.Int("limit", 20, "Number of recent sightings to print")
	plate := flag.String("plate", "", "Only show sightings of this plate")
	run := flag.String("run", "", "Only show sightings from this run id")
	flag.Parse()

	if _, err := os.Stat(*dbPath); os.IsNotExist(err) {
		log.Fatalf("Database %s does not exist", *dbPath)
	}

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	sightings := sqlite.NewSightingRepository(db)
	snapshots := sqlite.NewSnapshotRepository(db)

	stats, err := sightings.GetStats()
	if err != nil {
		log.Fatalf("Failed to read statistics: %v", err)
	}

	fmt.Printf("📊 Sighting Statistics (%s):\n", *dbPath)
	fmt.Printf("   Total sightings: %d\n", stats.TotalSightings)
	fmt.Printf("   Total snapshots: %d (%d bytes)\n", stats.TotalSnapshots, stats.TotalSizeBytes)
	printCounts("Per plate", stats.PerPlate)
	printCounts("Per run", stats.PerRun)

	recent, err := sightings.GetAll(&model.SightingFilter{Plate: *plate, RunID: *run, Limit: *limit})
	if err != nil {
		log.Fatalf("Failed to query sightings: %v", err)
	}
	if len(recent) == 0 {
		fmt.Println("\nNo sightings found")
		return
	}

	fmt.Printf("\n🕒 Most recent %d sightings:\n", len(recent))
	for _, s := range recent {
		files := []string{}
		if snaps, err := snapshots.GetBySightingID(s.ID); err == nil {
			for _, snap := range snaps {
				files = append(files, snap.Filename)
			}
		}
		fmt.Printf("   %s  %-10s %.2f  target=%s  candidates=%s  %s\n",
			s.Timestamp.Local().Format(time.DateTime), s.Plate, s.Similarity, s.Target,
			strings.Join(s.Candidates, ","), strings.Join(files, " "))
	}
}

func printCounts(title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Printf("   %s:\n", title)
	for _, k := range keys {
		fmt.Printf("      - %s: %d\n", k, counts[k])
	}
}
