// Package dto holds HTTP response payloads.
package dto

import "platewatch/internal/model"

// SightingInfo is one row of the sightings list.
type SightingInfo struct {
	model.Sighting
	Snapshots []string `json:"snapshots"`
}

// SightingsData is a paginated response payload for the sightings list.
type SightingsData struct {
	Sightings   []SightingInfo `json:"sightings"`
	ImagesDir   string         `json:"imagesDir"`
	Size        int64          `json:"size"`
	Length      int            `json:"length"`
	TotalPages  int            `json:"totalPages"`
	CurrentPage int            `json:"currentPage"`
	Limit       int            `json:"pageSize"`
}
