package models

import "time"

// SnapshotVersion is written into every export
const SnapshotVersion = "1.0"

// Snapshot is the complete exported state of a store
type Snapshot struct {
	Version      string         `json:"version"`
	ExportedAt   time.Time      `json:"exportedAt"`
	Collections  []Collection   `json:"collections"`
	ReviewCounts map[string]int `json:"reviewCounts"`
	Settings     *Settings      `json:"settings,omitempty"`
}
