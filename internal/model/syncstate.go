package model

import "time"

// EntityType distinguishes the two kinds of synced entities.
type EntityType string

const (
	EntityLocation EntityType = "location"
	EntityAsset    EntityType = "asset"
)

// SyncStateEntry records that one source entity has a live counterpart in
// Maximo. At most one entry exists per (SourceType, SourceID). Entries are
// the sole evidence that a target record exists: cleanup consumes them
// exclusively and never re-queries Maximo's full record set.
type SyncStateEntry struct {
	SourceType EntityType
	SourceID   string
	TargetType EntityType
	TargetID   string

	// TargetParentID is set on location entries and gives the Maximo parent
	// location. Cleanup derives leaf-before-parent deletion order from it.
	TargetParentID string

	// TargetLocationID is set on asset entries: the functional location the
	// asset was created under. Cleanup holds back a location delete while a
	// referencing asset entry remains, and write-back retries read it.
	TargetLocationID string

	SyncedAt time.Time
}

// Key returns the composite store key for the entry.
func (e *SyncStateEntry) Key() (EntityType, string) {
	return e.SourceType, e.SourceID
}
