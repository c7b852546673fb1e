package model

import "time"

// Failure identifies one entity that could not be processed, with the
// reason it failed. Reports always name failed entities explicitly so a
// pass is never a silent partial success.
type Failure struct {
	Type   EntityType
	ID     string
	Reason string
}

// SyncReport aggregates the outcome of one sync pass.
type SyncReport struct {
	RunID            string
	StartedAt        time.Time
	Duration         time.Duration
	AssetsTotal      int
	AssetsCreated    int
	AssetsSkipped    int
	AssetsFailed     int
	LocationsCreated int
	WriteBacksFailed int
	Failures         []Failure
}

// CleanupReport aggregates the outcome of one cleanup invocation.
// Entries behind a failure stay in the state store and are retried on the
// next invocation.
type CleanupReport struct {
	AssetsDeleted     int
	LocationsDeleted  int
	AssetsFailed      int
	LocationsSkipped  int
	LocationsFailed   int
	Failures          []Failure
}
