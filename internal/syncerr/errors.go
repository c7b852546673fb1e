// Package syncerr defines the error taxonomy of the sync engine.
//
// Per-entity errors (cycle, missing location, unmapped classification,
// target create failure) abort only the affected asset's pipeline and are
// collected into the batch report. ErrStateStore is fatal to the whole
// pass: once the state store misbehaves, idempotency can no longer be
// guaranteed and the pass must halt.
package syncerr

import (
	"errors"
	"fmt"
)

var (
	// ErrCycleDetected means a location was revisited while walking its
	// ancestor chain; the source hierarchy is malformed.
	ErrCycleDetected = errors.New("cycle detected in location hierarchy")

	// ErrLocationNotFound means an ancestor id could not be resolved by
	// the source system.
	ErrLocationNotFound = errors.New("location not found in source")

	// ErrUnmappedClassification means no mapping and no default mapping
	// exists for an asset's classification code.
	ErrUnmappedClassification = errors.New("unmapped classification code")

	// ErrTargetCreate wraps a failed create call against Maximo.
	ErrTargetCreate = errors.New("target create failed")

	// ErrTargetDelete wraps a failed delete call against Maximo.
	ErrTargetDelete = errors.New("target delete failed")

	// ErrSourceWriteBack wraps a failed identifier write-back to Qonic.
	// The write is idempotent, so it is retried on the next pass.
	ErrSourceWriteBack = errors.New("source write-back failed")

	// ErrStateStore wraps a sync-state store I/O failure. Fatal to the pass.
	ErrStateStore = errors.New("state store failure")
)

// StateStore wraps err as a fatal state-store failure.
func StateStore(err error) error {
	return fmt.Errorf("%w: %v", ErrStateStore, err)
}

// IsFatal reports whether err must halt the whole pass rather than just
// the current entity.
func IsFatal(err error) bool {
	return errors.Is(err, ErrStateStore)
}

// Reason returns the taxonomy label for err, for reports and metrics.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrCycleDetected):
		return "CycleDetected"
	case errors.Is(err, ErrLocationNotFound):
		return "LocationNotFound"
	case errors.Is(err, ErrUnmappedClassification):
		return "UnmappedClassification"
	case errors.Is(err, ErrTargetCreate):
		return "TargetCreateFailed"
	case errors.Is(err, ErrTargetDelete):
		return "TargetDeleteFailed"
	case errors.Is(err, ErrSourceWriteBack):
		return "SourceWriteBackFailed"
	case errors.Is(err, ErrStateStore):
		return "StateStoreIOFailed"
	default:
		return "Unknown"
	}
}
