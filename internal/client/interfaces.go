package client

import (
	"context"

	"github.com/brucargo/qmsync/internal/model"
)

// SourceClient is the narrow contract the sync engine consumes from the
// source system (Qonic).
type SourceClient interface {
	// ListCandidateAssets enumerates the products eligible for this pass.
	ListCandidateAssets(ctx context.Context, filter model.AssetFilter) ([]*model.SourceAsset, error)

	// GetLocation resolves one spatial location by id. Returns an error
	// wrapping syncerr.ErrLocationNotFound when the id is unknown.
	GetLocation(ctx context.Context, id string) (*model.SourceLocation, error)

	// UpdateAssetLinks writes generated Maximo identifiers back onto the
	// source products. The write is an idempotent overwrite of the same
	// fields, so callers may safely retry it on a later pass. Per-product
	// rejections come back in the first return value; err covers transport
	// and whole-request failures.
	UpdateAssetLinks(ctx context.Context, links []model.AssetLink) ([]WriteBackError, error)
}

// TargetClient is the narrow contract the sync engine consumes from the
// target system (Maximo). Location creation must support assigning the
// parent reference at create time; the QONIC_MXAPILOCATIONS object
// structure exists for exactly that.
type TargetClient interface {
	CreateLocation(ctx context.Context, payload *model.LocationPayload) (string, error)
	CreateAsset(ctx context.Context, payload *model.AssetPayload) (string, error)
	DeleteLocation(ctx context.Context, targetID string) error
	DeleteAsset(ctx context.Context, targetID string) error
}

// WriteBackError is one product the source system rejected during
// identifier write-back.
type WriteBackError struct {
	SourceGUID string
	Field      string
	Message    string
}
