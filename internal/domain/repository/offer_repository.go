package repository

import (
	"context"

	"teuggahunter-service/internal/domain/entity"
)

// OfferRepository defines the interface for offer persistence operations.
// The store is the sole arbiter of "already seen": dedup is a batched
// existence check, and its unique index on the hash key is the only backstop
// against two concurrent writers racing past the filter.
type OfferRepository interface {
	// ExistingKeys returns the subset of the given hash keys already present
	// in the store, in a single query. Empty input must not hit the store.
	ExistingKeys(ctx context.Context, hashKeys []string) (map[string]struct{}, error)
	Insert(ctx context.Context, offer *entity.Offer) error
}
