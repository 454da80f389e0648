package repository

import (
	"context"

	"teuggahunter-service/internal/domain/entity"
)

// DealNotifier pushes persisted offers to the downstream automation hook.
// Delivery is best-effort: a failed push is logged by the caller and never
// changes the processing outcome.
type DealNotifier interface {
	PushOffers(ctx context.Context, offers []*entity.Offer) error
}
