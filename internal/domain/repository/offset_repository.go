package repository

import "context"

// OffsetRepository tracks the last-seen message timestamp per source label
// for pull-mode polling. A label with no stored offset returns zero, not an
// error.
type OffsetRepository interface {
	Get(ctx context.Context, label string) (int64, error)
	Set(ctx context.Context, label string, unixSeconds int64) error
}
