package repository

import (
	"context"

	"teuggahunter-service/internal/domain/entity"
)

// AirlineRepository defines the interface for airline reference lookups
type AirlineRepository interface {
	GetByName(ctx context.Context, name string) (*entity.Airline, error)
}
