package repository

import (
	"context"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"
)

// IncidentRepository defines the interface for payment incident data access
type IncidentRepository interface {
	// Record stores an incident once per event ID. Returns false when the event was already recorded.
	Record(ctx context.Context, incident *domain.PaymentIncident) (bool, error)

	// GetByID retrieves an incident by its ID
	GetByID(ctx context.Context, id string) (*domain.PaymentIncident, error)

	// ListOpen returns unresolved incidents, oldest first
	ListOpen(ctx context.Context, limit, offset int) ([]*domain.PaymentIncident, error)

	// Resolve marks an incident as handled by support
	Resolve(ctx context.Context, id string) error
}
