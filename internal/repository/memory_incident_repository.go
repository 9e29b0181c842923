package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"
)

// MemoryIncidentRepository implements IncidentRepository using in-memory storage
// This is useful for testing and development
type MemoryIncidentRepository struct {
	incidents map[string]*domain.PaymentIncident
	byEvent   map[string]string // eventID -> incidentID
	mu        sync.RWMutex
}

// NewMemoryIncidentRepository creates a new in-memory incident repository
func NewMemoryIncidentRepository() *MemoryIncidentRepository {
	return &MemoryIncidentRepository{
		incidents: make(map[string]*domain.PaymentIncident),
		byEvent:   make(map[string]string),
	}
}

// Record stores the incident once per event ID
func (r *MemoryIncidentRepository) Record(ctx context.Context, incident *domain.PaymentIncident) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEvent[incident.EventID]; exists {
		return false, nil
	}

	i := *incident
	r.incidents[incident.ID] = &i
	r.byEvent[incident.EventID] = incident.ID
	return true, nil
}

// GetByID retrieves an incident by its ID
func (r *MemoryIncidentRepository) GetByID(ctx context.Context, id string) (*domain.PaymentIncident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	incident, exists := r.incidents[id]
	if !exists {
		return nil, domain.ErrIncidentNotFound
	}
	i := *incident
	return &i, nil
}

// ListOpen returns unresolved incidents, oldest first
func (r *MemoryIncidentRepository) ListOpen(ctx context.Context, limit, offset int) ([]*domain.PaymentIncident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var open []*domain.PaymentIncident
	for _, incident := range r.incidents {
		if incident.Status == domain.IncidentOpen {
			i := *incident
			open = append(open, &i)
		}
	}
	sort.Slice(open, func(a, b int) bool {
		return open[a].OccurredAt.Before(open[b].OccurredAt)
	})

	if offset >= len(open) {
		return []*domain.PaymentIncident{}, nil
	}
	open = open[offset:]
	if limit > 0 && limit < len(open) {
		open = open[:limit]
	}
	return open, nil
}

// Resolve marks an incident as handled
func (r *MemoryIncidentRepository) Resolve(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	incident, exists := r.incidents[id]
	if !exists {
		return domain.ErrIncidentNotFound
	}
	incident.Status = domain.IncidentResolved
	return nil
}
