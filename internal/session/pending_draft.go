package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"
)

const pendingDraftKeyPrefix = "session:pending_draft:"

// PendingDraftStore holds at most one draft per session across the login redirect
type PendingDraftStore struct {
	backend Backend
	ttl     time.Duration
	now     func() time.Time
}

// NewPendingDraftStore creates a pending draft store
func NewPendingDraftStore(backend Backend, ttl time.Duration) *PendingDraftStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &PendingDraftStore{backend: backend, ttl: ttl, now: time.Now}
}

// Save replaces any pending draft for the session
func (s *PendingDraftStore) Save(ctx context.Context, sessionID string, pending *domain.PendingDraft) error {
	if pending == nil || pending.Draft == nil {
		return errors.New("pending draft is empty")
	}
	if pending.SavedAt.IsZero() {
		pending.SavedAt = s.now()
	}

	data, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("failed to marshal pending draft: %w", err)
	}
	return s.backend.Set(ctx, pendingDraftKeyPrefix+sessionID, data, s.ttl)
}

// Load returns the pending draft without consuming it
func (s *PendingDraftStore) Load(ctx context.Context, sessionID string) (*domain.PendingDraft, error) {
	data, err := s.backend.Get(ctx, pendingDraftKeyPrefix+sessionID)
	pending, err := decodePendingDraft(data, err)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		_ = s.Clear(ctx, sessionID)
		return nil, domain.ErrPendingDraftNotFound
	}
	return pending, nil
}

// Clear deletes the pending draft
func (s *PendingDraftStore) Clear(ctx context.Context, sessionID string) error {
	return s.backend.Delete(ctx, pendingDraftKeyPrefix+sessionID)
}

// Take consumes the pending draft. Of concurrent takers on one session only one gets it.
func (s *PendingDraftStore) Take(ctx context.Context, sessionID string) (*domain.PendingDraft, error) {
	data, err := s.backend.Take(ctx, pendingDraftKeyPrefix+sessionID)
	pending, err := decodePendingDraft(data, err)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return nil, domain.ErrPendingDraftNotFound
	}
	return pending, nil
}

// decodePendingDraft returns nil without error for an undecodable entry
func decodePendingDraft(data []byte, err error) (*domain.PendingDraft, error) {
	if errors.Is(err, ErrNotFound) {
		return nil, domain.ErrPendingDraftNotFound
	}
	if err != nil {
		return nil, err
	}

	var pending domain.PendingDraft
	if err := json.Unmarshal(data, &pending); err != nil || pending.Draft == nil {
		return nil, nil
	}
	return &pending, nil
}
