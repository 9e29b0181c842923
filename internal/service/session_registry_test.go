package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"
)

func TestSessionRegistry_GetCreatesOnce(t *testing.T) {
	r := NewSessionRegistry(&MockRemoteAPI{}, time.Hour)
	defer r.Stop()

	ctx := context.Background()
	a := r.Get(ctx, "sid")
	b := r.Get(ctx, "sid")
	assert.Same(t, a, b)
	assert.NotNil(t, a.Composer)
	assert.Equal(t, 1, r.Len())

	_, ok := r.Lookup("other")
	assert.False(t, ok)
}

func TestSessionRegistry_SweepEvictsIdleSessions(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := NewSessionRegistry(&MockRemoteAPI{}, 30*time.Minute)
	r.now = func() time.Time { return now }
	defer r.Stop()

	ctx := context.Background()
	r.Get(ctx, "idle")
	now = now.Add(20 * time.Minute)
	r.Get(ctx, "active")
	now = now.Add(15 * time.Minute)

	assert.Equal(t, 1, r.Sweep(ctx))
	_, ok := r.Lookup("idle")
	assert.False(t, ok)
	_, ok = r.Lookup("active")
	assert.True(t, ok)
}

func TestSession_UserIsCopied(t *testing.T) {
	s := &Session{ID: "sid"}
	assert.Nil(t, s.CurrentUser())

	u := &domain.User{ID: "user-1", FirstName: "Amal"}
	s.SetUser(u)
	u.FirstName = "changed"

	got := s.CurrentUser()
	require.NotNil(t, got)
	assert.Equal(t, "Amal", got.FirstName)

	got.FirstName = "mutated"
	assert.Equal(t, "Amal", s.CurrentUser().FirstName)
}

func TestSession_LogoutDropsBookingCache(t *testing.T) {
	s := &Session{ID: "sid"}
	s.SetUser(&domain.User{ID: "user-1"})
	s.cacheBookings([]domain.Booking{{ID: "bk-1"}})

	cached, ok := s.cachedBookings()
	require.True(t, ok)
	assert.Len(t, cached, 1)

	s.SetUser(nil)
	_, ok = s.cachedBookings()
	assert.False(t, ok)
}

func TestSessionRegistry_StartStop(t *testing.T) {
	r := NewSessionRegistry(&MockRemoteAPI{}, time.Millisecond)
	ctx := context.Background()
	r.Get(ctx, "sid")

	r.Start(ctx, 5*time.Millisecond)
	r.Start(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool { return r.Len() == 0 }, time.Second, 5*time.Millisecond)
	r.Stop()
	r.Stop()
}
