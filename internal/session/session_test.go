package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"
	pkgredis "github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/redis"
)

type fakeRedis struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeRedis() *fakeRedis { return &fakeRedis{data: map[string][]byte{}} }

func (f *fakeRedis) GetBytes(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return nil, pkgredis.Nil
	}
	return v, nil
}

func (f *fakeRedis) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}

func (f *fakeRedis) GetDelBytes(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return nil, pkgredis.Nil
	}
	delete(f.data, key)
	return v, nil
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func openInMemoryBadger(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func backends(t *testing.T) map[string]Backend {
	return map[string]Backend{
		StoreMemory: NewMemoryBackend(),
		StoreRedis:  NewRedisBackend(newFakeRedis()),
		StoreBadger: NewBadgerBackend(openInMemoryBadger(t)),
	}
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func sampleDraft() *domain.PendingDraft {
	return &domain.PendingDraft{
		TourID:   "tour-1",
		TourSlug: "petra-wadi-rum",
		Draft: &domain.BookingDraft{
			DraftID:       "draft-1",
			TourID:        "tour-1",
			TourDateID:    "date-1",
			FlightOption:  domain.FlightWith,
			Adults:        2,
			Children:      1,
			TermsAccepted: true,
			Travelers: []domain.Traveler{
				{Type: domain.TravelerAdult, Index: 0, FullName: "Amal Haddad"},
			},
			Quote: domain.Quote{BasePrice: 1250, AddOnsTotal: 150, Total: 1400},
		},
	}
}

func TestBackends_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := b.Get(ctx, "k")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, b.Set(ctx, "k", []byte("v"), time.Minute))
			got, err := b.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, []byte("v"), got)

			require.NoError(t, b.Delete(ctx, "k"))
			_, err = b.Get(ctx, "k")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestMemoryBackend_Expires(t *testing.T) {
	b := NewMemoryBackend()
	now := time.Now()
	b.now = func() time.Time { return now }

	require.NoError(t, b.Set(context.Background(), "k", []byte("v"), time.Second))
	now = now.Add(2 * time.Second)

	_, err := b.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewBackend(t *testing.T) {
	b, err := NewBackend("", nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryBackend{}, b)

	_, err = NewBackend(StoreRedis, nil, nil)
	assert.Error(t, err)

	_, err = NewBackend(StoreBadger, nil, nil)
	assert.Error(t, err)

	_, err = NewBackend("etcd", nil, nil)
	assert.Error(t, err)

	b, err = NewBackend(StoreRedis, newFakeRedis(), nil)
	require.NoError(t, err)
	assert.IsType(t, &RedisBackend{}, b)
}

func TestPendingDraftStore_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store := NewPendingDraftStore(b, time.Hour)

			_, err := store.Load(ctx, "sid")
			assert.ErrorIs(t, err, domain.ErrPendingDraftNotFound)

			require.NoError(t, store.Save(ctx, "sid", sampleDraft()))

			loaded, err := store.Load(ctx, "sid")
			require.NoError(t, err)
			assert.Equal(t, "tour-1", loaded.TourID)
			assert.Equal(t, 1400.0, loaded.Draft.Quote.Total)
			assert.Equal(t, "Amal Haddad", loaded.Draft.Travelers[0].FullName)
			assert.False(t, loaded.SavedAt.IsZero())

			_, err = store.Load(ctx, "other-sid")
			assert.ErrorIs(t, err, domain.ErrPendingDraftNotFound)

			require.NoError(t, store.Clear(ctx, "sid"))
			_, err = store.Load(ctx, "sid")
			assert.ErrorIs(t, err, domain.ErrPendingDraftNotFound)
		})
	}
}

func TestPendingDraftStore_TakeConsumesOnce(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store := NewPendingDraftStore(b, time.Hour)
			require.NoError(t, store.Save(ctx, "sid", sampleDraft()))

			first, err := store.Take(ctx, "sid")
			require.NoError(t, err)
			assert.Equal(t, "draft-1", first.Draft.DraftID)

			_, err = store.Take(ctx, "sid")
			assert.ErrorIs(t, err, domain.ErrPendingDraftNotFound)
		})
	}
}

func TestPendingDraftStore_ConcurrentTakeSingleWinner(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store := NewPendingDraftStore(b, time.Hour)
			require.NoError(t, store.Save(ctx, "sid", sampleDraft()))

			const takers = 16
			var (
				wg    sync.WaitGroup
				mu    sync.Mutex
				wins  int
				other []error
			)
			start := make(chan struct{})
			for i := 0; i < takers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					_, err := store.Take(ctx, "sid")
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						wins++
					case !errors.Is(err, domain.ErrPendingDraftNotFound):
						other = append(other, err)
					}
				}()
			}
			close(start)
			wg.Wait()

			assert.Equal(t, 1, wins)
			assert.Empty(t, other)
		})
	}
}

func TestPendingDraftStore_TakeDropsCorruptEntry(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	require.NoError(t, backend.Set(ctx, pendingDraftKeyPrefix+"sid", []byte("{broken"), time.Hour))

	store := NewPendingDraftStore(backend, time.Hour)
	_, err := store.Take(ctx, "sid")
	assert.ErrorIs(t, err, domain.ErrPendingDraftNotFound)

	_, err = backend.Get(ctx, pendingDraftKeyPrefix+"sid")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPendingDraftStore_RejectsEmpty(t *testing.T) {
	store := NewPendingDraftStore(NewMemoryBackend(), time.Hour)
	assert.Error(t, store.Save(context.Background(), "sid", &domain.PendingDraft{TourID: "t"}))
}

func TestTokenStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store := NewTokenStore(b, time.Hour)
			token := signedToken(t, time.Now().Add(time.Hour))

			_, err := store.Load(ctx, "sid")
			assert.ErrorIs(t, err, domain.ErrUnauthorized)

			require.NoError(t, store.Save(ctx, "sid", &domain.AuthSession{
				Token: token,
				User:  &domain.User{ID: "user-1", Email: "amal@example.com"},
			}))

			auth, err := store.Load(ctx, "sid")
			require.NoError(t, err)
			assert.Equal(t, token, auth.Token)
			assert.Equal(t, "user-1", auth.User.ID)

			require.NoError(t, store.Clear(ctx, "sid"))
			_, err = store.Load(ctx, "sid")
			assert.ErrorIs(t, err, domain.ErrUnauthorized)
		})
	}
}

func TestTokenStore_ExpiredTokenDropped(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	store := NewTokenStore(b, time.Hour)
	token := signedToken(t, time.Now().Add(time.Minute))

	require.NoError(t, store.Save(ctx, "sid", &domain.AuthSession{Token: token, User: &domain.User{ID: "u"}}))

	store.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err := store.Load(ctx, "sid")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = b.Get(ctx, tokenKeyPrefix+"sid")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTokenStore_RefusesAlreadyExpired(t *testing.T) {
	store := NewTokenStore(NewMemoryBackend(), time.Hour)
	token := signedToken(t, time.Now().Add(-time.Minute))

	err := store.Save(context.Background(), "sid", &domain.AuthSession{Token: token, User: &domain.User{ID: "u"}})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	got, ok := TokenExpiry(signedToken(t, exp))
	require.True(t, ok)
	assert.True(t, exp.Equal(got))

	_, ok = TokenExpiry("opaque-token")
	assert.False(t, ok)
}
