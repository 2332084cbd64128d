package session

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menutalk/kiku/internal/menu"
)

func sampleSession(id string) *Session {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &Session{
		ID:              id,
		DisplayLanguage: "ja",
		Mode:            ModeFull,
		Catalog: []menu.Dish{
			{ID: "menu-1", OriginalMenuName: "Ramen", TranslatedMenuName: "ラーメン", Price: "¥980", AllergyInfo: []menu.AllergyInfo{{ID: "wheat", Name: "小麦"}}},
			{ID: "menu-2", OriginalMenuName: "Gyoza", TranslatedMenuName: "餃子", Price: "¥480", AllergyInfo: []menu.AllergyInfo{}},
		},
		Cursor:     1,
		Generation: 3,
		Allergies:  []string{"wheat"},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// storeContract runs the same checks against every Store implementation.
func storeContract(t *testing.T, store Store) {
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Update(ctx, "missing", func(*Session) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)

	in := sampleSession("s1")
	require.NoError(t, store.Create(ctx, in))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, in, got)

	// Mutating a returned copy must not leak into the store.
	got.Catalog[0].Quantity = 9
	again, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, again.Catalog[0].Quantity)

	updated, err := store.Update(ctx, "s1", func(s *Session) error {
		s.Catalog[0].Quantity = 2
		s.Cursor = 2
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Cursor)

	boom := stderrors.New("boom")
	_, err = store.Update(ctx, "s1", func(s *Session) error {
		s.Cursor = 0
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err = store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Cursor)
	assert.Equal(t, 2, got.Catalog[0].Quantity)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore(time.Hour))
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(time.Minute)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Create(ctx, sampleSession("a")))
	require.NoError(t, store.Create(ctx, sampleSession("b")))

	now = now.Add(30 * time.Second)
	_, err := store.Update(ctx, "a", func(*Session) error { return nil })
	require.NoError(t, err)

	// b has expired, a had its TTL refreshed by the update.
	now = now.Add(45 * time.Second)
	_, err = store.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(ctx, "a")
	assert.NoError(t, err)

	now = now.Add(time.Minute)
	assert.Equal(t, 1, store.Sweep())
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisStore(t *testing.T) {
	_, client := newTestRedis(t)
	storeContract(t, NewRedisStore(client, time.Hour))
}

func TestRedisStore_TTL(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	store := NewRedisStore(client, 10*time.Minute)

	require.NoError(t, store.Create(ctx, sampleSession("s1")))
	assert.Equal(t, 10*time.Minute, mr.TTL("session:s1"))

	mr.FastForward(6 * time.Minute)
	_, err := store.Update(ctx, "s1", func(s *Session) error {
		s.Cursor = 2
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, mr.TTL("session:s1"))

	mr.FastForward(11 * time.Minute)
	_, err = store.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_CorruptValue(t *testing.T) {
	mr, client := newTestRedis(t)
	require.NoError(t, mr.Set("session:bad", "{not json"))

	_, err := NewRedisStore(client, time.Hour).Get(context.Background(), "bad")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
