package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/bachgen/internal/generator"
)

type memStore struct {
	data map[string][]byte
	ttl  map[string]time.Duration
	err  error
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}, ttl: map[string]time.Duration{}}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	b, ok := m.data[key]
	if !ok {
		return nil, ErrMiss
	}
	return b, nil
}

func (m *memStore) SetEx(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	m.ttl[key] = ttl
	return nil
}

func (m *memStore) Close() error { return nil }

func TestKeyIsStable(t *testing.T) {
	cfg := generator.DefaultToccataConfig()
	a, err := Key("toccata", cfg.Seed, cfg)
	require.NoError(t, err)
	b, err := Key("toccata", cfg.Seed, cfg)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Contains(t, a, "bachgen:work:toccata:")

	cfg.TotalBars++
	c, err := Key("toccata", cfg.Seed, cfg)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestUnseededConfigsAreNotCached(t *testing.T) {
	cfg := generator.DefaultToccataConfig()
	cfg.Seed = 0
	k, err := Key("toccata", cfg.Seed, cfg)
	require.NoError(t, err)
	assert.Empty(t, k)

	store := newMemStore()
	c := New(store, time.Hour)
	c.Put(context.Background(), k, &generator.Result{Success: true})
	assert.Empty(t, store.data)
}

func TestPutThenGet(t *testing.T) {
	ctx := context.Background()
	cfg := generator.DefaultToccataConfig()
	cfg.TotalBars = 8
	res, err := generator.GenerateToccata(ctx, cfg)
	require.NoError(t, err)

	store := newMemStore()
	c := New(store, 2*time.Hour)
	key, err := Key("toccata", cfg.Seed, cfg)
	require.NoError(t, err)

	_, err = c.Get(ctx, key)
	assert.ErrorIs(t, err, ErrMiss)

	c.Put(ctx, key, res)
	assert.Equal(t, 2*time.Hour, store.ttl[key])

	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, res.Notes(), got.Notes())
	assert.Equal(t, res.Phases, got.Phases)
	assert.Equal(t, res.TotalDuration, got.TotalDuration)
	assert.Equal(t, res.Seed, got.Seed)
}

func TestFailedResultsAreNotCached(t *testing.T) {
	store := newMemStore()
	c := New(store, time.Hour)
	c.Put(context.Background(), "k", &generator.Result{Success: false})
	assert.Empty(t, store.data)
}

func TestWriteErrorsAreSwallowed(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("connection refused")
	c := New(store, time.Hour)
	c.Put(context.Background(), "k", &generator.Result{Success: true})
	assert.Empty(t, store.data)
}

func TestNilCacheNeverHits(t *testing.T) {
	var c *Cache
	_, err := c.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrMiss)
	c.Put(context.Background(), "k", &generator.Result{Success: true})
	assert.NoError(t, c.Close())
}

func TestCorruptEntry(t *testing.T) {
	store := newMemStore()
	store.data["k"] = []byte("{not json")
	_, err := New(store, time.Hour).Get(context.Background(), "k")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMiss))
}
