package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Conceptual-Machines/bachgen/internal/models"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, Migrate(db))
	return NewStore(db)
}

func composition(form string, seed uint32, key string) *models.Composition {
	return &models.Composition{
		Form:      form,
		Key:       "D minor",
		Seed:      seed,
		ConfigKey: key,
		Request:   models.GenerationRequest{Form: form, Seed: seed, TotalBars: 24},
		NoteCount: 100,
		Success:   true,
		MIDI:      []byte("MThd"),
	}
}

func TestSaveAndGet(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	c := composition("toccata", 42, "k1")
	require.NoError(t, s.Save(ctx, c))
	assert.NotEmpty(t, c.ID)

	got, err := s.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "toccata", got.Form)
	assert.Equal(t, uint32(42), got.Seed)
	assert.Equal(t, 24, got.Request.TotalBars)
	assert.Equal(t, []byte("MThd"), got.MIDI)
}

func TestGetMissing(t *testing.T) {
	s := setupStore(t)
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindByConfigKeyReturnsNewest(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	old := composition("goldberg", 1, "same")
	old.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, s.Save(ctx, old))
	fresh := composition("goldberg", 1, "same")
	require.NoError(t, s.Save(ctx, fresh))

	got, err := s.FindByConfigKey(ctx, "same")
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, got.ID)

	_, err = s.FindByConfigKey(ctx, "other")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListFiltersByForm(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, composition("goldberg", 1, "a")))
	require.NoError(t, s.Save(ctx, composition("toccata", 2, "b")))
	require.NoError(t, s.Save(ctx, composition("toccata", 3, "c")))

	all, err := s.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	toccatas, err := s.List(ctx, "toccata", 10)
	require.NoError(t, err)
	assert.Len(t, toccatas, 2)
	for _, c := range toccatas {
		assert.Empty(t, c.MIDI)
		assert.Equal(t, 100, c.NoteCount)
		assert.NotEmpty(t, c.ID)
	}

	full, err := s.Get(ctx, toccatas[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("MThd"), full.MIDI)
}

func TestStoresAreIsolated(t *testing.T) {
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		s := setupStore(t)
		require.NoError(t, s.Save(ctx, composition("goldberg", 1, "a")))
		all, err := s.List(ctx, "", 0)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	}
}

func TestDelete(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	c := composition("toccata", 5, "d")
	require.NoError(t, s.Save(ctx, c))

	require.NoError(t, s.Delete(ctx, c.ID))
	_, err := s.Get(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, c.ID), ErrNotFound)
}
