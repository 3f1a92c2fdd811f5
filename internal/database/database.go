// Package database archives generated compositions in Postgres.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Conceptual-Machines/bachgen/internal/logger"
	"github.com/Conceptual-Machines/bachgen/internal/models"
)

// ErrNotFound is returned when no composition matches.
var ErrNotFound = errors.New("composition not found")

// Open connects to Postgres and configures the pool.
func Open(databaseURL string, development bool) (*gorm.DB, error) {
	gl := gormlogger.Default.LogMode(gormlogger.Warn)
	if development {
		gl = gormlogger.Default.LogMode(gormlogger.Info)
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: gl,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(time.Hour)

	logger.Info("Database connected", nil)
	return db, nil
}

// Migrate creates or updates the archive tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Composition{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Store reads and writes compositions.
type Store struct {
	db *gorm.DB
}

// NewStore returns a store over db.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Save inserts c, assigning an ID when it has none.
func (s *Store) Save(ctx context.Context, c *models.Composition) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("failed to save composition: %w", err)
	}
	return nil
}

// Get loads a composition by ID, MIDI bytes included.
func (s *Store) Get(ctx context.Context, id string) (*models.Composition, error) {
	var c models.Composition
	err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load composition: %w", err)
	}
	return &c, nil
}

// FindByConfigKey returns the newest composition rendered from the
// configuration hashed as key.
func (s *Store) FindByConfigKey(ctx context.Context, key string) (*models.Composition, error) {
	var c models.Composition
	err := s.db.WithContext(ctx).
		Where("config_key = ?", key).
		Order("created_at DESC").
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load composition: %w", err)
	}
	return &c, nil
}

// List returns the newest compositions without their MIDI payloads,
// optionally filtered by form.
func (s *Store) List(ctx context.Context, form string, limit int) ([]models.Composition, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	q := s.db.WithContext(ctx).Omit("midi").Order("created_at DESC").Limit(limit)
	if form != "" {
		q = q.Where("form = ?", form)
	}
	var out []models.Composition
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list compositions: %w", err)
	}
	return out, nil
}

// Delete soft-deletes a composition.
func (s *Store) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.Composition{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete composition: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
