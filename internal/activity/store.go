// Package activity records the audit trail of state-changing actions.
package activity

import (
	"context"
	"fmt"
	"time"

	"fixmycity/backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Store persists and queries activity records.
type Store interface {
	Save(ctx context.Context, rec *models.ActivityRecord) error
	List(ctx context.Context, f Filter, page, limit int) ([]models.ActivityRecord, int64, error)
}

// Filter narrows activity listings. Zero fields are ignored.
type Filter struct {
	ActorKind models.PrincipalKind
	ActorID   string
	Action    string
	TargetID  string
	Success   *bool
	From      *time.Time
	To        *time.Time
}

// GormStore is the PostgreSQL implementation of Store.
type GormStore struct {
	DB *gorm.DB
}

// Open connects to PostgreSQL and migrates the activity table.
func Open(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := db.AutoMigrate(&models.ActivityRecord{}); err != nil {
		return nil, fmt.Errorf("migrate activity records: %w", err)
	}
	return NewGormStore(db), nil
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) Save(ctx context.Context, rec *models.ActivityRecord) error {
	return s.DB.WithContext(ctx).Create(rec).Error
}

// List returns one page of records, newest first.
func (s *GormStore) List(ctx context.Context, f Filter, page, limit int) ([]models.ActivityRecord, int64, error) {
	q := s.DB.WithContext(ctx).Model(&models.ActivityRecord{})
	if f.ActorKind != "" {
		q = q.Where("actor_kind = ?", f.ActorKind)
	}
	if f.ActorID != "" {
		q = q.Where("actor_id = ?", f.ActorID)
	}
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	if f.TargetID != "" {
		q = q.Where("target_id = ?", f.TargetID)
	}
	if f.Success != nil {
		q = q.Where("success = ?", *f.Success)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	records := []models.ActivityRecord{}
	err := q.Order("created_at desc, id desc").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}
