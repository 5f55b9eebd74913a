// Package logstore persists probe LogRecords in a local sqlite database.
package logstore

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ssrsss/API-Check/internal/logger"
	"github.com/ssrsss/API-Check/internal/models"
)

// statsWindow bounds how many recent records feed the rolling statistics.
const statsWindow = 500

// Store is a durable, append-only sink for LogRecords. Concurrent Save calls
// from many workers are supported; records are independent appends.
type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

// Open opens (creating if needed) the sqlite database at path and migrates
// the log schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&models.LogRecord{}); err != nil {
		return nil, err
	}

	return &Store{db: db, log: logger.GetLogger()}, nil
}

// Save appends one record. It is best-effort: a persistence failure is logged
// and swallowed so it can never fail the probe that produced the record.
func (s *Store) Save(ctx context.Context, rec *models.LogRecord) {
	if rec.ID == "" {
		rec.ID = ulid.Make().String()
	}
	if rec.Timestamp == 0 {
		rec.Timestamp = time.Now().UnixMilli()
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		s.log.Warn().Err(err).Str("record_id", rec.ID).Msg("failed to persist log record")
	}
}

// Query returns records most recent first, narrowed by the filter.
func (s *Store) Query(ctx context.Context, f models.LogFilter) ([]models.LogRecord, error) {
	q := s.db.WithContext(ctx).Model(&models.LogRecord{}).Order("timestamp desc")
	if f.EndpointID != "" {
		q = q.Where("endpoint_id = ?", f.EndpointID)
	}
	if f.StatusMax > 0 {
		q = q.Where("status_code >= ? AND status_code < ?", f.StatusMin, f.StatusMax)
	}
	if f.ErrorsOnly {
		q = q.Where("status_code < 200 OR status_code >= 300")
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var recs []models.LogRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// Stats computes rolling statistics over the most recent records, not the
// full history. Success means a status code in [200,300).
func (s *Store) Stats(ctx context.Context) (models.LogStats, error) {
	var recent []models.LogRecord
	err := s.db.WithContext(ctx).
		Order("timestamp desc").
		Limit(statsWindow).
		Find(&recent).Error
	if err != nil {
		return models.LogStats{}, err
	}

	var stats models.LogStats
	var latencySum int64
	for _, rec := range recent {
		stats.Total++
		if rec.StatusCode >= 200 && rec.StatusCode < 300 {
			stats.SuccessCount++
		} else {
			stats.ErrorCount++
		}
		latencySum += rec.LatencyMs
	}
	if stats.Total > 0 {
		stats.AvgLatencyMs = latencySum / stats.Total
	}
	return stats, nil
}

// Clear removes all records.
func (s *Store) Clear(ctx context.Context) error {
	return s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.LogRecord{}).Error
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
