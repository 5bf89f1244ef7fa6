package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"tally/voteboard/internal/model"
)

var errRecordMissing = errors.New("vote record missing")

type gormVoteStore struct {
	db       *gorm.DB
	logger   *zap.Logger
	recordID uint
}

// NewGormVoteStore returns a VoteStore backed by any gorm dialect (SQLite or PostgreSQL).
func NewGormVoteStore(db *gorm.DB, logger *zap.Logger) VoteStore {
	return &gormVoteStore{
		db:       db,
		logger:   logger,
		recordID: model.CanonicalVoteID,
	}
}

func (s *gormVoteStore) Initialize(ctx context.Context) error {
	db := s.db.WithContext(ctx)

	applied, err := model.Migrate(db)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreInit, err)
	}
	for _, v := range applied {
		s.logger.Info("schema migration applied", zap.Int("version", v))
	}

	rec, found, err := s.latest(db)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreInit, err)
	}
	if !found {
		rec = model.DefaultVoteRecord()
		if err := db.Create(&rec).Error; err != nil {
			return fmt.Errorf("%w: seed vote record: %w", ErrStoreInit, err)
		}
		s.logger.Info("initial vote record inserted", zap.Uint("id", rec.ID))
	}
	s.recordID = rec.ID
	return nil
}

func (s *gormVoteStore) Read(ctx context.Context) (*model.VoteRecord, error) {
	rec, found, err := s.latest(s.db.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreRead, err)
	}
	if !found {
		rec = model.DefaultVoteRecord()
	}
	return &rec, nil
}

func (s *gormVoteStore) ApplyDelta(ctx context.Context, field model.VoteField) (*model.VoteRecord, error) {
	if !field.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	column := string(field)
	return s.update(ctx, map[string]interface{}{
		column: gorm.Expr(column + " + 1"),
	})
}

func (s *gormVoteStore) Reset(ctx context.Context) (*model.VoteRecord, error) {
	return s.update(ctx, map[string]interface{}{
		"upvotes":   0,
		"downvotes": 0,
	})
}

func (s *gormVoteStore) SetActive(ctx context.Context, active bool) (*model.VoteRecord, error) {
	return s.update(ctx, map[string]interface{}{
		"is_voting_active": active,
	})
}

func (s *gormVoteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// latest returns the most recently updated row.
func (s *gormVoteStore) latest(db *gorm.DB) (model.VoteRecord, bool, error) {
	var recs []model.VoteRecord
	err := db.Order("updated_at DESC").Order("id DESC").Limit(1).Find(&recs).Error
	if err != nil || len(recs) == 0 {
		return model.VoteRecord{}, false, err
	}
	return recs[0], true, nil
}

// update runs the column assignments and re-reads the row in one transaction,
// so the returned record is the one this write produced.
func (s *gormVoteStore) update(ctx context.Context, columns map[string]interface{}) (*model.VoteRecord, error) {
	columns["updated_at"] = time.Now().UTC()

	var rec model.VoteRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.VoteRecord{}).Where("id = ?", s.recordID).UpdateColumns(columns)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errRecordMissing
		}
		return tx.First(&rec, s.recordID).Error
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
	return &rec, nil
}
