package repository

import (
	"context"
	"errors"

	"tally/voteboard/internal/model"
)

var (
	ErrStoreInit    = errors.New("vote store initialization failed")
	ErrStoreRead    = errors.New("vote store read failed")
	ErrStoreWrite   = errors.New("vote store write failed")
	ErrUnknownField = errors.New("unknown vote field")
)

// VoteStore persists the single VoteRecord. Every mutating call is committed
// before it returns and answers with the post-update record.
// Implementations: gorm (SQLite / PostgreSQL) or Redis.
type VoteStore interface {
	// Initialize migrates the schema and seeds the record if the store is empty.
	// It must finish before the store is shared between goroutines.
	Initialize(ctx context.Context) error
	Read(ctx context.Context) (*model.VoteRecord, error)
	// ApplyDelta increments the named counter by one, computed by the store itself.
	ApplyDelta(ctx context.Context, field model.VoteField) (*model.VoteRecord, error)
	Reset(ctx context.Context) (*model.VoteRecord, error)
	SetActive(ctx context.Context, active bool) (*model.VoteRecord, error)
	Close() error
}
