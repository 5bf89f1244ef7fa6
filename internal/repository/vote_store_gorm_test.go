package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tally/voteboard/internal/config"
	"tally/voteboard/internal/model"
)

func newSQLiteStore(c *qt.C) (*gormVoteStore, *gorm.DB) {
	db, err := config.NewSQLiteDB(config.SQLiteConfig{
		Path:        filepath.Join(c.TempDir(), "votes.sqlite"),
		BusyTimeout: 5 * time.Second,
	})
	c.Assert(err, qt.IsNil)

	store := NewGormVoteStore(db, zap.NewNop()).(*gormVoteStore)
	c.Cleanup(func() { store.Close() })
	return store, db
}

func TestGormVoteStore(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	c.Run("Initialize seeds a single active record", func(c *qt.C) {
		store, db := newSQLiteStore(c)
		c.Assert(store.Initialize(ctx), qt.IsNil)

		rec, err := store.Read(ctx)
		c.Assert(err, qt.IsNil)
		c.Assert(rec.Upvotes, qt.Equals, int64(0))
		c.Assert(rec.Downvotes, qt.Equals, int64(0))
		c.Assert(rec.IsVotingActive, qt.IsTrue)

		var count int64
		c.Assert(db.Model(&model.VoteRecord{}).Count(&count).Error, qt.IsNil)
		c.Assert(count, qt.Equals, int64(1))
	})

	c.Run("Initialize twice keeps values", func(c *qt.C) {
		store, db := newSQLiteStore(c)
		c.Assert(store.Initialize(ctx), qt.IsNil)
		_, err := store.ApplyDelta(ctx, model.VoteFieldUpvotes)
		c.Assert(err, qt.IsNil)
		_, err = store.SetActive(ctx, false)
		c.Assert(err, qt.IsNil)

		c.Assert(store.Initialize(ctx), qt.IsNil)

		rec, err := store.Read(ctx)
		c.Assert(err, qt.IsNil)
		c.Assert(rec.Upvotes, qt.Equals, int64(1))
		c.Assert(rec.IsVotingActive, qt.IsFalse)

		var count int64
		c.Assert(db.Model(&model.VoteRecord{}).Count(&count).Error, qt.IsNil)
		c.Assert(count, qt.Equals, int64(1))
	})

	c.Run("Initialize upgrades a legacy table in place", func(c *qt.C) {
		store, db := newSQLiteStore(c)
		c.Assert(db.Exec(`CREATE TABLE votes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			upvotes INTEGER DEFAULT 0,
			downvotes INTEGER DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`).Error, qt.IsNil)
		c.Assert(db.Exec("INSERT INTO votes (upvotes, downvotes) VALUES (12, 4)").Error, qt.IsNil)

		c.Assert(store.Initialize(ctx), qt.IsNil)

		rec, err := store.Read(ctx)
		c.Assert(err, qt.IsNil)
		c.Assert(rec.Upvotes, qt.Equals, int64(12))
		c.Assert(rec.Downvotes, qt.Equals, int64(4))
		c.Assert(rec.IsVotingActive, qt.IsTrue)

		rec, err = store.ApplyDelta(ctx, model.VoteFieldDownvotes)
		c.Assert(err, qt.IsNil)
		c.Assert(rec.Downvotes, qt.Equals, int64(5))
	})

	c.Run("concurrent increments are not lost", func(c *qt.C) {
		store, _ := newSQLiteStore(c)
		c.Assert(store.Initialize(ctx), qt.IsNil)

		const n = 50
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := store.ApplyDelta(ctx, model.VoteFieldUpvotes); err != nil {
					errs <- err
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			c.Assert(err, qt.IsNil)
		}

		rec, err := store.Read(ctx)
		c.Assert(err, qt.IsNil)
		c.Assert(rec.Upvotes, qt.Equals, int64(n))
		c.Assert(rec.Downvotes, qt.Equals, int64(0))
	})

	c.Run("ApplyDelta returns the post-update record", func(c *qt.C) {
		store, _ := newSQLiteStore(c)
		c.Assert(store.Initialize(ctx), qt.IsNil)

		before, err := store.Read(ctx)
		c.Assert(err, qt.IsNil)

		rec, err := store.ApplyDelta(ctx, model.VoteFieldDownvotes)
		c.Assert(err, qt.IsNil)
		c.Assert(rec.Downvotes, qt.Equals, int64(1))
		c.Assert(rec.Upvotes, qt.Equals, int64(0))
		c.Assert(rec.UpdatedAt.Before(before.UpdatedAt), qt.IsFalse)
	})

	c.Run("ApplyDelta rejects unknown fields", func(c *qt.C) {
		store, _ := newSQLiteStore(c)
		c.Assert(store.Initialize(ctx), qt.IsNil)

		_, err := store.ApplyDelta(ctx, model.VoteField("id"))
		c.Assert(err, qt.ErrorIs, ErrUnknownField)
	})

	c.Run("Reset zeroes counters and keeps the flag", func(c *qt.C) {
		store, _ := newSQLiteStore(c)
		c.Assert(store.Initialize(ctx), qt.IsNil)
		for i := 0; i < 3; i++ {
			_, err := store.ApplyDelta(ctx, model.VoteFieldUpvotes)
			c.Assert(err, qt.IsNil)
			_, err = store.ApplyDelta(ctx, model.VoteFieldDownvotes)
			c.Assert(err, qt.IsNil)
		}
		_, err := store.SetActive(ctx, false)
		c.Assert(err, qt.IsNil)

		rec, err := store.Reset(ctx)
		c.Assert(err, qt.IsNil)
		c.Assert(rec.Upvotes, qt.Equals, int64(0))
		c.Assert(rec.Downvotes, qt.Equals, int64(0))
		c.Assert(rec.IsVotingActive, qt.IsFalse)
	})

	c.Run("SetActive round trip", func(c *qt.C) {
		store, _ := newSQLiteStore(c)
		c.Assert(store.Initialize(ctx), qt.IsNil)

		for _, active := range []bool{false, true, false} {
			rec, err := store.SetActive(ctx, active)
			c.Assert(err, qt.IsNil)
			c.Assert(rec.IsVotingActive, qt.Equals, active)

			rec, err = store.Read(ctx)
			c.Assert(err, qt.IsNil)
			c.Assert(rec.IsVotingActive, qt.Equals, active)
		}
	})

	c.Run("Read falls back to defaults when the row is gone", func(c *qt.C) {
		store, db := newSQLiteStore(c)
		c.Assert(store.Initialize(ctx), qt.IsNil)
		c.Assert(db.Exec("DELETE FROM votes").Error, qt.IsNil)

		rec, err := store.Read(ctx)
		c.Assert(err, qt.IsNil)
		c.Assert(*rec, qt.DeepEquals, model.DefaultVoteRecord())

		_, err = store.ApplyDelta(ctx, model.VoteFieldUpvotes)
		c.Assert(err, qt.ErrorIs, ErrStoreWrite)
	})

	c.Run("errors after close carry the store kind", func(c *qt.C) {
		store, _ := newSQLiteStore(c)
		c.Assert(store.Initialize(ctx), qt.IsNil)
		c.Assert(store.Close(), qt.IsNil)

		_, err := store.Read(ctx)
		c.Assert(err, qt.ErrorIs, ErrStoreRead)
		_, err = store.Reset(ctx)
		c.Assert(err, qt.ErrorIs, ErrStoreWrite)
		c.Assert(store.Initialize(ctx), qt.ErrorIs, ErrStoreInit)
	})
}
