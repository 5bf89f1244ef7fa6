package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	qt "github.com/frankban/quicktest"
	"github.com/redis/go-redis/v9"

	"tally/voteboard/internal/model"
)

const testKey = "voteboard:test:votes"

func newRedisStore(c *qt.C) (*redisVoteStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(c.TB)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisVoteStore(client, testKey).(*redisVoteStore)
	c.Cleanup(func() { store.Close() })
	return store, mr
}

func TestRedisVoteStore(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	c.Run("Initialize seeds the hash and version", func(c *qt.C) {
		store, mr := newRedisStore(c)
		c.Assert(store.Initialize(ctx), qt.IsNil)

		rec, err := store.Read(ctx)
		c.Assert(err, qt.IsNil)
		c.Assert(rec.Upvotes, qt.Equals, int64(0))
		c.Assert(rec.Downvotes, qt.Equals, int64(0))
		c.Assert(rec.IsVotingActive, qt.IsTrue)

		version, err := mr.Get(testKey + ":schema_version")
		c.Assert(err, qt.IsNil)
		c.Assert(version, qt.Equals, "2")
	})

	c.Run("Initialize backfills the flag on a legacy hash", func(c *qt.C) {
		store, mr := newRedisStore(c)
		mr.HSet(testKey, "upvotes", "9", "downvotes", "4")

		c.Assert(store.Initialize(ctx), qt.IsNil)
		c.Assert(store.Initialize(ctx), qt.IsNil)

		rec, err := store.Read(ctx)
		c.Assert(err, qt.IsNil)
		c.Assert(rec.Upvotes, qt.Equals, int64(9))
		c.Assert(rec.Downvotes, qt.Equals, int64(4))
		c.Assert(rec.IsVotingActive, qt.IsTrue)
	})

	c.Run("Initialize keeps a stored false", func(c *qt.C) {
		store, _ := newRedisStore(c)
		c.Assert(store.Initialize(ctx), qt.IsNil)
		_, err := store.SetActive(ctx, false)
		c.Assert(err, qt.IsNil)

		c.Assert(store.Initialize(ctx), qt.IsNil)

		rec, err := store.Read(ctx)
		c.Assert(err, qt.IsNil)
		c.Assert(rec.IsVotingActive, qt.IsFalse)
	})

	c.Run("concurrent increments are not lost", func(c *qt.C) {
		store, _ := newRedisStore(c)
		c.Assert(store.Initialize(ctx), qt.IsNil)

		const n = 50
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				store.ApplyDelta(ctx, model.VoteFieldDownvotes)
			}()
		}
		wg.Wait()

		rec, err := store.Read(ctx)
		c.Assert(err, qt.IsNil)
		c.Assert(rec.Downvotes, qt.Equals, int64(n))
	})

	c.Run("mutations return the post-update record", func(c *qt.C) {
		store, _ := newRedisStore(c)
		c.Assert(store.Initialize(ctx), qt.IsNil)

		rec, err := store.ApplyDelta(ctx, model.VoteFieldUpvotes)
		c.Assert(err, qt.IsNil)
		c.Assert(rec.Upvotes, qt.Equals, int64(1))
		c.Assert(rec.UpdatedAt.IsZero(), qt.IsFalse)

		rec, err = store.SetActive(ctx, false)
		c.Assert(err, qt.IsNil)
		c.Assert(rec.IsVotingActive, qt.IsFalse)
		c.Assert(rec.Upvotes, qt.Equals, int64(1))

		rec, err = store.Reset(ctx)
		c.Assert(err, qt.IsNil)
		c.Assert(rec.Upvotes, qt.Equals, int64(0))
		c.Assert(rec.Downvotes, qt.Equals, int64(0))
		c.Assert(rec.IsVotingActive, qt.IsFalse)
	})

	c.Run("Read on an empty hash returns defaults", func(c *qt.C) {
		store, _ := newRedisStore(c)

		rec, err := store.Read(ctx)
		c.Assert(err, qt.IsNil)
		c.Assert(*rec, qt.DeepEquals, model.DefaultVoteRecord())
	})

	c.Run("ApplyDelta rejects unknown fields", func(c *qt.C) {
		store, _ := newRedisStore(c)
		_, err := store.ApplyDelta(ctx, model.VoteField("updated_at"))
		c.Assert(err, qt.ErrorIs, ErrUnknownField)
	})

	c.Run("unreachable server", func(c *qt.C) {
		store, mr := newRedisStore(c)
		c.Assert(store.Initialize(ctx), qt.IsNil)
		mr.Close()

		_, err := store.Read(ctx)
		c.Assert(err, qt.ErrorIs, ErrStoreRead)
		_, err = store.ApplyDelta(ctx, model.VoteFieldUpvotes)
		c.Assert(err, qt.ErrorIs, ErrStoreWrite)
		c.Assert(store.Initialize(ctx), qt.ErrorIs, ErrStoreInit)
	})
}
