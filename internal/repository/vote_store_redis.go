package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"tally/voteboard/internal/model"
)

const (
	hashFieldUpvotes   = "upvotes"
	hashFieldDownvotes = "downvotes"
	hashFieldActive    = "is_voting_active"
	hashFieldUpdatedAt = "updated_at"
)

type redisVoteStore struct {
	client     *redis.Client
	key        string
	versionKey string
}

// NewRedisVoteStore keeps the record in a single hash. Durability follows the
// server's persistence settings (AOF with appendfsync always for strict durability).
func NewRedisVoteStore(client *redis.Client, key string) VoteStore {
	return &redisVoteStore{
		client:     client,
		key:        key,
		versionKey: key + ":schema_version",
	}
}

func (s *redisVoteStore) Initialize(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreInit, err)
	}

	// HSETNX leaves existing counts alone and backfills the flag on hashes
	// written before it existed.
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, s.key, hashFieldUpvotes, 0)
		pipe.HSetNX(ctx, s.key, hashFieldDownvotes, 0)
		pipe.HSetNX(ctx, s.key, hashFieldActive, "1")
		pipe.HSetNX(ctx, s.key, hashFieldUpdatedAt, nowString())
		pipe.Set(ctx, s.versionKey, model.LatestSchemaVersion, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreInit, err)
	}
	return nil
}

func (s *redisVoteStore) Read(ctx context.Context) (*model.VoteRecord, error) {
	values, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreRead, err)
	}
	rec, err := parseVoteHash(values)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreRead, err)
	}
	return rec, nil
}

func (s *redisVoteStore) ApplyDelta(ctx context.Context, field model.VoteField) (*model.VoteRecord, error) {
	if !field.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return s.mutate(ctx, func(pipe redis.Pipeliner) {
		pipe.HIncrBy(ctx, s.key, string(field), 1)
	})
}

func (s *redisVoteStore) Reset(ctx context.Context) (*model.VoteRecord, error) {
	return s.mutate(ctx, func(pipe redis.Pipeliner) {
		pipe.HSet(ctx, s.key, hashFieldUpvotes, 0, hashFieldDownvotes, 0)
	})
}

func (s *redisVoteStore) SetActive(ctx context.Context, active bool) (*model.VoteRecord, error) {
	flag := "0"
	if active {
		flag = "1"
	}
	return s.mutate(ctx, func(pipe redis.Pipeliner) {
		pipe.HSet(ctx, s.key, hashFieldActive, flag)
	})
}

func (s *redisVoteStore) Close() error {
	return s.client.Close()
}

// mutate wraps the write, the timestamp refresh and a read-back in MULTI/EXEC.
func (s *redisVoteStore) mutate(ctx context.Context, write func(redis.Pipeliner)) (*model.VoteRecord, error) {
	var all *redis.MapStringStringCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		write(pipe)
		pipe.HSet(ctx, s.key, hashFieldUpdatedAt, nowString())
		all = pipe.HGetAll(ctx, s.key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
	rec, err := parseVoteHash(all.Val())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
	return rec, nil
}

func parseVoteHash(values map[string]string) (*model.VoteRecord, error) {
	rec := model.DefaultVoteRecord()
	if len(values) == 0 {
		return &rec, nil
	}

	var err error
	if v, ok := values[hashFieldUpvotes]; ok {
		if rec.Upvotes, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, fmt.Errorf("parse %s: %w", hashFieldUpvotes, err)
		}
	}
	if v, ok := values[hashFieldDownvotes]; ok {
		if rec.Downvotes, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, fmt.Errorf("parse %s: %w", hashFieldDownvotes, err)
		}
	}
	if v, ok := values[hashFieldActive]; ok {
		if rec.IsVotingActive, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("parse %s: %w", hashFieldActive, err)
		}
	}
	if v, ok := values[hashFieldUpdatedAt]; ok {
		if rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, v); err != nil {
			return nil, fmt.Errorf("parse %s: %w", hashFieldUpdatedAt, err)
		}
	}
	return &rec, nil
}

func nowString() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
