package checkpoints

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
	backend "github.com/redis/go-redis/v9"

	"github.com/avi3tal/pregel/pkg/types"
)

const defaultPrefix = "pregel:checkpoint:"

// RedisStore implements types.CheckpointStore using Redis. Each key holds
// the JSON checkpoint; a sorted set per graph indexes its threads.
type RedisStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type RedisOption func(*RedisStore)

// WithTTL sets the expiration for checkpoints.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for checkpoints.
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore connects to the Redis server at address.
func NewRedisStore(address, password string, db int, opts ...RedisOption) *RedisStore {
	return NewRedisStoreFromClient(backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	}), opts...)
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *backend.Client, opts ...RedisOption) *RedisStore {
	store := &RedisStore{
		client: client,
		prefix: defaultPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *RedisStore) key(key types.CheckpointKey) string {
	return s.prefix + key.String()
}

func (s *RedisStore) indexKey(graphID string) string {
	return s.prefix + "index:" + graphID
}

func (s *RedisStore) Save(ctx context.Context, checkpoint types.Checkpoint) error {
	checkpoint.Meta.UpdatedAt = time.Now()
	data, err := json.Marshal(checkpoint)
	if err != nil {
		return errors.Wrap(err, "marshal checkpoint")
	}

	// Score is the expiry time so List can prune lazily
	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(checkpoint.Key), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(checkpoint.Key.GraphID), backend.Z{
		Score:  score,
		Member: checkpoint.Key.ThreadID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "save checkpoint to redis")
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, key types.CheckpointKey) (*types.Checkpoint, error) {
	val, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, errors.Wrapf(ErrCheckpointNotFound, "key %s", key)
		}
		return nil, errors.Wrap(err, "get checkpoint from redis")
	}

	var cp types.Checkpoint
	if err := json.Unmarshal(val, &cp); err != nil {
		return nil, errors.Wrap(err, "unmarshal checkpoint")
	}
	return &cp, nil
}

func (s *RedisStore) Delete(ctx context.Context, key types.CheckpointKey) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(key))
	pipe.ZRem(ctx, s.indexKey(key.GraphID), key.ThreadID)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "delete checkpoint from redis")
	}
	return nil
}

// List returns the live keys for graphID ordered by thread, pruning expired
// index entries.
func (s *RedisStore) List(ctx context.Context, graphID string) ([]types.CheckpointKey, error) {
	now := strconv.FormatInt(time.Now().Unix(), 10)
	index := s.indexKey(graphID)
	if err := s.client.ZRemRangeByScore(ctx, index, "-inf", now).Err(); err != nil {
		return nil, errors.Wrap(err, "prune expired checkpoints")
	}

	threads, err := s.client.ZRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "list checkpoints")
	}
	keys := make([]types.CheckpointKey, 0, len(threads))
	for _, thread := range threads {
		keys = append(keys, types.CheckpointKey{GraphID: graphID, ThreadID: thread})
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].ThreadID < keys[j].ThreadID })
	return keys, nil
}

// Close closes the redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
