package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"shoplist/internal/retry"
	"shoplist/internal/shopping"
)

const (
	defaultListKey = "shoplist:items"

	// optimistic transactions retried on concurrent writers
	maxTxAttempts = 5
	txBackoffBase = 10 * time.Millisecond
)

// RedisStore keeps items as JSON values in a single Redis list.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisClient connects and pings a Redis server.
func NewRedisClient(addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}

func NewRedis(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = defaultListKey
	}
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Add(ctx context.Context, item shopping.Item) error {
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return s.client.RPush(ctx, s.key, data).Err()
}

func (s *RedisStore) Remove(ctx context.Context, id int64) error {
	_, err := s.rewrite(ctx, func(items []shopping.Item) ([]shopping.Item, int) {
		kept := items[:0]
		for _, it := range items {
			if it.ID != id {
				kept = append(kept, it)
			}
		}
		return kept, len(items) - len(kept)
	})
	return err
}

func (s *RedisStore) Update(ctx context.Context, id int64, patch shopping.Patch) (int, error) {
	n, err := s.rewrite(ctx, func(items []shopping.Item) ([]shopping.Item, int) {
		changed := 0
		for i := range items {
			if items[i].ID == id {
				items[i] = patch.Apply(items[i])
				changed++
			}
		}
		return items, changed
	})
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrItemNotFound
	}
	return n, nil
}

func (s *RedisStore) List(ctx context.Context) ([]shopping.Item, error) {
	vals, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	return decodeItems(vals)
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

func (s *RedisStore) Replace(ctx context.Context, items []shopping.Item) error {
	values, err := encodeItems(items)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		s.replaceIn(ctx, pipe, values)
		return nil
	})
	return err
}

func (s *RedisStore) replaceIn(ctx context.Context, pipe redis.Pipeliner, values []any) {
	pipe.Del(ctx, s.key)
	if len(values) > 0 {
		pipe.RPush(ctx, s.key, values...)
	}
}

func (s *RedisStore) genKey() string {
	return s.key + ":generation"
}

func (s *RedisStore) BeginGeneration(ctx context.Context, taskID uuid.UUID, event string) (Generation, error) {
	var gen Generation
	err := s.watch(ctx, func(tx *redis.Tx) error {
		latest, _, err := readGeneration(ctx, tx, s.genKey())
		if err != nil {
			return err
		}
		gen = Generation{Seq: latest.Seq + 1, TaskID: taskID, Event: event, State: GenerationSending}
		return s.writeGeneration(ctx, tx, gen, nil)
	}, s.genKey())
	if err != nil {
		return Generation{}, err
	}
	return gen, nil
}

func (s *RedisStore) CommitGeneration(ctx context.Context, seq int64, items []shopping.Item) error {
	values, err := encodeItems(items)
	if err != nil {
		return err
	}
	return s.watch(ctx, func(tx *redis.Tx) error {
		latest, _, err := readGeneration(ctx, tx, s.genKey())
		if err != nil {
			return err
		}
		if err := checkCommit(latest, seq); err != nil {
			return err
		}
		latest.State = GenerationSucceeded
		return s.writeGeneration(ctx, tx, latest, values)
	}, s.genKey(), s.key)
}

func (s *RedisStore) FinishGeneration(ctx context.Context, seq int64, state, message string) error {
	return s.watch(ctx, func(tx *redis.Tx) error {
		latest, _, err := readGeneration(ctx, tx, s.genKey())
		if err != nil {
			return err
		}
		if checkCommit(latest, seq) != nil {
			return nil
		}
		latest.State, latest.Error = state, message
		return s.writeGeneration(ctx, tx, latest, nil)
	}, s.genKey())
}

func (s *RedisStore) CancelGeneration(ctx context.Context) (Generation, bool, error) {
	var (
		gen      Generation
		canceled bool
	)
	err := s.watch(ctx, func(tx *redis.Tx) error {
		latest, ok, err := readGeneration(ctx, tx, s.genKey())
		if err != nil {
			return err
		}
		gen, canceled = latest, false
		if !ok || latest.State != GenerationSending {
			return nil
		}
		gen.State, canceled = GenerationCanceled, true
		return s.writeGeneration(ctx, tx, gen, nil)
	}, s.genKey())
	if err != nil {
		return Generation{}, false, err
	}
	return gen, canceled, nil
}

func (s *RedisStore) CurrentGeneration(ctx context.Context) (Generation, bool, error) {
	return readGeneration(ctx, s.client, s.genKey())
}

// writeGeneration stores gen, and replaces the list with values when they are
// non-nil, in one MULTI block.
func (s *RedisStore) writeGeneration(ctx context.Context, tx *redis.Tx, gen Generation, values []any) error {
	data, err := json.Marshal(gen)
	if err != nil {
		return err
	}
	_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if values != nil {
			s.replaceIn(ctx, pipe, values)
		}
		pipe.Set(ctx, s.genKey(), data, 0)
		return nil
	})
	return err
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readGeneration(ctx context.Context, c stringGetter, key string) (Generation, bool, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Generation{}, false, nil
	}
	if err != nil {
		return Generation{}, false, err
	}
	var gen Generation
	if err := json.Unmarshal(raw, &gen); err != nil {
		return Generation{}, false, fmt.Errorf("failed to decode generation: %w", err)
	}
	return gen, true, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// rewrite reads the whole list, lets fn edit it and writes it back under
// WATCH. fn reports how many items it touched; nothing is written when zero.
func (s *RedisStore) rewrite(ctx context.Context, fn func([]shopping.Item) ([]shopping.Item, int)) (int, error) {
	var touched int
	txf := func(tx *redis.Tx) error {
		vals, err := tx.LRange(ctx, s.key, 0, -1).Result()
		if err != nil {
			return err
		}
		items, err := decodeItems(vals)
		if err != nil {
			return err
		}
		var out []shopping.Item
		out, touched = fn(items)
		if touched == 0 {
			return nil
		}
		values, err := encodeItems(out)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			s.replaceIn(ctx, pipe, values)
			return nil
		})
		return err
	}

	if err := s.watch(ctx, txf, s.key); err != nil {
		return 0, err
	}
	return touched, nil
}

// watch runs txf under WATCH on keys, retrying with backoff when another
// writer touched them first. Errors from txf itself are returned as is.
func (s *RedisStore) watch(ctx context.Context, txf func(*redis.Tx) error, keys ...string) error {
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retry.ExponentialBackoff(attempt, txBackoffBase)):
		}
	}
	return fmt.Errorf("redis list %s: too many concurrent writers", s.key)
}

func decodeItems(vals []string) ([]shopping.Item, error) {
	items := make([]shopping.Item, 0, len(vals))
	for _, v := range vals {
		var it shopping.Item
		if err := json.Unmarshal([]byte(v), &it); err != nil {
			return nil, fmt.Errorf("failed to decode item: %w", err)
		}
		items = append(items, it)
	}
	return items, nil
}

func encodeItems(items []shopping.Item) ([]any, error) {
	values := make([]any, 0, len(items))
	for _, it := range items {
		data, err := json.Marshal(it)
		if err != nil {
			return nil, err
		}
		values = append(values, data)
	}
	return values, nil
}
