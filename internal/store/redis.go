package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection settings for the shared Redis backend.
type RedisConfig struct {
	Host      string
	Port      string
	Password  string
	DB        int
	KeyPrefix string
}

// LoadRedisConfigFromEnv reads connection settings from the environment.
func LoadRedisConfigFromEnv() RedisConfig {
	return RedisConfig{
		Host:      getEnv("REDIS_HOST", "localhost"),
		Port:      getEnv("REDIS_PORT", "6379"),
		Password:  getEnv("REDIS_PASSWORD", ""),
		DB:        getEnvAsInt("REDIS_DB", 0),
		KeyPrefix: getEnv("DUOLEARN_KEY_PREFIX", "duolearn"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// Redis is the remote shared Store. Each collection is one hash keyed by
// document id; every mutation publishes on the collection's change channel
// so other clients can refresh their snapshots. Read-modify-write updates
// are not transactional, matching the design's accepted last-write-wins
// semantics.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

func NewRedis(cfg RedisConfig) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "duolearn"
	}
	return &Redis{rdb: rdb, prefix: prefix}, nil
}

func (r *Redis) key(collection string) string {
	return r.prefix + ":" + collection
}

func (r *Redis) channel(collection string) string {
	return r.prefix + ":" + collection + ":changed"
}

func (r *Redis) publish(ctx context.Context, collection, id string) {
	// Best-effort: a missed notification only delays the next snapshot.
	_ = r.rdb.Publish(ctx, r.channel(collection), id).Err()
}

func (r *Redis) Get(ctx context.Context, collection, id string) (Fields, error) {
	raw, err := r.rdb.HGet(ctx, r.key(collection), id).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var f Fields
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return nil, err
	}
	return f, nil
}

func (r *Redis) Set(ctx context.Context, collection, id string, doc Fields) error {
	b, err := json.Marshal(resolveTimestamps(doc, r.Now(ctx)))
	if err != nil {
		return err
	}
	if err := r.rdb.HSet(ctx, r.key(collection), id, string(b)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	r.publish(ctx, collection, id)
	return nil
}

func (r *Redis) UpdateFields(ctx context.Context, collection, id string, fields Fields) error {
	cur, err := r.Get(ctx, collection, id)
	if err != nil {
		return err
	}
	for k, v := range resolveTimestamps(fields, r.Now(ctx)) {
		cur[k] = v
	}
	b, err := json.Marshal(cur)
	if err != nil {
		return err
	}
	if err := r.rdb.HSet(ctx, r.key(collection), id, string(b)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	r.publish(ctx, collection, id)
	return nil
}

func (r *Redis) Append(ctx context.Context, collection string, doc Fields) (string, error) {
	id := uuid.NewString()
	if err := r.Set(ctx, collection, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (r *Redis) Delete(ctx context.Context, collection, id string) error {
	n, err := r.rdb.HDel(ctx, r.key(collection), id).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	r.publish(ctx, collection, id)
	return nil
}

func (r *Redis) List(ctx context.Context, collection string) (Snapshot, error) {
	raw, err := r.rdb.HGetAll(ctx, r.key(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	snap := Snapshot{}
	for id, doc := range raw {
		var f Fields
		if err := json.Unmarshal([]byte(doc), &f); err != nil {
			continue
		}
		snap[id] = f
	}
	return snap, nil
}

func (r *Redis) Subscribe(ctx context.Context, collection string) (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	subCtx, cancel := context.WithCancel(ctx)
	pubsub := r.rdb.Subscribe(subCtx, r.channel(collection))

	push := func(snap Snapshot) {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}

	go func() {
		defer close(ch)
		if snap, err := r.List(subCtx, collection); err == nil {
			push(snap)
		}
		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-pubsub.Channel():
				if !ok {
					return
				}
				if snap, err := r.List(subCtx, collection); err == nil {
					push(snap)
				}
			}
		}
	}()

	stop := func() {
		cancel()
		_ = pubsub.Close()
	}
	return ch, stop
}

// Now uses Redis server time so timestamps agree across clients even when
// their local clocks drift.
func (r *Redis) Now(ctx context.Context) time.Time {
	t, err := r.rdb.Time(ctx).Result()
	if err != nil {
		return time.Now()
	}
	return t
}
