package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/soaringjerry/gradtrack/internal/kv"
)

// A hash holding a version but no value is a tombstone left by Delete.
const setScript = `
local v = redis.call("HINCRBY", KEYS[1], "version", 1)
redis.call("HSET", KEYS[1], "value", ARGV[1])
return v
`

// ARGV[2] is the expected version; 0 means the key must be absent.
const compareAndSetScript = `
local cur = tonumber(redis.call("HGET", KEYS[1], "version") or "0")
if cur ~= tonumber(ARGV[2]) then
  return -1
end
local v = redis.call("HINCRBY", KEYS[1], "version", 1)
redis.call("HSET", KEYS[1], "value", ARGV[1])
return v
`

const deleteScript = `
if redis.call("HEXISTS", KEYS[1], "value") == 0 then
  return 0
end
redis.call("HDEL", KEYS[1], "value")
return redis.call("HINCRBY", KEYS[1], "version", 1)
`

// RedisStore keeps each entry in a hash {value, version} and announces writes on a
// pub/sub channel so separate server processes observe each other.
type RedisStore struct {
	client *redis.Client
	prefix string
	set    *redis.Script
	cas    *redis.Script
	del    *redis.Script
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if client == nil {
		return nil
	}
	if prefix == "" {
		prefix = "gradtrack"
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		set:    redis.NewScript(setScript),
		cas:    redis.NewScript(compareAndSetScript),
		del:    redis.NewScript(deleteScript),
	}
}

// OpenRedis parses url ("redis://..." or a bare host:port) and pings the server.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	if !strings.Contains(url, "://") {
		url = "redis://" + url
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (s *RedisStore) key(k string) string { return s.prefix + ":kv:" + k }

func (s *RedisStore) channel() string { return s.prefix + ":events" }

func (s *RedisStore) Get(ctx context.Context, key string) (kv.Entry, bool, error) {
	var rec struct {
		Value   string `redis:"value"`
		Version int64  `redis:"version"`
	}
	cmd := s.client.HGetAll(ctx, s.key(key))
	if err := cmd.Err(); err != nil {
		log.Printf("redis store: get %s: %v", key, err)
		return kv.Entry{}, false, err
	}
	if len(cmd.Val()) == 0 {
		return kv.Entry{}, false, nil
	}
	if err := cmd.Scan(&rec); err != nil {
		return kv.Entry{}, false, fmt.Errorf("scan %s: %w", key, err)
	}
	if _, ok := cmd.Val()["value"]; !ok {
		return kv.Entry{Version: rec.Version}, false, nil
	}
	return kv.Entry{Value: rec.Value, Version: rec.Version}, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) (int64, error) {
	v, err := s.set.Run(ctx, s.client, []string{s.key(key)}, value).Int64()
	if err != nil {
		log.Printf("redis store: set %s: %v", key, err)
		return 0, err
	}
	return v, nil
}

func (s *RedisStore) CompareAndSet(ctx context.Context, key, value string, version int64) (int64, error) {
	v, err := s.cas.Run(ctx, s.client, []string{s.key(key)}, value, version).Int64()
	if err != nil {
		log.Printf("redis store: compare-and-set %s: %v", key, err)
		return 0, err
	}
	if v < 0 {
		return 0, kv.ErrVersionConflict
	}
	return v, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.del.Run(ctx, s.client, []string{s.key(key)}).Err(); err != nil {
		log.Printf("redis store: delete %s: %v", key, err)
		return err
	}
	return nil
}

// Keys lists stored keys without the prefix. Tombstones are skipped.
func (s *RedisStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	pfx := s.key("")
	iter := s.client.Scan(ctx, 0, pfx+"*", 100).Iterator()
	for iter.Next(ctx) {
		live, err := s.client.HExists(ctx, iter.Val(), "value").Result()
		if err != nil {
			return nil, err
		}
		if live {
			keys = append(keys, strings.TrimPrefix(iter.Val(), pfx))
		}
	}
	return keys, iter.Err()
}

// Publish implements kv.Notifier.
func (s *RedisStore) Publish(ctx context.Context, ev kv.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, s.channel(), b).Err()
}

// Subscribe implements kv.Notifier. Events carrying origin are skipped; the channel
// closes when ctx ends.
func (s *RedisStore) Subscribe(ctx context.Context, origin string) (<-chan kv.Event, error) {
	sub := s.client.Subscribe(ctx, s.channel())
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		if errors.Is(err, redis.ErrClosed) {
			return nil, kv.ErrClosed
		}
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	out := make(chan kv.Event, 16)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev kv.Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Printf("redis store: bad event payload: %v", err)
					continue
				}
				if origin != "" && ev.Origin == origin {
					continue
				}
				select {
				case out <- ev:
				default:
				}
			}
		}
	}()
	return out, nil
}

var (
	_ kv.Store    = (*RedisStore)(nil)
	_ kv.Notifier = (*RedisStore)(nil)
)
