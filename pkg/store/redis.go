package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore keeps rendered configs and backups in Redis. Rendered text
// lives at <prefix>:rendered:<device>; each backup at
// <prefix>:backup:<device>:<unixnano>, indexed by a per-device sorted set
// so latest-backup lookup is a single ZREVRANGE.
//
// Operations use a background context: the store outlives no request and
// the CLI process is the unit of cancellation.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisStore connects to the given Redis address.
func NewRedisStore(addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return &RedisStore{client: client, prefix: "reflow", now: time.Now}, nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) renderedKey(device string) string {
	return fmt.Sprintf("%s:rendered:%s", s.prefix, device)
}

func (s *RedisStore) backupKey(device string, nano int64) string {
	return fmt.Sprintf("%s:backup:%s:%d", s.prefix, device, nano)
}

func (s *RedisStore) indexKey(device string) string {
	return fmt.Sprintf("%s:backups:%s", s.prefix, device)
}

// SaveRendered writes the current rendered config, replacing any previous one.
func (s *RedisStore) SaveRendered(device, text string) error {
	return s.client.Set(context.Background(), s.renderedKey(device), text, 0).Err()
}

// ReadRendered returns the current rendered config or ErrNoRendered.
func (s *RedisStore) ReadRendered(device string) (string, error) {
	text, err := s.client.Get(context.Background(), s.renderedKey(device)).Result()
	if err == redis.Nil {
		return "", ErrNoRendered
	}
	if err != nil {
		return "", err
	}
	return text, nil
}

// SaveBackup stores a new backup. SETNX guarantees an existing backup key
// is never overwritten even if two captures land on the same nanosecond.
func (s *RedisStore) SaveBackup(device, text string) (*Backup, error) {
	ctx := context.Background()
	taken := s.now()

	nano := taken.UnixNano()
	key := s.backupKey(device, nano)
	for {
		ok, err := s.client.SetNX(ctx, key, text, 0).Result()
		if err != nil {
			return nil, fmt.Errorf("writing backup for %s: %w", device, err)
		}
		if ok {
			break
		}
		nano++
		key = s.backupKey(device, nano)
	}

	err := s.client.ZAdd(ctx, s.indexKey(device), &redis.Z{
		Score:  float64(nano),
		Member: strconv.FormatInt(nano, 10),
	}).Err()
	if err != nil {
		return nil, fmt.Errorf("indexing backup for %s: %w", device, err)
	}

	return &Backup{Device: device, Text: text, TakenAt: taken}, nil
}

// LatestBackup returns the newest backup for a device, or ErrNoBackup.
func (s *RedisStore) LatestBackup(device string) (*Backup, error) {
	ctx := context.Background()

	members, err := s.client.ZRevRange(ctx, s.indexKey(device), 0, 0).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, ErrNoBackup
	}

	nano, err := strconv.ParseInt(members[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt backup index for %s: %w", device, err)
	}

	text, err := s.client.Get(ctx, s.backupKey(device, nano)).Result()
	if err == redis.Nil {
		return nil, ErrNoBackup
	}
	if err != nil {
		return nil, err
	}

	return &Backup{Device: device, Text: text, TakenAt: time.Unix(0, nano)}, nil
}

// ListBackups returns backup metadata for a device, newest first.
func (s *RedisStore) ListBackups(device string) ([]*Backup, error) {
	members, err := s.client.ZRevRange(context.Background(), s.indexKey(device), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	var backups []*Backup
	for _, m := range members {
		nano, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		backups = append(backups, &Backup{Device: device, TakenAt: time.Unix(0, nano)})
	}
	return backups, nil
}
