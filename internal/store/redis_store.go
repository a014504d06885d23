package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/weiawesome/huddle-sync/internal/domain"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	PoolSize int
}

// NewRedisClient connects and pings with a 5s timeout.
func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// Redis key patterns:
// {prefix}:playback:{room_id}   STRING<json PlaybackState>
// {prefix}:playback:rooms       SET<room_id>   - listening rooms with stored playback
// {prefix}:unread:{user_id}     HASH room_id -> count

// RedisStore implements StateStore.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "sync"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) playbackKey(roomID string) string {
	return fmt.Sprintf("%s:playback:%s", s.prefix, roomID)
}

func (s *RedisStore) playbackIndexKey() string {
	return s.prefix + ":playback:rooms"
}

func (s *RedisStore) unreadKey(userID string) string {
	return fmt.Sprintf("%s:unread:%s", s.prefix, userID)
}

func (s *RedisStore) SavePlayback(ctx context.Context, roomID string, state domain.PlaybackState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal playback state: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.playbackKey(roomID), data, 0)
	pipe.SAdd(ctx, s.playbackIndexKey(), roomID)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) DeletePlayback(ctx context.Context, roomID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.playbackKey(roomID))
	pipe.SRem(ctx, s.playbackIndexKey(), roomID)
	_, err := pipe.Exec(ctx)
	return err
}

// PlaybackRooms lists rooms with stored playback.
func (s *RedisStore) PlaybackRooms(ctx context.Context) ([]string, error) {
	return s.client.SMembers(ctx, s.playbackIndexKey()).Result()
}

func (s *RedisStore) SetUnread(ctx context.Context, userID, roomID string, count int) error {
	return s.client.HSet(ctx, s.unreadKey(userID), roomID, count).Err()
}

// LoadUnread returns the mirrored counters of several users in one round
// trip. Users without counters map to an empty map.
func (s *RedisStore) LoadUnread(ctx context.Context, userIDs []string) (map[string]map[string]int, error) {
	out := make(map[string]map[string]int, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(userIDs))
	for i, userID := range userIDs {
		cmds[i] = pipe.HGetAll(ctx, s.unreadKey(userID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to load unread counters: %w", err)
	}

	for i, userID := range userIDs {
		raw := cmds[i].Val()
		counts := make(map[string]int, len(raw))
		for room, v := range raw {
			n, err := strconv.Atoi(v)
			if err != nil {
				continue
			}
			counts[room] = n
		}
		out[userID] = counts
	}
	return out, nil
}

// Purge removes playback left behind by a previous process. Listening rooms
// cannot outlive the connections in them.
func (s *RedisStore) Purge(ctx context.Context) (int, error) {
	rooms, err := s.PlaybackRooms(ctx)
	if err != nil {
		return 0, err
	}
	for _, id := range rooms {
		if err := s.DeletePlayback(ctx, id); err != nil {
			return 0, err
		}
	}
	return len(rooms), nil
}
