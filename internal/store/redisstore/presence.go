package redisstore

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store tracks user presence: a TTL'd online key refreshed on every
// authenticated request, and a persistent last-seen timestamp.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(addr, password string, db int, ttl time.Duration) *Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Store{rdb: rdb, ttl: ttl}
}

func onlineKey(userID string) string   { return "presence:online:" + userID }
func lastSeenKey(userID string) string { return "presence:last_seen:" + userID }

func (s *Store) Touch(ctx context.Context, userID string) error {
	now := time.Now()
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, onlineKey(userID), "1", s.ttl)
	pipe.Set(ctx, lastSeenKey(userID), strconv.FormatInt(now.Unix(), 10), 0)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Store) IsOnline(ctx context.Context, userID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, onlineKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type Presence struct {
	Online   bool
	LastSeen time.Time
}

// Snapshot fetches presence for a batch of users in one round trip.
func (s *Store) Snapshot(ctx context.Context, userIDs []string) (map[string]Presence, error) {
	if len(userIDs) == 0 {
		return map[string]Presence{}, nil
	}

	pipe := s.rdb.Pipeline()
	onlineCmds := make([]*redis.IntCmd, len(userIDs))
	seenCmds := make([]*redis.StringCmd, len(userIDs))
	for i, id := range userIDs {
		onlineCmds[i] = pipe.Exists(ctx, onlineKey(id))
		seenCmds[i] = pipe.Get(ctx, lastSeenKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	out := make(map[string]Presence, len(userIDs))
	for i, id := range userIDs {
		p := Presence{}
		if n, err := onlineCmds[i].Result(); err == nil && n > 0 {
			p.Online = true
		}
		if v, err := seenCmds[i].Result(); err == nil {
			if ts, convErr := strconv.ParseInt(v, 10, 64); convErr == nil {
				p.LastSeen = time.Unix(ts, 0)
			}
		}
		out[id] = p
	}
	return out, nil
}

func (s *Store) Close() error {
	return s.rdb.Close()
}
