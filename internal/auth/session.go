package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore keeps issued tokens in redis so they can be revoked without
// waiting for expiry. A nil client disables the check and the payload alone
// authenticates.
type SessionStore struct {
	RedisPrefix string
	TTLDays     int
	Client      *redis.Client
}

func (s *SessionStore) key(token string) string {
	return s.RedisPrefix + token
}

func (s *SessionStore) Put(ctx context.Context, token string, userID int64) error {
	if s == nil || s.Client == nil {
		return nil
	}
	if token == "" {
		return fmt.Errorf("token empty")
	}
	key := s.key(token)
	if err := s.Client.HSet(ctx, key, "userId", strconv.FormatInt(userID, 10)).Err(); err != nil {
		return err
	}
	ttl := time.Duration(s.TTLDays) * 24 * time.Hour
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return s.Client.Expire(ctx, key, ttl).Err()
}

// Validate reports whether the token still has a live session.
func (s *SessionStore) Validate(ctx context.Context, token string) (bool, error) {
	if s == nil || s.Client == nil {
		return true, nil
	}
	n, err := s.Client.Exists(ctx, s.key(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SessionStore) Delete(ctx context.Context, token string) error {
	if s == nil || s.Client == nil || token == "" {
		return nil
	}
	return s.Client.Del(ctx, s.key(token)).Err()
}
