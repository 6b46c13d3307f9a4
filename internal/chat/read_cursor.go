package chat

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisCursors keeps per-user read cursors as plain keys. Cursors are an
// annotation layer; losing them only resets unread counts.
type RedisCursors struct {
	cli    *redis.Client
	prefix string
}

func NewRedisCursors(cli *redis.Client, prefix string) *RedisCursors {
	if prefix == "" {
		prefix = "chat:read:"
	}
	return &RedisCursors{cli: cli, prefix: prefix}
}

func (c *RedisCursors) key(userID, convID int64) string {
	return fmt.Sprintf("%s%d:%d", c.prefix, userID, convID)
}

func (c *RedisCursors) Get(ctx context.Context, userID, convID int64) (int64, error) {
	n, err := c.cli.Get(ctx, c.key(userID, convID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Set advances the cursor; it never moves backwards.
func (c *RedisCursors) Set(ctx context.Context, userID, convID, msgID int64) error {
	cur, err := c.Get(ctx, userID, convID)
	if err != nil {
		return err
	}
	if msgID <= cur {
		return nil
	}
	return c.cli.Set(ctx, c.key(userID, convID), msgID, 0).Err()
}

// NopCursors is used when redis is not configured; unread stays zero.
type NopCursors struct{}

func (NopCursors) Get(ctx context.Context, userID, convID int64) (int64, error) { return 0, nil }
func (NopCursors) Set(ctx context.Context, userID, convID, msgID int64) error   { return nil }
