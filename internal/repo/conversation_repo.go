package repo

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
)

// DirectKey derives the unordered-pair key guarding direct-conversation
// uniqueness. The UNIQUE index on conversations.direct_key makes concurrent
// creation for the same pair lose with a duplicate-key error.
func DirectKey(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return strconv.FormatInt(a, 10) + ":" + strconv.FormatInt(b, 10)
}

type ConversationRepo struct {
	db  *sqlx.DB
	ids IDGen
}

func NewConversationRepo(db *sqlx.DB, ids IDGen) *ConversationRepo {
	return &ConversationRepo{db: db, ids: ids}
}

func (r *ConversationRepo) Get(ctx context.Context, id int64) (*Conversation, error) {
	var c Conversation
	err := r.db.GetContext(ctx, &c, `
SELECT id, is_group, name, description, creator_id, direct_key, created_at
FROM conversations WHERE id = ?
`, id)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", mapErr(err))
	}
	return &c, nil
}

// FindDirectBetween returns the direct conversation for the pair, if any.
func (r *ConversationRepo) FindDirectBetween(ctx context.Context, a, b int64) (*Conversation, error) {
	var c Conversation
	err := r.db.GetContext(ctx, &c, `
SELECT id, is_group, name, description, creator_id, direct_key, created_at
FROM conversations WHERE direct_key = ?
`, DirectKey(a, b))
	if err != nil {
		return nil, fmt.Errorf("find direct: %w", mapErr(err))
	}
	return &c, nil
}

// CreateDirect inserts the conversation and both memberships in one
// transaction. A concurrent create for the same pair surfaces as
// ErrConstraint; the caller re-fetches the winner.
func (r *ConversationRepo) CreateDirect(ctx context.Context, a, b int64) (*Conversation, error) {
	id, err := r.ids.NextID()
	if err != nil {
		return nil, fmt.Errorf("conversation id: %w", err)
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create direct: %w", mapErr(err))
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO conversations (id, is_group, direct_key) VALUES (?, 0, ?)
`, int64(id), DirectKey(a, b)); err != nil {
		return nil, fmt.Errorf("create direct: %w", mapErr(err))
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO memberships (conversation_id, user_id) VALUES (?, ?), (?, ?)
`, int64(id), a, int64(id), b); err != nil {
		return nil, fmt.Errorf("create direct members: %w", mapErr(err))
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create direct: %w", mapErr(err))
	}
	return r.Get(ctx, int64(id))
}

// CreateGroup inserts the conversation, the creator membership and every
// requested member in one transaction. Any failure rolls the whole creation
// back, so a group never exists with a partial member list.
func (r *ConversationRepo) CreateGroup(ctx context.Context, creatorID int64, name, description string, memberIDs []int64) (*Conversation, error) {
	id, err := r.ids.NextID()
	if err != nil {
		return nil, fmt.Errorf("conversation id: %w", err)
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create group: %w", mapErr(err))
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO conversations (id, is_group, name, description, creator_id)
VALUES (?, 1, ?, NULLIF(?, ''), ?)
`, int64(id), name, description, creatorID); err != nil {
		return nil, fmt.Errorf("create group: %w", mapErr(err))
	}

	members := append([]int64{creatorID}, memberIDs...)
	seen := make(map[int64]bool, len(members))
	for _, uid := range members {
		if seen[uid] {
			continue
		}
		seen[uid] = true
		// Guard against unknown user ids inside the same transaction.
		var one int
		if err := tx.GetContext(ctx, &one, `SELECT 1 FROM users WHERE id = ?`, uid); err != nil {
			return nil, fmt.Errorf("group member %d: %w", uid, mapErr(err))
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO memberships (conversation_id, user_id) VALUES (?, ?)
`, int64(id), uid); err != nil {
			return nil, fmt.Errorf("group member %d: %w", uid, mapErr(err))
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create group: %w", mapErr(err))
	}
	return r.Get(ctx, int64(id))
}

// ListForUser returns every conversation the user is a member of.
func (r *ConversationRepo) ListForUser(ctx context.Context, userID int64) ([]Conversation, error) {
	var out []Conversation
	err := r.db.SelectContext(ctx, &out, `
SELECT c.id, c.is_group, c.name, c.description, c.creator_id, c.direct_key, c.created_at
FROM conversations c
JOIN memberships m ON m.conversation_id = c.id
WHERE m.user_id = ?
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", mapErr(err))
	}
	return out, nil
}

func (r *ConversationRepo) MemberIDs(ctx context.Context, convID int64) ([]int64, error) {
	var out []int64
	err := r.db.SelectContext(ctx, &out, `
SELECT user_id FROM memberships WHERE conversation_id = ? ORDER BY user_id
`, convID)
	if err != nil {
		return nil, fmt.Errorf("member ids: %w", mapErr(err))
	}
	return out, nil
}

func (r *ConversationRepo) IsMember(ctx context.Context, convID, userID int64) (bool, error) {
	var one int
	err := r.db.GetContext(ctx, &one, `
SELECT 1 FROM memberships WHERE conversation_id = ? AND user_id = ?
`, convID, userID)
	if err != nil {
		if mapped := mapErr(err); mapped == ErrNotFound {
			return false, nil
		}
		return false, fmt.Errorf("is member: %w", mapErr(err))
	}
	return true, nil
}
