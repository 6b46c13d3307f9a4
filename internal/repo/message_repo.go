package repo

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type MessageRepo struct {
	db  *sqlx.DB
	ids IDGen
}

func NewMessageRepo(db *sqlx.DB, ids IDGen) *MessageRepo {
	return &MessageRepo{db: db, ids: ids}
}

// InsertArgs carries the caller-supplied part of a message; id, deleted flag
// and created_at are assigned by the store.
type InsertArgs struct {
	ConversationID int64
	SenderID       int64
	Kind           string
	Content        string
	FileURL        string
	FileName       string
	FileSize       int64
	ReplyToID      int64
}

func (r *MessageRepo) Insert(ctx context.Context, a InsertArgs) (*Message, error) {
	id, err := r.ids.NextID()
	if err != nil {
		return nil, fmt.Errorf("message id: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO messages (id, conversation_id, sender_id, kind, content, file_url, file_name, file_size, reply_to_id)
VALUES (?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, 0), NULLIF(?, 0))
`, int64(id), a.ConversationID, a.SenderID, a.Kind, a.Content, a.FileURL, a.FileName, a.FileSize, a.ReplyToID)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", mapErr(err))
	}
	return r.Get(ctx, int64(id))
}

// Get returns the row regardless of the deleted flag; history filtering is
// the reader's concern, reply back-references still need the row.
func (r *MessageRepo) Get(ctx context.Context, id int64) (*Message, error) {
	var m Message
	err := r.db.GetContext(ctx, &m, `
SELECT id, conversation_id, sender_id, kind, content, file_url, file_name, file_size, reply_to_id, deleted, created_at
FROM messages WHERE id = ?
`, id)
	if err != nil {
		return nil, fmt.Errorf("get message: %w", mapErr(err))
	}
	return &m, nil
}

// ListHistory returns non-deleted messages newest-first.
func (r *MessageRepo) ListHistory(ctx context.Context, convID int64, limit, offset int) ([]Message, error) {
	var out []Message
	err := r.db.SelectContext(ctx, &out, `
SELECT id, conversation_id, sender_id, kind, content, file_url, file_name, file_size, reply_to_id, deleted, created_at
FROM messages
WHERE conversation_id = ? AND deleted = 0
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?
`, convID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", mapErr(err))
	}
	return out, nil
}

// LastMessage returns the most recent non-deleted message, or nil if none.
func (r *MessageRepo) LastMessage(ctx context.Context, convID int64) (*Message, error) {
	var m Message
	err := r.db.GetContext(ctx, &m, `
SELECT id, conversation_id, sender_id, kind, content, file_url, file_name, file_size, reply_to_id, deleted, created_at
FROM messages
WHERE conversation_id = ? AND deleted = 0
ORDER BY created_at DESC, id DESC
LIMIT 1
`, convID)
	if err != nil {
		if mapped := mapErr(err); mapped == ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("last message: %w", mapErr(err))
	}
	return &m, nil
}

// CountAfter counts non-deleted messages from other senders past a read
// cursor; it backs the unread annotation on the conversation list.
func (r *MessageRepo) CountAfter(ctx context.Context, convID, afterMsgID, excludeSender int64) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `
SELECT COUNT(*) FROM messages
WHERE conversation_id = ? AND deleted = 0 AND sender_id <> ? AND id > ?
`, convID, excludeSender, afterMsgID)
	if err != nil {
		return 0, fmt.Errorf("count after: %w", mapErr(err))
	}
	return n, nil
}

// SoftDelete flags the message iff the requester is its sender. Returns
// whether a row was flagged; false covers both unknown ids and non-owners so
// the caller cannot distinguish them.
func (r *MessageRepo) SoftDelete(ctx context.Context, id, senderID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE messages SET deleted = 1 WHERE id = ? AND sender_id = ? AND deleted = 0
`, id, senderID)
	if err != nil {
		return false, fmt.Errorf("soft delete: %w", mapErr(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
