package repo

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type CallRepo struct {
	db  *sqlx.DB
	ids IDGen
}

func NewCallRepo(db *sqlx.DB, ids IDGen) *CallRepo { return &CallRepo{db: db, ids: ids} }

func (r *CallRepo) Insert(ctx context.Context, convID, callerID int64, kind string) (*Call, error) {
	id, err := r.ids.NextID()
	if err != nil {
		return nil, fmt.Errorf("call id: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO calls (id, conversation_id, caller_id, kind, status) VALUES (?, ?, ?, ?, ?)
`, int64(id), convID, callerID, kind, CallPending)
	if err != nil {
		return nil, fmt.Errorf("insert call: %w", mapErr(err))
	}
	return r.Get(ctx, int64(id))
}

func (r *CallRepo) Get(ctx context.Context, id int64) (*Call, error) {
	var c Call
	err := r.db.GetContext(ctx, &c, `
SELECT id, conversation_id, caller_id, kind, status, started_at, ended_at
FROM calls WHERE id = ?
`, id)
	if err != nil {
		return nil, fmt.Errorf("get call: %w", mapErr(err))
	}
	return &c, nil
}

// UpdateStatus transitions the call; ended_at is stamped only when the call
// reaches a terminal status.
func (r *CallRepo) UpdateStatus(ctx context.Context, id int64, status string) (*Call, error) {
	var err error
	if status == CallEnded || status == CallMissed {
		_, err = r.db.ExecContext(ctx, `
UPDATE calls SET status = ?, ended_at = NOW(3) WHERE id = ?
`, status, id)
	} else {
		_, err = r.db.ExecContext(ctx, `UPDATE calls SET status = ? WHERE id = ?`, status, id)
	}
	if err != nil {
		return nil, fmt.Errorf("update call: %w", mapErr(err))
	}
	return r.Get(ctx, id)
}
