package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// IDGen yields server-generated entity ids. *sonyflake.Sonyflake satisfies it.
type IDGen interface {
	NextID() (uint64, error)
}

type UserRepo struct {
	db  *sqlx.DB
	ids IDGen
}

func NewUserRepo(db *sqlx.DB, ids IDGen) *UserRepo { return &UserRepo{db: db, ids: ids} }

func (r *UserRepo) Create(ctx context.Context, username, email, passwordHash string) (*User, error) {
	id, err := r.ids.NextID()
	if err != nil {
		return nil, fmt.Errorf("user id: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO users (id, username, email, password_hash, online)
VALUES (?, ?, ?, ?, 0)
`, int64(id), username, email, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", mapErr(err))
	}
	return r.Get(ctx, int64(id))
}

func (r *UserRepo) Get(ctx context.Context, id int64) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, `
SELECT id, username, email, password_hash, online, last_seen_at, created_at
FROM users WHERE id = ?
`, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", mapErr(err))
	}
	return &u, nil
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, `
SELECT id, username, email, password_hash, online, last_seen_at, created_at
FROM users WHERE username = ?
`, username)
	if err != nil {
		return nil, fmt.Errorf("get user by name: %w", mapErr(err))
	}
	return &u, nil
}

// GetBatch returns the users for the given ids; missing ids are simply absent.
func (r *UserRepo) GetBatch(ctx context.Context, ids []int64) ([]User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q, args, err := sqlx.In(`
SELECT id, username, email, password_hash, online, last_seen_at, created_at
FROM users WHERE id IN (?)
`, ids)
	if err != nil {
		return nil, err
	}
	var out []User
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("get users: %w", mapErr(err))
	}
	return out, nil
}

func (r *UserRepo) SetOnline(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET online = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("set online: %w", mapErr(err))
	}
	return nil
}

func (r *UserRepo) SetOffline(ctx context.Context, id int64, lastSeen time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET online = 0, last_seen_at = ? WHERE id = ?`, lastSeen, id)
	if err != nil {
		return fmt.Errorf("set offline: %w", mapErr(err))
	}
	return nil
}
