package repo

import (
	"context"

	"github.com/jmoiron/sqlx"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT PRIMARY KEY,
		username      VARCHAR(64)  NOT NULL,
		email         VARCHAR(190) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		online        TINYINT(1)   NOT NULL DEFAULT 0,
		last_seen_at  DATETIME(3)  NULL,
		created_at    DATETIME(3)  NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		UNIQUE KEY uk_users_username (username),
		UNIQUE KEY uk_users_email (email)
	)`,
	`CREATE TABLE IF NOT EXISTS conversations (
		id          BIGINT PRIMARY KEY,
		is_group    TINYINT(1)   NOT NULL DEFAULT 0,
		name        VARCHAR(128) NULL,
		description VARCHAR(512) NULL,
		creator_id  BIGINT       NULL,
		direct_key  VARCHAR(64)  NULL,
		created_at  DATETIME(3)  NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		UNIQUE KEY uk_conversations_direct_key (direct_key)
	)`,
	`CREATE TABLE IF NOT EXISTS memberships (
		conversation_id BIGINT      NOT NULL,
		user_id         BIGINT      NOT NULL,
		created_at      DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		PRIMARY KEY (conversation_id, user_id),
		KEY idx_memberships_user (user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id              BIGINT PRIMARY KEY,
		conversation_id BIGINT      NOT NULL,
		sender_id       BIGINT      NOT NULL,
		kind            VARCHAR(16) NOT NULL,
		content         TEXT        NULL,
		file_url        VARCHAR(512) NULL,
		file_name       VARCHAR(255) NULL,
		file_size       BIGINT      NULL,
		reply_to_id     BIGINT      NULL,
		deleted         TINYINT(1)  NOT NULL DEFAULT 0,
		created_at      DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		KEY idx_messages_conv_created (conversation_id, created_at)
	)`,
	`CREATE TABLE IF NOT EXISTS calls (
		id              BIGINT PRIMARY KEY,
		conversation_id BIGINT      NOT NULL,
		caller_id       BIGINT      NOT NULL,
		kind            VARCHAR(16) NOT NULL,
		status          VARCHAR(16) NOT NULL,
		started_at      DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		ended_at        DATETIME(3) NULL,
		KEY idx_calls_conv (conversation_id)
	)`,
}

// EnsureSchema creates missing tables. Safe to run on every start.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return mapErr(err)
		}
	}
	return nil
}
