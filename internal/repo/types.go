package repo

import (
	"database/sql"
	"time"
)

// Message kinds.
const (
	KindText  = "text"
	KindImage = "image"
	KindVideo = "video"
	KindAudio = "audio"
	KindFile  = "file"
)

// Call kinds and statuses.
const (
	CallVoice = "voice"
	CallVideo = "video"

	CallPending = "pending"
	CallActive  = "active"
	CallEnded   = "ended"
	CallMissed  = "missed"
)

type User struct {
	ID           int64        `db:"id" json:"id"`
	Username     string       `db:"username" json:"username"`
	Email        string       `db:"email" json:"email"`
	PasswordHash string       `db:"password_hash" json:"-"`
	Online       bool         `db:"online" json:"online"`
	LastSeenAt   sql.NullTime `db:"last_seen_at" json:"lastSeenAt,omitempty"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
}

type Conversation struct {
	ID          int64          `db:"id" json:"id"`
	IsGroup     bool           `db:"is_group" json:"isGroup"`
	Name        sql.NullString `db:"name" json:"name,omitempty"`
	Description sql.NullString `db:"description" json:"description,omitempty"`
	CreatorID   sql.NullInt64  `db:"creator_id" json:"creatorId,omitempty"`
	DirectKey   sql.NullString `db:"direct_key" json:"-"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
}

type Membership struct {
	ConversationID int64     `db:"conversation_id" json:"conversationId"`
	UserID         int64     `db:"user_id" json:"userId"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

type Message struct {
	ID             int64          `db:"id" json:"id"`
	ConversationID int64          `db:"conversation_id" json:"conversationId"`
	SenderID       int64          `db:"sender_id" json:"senderId"`
	Kind           string         `db:"kind" json:"kind"`
	Content        sql.NullString `db:"content" json:"content,omitempty"`
	FileURL        sql.NullString `db:"file_url" json:"fileUrl,omitempty"`
	FileName       sql.NullString `db:"file_name" json:"fileName,omitempty"`
	FileSize       sql.NullInt64  `db:"file_size" json:"fileSize,omitempty"`
	ReplyToID      sql.NullInt64  `db:"reply_to_id" json:"replyToId,omitempty"`
	Deleted        bool           `db:"deleted" json:"deleted"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
}

type Call struct {
	ID             int64        `db:"id" json:"id"`
	ConversationID int64        `db:"conversation_id" json:"conversationId"`
	CallerID       int64        `db:"caller_id" json:"callerId"`
	Kind           string       `db:"kind" json:"kind"`
	Status         string       `db:"status" json:"status"`
	StartedAt      time.Time    `db:"started_at" json:"startedAt"`
	EndedAt        sql.NullTime `db:"ended_at" json:"endedAt,omitempty"`
}
