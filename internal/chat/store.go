package chat

import (
	"context"
	"time"

	"yuchat/internal/event"
	"yuchat/internal/repo"
)

// Store interfaces consumed by the services. The repo package satisfies them;
// tests substitute in-memory fakes.

type UserStore interface {
	Get(ctx context.Context, id int64) (*repo.User, error)
	GetBatch(ctx context.Context, ids []int64) ([]repo.User, error)
}

type ConversationStore interface {
	Get(ctx context.Context, id int64) (*repo.Conversation, error)
	FindDirectBetween(ctx context.Context, a, b int64) (*repo.Conversation, error)
	CreateDirect(ctx context.Context, a, b int64) (*repo.Conversation, error)
	CreateGroup(ctx context.Context, creatorID int64, name, description string, memberIDs []int64) (*repo.Conversation, error)
	ListForUser(ctx context.Context, userID int64) ([]repo.Conversation, error)
	MemberIDs(ctx context.Context, convID int64) ([]int64, error)
	IsMember(ctx context.Context, convID, userID int64) (bool, error)
}

type MessageStore interface {
	Insert(ctx context.Context, a repo.InsertArgs) (*repo.Message, error)
	Get(ctx context.Context, id int64) (*repo.Message, error)
	ListHistory(ctx context.Context, convID int64, limit, offset int) ([]repo.Message, error)
	LastMessage(ctx context.Context, convID int64) (*repo.Message, error)
	CountAfter(ctx context.Context, convID, afterMsgID, excludeSender int64) (int, error)
	SoftDelete(ctx context.Context, id, senderID int64) (bool, error)
}

type CallStore interface {
	Insert(ctx context.Context, convID, callerID int64, kind string) (*repo.Call, error)
	Get(ctx context.Context, id int64) (*repo.Call, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*repo.Call, error)
}

// ReadCursors tracks the last message id each user has read per conversation.
type ReadCursors interface {
	Get(ctx context.Context, userID, convID int64) (int64, error)
	Set(ctx context.Context, userID, convID, msgID int64) error
}

// Publisher fans an envelope out to the live connections of the
// conversation's members. Delivery is best-effort.
type Publisher interface {
	Broadcast(ctx context.Context, convID int64, env event.Envelope)
}

// Profile is the user shape joined onto conversations and messages.
type Profile struct {
	ID       int64      `json:"id"`
	Username string     `json:"username"`
	Online   bool       `json:"online"`
	LastSeen *time.Time `json:"lastSeenAt,omitempty"`
}

func profileOf(u *repo.User) *Profile {
	if u == nil {
		return nil
	}
	p := &Profile{ID: u.ID, Username: u.Username, Online: u.Online}
	if u.LastSeenAt.Valid {
		t := u.LastSeenAt.Time
		p.LastSeen = &t
	}
	return p
}

// FileRef is the descriptor produced by the upload boundary; the core never
// touches raw bytes.
type FileRef struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// ReplyPreview is the joined reply target. A soft-deleted target keeps its
// identity but loses its content.
type ReplyPreview struct {
	ID      int64    `json:"id"`
	Kind    string   `json:"kind"`
	Content string   `json:"content,omitempty"`
	Deleted bool     `json:"deleted"`
	Sender  *Profile `json:"sender,omitempty"`
}

type MessageView struct {
	ID             int64         `json:"id"`
	ConversationID int64         `json:"conversationId"`
	Kind           string        `json:"kind"`
	Content        string        `json:"content,omitempty"`
	File           *FileRef      `json:"file,omitempty"`
	Sender         *Profile      `json:"sender"`
	ReplyTo        *ReplyPreview `json:"replyTo,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
}

type ConversationView struct {
	ID            int64        `json:"id"`
	IsGroup       bool         `json:"isGroup"`
	Name          string       `json:"name,omitempty"`
	Description   string       `json:"description,omitempty"`
	CreatorID     int64        `json:"creatorId,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
	Members       []Profile    `json:"members"`
	LastMessage   *MessageView `json:"lastMessage,omitempty"`
	LastMessageAt *time.Time   `json:"lastMessageAt,omitempty"`
	Unread        int          `json:"unread"`
}
