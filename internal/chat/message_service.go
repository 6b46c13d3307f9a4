package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"yuchat/internal/event"
	"yuchat/internal/repo"
)

var validKinds = map[string]bool{
	repo.KindText:  true,
	repo.KindImage: true,
	repo.KindVideo: true,
	repo.KindAudio: true,
	repo.KindFile:  true,
}

// SendBody is the caller-supplied part of a message.
type SendBody struct {
	Kind      string   `json:"kind"`
	Content   string   `json:"content,omitempty"`
	File      *FileRef `json:"file,omitempty"`
	ReplyToID int64    `json:"replyToId,omitempty"`
}

// Messages validates, persists and threads messages.
type Messages struct {
	users UserStore
	msgs  MessageStore
	pub   Publisher
	log   *zap.Logger

	defaultLimit int
	maxLimit     int
}

func NewMessages(users UserStore, msgs MessageStore, pub Publisher, defaultLimit, maxLimit int, log *zap.Logger) *Messages {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	if maxLimit <= 0 {
		maxLimit = 200
	}
	return &Messages{users: users, msgs: msgs, pub: pub, defaultLimit: defaultLimit, maxLimit: maxLimit, log: log}
}

// Send persists the message and fans a new_message envelope out to the
// conversation members. Membership of the sender is the boundary layer's
// concern; the reply target is checked here because only the store can.
func (s *Messages) Send(ctx context.Context, convID, senderID int64, body SendBody) (*MessageView, error) {
	if !validKinds[body.Kind] {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrValidation, body.Kind)
	}
	content := strings.TrimSpace(body.Content)
	if body.Kind == repo.KindText && content == "" {
		return nil, fmt.Errorf("%w: text message requires content", ErrValidation)
	}
	if body.Kind != repo.KindText && content == "" && (body.File == nil || body.File.URL == "") {
		return nil, fmt.Errorf("%w: %s message requires a file", ErrValidation, body.Kind)
	}

	var replyTarget *repo.Message
	if body.ReplyToID != 0 {
		target, err := s.msgs.Get(ctx, body.ReplyToID)
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: reply target not found", ErrValidation)
		}
		if err != nil {
			return nil, err
		}
		if target.ConversationID != convID {
			return nil, fmt.Errorf("%w: reply target belongs to another conversation", ErrValidation)
		}
		if target.Deleted {
			return nil, fmt.Errorf("%w: reply target was deleted", ErrValidation)
		}
		replyTarget = target
	}

	args := repo.InsertArgs{
		ConversationID: convID,
		SenderID:       senderID,
		Kind:           body.Kind,
		Content:        content,
		ReplyToID:      body.ReplyToID,
	}
	if body.File != nil {
		args.FileURL = body.File.URL
		args.FileName = body.File.Name
		args.FileSize = body.File.Size
	}
	m, err := s.msgs.Insert(ctx, args)
	if err != nil {
		return nil, err
	}

	sender, err := s.users.Get(ctx, senderID)
	if err != nil {
		return nil, err
	}
	var preview *ReplyPreview
	if replyTarget != nil {
		preview = s.preview(ctx, replyTarget)
	}
	view := messageView(m, sender, preview)

	s.pub.Broadcast(ctx, convID, event.Envelope{Type: event.TypeNewMessage, Data: view})
	return view, nil
}

// History returns non-deleted messages oldest-first, joined with sender
// profiles and reply previews.
func (s *Messages) History(ctx context.Context, convID int64, limit, offset int) ([]MessageView, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.msgs.ListHistory(ctx, convID, limit, offset)
	if err != nil {
		return nil, err
	}

	senders := make(map[int64]*repo.User)
	ids := make([]int64, 0, len(rows))
	for i := range rows {
		if _, ok := senders[rows[i].SenderID]; !ok {
			senders[rows[i].SenderID] = nil
			ids = append(ids, rows[i].SenderID)
		}
	}
	users, err := s.users.GetBatch(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range users {
		senders[users[i].ID] = &users[i]
	}

	// Newest-first from the store, oldest-first to the caller.
	out := make([]MessageView, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		m := rows[i]
		var preview *ReplyPreview
		if m.ReplyToID.Valid {
			if target, err := s.msgs.Get(ctx, m.ReplyToID.Int64); err == nil {
				preview = s.preview(ctx, target)
			}
		}
		out = append(out, *messageView(&m, senders[m.SenderID], preview))
	}
	return out, nil
}

// Delete soft-deletes the message iff the requester sent it. Unknown ids and
// other people's messages report the same not-found.
func (s *Messages) Delete(ctx context.Context, msgID, requesterID int64) error {
	m, err := s.msgs.Get(ctx, msgID)
	if err != nil {
		return err
	}
	ok, err := s.msgs.SoftDelete(ctx, msgID, requesterID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: message", ErrNotFound)
	}
	s.pub.Broadcast(ctx, m.ConversationID, event.Envelope{
		Type: event.TypeMessageDeleted,
		Data: event.DeletedRef{ID: msgID, ConversationID: m.ConversationID},
	})
	return nil
}

// preview builds the reply join. A soft-deleted target keeps its identity but
// its content is redacted.
func (s *Messages) preview(ctx context.Context, target *repo.Message) *ReplyPreview {
	p := &ReplyPreview{ID: target.ID, Kind: target.Kind, Deleted: target.Deleted}
	if !target.Deleted && target.Content.Valid {
		p.Content = target.Content.String
	}
	if sender, err := s.users.Get(ctx, target.SenderID); err == nil {
		p.Sender = profileOf(sender)
	}
	return p
}

func messageView(m *repo.Message, sender *repo.User, reply *ReplyPreview) *MessageView {
	v := &MessageView{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Kind:           m.Kind,
		Sender:         profileOf(sender),
		ReplyTo:        reply,
		CreatedAt:      m.CreatedAt,
	}
	if m.Content.Valid {
		v.Content = m.Content.String
	}
	if m.FileURL.Valid {
		v.File = &FileRef{URL: m.FileURL.String}
		if m.FileName.Valid {
			v.File.Name = m.FileName.String
		}
		if m.FileSize.Valid {
			v.File.Size = m.FileSize.Int64
		}
	}
	return v
}
