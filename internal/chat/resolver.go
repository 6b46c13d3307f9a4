package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"yuchat/internal/repo"
)

// Resolver computes conversation lists and resolves direct conversations
// idempotently.
type Resolver struct {
	users   UserStore
	convs   ConversationStore
	msgs    MessageStore
	cursors ReadCursors
	log     *zap.Logger
}

func NewResolver(users UserStore, convs ConversationStore, msgs MessageStore, cursors ReadCursors, log *zap.Logger) *Resolver {
	return &Resolver{users: users, convs: convs, msgs: msgs, cursors: cursors, log: log}
}

// GetOrCreateDirect returns the unique direct conversation for the pair,
// creating it atomically on first use. A concurrent create for the same pair
// loses on the direct_key uniqueness guard and picks up the winner's row, so
// two racing calls always converge on one conversation id.
func (r *Resolver) GetOrCreateDirect(ctx context.Context, a, b int64) (*ConversationView, error) {
	if a == b {
		return nil, fmt.Errorf("%w: direct conversation needs two distinct users", ErrValidation)
	}
	users, err := r.users.GetBatch(ctx, []int64{a, b})
	if err != nil {
		return nil, err
	}
	if len(users) != 2 {
		return nil, fmt.Errorf("%w: unknown user", ErrNotFound)
	}

	conv, err := r.convs.FindDirectBetween(ctx, a, b)
	if errors.Is(err, ErrNotFound) {
		conv, err = r.convs.CreateDirect(ctx, a, b)
		if errors.Is(err, ErrConstraint) {
			// Lost the race; the other caller's conversation stands.
			conv, err = r.convs.FindDirectBetween(ctx, a, b)
		}
	}
	if err != nil {
		return nil, err
	}
	return r.view(ctx, conv, a)
}

// CreateGroup creates a group conversation with the creator and every
// requested member, all-or-nothing.
func (r *Resolver) CreateGroup(ctx context.Context, creatorID int64, name, description string, memberIDs []int64) (*ConversationView, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: group name required", ErrValidation)
	}
	conv, err := r.convs.CreateGroup(ctx, creatorID, name, description, memberIDs)
	if err != nil {
		return nil, err
	}
	return r.view(ctx, conv, creatorID)
}

// ListForUser returns every conversation the user belongs to, annotated with
// the member profiles, the latest non-deleted message and the unread count
// past the user's read cursor. Side-effect free; ordering is left to the
// caller, which can sort on lastMessageAt.
func (r *Resolver) ListForUser(ctx context.Context, userID int64) ([]ConversationView, error) {
	convs, err := r.convs.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]ConversationView, 0, len(convs))
	for i := range convs {
		v, err := r.view(ctx, &convs[i], userID)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

// MarkRead advances the viewer's read cursor for the conversation.
func (r *Resolver) MarkRead(ctx context.Context, userID, convID, msgID int64) error {
	ok, err := r.convs.IsMember(ctx, convID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: conversation", ErrNotFound)
	}
	return r.cursors.Set(ctx, userID, convID, msgID)
}

// RequireMember is the boundary-layer authorization check.
func (r *Resolver) RequireMember(ctx context.Context, convID, userID int64) error {
	ok, err := r.convs.IsMember(ctx, convID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: conversation", ErrNotFound)
	}
	return nil
}

func (r *Resolver) view(ctx context.Context, conv *repo.Conversation, viewerID int64) (*ConversationView, error) {
	memberIDs, err := r.convs.MemberIDs(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	members, err := r.users.GetBatch(ctx, memberIDs)
	if err != nil {
		return nil, err
	}

	v := &ConversationView{
		ID:        conv.ID,
		IsGroup:   conv.IsGroup,
		CreatedAt: conv.CreatedAt,
		Members:   make([]Profile, 0, len(members)),
	}
	if conv.Name.Valid {
		v.Name = conv.Name.String
	}
	if conv.Description.Valid {
		v.Description = conv.Description.String
	}
	if conv.CreatorID.Valid {
		v.CreatorID = conv.CreatorID.Int64
	}
	for i := range members {
		v.Members = append(v.Members, *profileOf(&members[i]))
	}

	last, err := r.msgs.LastMessage(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	if last != nil {
		sender, err := r.users.Get(ctx, last.SenderID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		mv := messageView(last, sender, nil)
		v.LastMessage = mv
		t := last.CreatedAt
		v.LastMessageAt = &t
	}

	cursor, err := r.cursors.Get(ctx, viewerID, conv.ID)
	if err != nil {
		// Unread is an annotation, not a correctness guarantee; a cursor
		// failure degrades to zero rather than failing the list.
		r.log.Warn("read cursor lookup failed", zap.Int64("conv", conv.ID), zap.Error(err))
		return v, nil
	}
	unread, err := r.msgs.CountAfter(ctx, conv.ID, cursor, viewerID)
	if err != nil {
		return nil, err
	}
	v.Unread = unread
	return v, nil
}
