package chat

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"yuchat/internal/event"
	"yuchat/internal/repo"
)

var validTransitions = map[string][]string{
	repo.CallPending: {repo.CallActive, repo.CallEnded, repo.CallMissed},
	repo.CallActive:  {repo.CallEnded},
}

type CallView struct {
	ID             int64      `json:"id"`
	ConversationID int64      `json:"conversationId"`
	Kind           string     `json:"kind"`
	Status         string     `json:"status"`
	Caller         *Profile   `json:"caller"`
	StartedAt      time.Time  `json:"startedAt"`
	EndedAt        *time.Time `json:"endedAt,omitempty"`
}

// Calls manages call lifecycle and its envelopes.
type Calls struct {
	users UserStore
	calls CallStore
	pub   Publisher
	log   *zap.Logger
}

func NewCalls(users UserStore, calls CallStore, pub Publisher, log *zap.Logger) *Calls {
	return &Calls{users: users, calls: calls, pub: pub, log: log}
}

// Start creates a pending call and announces it to the conversation.
func (s *Calls) Start(ctx context.Context, convID, callerID int64, kind string) (*CallView, error) {
	if kind != repo.CallVoice && kind != repo.CallVideo {
		return nil, fmt.Errorf("%w: unknown call kind %q", ErrValidation, kind)
	}
	c, err := s.calls.Insert(ctx, convID, callerID, kind)
	if err != nil {
		return nil, err
	}
	view, err := s.view(ctx, c)
	if err != nil {
		return nil, err
	}
	s.pub.Broadcast(ctx, convID, event.Envelope{Type: event.TypeCallInitiated, Data: view})
	return view, nil
}

// Get returns the call joined with its caller profile.
func (s *Calls) Get(ctx context.Context, callID int64) (*CallView, error) {
	c, err := s.calls.Get(ctx, callID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, c)
}

// UpdateStatus transitions the call along pending→active→ended (missed from
// pending). ended_at is stamped by the store only on terminal transitions.
func (s *Calls) UpdateStatus(ctx context.Context, callID int64, status string) (*CallView, error) {
	c, err := s.calls.Get(ctx, callID)
	if err != nil {
		return nil, err
	}
	allowed := false
	for _, next := range validTransitions[c.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: cannot move call from %s to %s", ErrValidation, c.Status, status)
	}
	c, err = s.calls.UpdateStatus(ctx, callID, status)
	if err != nil {
		return nil, err
	}
	view, err := s.view(ctx, c)
	if err != nil {
		return nil, err
	}
	s.pub.Broadcast(ctx, c.ConversationID, event.Envelope{Type: event.TypeCallStatusUpdated, Data: view})
	return view, nil
}

func (s *Calls) view(ctx context.Context, c *repo.Call) (*CallView, error) {
	caller, err := s.users.Get(ctx, c.CallerID)
	if err != nil {
		return nil, err
	}
	v := &CallView{
		ID:             c.ID,
		ConversationID: c.ConversationID,
		Kind:           c.Kind,
		Status:         c.Status,
		Caller:         profileOf(caller),
		StartedAt:      c.StartedAt,
	}
	if c.EndedAt.Valid {
		t := c.EndedAt.Time
		v.EndedAt = &t
	}
	return v, nil
}
