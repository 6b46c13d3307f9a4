package event

import (
	"context"

	"go.uber.org/zap"

	"yuchat/internal/memcache"
	"yuchat/internal/metrics"
)

// MemberSource resolves the member user ids of a conversation.
type MemberSource interface {
	MemberIDs(ctx context.Context, convID int64) ([]int64, error)
}

// UserSender queues a payload on every live connection of a user.
type UserSender interface {
	SendToUser(uid int64, b []byte) (sent, dropped int)
}

// Router fans envelopes out to the live connections of a conversation's
// members. Delivery is best-effort per connection; a full queue drops the
// payload for that connection only.
type Router struct {
	members MemberSource
	cache   *memcache.Members
	sender  UserSender
	log     *zap.Logger
}

func NewRouter(members MemberSource, cache *memcache.Members, sender UserSender, log *zap.Logger) *Router {
	return &Router{members: members, cache: cache, sender: sender, log: log}
}

func (r *Router) Broadcast(ctx context.Context, convID int64, env Envelope) {
	b, err := env.Marshal()
	if err != nil {
		r.log.Error("envelope marshal failed", zap.String("type", env.Type), zap.Error(err))
		return
	}

	uids, ok := r.cache.Get(convID)
	if !ok {
		uids, err = r.members.MemberIDs(ctx, convID)
		if err != nil {
			r.log.Warn("member lookup failed, event not delivered",
				zap.Int64("conv", convID), zap.String("type", env.Type), zap.Error(err))
			return
		}
		r.cache.Set(convID, uids)
	}

	metrics.EventsPublished.WithLabelValues(env.Type).Inc()
	for _, uid := range uids {
		sent, dropped := r.sender.SendToUser(uid, b)
		if sent == 0 && dropped == 0 {
			metrics.FanoutOffline.Inc()
			continue
		}
		metrics.FanoutQueued.Add(float64(sent))
		if dropped > 0 {
			metrics.FanoutDropped.Add(float64(dropped))
			r.log.Warn("dropped envelope on slow connection",
				zap.Int64("uid", uid), zap.String("type", env.Type))
		}
	}
}
