package chat

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"yuchat/internal/event"
	"yuchat/internal/repo"
)

// memDB is an in-memory stand-in for the MySQL store. It reproduces the two
// storage behaviors the services lean on: the direct_key uniqueness guard and
// monotonically increasing insert timestamps.
type memDB struct {
	mu         sync.Mutex
	nextID     int64
	clock      time.Time
	users      map[int64]*repo.User
	convs      map[int64]*repo.Conversation
	directKeys map[string]int64
	members    map[int64][]int64
	msgs       map[int64]*repo.Message
	msgOrder   []int64
	calls      map[int64]*repo.Call
}

func newMemDB() *memDB {
	return &memDB{
		nextID:     1000,
		clock:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		users:      make(map[int64]*repo.User),
		convs:      make(map[int64]*repo.Conversation),
		directKeys: make(map[string]int64),
		members:    make(map[int64][]int64),
		msgs:       make(map[int64]*repo.Message),
		calls:      make(map[int64]*repo.Call),
	}
}

func (d *memDB) id() int64 {
	d.nextID++
	return d.nextID
}

func (d *memDB) tick() time.Time {
	d.clock = d.clock.Add(time.Second)
	return d.clock
}

func (d *memDB) addUser(username string) *repo.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	u := &repo.User{ID: d.id(), Username: username, Email: username + "@x.test", CreatedAt: d.tick()}
	d.users[u.ID] = u
	return u
}

type fakeUsers struct{ db *memDB }

func (f *fakeUsers) Get(ctx context.Context, id int64) (*repo.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	u, ok := f.db.users[id]
	if !ok {
		return nil, fmt.Errorf("get user: %w", repo.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetBatch(ctx context.Context, ids []int64) ([]repo.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := make([]repo.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := f.db.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

type fakeConvs struct{ db *memDB }

func (f *fakeConvs) Get(ctx context.Context, id int64) (*repo.Conversation, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	c, ok := f.db.convs[id]
	if !ok {
		return nil, fmt.Errorf("get conversation: %w", repo.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (f *fakeConvs) FindDirectBetween(ctx context.Context, a, b int64) (*repo.Conversation, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	id, ok := f.db.directKeys[repo.DirectKey(a, b)]
	if !ok {
		return nil, fmt.Errorf("find direct: %w", repo.ErrNotFound)
	}
	cp := *f.db.convs[id]
	return &cp, nil
}

func (f *fakeConvs) CreateDirect(ctx context.Context, a, b int64) (*repo.Conversation, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	key := repo.DirectKey(a, b)
	if _, ok := f.db.directKeys[key]; ok {
		return nil, fmt.Errorf("create direct: %w", repo.ErrConstraint)
	}
	c := &repo.Conversation{
		ID:        f.db.id(),
		DirectKey: sql.NullString{String: key, Valid: true},
		CreatedAt: f.db.tick(),
	}
	f.db.convs[c.ID] = c
	f.db.directKeys[key] = c.ID
	f.db.members[c.ID] = []int64{a, b}
	cp := *c
	return &cp, nil
}

func (f *fakeConvs) CreateGroup(ctx context.Context, creatorID int64, name, description string, memberIDs []int64) (*repo.Conversation, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	all := append([]int64{creatorID}, memberIDs...)
	for _, uid := range all {
		if _, ok := f.db.users[uid]; !ok {
			// Whole-or-nothing: nothing was written yet.
			return nil, fmt.Errorf("group member %d: %w", uid, repo.ErrNotFound)
		}
	}
	c := &repo.Conversation{
		ID:        f.db.id(),
		IsGroup:   true,
		Name:      sql.NullString{String: name, Valid: true},
		CreatorID: sql.NullInt64{Int64: creatorID, Valid: true},
		CreatedAt: f.db.tick(),
	}
	if description != "" {
		c.Description = sql.NullString{String: description, Valid: true}
	}
	f.db.convs[c.ID] = c
	seen := map[int64]bool{}
	for _, uid := range all {
		if !seen[uid] {
			seen[uid] = true
			f.db.members[c.ID] = append(f.db.members[c.ID], uid)
		}
	}
	cp := *c
	return &cp, nil
}

func (f *fakeConvs) ListForUser(ctx context.Context, userID int64) ([]repo.Conversation, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []repo.Conversation
	for id, uids := range f.db.members {
		for _, uid := range uids {
			if uid == userID {
				out = append(out, *f.db.convs[id])
				break
			}
		}
	}
	return out, nil
}

func (f *fakeConvs) MemberIDs(ctx context.Context, convID int64) ([]int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return append([]int64(nil), f.db.members[convID]...), nil
}

func (f *fakeConvs) IsMember(ctx context.Context, convID, userID int64) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, uid := range f.db.members[convID] {
		if uid == userID {
			return true, nil
		}
	}
	return false, nil
}

type fakeMsgs struct{ db *memDB }

func (f *fakeMsgs) Insert(ctx context.Context, a repo.InsertArgs) (*repo.Message, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	m := &repo.Message{
		ID:             f.db.id(),
		ConversationID: a.ConversationID,
		SenderID:       a.SenderID,
		Kind:           a.Kind,
		CreatedAt:      f.db.tick(),
	}
	if a.Content != "" {
		m.Content = sql.NullString{String: a.Content, Valid: true}
	}
	if a.FileURL != "" {
		m.FileURL = sql.NullString{String: a.FileURL, Valid: true}
	}
	if a.FileName != "" {
		m.FileName = sql.NullString{String: a.FileName, Valid: true}
	}
	if a.FileSize != 0 {
		m.FileSize = sql.NullInt64{Int64: a.FileSize, Valid: true}
	}
	if a.ReplyToID != 0 {
		m.ReplyToID = sql.NullInt64{Int64: a.ReplyToID, Valid: true}
	}
	f.db.msgs[m.ID] = m
	f.db.msgOrder = append(f.db.msgOrder, m.ID)
	cp := *m
	return &cp, nil
}

func (f *fakeMsgs) Get(ctx context.Context, id int64) (*repo.Message, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	m, ok := f.db.msgs[id]
	if !ok {
		return nil, fmt.Errorf("get message: %w", repo.ErrNotFound)
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMsgs) visibleNewestFirst(convID int64) []repo.Message {
	var out []repo.Message
	for i := len(f.db.msgOrder) - 1; i >= 0; i-- {
		m := f.db.msgs[f.db.msgOrder[i]]
		if m.ConversationID == convID && !m.Deleted {
			out = append(out, *m)
		}
	}
	return out
}

func (f *fakeMsgs) ListHistory(ctx context.Context, convID int64, limit, offset int) ([]repo.Message, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	all := f.visibleNewestFirst(convID)
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (f *fakeMsgs) LastMessage(ctx context.Context, convID int64) (*repo.Message, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	all := f.visibleNewestFirst(convID)
	if len(all) == 0 {
		return nil, nil
	}
	return &all[0], nil
}

func (f *fakeMsgs) CountAfter(ctx context.Context, convID, afterMsgID, excludeSender int64) (int, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	n := 0
	for _, m := range f.db.msgs {
		if m.ConversationID == convID && !m.Deleted && m.SenderID != excludeSender && m.ID > afterMsgID {
			n++
		}
	}
	return n, nil
}

func (f *fakeMsgs) SoftDelete(ctx context.Context, id, senderID int64) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	m, ok := f.db.msgs[id]
	if !ok || m.SenderID != senderID || m.Deleted {
		return false, nil
	}
	m.Deleted = true
	return true, nil
}

type fakeCalls struct{ db *memDB }

func (f *fakeCalls) Insert(ctx context.Context, convID, callerID int64, kind string) (*repo.Call, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	c := &repo.Call{
		ID:             f.db.id(),
		ConversationID: convID,
		CallerID:       callerID,
		Kind:           kind,
		Status:         repo.CallPending,
		StartedAt:      f.db.tick(),
	}
	f.db.calls[c.ID] = c
	cp := *c
	return &cp, nil
}

func (f *fakeCalls) Get(ctx context.Context, id int64) (*repo.Call, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	c, ok := f.db.calls[id]
	if !ok {
		return nil, fmt.Errorf("get call: %w", repo.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCalls) UpdateStatus(ctx context.Context, id int64, status string) (*repo.Call, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	c, ok := f.db.calls[id]
	if !ok {
		return nil, fmt.Errorf("update call: %w", repo.ErrNotFound)
	}
	c.Status = status
	if status == repo.CallEnded || status == repo.CallMissed {
		c.EndedAt = sql.NullTime{Time: f.db.tick(), Valid: true}
	}
	cp := *c
	return &cp, nil
}

type memCursors struct {
	mu sync.Mutex
	m  map[string]int64
}

func newMemCursors() *memCursors { return &memCursors{m: make(map[string]int64)} }

func (c *memCursors) Get(ctx context.Context, userID, convID int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.m[fmt.Sprintf("%d:%d", userID, convID)], nil
}

func (c *memCursors) Set(ctx context.Context, userID, convID, msgID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := fmt.Sprintf("%d:%d", userID, convID)
	if msgID > c.m[key] {
		c.m[key] = msgID
	}
	return nil
}

type capturePub struct {
	mu   sync.Mutex
	envs []struct {
		ConvID int64
		Env    event.Envelope
	}
}

func (p *capturePub) Broadcast(ctx context.Context, convID int64, env event.Envelope) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.envs = append(p.envs, struct {
		ConvID int64
		Env    event.Envelope
	}{convID, env})
}

func (p *capturePub) last() (int64, event.Envelope) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.envs) == 0 {
		return 0, event.Envelope{}
	}
	e := p.envs[len(p.envs)-1]
	return e.ConvID, e.Env
}

func (p *capturePub) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.envs)
}
