package chat

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"yuchat/internal/repo"
)

func newTestResolver(t *testing.T) (*Resolver, *memDB, *memCursors) {
	t.Helper()
	db := newMemDB()
	cursors := newMemCursors()
	r := NewResolver(&fakeUsers{db}, &fakeConvs{db}, &fakeMsgs{db}, cursors, zap.NewNop())
	return r, db, cursors
}

func TestGetOrCreateDirectIsIdempotent(t *testing.T) {
	r, db, _ := newTestResolver(t)
	a := db.addUser("alice")
	b := db.addUser("bob")
	ctx := context.Background()

	first, err := r.GetOrCreateDirect(ctx, a.ID, b.ID)
	require.NoError(t, err)
	require.False(t, first.IsGroup)
	require.Len(t, first.Members, 2)

	// Same pair in the other order resolves to the same conversation.
	second, err := r.GetOrCreateDirect(ctx, b.ID, a.ID)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
}

func TestGetOrCreateDirectConcurrentPairYieldsOneConversation(t *testing.T) {
	r, db, _ := newTestResolver(t)
	a := db.addUser("alice")
	b := db.addUser("bob")

	const callers = 16
	ids := make([]int64, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			x, y := a.ID, b.ID
			if i%2 == 1 {
				x, y = y, x
			}
			v, err := r.GetOrCreateDirect(context.Background(), x, y)
			require.NoError(t, err)
			ids[i] = v.ID
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		require.Equal(t, ids[0], ids[i], "every racer must converge on one conversation")
	}
}

func TestGetOrCreateDirectRejectsSelfAndUnknown(t *testing.T) {
	r, db, _ := newTestResolver(t)
	a := db.addUser("alice")
	ctx := context.Background()

	_, err := r.GetOrCreateDirect(ctx, a.ID, a.ID)
	require.ErrorIs(t, err, ErrValidation)

	_, err = r.GetOrCreateDirect(ctx, a.ID, 9999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateGroupAllOrNothing(t *testing.T) {
	r, db, _ := newTestResolver(t)
	a := db.addUser("alice")
	b := db.addUser("bob")
	ctx := context.Background()

	_, err := r.CreateGroup(ctx, a.ID, "  ", "", []int64{b.ID})
	require.ErrorIs(t, err, ErrValidation, "blank name")

	_, err = r.CreateGroup(ctx, a.ID, "Team", "", []int64{b.ID, 9999})
	require.Error(t, err, "one unknown member fails the whole creation")

	convs, err := r.ListForUser(ctx, b.ID)
	require.NoError(t, err)
	require.Empty(t, convs, "no partial group left behind")

	g, err := r.CreateGroup(ctx, a.ID, "Team", "standup", []int64{b.ID})
	require.NoError(t, err)
	require.True(t, g.IsGroup)
	require.Equal(t, "Team", g.Name)
	require.Equal(t, a.ID, g.CreatorID)
	require.Len(t, g.Members, 2)
}

func TestListForUserAnnotations(t *testing.T) {
	r, db, cursors := newTestResolver(t)
	a := db.addUser("alice")
	b := db.addUser("bob")
	ctx := context.Background()

	direct, err := r.GetOrCreateDirect(ctx, a.ID, b.ID)
	require.NoError(t, err)

	msgs := NewMessages(&fakeUsers{db}, &fakeMsgs{db}, &capturePub{}, 50, 200, zap.NewNop())
	m1, err := msgs.Send(ctx, direct.ID, a.ID, SendBody{Kind: repo.KindText, Content: "one"})
	require.NoError(t, err)
	m2, err := msgs.Send(ctx, direct.ID, a.ID, SendBody{Kind: repo.KindText, Content: "two"})
	require.NoError(t, err)

	list, err := r.ListForUser(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	v := list[0]
	require.Len(t, v.Members, 2)
	require.NotNil(t, v.LastMessage)
	require.Equal(t, "two", v.LastMessage.Content)
	require.NotNil(t, v.LastMessageAt)
	require.Equal(t, m2.CreatedAt, *v.LastMessageAt)
	require.Equal(t, 2, v.Unread, "both of alice's messages are unread for bob")

	require.NoError(t, cursors.Set(ctx, b.ID, direct.ID, m1.ID))
	list, err = r.ListForUser(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, 1, list[0].Unread, "cursor past m1 leaves only m2 unread")

	// The sender's own messages never count against them.
	list, err = r.ListForUser(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, 0, list[0].Unread)
}

func TestMarkReadRequiresMembership(t *testing.T) {
	r, db, _ := newTestResolver(t)
	a := db.addUser("alice")
	b := db.addUser("bob")
	outsider := db.addUser("carol")
	ctx := context.Background()

	direct, err := r.GetOrCreateDirect(ctx, a.ID, b.ID)
	require.NoError(t, err)

	require.ErrorIs(t, r.MarkRead(ctx, outsider.ID, direct.ID, 1), ErrNotFound)
	require.NoError(t, r.MarkRead(ctx, a.ID, direct.ID, 1))

	require.ErrorIs(t, r.RequireMember(ctx, direct.ID, outsider.ID), ErrNotFound)
	require.NoError(t, r.RequireMember(ctx, direct.ID, a.ID))
}
