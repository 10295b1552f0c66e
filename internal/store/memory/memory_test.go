package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tick struct {
	mu sync.Mutex
	t  time.Time
}

func (c *tick) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newStore(t *testing.T) *Store {
	t.Helper()
	clock := &tick{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := New().WithClock(clock.now)
	for _, u := range []domain.User{
		{ID: "a", Username: "alice", Name: "Alice"},
		{ID: "b", Username: "bob", Name: "Bob"},
		{ID: "c", Username: "carol", Name: "Carol", HidePresence: true},
	} {
		require.NoError(t, s.UpsertUser(context.Background(), u))
	}
	return s
}

func send(t *testing.T, s *Store, m domain.Message) domain.Message {
	t.Helper()
	m.InitReadState()
	require.NoError(t, s.CreateMessage(context.Background(), &m))
	return m
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	u, err := s.GetUserByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "b", u.ID)
	assert.Equal(t, domain.StatusOffline, u.Status)

	_, err = s.GetUser(ctx, "zed")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.UpsertUser(ctx, domain.User{ID: "x", Username: "bob"}), store.ErrAlreadyExists)

	require.NoError(t, s.SetStatus(ctx, "a", domain.StatusBusy))
	require.NoError(t, s.SetStatus(ctx, "c", domain.StatusOnline))
	assert.ErrorIs(t, s.SetStatus(ctx, "zed", domain.StatusOnline), store.ErrNotFound)

	presence, err := s.ListVisiblePresence(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Presence{{UserID: "a", Status: domain.StatusBusy}}, presence)

	found, err := s.SearchUsers(ctx, "CA", []string{"a"}, 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "carol", found[0].Username)

	all, err := s.ListUsers(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, []string{all[0].Username, all[1].Username})

	got, err := s.GetUsers(ctx, []string{"a", "a", "missing"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestAddReader_IsIdempotentUnion(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	m := send(t, s, domain.Message{SenderID: "a", Target: domain.ToGroup("g"), Text: "hi"})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.AddReader(ctx, "b", []string{m.ID, "unknown"}))
		}()
	}
	wg.Wait()

	got, err := s.GetMessages(ctx, []string{m.ID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"a", "b"}, got[0].ReadBy.IDs())
	assert.Equal(t, domain.MessageRead, got[0].Status)
}

func TestListMessages_PagesNewestFirstReturnsChronological(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	var ids []string
	for i := 0; i < 5; i++ {
		from, to := "a", "b"
		if i%2 == 1 {
			from, to = "b", "a"
		}
		ids = append(ids, send(t, s, domain.Message{SenderID: from, Target: domain.DirectTo(to), Text: "m"}).ID)
	}
	send(t, s, domain.Message{SenderID: "a", Target: domain.DirectTo("c"), Text: "other"})

	page, err := s.ListMessages(ctx, store.MessageQuery{UserA: "b", UserB: "a", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, ids[3:], messageIDs(page))

	older, err := s.ListMessages(ctx, store.MessageQuery{UserA: "a", UserB: "b", Before: page[0].CreatedAt, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, ids[:3], messageIDs(older))
}

func TestUnreadCounts(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	g1 := send(t, s, domain.Message{SenderID: "a", Target: domain.ToGroup("g1"), Text: "1"})
	send(t, s, domain.Message{SenderID: "b", Target: domain.ToGroup("g1"), Text: "2"})
	send(t, s, domain.Message{SenderID: "b", Target: domain.ToGroup("g2"), Text: "3"})
	d1 := send(t, s, domain.Message{SenderID: "a", Target: domain.DirectTo("b"), Text: "4"})
	send(t, s, domain.Message{SenderID: "a", Target: domain.DirectTo("b"), Text: "5"})
	send(t, s, domain.Message{SenderID: "c", Target: domain.DirectTo("b"), Text: "6"})
	send(t, s, domain.Message{SenderID: "b", Target: domain.DirectTo("a"), Text: "7"})

	groups, err := s.CountUnreadByGroup(ctx, "b", []string{"g1", "g2", "g3"})
	require.NoError(t, err)
	assert.Equal(t, []domain.UnreadCount{{ID: "g1", Unread: 1}, {ID: "g2", Unread: 0}}, groups)

	direct, err := s.CountUnreadDirect(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []domain.UnreadCount{{ID: "a", Unread: 2}, {ID: "c", Unread: 1}}, direct)

	require.NoError(t, s.AddReader(ctx, "b", []string{g1.ID, d1.ID}))

	n, err := s.CountUnread(ctx, store.UnreadQuery{ReaderID: "b", FromUserID: "a"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.CountUnread(ctx, store.UnreadQuery{ReaderID: "b", GroupID: "g1"})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDirectPartners(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	send(t, s, domain.Message{SenderID: "a", Target: domain.DirectTo("b"), Text: "1"})
	send(t, s, domain.Message{SenderID: "c", Target: domain.DirectTo("a"), Text: "2"})
	last := send(t, s, domain.Message{SenderID: "b", Target: domain.DirectTo("a"), Text: "3"})
	send(t, s, domain.Message{SenderID: "a", Target: domain.ToGroup("g"), Text: "4"})

	partners, err := s.DirectPartners(ctx, "a", 10)
	require.NoError(t, err)
	require.Len(t, partners, 2)
	assert.Equal(t, "b", partners[0].UserID)
	assert.Equal(t, 2, partners[0].MessageCount)
	assert.Equal(t, last.CreatedAt, partners[0].LastMessageAt)
	assert.Equal(t, "c", partners[1].UserID)
}

func TestGroups_MembershipOps(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	g := &domain.Group{Name: "team", Members: []string{"a", "b", "a"}, Admins: []string{"a"}, CreatedBy: "a"}
	require.NoError(t, s.CreateGroup(ctx, g))
	assert.Equal(t, []string{"a", "b"}, g.Members)

	added, err := s.AddMember(ctx, g.ID, "c")
	require.NoError(t, err)
	assert.True(t, added)
	added, err = s.AddMember(ctx, g.ID, "c")
	require.NoError(t, err)
	assert.False(t, added)

	promoted, err := s.AddAdmin(ctx, g.ID, "c")
	require.NoError(t, err)
	assert.True(t, promoted)

	removed, err := s.RemoveMember(ctx, g.ID, "c")
	require.NoError(t, err)
	assert.True(t, removed)

	require.NoError(t, s.RenameGroup(ctx, g.ID, "core"))
	m := send(t, s, domain.Message{SenderID: "a", Target: domain.ToGroup(g.ID), Text: "hi"})
	require.NoError(t, s.SetLastMessage(ctx, g.ID, m.ID))

	got, err := s.GetGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "core", got.Name)
	assert.Equal(t, []string{"a", "b"}, got.Members)
	assert.Equal(t, []string{"a"}, got.Admins)
	require.NotNil(t, got.LastMessage)
	assert.Equal(t, m.ID, got.LastMessage.ID)

	ids, err := s.GroupIDsForUser(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{g.ID}, ids)

	_, err = s.GetGroup(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.AddMember(ctx, "missing", "a")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func messageIDs(ms []domain.Message) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.ID
	}
	return out
}
