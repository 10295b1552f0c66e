package service

import (
	"context"
	"testing"

	"github.com/cwrk-planet/chat-service/internal/delivery"
	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/events"
	"github.com/cwrk-planet/chat-service/internal/presence"
	"github.com/cwrk-planet/chat-service/internal/readstate"
	"github.com/cwrk-planet/chat-service/internal/registry"
	"github.com/cwrk-planet/chat-service/internal/registry/registrytest"
	"github.com/cwrk-planet/chat-service/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	st       *memory.Store
	reg      *registry.Registry
	messages *MessageService
	groups   *GroupService
	users    *UserService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := memory.New()
	for _, u := range []domain.User{
		{ID: "a", Username: "alice", Name: "Alice"},
		{ID: "b", Username: "bob", Name: "Bob"},
		{ID: "c", Username: "carol", Name: "Carol"},
		{ID: "d", Username: "dave", Name: "Dave", HidePresence: true},
	} {
		require.NoError(t, st.UpsertUser(context.Background(), u))
	}

	reg := registry.New(nil)
	router := delivery.NewRouter(reg, st)
	engine := readstate.NewEngine(st, st, router, nil, 20)
	tracker := presence.NewTracker(reg, st, registrytest.SyncExecutor{}, nil, 0)

	return &env{
		st:       st,
		reg:      reg,
		messages: NewMessageService(engine, router, st, st, st, HistoryLimits{Default: 2, Max: 3}),
		groups:   NewGroupService(st, st, router),
		users:    NewUserService(st, st, tracker),
	}
}

func (e *env) connect(userID, connID string) *registrytest.Conn {
	c := registrytest.NewConn(userID, connID)
	e.reg.Register(c)
	return c
}

func TestSendDirect_ValidationOrder(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	_, err := e.messages.SendDirect(ctx, "a", "", Content{Text: "hi"})
	assert.ErrorIs(t, err, domain.ErrMissingFields)

	_, err = e.messages.SendDirect(ctx, "a", "ghost", Content{})
	assert.ErrorIs(t, err, domain.ErrMissingFields, "missing content beats unknown recipient")

	_, err = e.messages.SendDirect(ctx, "a", "a", Content{Text: "hi"})
	assert.ErrorIs(t, err, domain.ErrSelfMessage)

	_, err = e.messages.SendDirect(ctx, "a", "ghost", Content{Text: "hi"})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	partners, err := e.st.DirectPartners(ctx, "a", 0)
	require.NoError(t, err)
	assert.Empty(t, partners, "nothing persisted on failure")
}

func TestSendDirect_DeliversToBothSides(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	a1 := e.connect("a", "a1")
	b1 := e.connect("b", "b1")
	c1 := e.connect("c", "c1")

	msg, err := e.messages.SendDirect(ctx, "a", "b", Content{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, domain.MessageSent, msg.Status)
	assert.Zero(t, msg.ReadBy.Len())

	assert.Len(t, a1.OfType(events.TypeMessageNew), 1)
	assert.Len(t, b1.OfType(events.TypeMessageNew), 1)
	assert.Empty(t, c1.Events())
}

func TestSendDirectByUsername(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	msg, to, err := e.messages.SendDirectByUsername(ctx, "a", "dave", Content{Text: "yo"})
	require.NoError(t, err)
	assert.Equal(t, "d", msg.Target.ID)
	assert.Equal(t, domain.StatusOffline, to.Status)
	assert.False(t, to.HidePresence)

	_, _, err = e.messages.SendDirectByUsername(ctx, "a", "nobody", Content{Text: "yo"})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, _, err = e.messages.SendDirectByUsername(ctx, "a", "", Content{Text: "yo"})
	assert.ErrorIs(t, err, domain.ErrUsernameRequired)

	_, _, err = e.messages.SendDirectByUsername(ctx, "a", "alice", Content{Text: "yo"})
	assert.ErrorIs(t, err, domain.ErrSelfMessage)
}

func TestSendGroup(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	g, err := e.groups.Create(ctx, "a", "team", []string{"b"})
	require.NoError(t, err)

	b1 := e.connect("b", "b1")
	msg, err := e.messages.SendGroup(ctx, "a", g.ID, Content{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, msg.ReadBy.IDs())
	assert.Len(t, b1.OfType(events.TypeMessageNew), 1)

	got, err := e.st.GetGroup(ctx, g.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastMessage)
	assert.Equal(t, msg.ID, got.LastMessage.ID)

	_, err = e.messages.SendGroup(ctx, "c", g.ID, Content{Text: "let me in"})
	assert.ErrorIs(t, err, domain.ErrNotGroupMember)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = e.messages.SendGroup(ctx, "a", "missing", Content{Text: "x"})
	assert.ErrorIs(t, err, domain.ErrGroupNotFound)

	_, err = e.messages.SendGroup(ctx, "a", g.ID, Content{Text: "this text is definitely longer than twenty"})
	assert.ErrorIs(t, err, domain.ErrTextTooLong)
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	var ids []string
	for i := 0; i < 4; i++ {
		m, err := e.messages.SendDirect(ctx, "a", "b", Content{Text: "m"})
		require.NoError(t, err)
		ids = append(ids, m.ID)
	}

	page, err := e.messages.DirectHistory(ctx, "b", "a", "", 0)
	require.NoError(t, err)
	require.Len(t, page, 2, "default limit")
	assert.Equal(t, ids[2:], []string{page[0].ID, page[1].ID})

	page, err = e.messages.DirectHistory(ctx, "b", "a", "", 100)
	require.NoError(t, err)
	assert.Len(t, page, 3, "clamped to max")

	_, err = e.messages.DirectHistory(ctx, "b", "a", "yesterday", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidBefore)

	g, err := e.groups.Create(ctx, "a", "team", nil)
	require.NoError(t, err)
	_, err = e.messages.GroupHistory(ctx, "b", g.ID, "", 0)
	assert.ErrorIs(t, err, domain.ErrNotGroupMember)
	_, err = e.messages.GroupHistory(ctx, "a", "missing", "", 0)
	assert.ErrorIs(t, err, domain.ErrGroupNotFound)
}

func TestParseBefore(t *testing.T) {
	ts, err := parseBefore("2025-03-01T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 2025, ts.Year())

	ts, err = parseBefore("1700000000000")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), ts.UnixMilli())

	ts, err = parseBefore("")
	require.NoError(t, err)
	assert.True(t, ts.IsZero())
}

func TestPartners(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	_, err := e.messages.SendDirect(ctx, "a", "b", Content{Text: "1"})
	require.NoError(t, err)
	_, err = e.messages.SendDirect(ctx, "d", "a", Content{Text: "2"})
	require.NoError(t, err)

	partners, err := e.messages.Partners(ctx, "a")
	require.NoError(t, err)
	require.Len(t, partners, 2)
	ids := []string{partners[0].ID, partners[1].ID}
	assert.ElementsMatch(t, []string{"b", "d"}, ids)
	for _, p := range partners {
		assert.Equal(t, 1, p.MessageCount)
	}

	empty, err := e.messages.Partners(ctx, "c")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGroupCreate(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	b1 := e.connect("b", "b1")

	_, err := e.groups.Create(ctx, "a", "  ", nil)
	assert.ErrorIs(t, err, domain.ErrGroupNameRequired)

	_, err = e.groups.Create(ctx, "a", "team", []string{"b", "ghost"})
	assert.ErrorIs(t, err, domain.ErrUnknownMembers)

	g, err := e.groups.Create(ctx, "a", "team", []string{"b", "", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, g.Members)
	assert.Equal(t, []string{"a"}, g.Admins)
	assert.Len(t, b1.OfType(events.TypeGroupNew), 1)

	groups, err := e.groups.List(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, groups, 1)
}

func TestGroupMembership(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	g, err := e.groups.Create(ctx, "a", "team", []string{"b"})
	require.NoError(t, err)
	b1 := e.connect("b", "b1")

	_, err = e.groups.AddMember(ctx, "c", g.ID, "d")
	assert.ErrorIs(t, err, domain.ErrNotGroupMember)
	_, err = e.groups.AddMember(ctx, "b", g.ID, "")
	assert.ErrorIs(t, err, domain.ErrUserIDRequired)
	_, err = e.groups.AddMember(ctx, "b", g.ID, "ghost")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	got, err := e.groups.AddMember(ctx, "b", g.ID, "c")
	require.NoError(t, err)
	assert.True(t, got.IsMember("c"))
	assert.Len(t, b1.OfType(events.TypeGroupUpdated), 1)

	_, err = e.groups.AddMember(ctx, "b", g.ID, "c")
	require.NoError(t, err)
	assert.Len(t, b1.OfType(events.TypeGroupUpdated), 1, "no event when nothing changed")

	got, err = e.groups.AddMemberByUsername(ctx, "a", g.ID, "dave")
	require.NoError(t, err)
	assert.True(t, got.IsMember("d"))

	_, err = e.groups.AddMemberByUsername(ctx, "a", g.ID, "nobody")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	members, err := e.groups.Members(ctx, "c", g.ID)
	require.NoError(t, err)
	assert.Len(t, members, 4)
}

func TestGroupLeavePromoteRename(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	g, err := e.groups.Create(ctx, "a", "team", []string{"b", "c"})
	require.NoError(t, err)

	_, err = e.groups.Promote(ctx, "b", g.ID, "c")
	assert.ErrorIs(t, err, domain.ErrNotGroupAdmin)
	_, err = e.groups.Promote(ctx, "a", g.ID, "d")
	assert.ErrorIs(t, err, domain.ErrTargetNotMember)

	got, err := e.groups.Promote(ctx, "a", g.ID, "b")
	require.NoError(t, err)
	assert.True(t, got.IsAdmin("b"))

	_, err = e.groups.Rename(ctx, "c", g.ID, "mine")
	assert.ErrorIs(t, err, domain.ErrNotGroupAdmin)
	_, err = e.groups.Rename(ctx, "d", g.ID, "mine")
	assert.ErrorIs(t, err, domain.ErrNotGroupMember)
	got, err = e.groups.Rename(ctx, "b", g.ID, "  renamed ")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)

	c1 := e.connect("c", "c1")
	got, err = e.groups.Leave(ctx, "b", g.ID)
	require.NoError(t, err)
	assert.False(t, got.IsMember("b"))
	assert.False(t, got.IsAdmin("b"))
	assert.Len(t, c1.OfType(events.TypeGroupUpdated), 1)

	_, err = e.groups.Leave(ctx, "b", g.ID)
	assert.ErrorIs(t, err, domain.ErrNotMember)
	_, err = e.groups.Leave(ctx, "b", "missing")
	assert.ErrorIs(t, err, domain.ErrGroupNotFound)
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	_, err := e.messages.SendDirect(ctx, "a", "b", Content{Text: "hi"})
	require.NoError(t, err)

	res, err := e.users.Search(ctx, "a", "o", 0)
	assert.ErrorIs(t, err, domain.ErrSearchQueryTooShort)
	assert.Nil(t, res)

	res, err = e.users.Search(ctx, "a", "ca", 100)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, "carol", res.Results[0].Username)

	res, err = e.users.Search(ctx, "a", "bo", 0)
	require.NoError(t, err)
	assert.Zero(t, res.Count, "existing partners are excluded")

	all, err := e.users.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	_, err = e.users.Get(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUpdatePresence(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	bad := "sleeping"
	_, err := e.users.UpdatePresence(ctx, "a", PresenceUpdate{Status: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	away, hide := "away", true
	u, err := e.users.UpdatePresence(ctx, "a", PresenceUpdate{Status: &away, HidePresence: &hide})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAway, u.Status)
	assert.True(t, u.HidePresence)

	list, err := e.users.Presence(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	hide = false
	_, err = e.users.UpdatePresence(ctx, "a", PresenceUpdate{HidePresence: &hide})
	require.NoError(t, err)
	list, err = e.users.Presence(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Presence{{UserID: "a", Status: domain.StatusAway}}, list)

	_, err = e.users.UpdatePresence(ctx, "ghost", PresenceUpdate{})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
