package delivery

import (
	"context"
	"testing"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/events"
	"github.com/cwrk-planet/chat-service/internal/registry"
	"github.com/cwrk-planet/chat-service/internal/registry/registrytest"
	"github.com/cwrk-planet/chat-service/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteMessage_Direct(t *testing.T) {
	reg := registry.New(nil)
	r := NewRouter(reg, memory.New())

	a1 := registrytest.NewConn("a", "a1")
	b1 := registrytest.NewConn("b", "b1")
	b2 := registrytest.NewConn("b", "b2")
	stranger := registrytest.NewConn("x", "x1")
	for _, c := range []*registrytest.Conn{a1, b1, b2, stranger} {
		reg.Register(c)
	}

	msg := &domain.Message{ID: "m1", SenderID: "a", Target: domain.DirectTo("b"), Text: "hi"}
	notified, err := r.RouteMessage(context.Background(), msg)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, notified)

	for _, c := range []*registrytest.Conn{a1, b1, b2} {
		got := c.OfType(events.TypeMessageNew)
		require.Len(t, got, 1, c.ID())
		assert.Equal(t, "m1", got[0].Payload.(events.MessagePayload).Message.ID)
	}
	assert.Empty(t, stranger.Events())
}

func TestRouteMessage_NoConnections(t *testing.T) {
	r := NewRouter(registry.New(nil), memory.New())

	notified, err := r.RouteMessage(context.Background(),
		&domain.Message{ID: "m1", SenderID: "a", Target: domain.DirectTo("b"), Text: "hi"})
	require.NoError(t, err)
	assert.Empty(t, notified)
}

func TestRouteMessage_GroupUsesCurrentMembers(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	reg := registry.New(nil)
	r := NewRouter(reg, st)

	g := &domain.Group{Name: "g", Members: []string{"a", "b", "c"}, Admins: []string{"a"}, CreatedBy: "a"}
	require.NoError(t, st.CreateGroup(ctx, g))

	b1 := registrytest.NewConn("b", "b1")
	d1 := registrytest.NewConn("d", "d1")
	reg.Register(b1)
	reg.Register(d1)

	msg := &domain.Message{ID: "m1", SenderID: "a", Target: domain.ToGroup(g.ID), Text: "hi"}
	notified, err := r.RouteMessage(ctx, msg)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, notified)
	assert.Empty(t, d1.Events())

	_, err = st.AddMember(ctx, g.ID, "d")
	require.NoError(t, err)
	_, err = r.RouteMessage(ctx, msg)
	require.NoError(t, err)
	assert.Len(t, d1.OfType(events.TypeMessageNew), 1, "membership is read at routing time")
	assert.Len(t, b1.OfType(events.TypeMessageNew), 2)
}

func TestRouteMessage_UnknownGroup(t *testing.T) {
	r := NewRouter(registry.New(nil), memory.New())
	_, err := r.RouteMessage(context.Background(),
		&domain.Message{ID: "m1", SenderID: "a", Target: domain.ToGroup("nope"), Text: "hi"})
	assert.ErrorIs(t, err, domain.ErrGroupNotFound)
}

func TestNotifyUsers_Dedupes(t *testing.T) {
	reg := registry.New(nil)
	r := NewRouter(reg, memory.New())
	a1 := registrytest.NewConn("a", "a1")
	reg.Register(a1)

	notified := r.NotifyUsers([]string{"a", "a", "z"}, events.GroupNew(&domain.Group{ID: "g"}))
	assert.Equal(t, []string{"a"}, notified)
	assert.Len(t, a1.Events(), 1)

	assert.True(t, r.NotifyUser("a", events.MessagesRead([]string{"m"})))
	assert.False(t, r.NotifyUser("z", events.MessagesRead([]string{"m"})))
}
