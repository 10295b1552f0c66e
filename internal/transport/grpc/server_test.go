package grpcx

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/cwrk-planet/chat-service/internal/auth"
	"github.com/cwrk-planet/chat-service/internal/delivery"
	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/readstate"
	"github.com/cwrk-planet/chat-service/internal/registry"
	"github.com/cwrk-planet/chat-service/internal/service"
	"github.com/cwrk-planet/chat-service/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

type testEnv struct {
	cc     *grpc.ClientConn
	signer *auth.Signer
	groups *service.GroupService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	st := memory.New()
	for _, u := range []domain.User{
		{ID: "a", Username: "alice", Name: "Alice"},
		{ID: "b", Username: "bob", Name: "Bob"},
		{ID: "c", Username: "carol", Name: "Carol"},
	} {
		require.NoError(t, st.UpsertUser(ctx, u))
	}
	reg := registry.New(nil)
	router := delivery.NewRouter(reg, st)
	engine := readstate.NewEngine(st, st, router, nil, 100)
	messages := service.NewMessageService(engine, router, st, st, st, service.HistoryLimits{Default: 50, Max: 100})
	signer := auth.NewSigner("test-secret", "chat-service", time.Hour, 0)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		UnaryServerInterceptor(5*time.Second),
		AuthInterceptor(signer),
	))
	Register(srv, NewChatServer(messages))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cc.Close() })

	return &testEnv{cc: cc, signer: signer, groups: service.NewGroupService(st, st, router)}
}

func (e *testEnv) as(t *testing.T, userID string) context.Context {
	t.Helper()
	token, err := e.signer.Issue(userID)
	require.NoError(t, err)
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
}

func (e *testEnv) call(ctx context.Context, t *testing.T, method string, in map[string]any) (map[string]any, error) {
	t.Helper()
	req, err := structpb.NewStruct(in)
	require.NoError(t, err)
	out, err := Invoke(ctx, e.cc, method, req)
	if err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

func TestChatService_Unauthenticated(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.call(context.Background(), t, "MarkRead", map[string]any{"messageIds": []any{"x"}})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer garbage")
	_, err = e.call(ctx, t, "MarkRead", map[string]any{"messageIds": []any{"x"}})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestChatService_DirectFlow(t *testing.T) {
	e := newTestEnv(t)
	alice, bob := e.as(t, "a"), e.as(t, "b")

	out, err := e.call(alice, t, "SendDirectMessage", map[string]any{"toUserId": "b", "text": "hi bob"})
	require.NoError(t, err)
	msg := out["message"].(map[string]any)
	assert.Equal(t, "a", msg["senderId"])
	assert.Equal(t, "hi bob", msg["text"])
	msgID := msg["id"].(string)

	out, err = e.call(alice, t, "SendDirectMessage", map[string]any{"username": "bob", "text": "again"})
	require.NoError(t, err)
	assert.Equal(t, "b", out["user"].(map[string]any)["id"])

	out, err = e.call(bob, t, "UnreadCounts", map[string]any{"kind": "direct"})
	require.NoError(t, err)
	direct := out["direct"].([]any)
	require.Len(t, direct, 1)
	assert.Equal(t, "a", direct[0].(map[string]any)["id"])
	assert.EqualValues(t, 2, direct[0].(map[string]any)["unread"])
	assert.NotContains(t, out, "group")

	out, err = e.call(bob, t, "MarkRead", map[string]any{"messageIds": []any{msgID}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, out["updated"])

	out, err = e.call(bob, t, "FetchConversation", map[string]any{"type": "direct", "id": "a", "limit": 1})
	require.NoError(t, err)
	history := out["messages"].([]any)
	require.Len(t, history, 1)
	assert.Equal(t, "again", history[0].(map[string]any)["text"])
}

func TestChatService_GroupFlow(t *testing.T) {
	e := newTestEnv(t)
	g, err := e.groups.Create(context.Background(), "a", "team", []string{"b"})
	require.NoError(t, err)

	_, err = e.call(e.as(t, "b"), t, "SendGroupMessage", map[string]any{"groupId": g.ID, "text": "hello team"})
	require.NoError(t, err)

	out, err := e.call(e.as(t, "a"), t, "UnreadCounts", map[string]any{})
	require.NoError(t, err)
	groups := out["group"].([]any)
	require.Len(t, groups, 1)
	assert.Equal(t, g.ID, groups[0].(map[string]any)["id"])
	assert.EqualValues(t, 1, groups[0].(map[string]any)["unread"])

	_, err = e.call(e.as(t, "c"), t, "FetchConversation", map[string]any{"type": "group", "id": g.ID})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}

func TestChatService_ErrorCodes(t *testing.T) {
	e := newTestEnv(t)
	alice := e.as(t, "a")

	cases := []struct {
		name   string
		method string
		in     map[string]any
		code   codes.Code
	}{
		{"self message", "SendDirectMessage", map[string]any{"toUserId": "a", "text": "x"}, codes.InvalidArgument},
		{"empty content", "SendDirectMessage", map[string]any{"toUserId": "b"}, codes.InvalidArgument},
		{"unknown user", "SendDirectMessage", map[string]any{"toUserId": "zzz", "text": "x"}, codes.NotFound},
		{"unknown group", "SendGroupMessage", map[string]any{"groupId": "nope", "text": "x"}, codes.NotFound},
		{"empty ids", "MarkRead", map[string]any{"messageIds": []any{}}, codes.InvalidArgument},
		{"bad kind", "UnreadCounts", map[string]any{"kind": "channel"}, codes.InvalidArgument},
		{"bad type", "FetchConversation", map[string]any{"type": "channel", "id": "b"}, codes.InvalidArgument},
		{"bad before", "FetchConversation", map[string]any{"type": "direct", "id": "b", "before": "yesterday"}, codes.InvalidArgument},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.call(alice, t, tc.method, tc.in)
			assert.Equal(t, tc.code, status.Code(err))
		})
	}
}

func TestToStatus(t *testing.T) {
	assert.NoError(t, toStatus(nil))
	assert.Equal(t, codes.InvalidArgument, status.Code(toStatus(domain.ErrTextTooLong)))
	assert.Equal(t, codes.PermissionDenied, status.Code(toStatus(domain.ErrNotGroupAdmin)))
	assert.Equal(t, codes.NotFound, status.Code(toStatus(domain.ErrGroupNotFound)))
	assert.Equal(t, codes.DeadlineExceeded, status.Code(toStatus(context.DeadlineExceeded)))

	err := toStatus(assert.AnError)
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.Equal(t, "internal server error", status.Convert(err).Message())
}

func TestUnaryServerInterceptor_RecoversPanic(t *testing.T) {
	ic := UnaryServerInterceptor(time.Second)
	_, err := ic(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/x/Panic"},
		func(context.Context, any) (any, error) { panic("boom") })
	assert.Equal(t, codes.Internal, status.Code(err))

	_, err = ic(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/x/Deadline"},
		func(ctx context.Context, _ any) (any, error) {
			_, ok := ctx.Deadline()
			assert.True(t, ok)
			return nil, nil
		})
	assert.NoError(t, err)
}
