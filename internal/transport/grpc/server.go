package grpcx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cwrk-planet/chat-service/internal/auth"
	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/service"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "chat.v1.ChatService"

// Сообщения сервиса передаются как google.protobuf.Struct с теми же полями,
// что и JSON в REST API.
type ChatServer struct {
	messages *service.MessageService
}

func NewChatServer(messages *service.MessageService) *ChatServer {
	return &ChatServer{messages: messages}
}

type sendRequest struct {
	ToUserID   string             `json:"toUserId"`
	Username   string             `json:"username"`
	GroupID    string             `json:"groupId"`
	Text       string             `json:"text"`
	Attachment *domain.Attachment `json:"attachment"`
}

func (r sendRequest) content() service.Content {
	return service.Content{Text: r.Text, Attachment: r.Attachment}
}

type markReadRequest struct {
	MessageIDs []string `json:"messageIds"`
}

type unreadRequest struct {
	Kind string `json:"kind"`
}

type fetchRequest struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	Before string `json:"before"`
	Limit  int    `json:"limit"`
}

func (s *ChatServer) SendDirectMessage(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req sendRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, err
	}
	userID := currentUser(ctx)

	if req.ToUserID == "" && req.Username != "" {
		msg, user, err := s.messages.SendDirectByUsername(ctx, userID, req.Username, req.content())
		if err != nil {
			return nil, toStatus(err)
		}
		return toStruct(map[string]any{"message": msg, "user": user})
	}

	msg, err := s.messages.SendDirect(ctx, userID, req.ToUserID, req.content())
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(map[string]any{"message": msg})
}

func (s *ChatServer) SendGroupMessage(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req sendRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, err
	}
	msg, err := s.messages.SendGroup(ctx, currentUser(ctx), req.GroupID, req.content())
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(map[string]any{"message": msg})
}

func (s *ChatServer) MarkRead(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req markReadRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, err
	}
	n, err := s.messages.MarkRead(ctx, currentUser(ctx), req.MessageIDs)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(map[string]any{"updated": n})
}

// UnreadCounts: kind = direct | group, пустой kind возвращает оба списка.
func (s *ChatServer) UnreadCounts(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req unreadRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, err
	}
	userID := currentUser(ctx)
	out := map[string]any{}

	if req.Kind == "" || req.Kind == string(domain.TargetDirect) {
		counts, err := s.messages.DirectUnreadCounts(ctx, userID)
		if err != nil {
			return nil, toStatus(err)
		}
		out["direct"] = counts
	}
	if req.Kind == "" || req.Kind == string(domain.TargetGroup) {
		counts, err := s.messages.GroupUnreadCounts(ctx, userID)
		if err != nil {
			return nil, toStatus(err)
		}
		out["group"] = counts
	}
	if len(out) == 0 {
		return nil, status.Errorf(codes.InvalidArgument, "unknown kind %q", req.Kind)
	}
	return toStruct(out)
}

func (s *ChatServer) FetchConversation(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req fetchRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, err
	}
	userID := currentUser(ctx)

	var (
		msgs []domain.Message
		err  error
	)
	switch domain.TargetKind(req.Type) {
	case domain.TargetDirect:
		msgs, err = s.messages.DirectHistory(ctx, userID, req.ID, req.Before, req.Limit)
	case domain.TargetGroup:
		msgs, err = s.messages.GroupHistory(ctx, userID, req.ID, req.Before, req.Limit)
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown conversation type %q", req.Type)
	}
	if err != nil {
		return nil, toStatus(err)
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return toStruct(map[string]any{"messages": msgs})
}

type chatService interface {
	SendDirectMessage(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SendGroupMessage(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MarkRead(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UnreadCounts(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FetchConversation(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(chatService, context.Context, *structpb.Struct) (*structpb.Struct, error)

func handler(name string, call unaryMethod) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(chatService), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(chatService), ctx, req.(*structpb.Struct))
			})
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*chatService)(nil),
	Methods: []grpc.MethodDesc{
		handler("SendDirectMessage", chatService.SendDirectMessage),
		handler("SendGroupMessage", chatService.SendGroupMessage),
		handler("MarkRead", chatService.MarkRead),
		handler("UnreadCounts", chatService.UnreadCounts),
		handler("FetchConversation", chatService.FetchConversation),
	},
	Metadata: "chat/v1/chat.proto",
}

func Register(s grpc.ServiceRegistrar, srv *ChatServer) {
	s.RegisterService(&serviceDesc, srv)
}

// Invoke вызывает метод ChatService на клиентском соединении.
func Invoke(ctx context.Context, cc grpc.ClientConnInterface, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func currentUser(ctx context.Context) string {
	id, _ := auth.UserIDFromCtx(ctx)
	return id
}

func fromStruct(in *structpb.Struct, dst any) error {
	raw, err := json.Marshal(in.AsMap())
	if err != nil {
		return status.Error(codes.InvalidArgument, "invalid request")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	return nil
}

func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("grpc: marshal response: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("grpc: unmarshal response: %w", err)
	}
	return structpb.NewStruct(m)
}
