package sessionrpc

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/catchat/chatroom"
	"xdao.co/catchat/model"
	"xdao.co/catchat/session"
)

// JoinFunc opens a room on topic for the lifetime of ctx.
type JoinFunc func(ctx context.Context, topic string) (*chatroom.Room, error)

// Server exposes a session.Session, its composer and room joining over the
// Session gRPC service.
type Server struct {
	UnimplementedSessionServer
	Session  *session.Session
	Composer *session.Composer
	Join     JoinFunc
	Logger   *zap.Logger
}

func (s *Server) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *Server) Connect(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	if s == nil || s.Session == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing session")
	}
	if err := s.Session.Connect(ctx); err != nil {
		return nil, mapErr(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) SetName(ctx context.Context, in *wrapperspb.StringValue) (*emptypb.Empty, error) {
	if s == nil || s.Session == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing session")
	}
	if err := s.Session.SetName(ctx, in.GetValue()); err != nil {
		return nil, mapErr(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) SubmitName(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	if s == nil || s.Session == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing session")
	}
	if err := s.Session.SubmitName(ctx); err != nil {
		return nil, mapErr(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) Input(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	if s == nil || s.Composer == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing composer")
	}
	sent, err := s.Composer.Input(ctx, in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bool(sent), nil
}

func (s *Server) Send(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BoolValue, error) {
	if s == nil || s.Composer == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing composer")
	}
	sent, err := s.Composer.Send(ctx)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bool(sent), nil
}

func (s *Server) State(_ context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	if s == nil || s.Session == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing session")
	}
	return marshalView(model.SessionViewOf(s.Session.State()))
}

func (s *Server) WatchState(_ *emptypb.Empty, stream Session_WatchStateServer) error {
	if s == nil || s.Session == nil {
		return status.Error(codes.FailedPrecondition, "missing session")
	}
	for st := range s.Session.Watch(stream.Context()) {
		msg, err := marshalView(model.SessionViewOf(st))
		if err != nil {
			return err
		}
		if err := stream.Send(msg); err != nil {
			return err
		}
	}
	return nil
}

// Watch streams verified room entries for the requested topic, or the
// composer's topic when none is given, until the client goes away.
func (s *Server) Watch(in *wrapperspb.StringValue, stream Session_WatchServer) error {
	if s == nil || s.Join == nil {
		return status.Error(codes.FailedPrecondition, "missing room")
	}
	topic := in.GetValue()
	if topic == "" && s.Composer != nil {
		topic = s.Composer.Topic()
	}
	if topic == "" {
		return status.Error(codes.InvalidArgument, "missing topic")
	}

	room, err := s.Join(stream.Context(), topic)
	if err != nil {
		return mapErr(err)
	}
	logger := s.logger().With(zap.String("site", "Watch"), zap.String("topic", topic))
	logger.Debug("room opened")
	for entry, err := range room.Entries() {
		if err != nil {
			logger.Debug("room ended", zap.Error(err))
			return mapErr(err)
		}
		msg, err := marshalView(model.EntryViewOf(entry))
		if err != nil {
			return err
		}
		if err := stream.Send(msg); err != nil {
			return err
		}
	}
	return nil
}

func marshalView(v any) (*wrapperspb.StringValue, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "view encoding failed")
	}
	return wrapperspb.String(string(b)), nil
}
