package sessionrpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/catchat/chaterr"
	"xdao.co/catchat/model"
)

// Client drives a remote session over the Session gRPC service.
type Client struct {
	cc     *grpc.ClientConn
	client SessionClient

	// Timeout applies per unary RPC when non-zero. Streams are bounded by
	// the caller's context only.
	Timeout time.Duration
}

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, chaterr.Transport("dial", err)
	}
	return NewClient(cc), nil
}

// NewClient wraps an existing connection. Close closes it.
func NewClient(cc *grpc.ClientConn) *Client {
	return &Client{cc: cc, client: NewSessionClient(cc)}
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) Connect(ctx context.Context) error {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	_, err := c.client.Connect(ctx, &emptypb.Empty{})
	return mapRPC(err)
}

func (c *Client) SetName(ctx context.Context, name string) error {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	_, err := c.client.SetName(ctx, wrapperspb.String(name))
	return mapRPC(err)
}

func (c *Client) SubmitName(ctx context.Context) error {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	_, err := c.client.SubmitName(ctx, &emptypb.Empty{})
	return mapRPC(err)
}

// Input replaces the remote composer's text; sent reports whether a
// trailing newline caused it to be published.
func (c *Client) Input(ctx context.Context, text string) (sent bool, err error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.Input(ctx, wrapperspb.String(text))
	if err != nil {
		return false, mapRPC(err)
	}
	return reply.GetValue(), nil
}

func (c *Client) Send(ctx context.Context) (sent bool, err error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.Send(ctx, &emptypb.Empty{})
	if err != nil {
		return false, mapRPC(err)
	}
	return reply.GetValue(), nil
}

func (c *Client) State(ctx context.Context) (model.SessionView, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.State(ctx, &emptypb.Empty{})
	if err != nil {
		return model.SessionView{}, mapRPC(err)
	}
	var v model.SessionView
	if err := json.Unmarshal([]byte(reply.GetValue()), &v); err != nil {
		return model.SessionView{}, chaterr.Decoding("session-view", err)
	}
	return v, nil
}

// WatchState yields the session view now and after every change. The
// sequence ends when ctx is cancelled or the server goes away.
func (c *Client) WatchState(ctx context.Context) iter.Seq2[model.SessionView, error] {
	return func(yield func(model.SessionView, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		stream, err := c.client.WatchState(ctx, &emptypb.Empty{})
		if err != nil {
			yield(model.SessionView{}, mapRPC(err))
			return
		}
		drain[model.SessionView](stream, "session-view", yield)
	}
}

// Watch yields entries from topic; an empty topic means the server's
// default room.
func (c *Client) Watch(ctx context.Context, topic string) iter.Seq2[model.EntryView, error] {
	return func(yield func(model.EntryView, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		stream, err := c.client.Watch(ctx, wrapperspb.String(topic))
		if err != nil {
			yield(model.EntryView{}, mapRPC(err))
			return
		}
		drain[model.EntryView](stream, "entry-view", yield)
	}
}

type stringReceiver interface {
	Recv() (*wrapperspb.StringValue, error)
}

func drain[T any](stream stringReceiver, op string, yield func(T, error) bool) {
	for {
		msg, err := stream.Recv()
		if errors.Is(err, io.EOF) || status.Code(err) == codes.Canceled {
			return
		}
		if err != nil {
			yield(*new(T), mapRPC(err))
			return
		}
		var v T
		if err := json.Unmarshal([]byte(msg.GetValue()), &v); err != nil {
			yield(v, chaterr.Decoding(op, err))
			return
		}
		if !yield(v, nil) {
			return
		}
	}
}

func (c *Client) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, c.Timeout)
}
