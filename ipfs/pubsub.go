package ipfs

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/ipfs/go-cid"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multibase"
	"go.uber.org/zap"

	"xdao.co/catchat/chaterr"
	"xdao.co/catchat/cidutil"
)

// Message is one delivery received on a subscription.
type Message struct {
	// From is the transport-level sender; it comes from the envelope, never
	// from Data.
	From peer.ID
	// Sender is From projected into CID space.
	Sender cid.Cid
	Data   []byte
}

// Subscription is a lazy, cancellable sequence of deliveries on one topic.
//
// Next returns one item at a time:
//   - a Message and nil error for a delivery;
//   - an *APIError for an error envelope; the stream continues;
//   - io.EOF once the stream ended cleanly or the context was cancelled;
//   - a Transport or ProtocolDecode error, after which the stream is over.
//
// Cancelling the context passed to PubsubSub is not an error. Once it is
// cancelled no further Message is returned, even if one was already read.
type Subscription struct {
	ctx       context.Context
	topic     string
	resp      *http.Response
	r         *bufio.Reader
	multibase bool
	logger    *zap.Logger

	closeOnce sync.Once
	closed    atomic.Bool
	err       error // terminal state, owned by the reader; io.EOF after a clean end
}

// PubsubSub subscribes to topic. The subscription lives until ctx is
// cancelled, the stream ends, or Close is called.
func (c *Client) PubsubSub(ctx context.Context, topic string) (*Subscription, error) {
	arg := topic
	if c.multibase {
		t, err := encodeTopic(topic)
		if err != nil {
			return nil, chaterr.Encoding("pubsub/sub", err)
		}
		arg = t
	}
	resp, err := c.post(ctx, "pubsub/sub", nil, []string{arg}, nil, "")
	if err != nil {
		return nil, err
	}
	s := &Subscription{
		ctx:       ctx,
		topic:     topic,
		resp:      resp,
		r:         bufio.NewReader(resp.Body),
		multibase: c.multibase,
		logger:    c.logger.With(zap.String("site", "PubsubSub"), zap.String("topic", topic)),
	}
	s.logger.Debug("subscribed")
	return s, nil
}

// Topic returns the subscribed topic.
func (s *Subscription) Topic() string { return s.topic }

// Next blocks until the next item is available. See Subscription.
func (s *Subscription) Next() (Message, error) {
	if s.err != nil {
		return Message{}, s.err
	}
	for {
		if s.cancelled() {
			return Message{}, s.finish(io.EOF)
		}
		line, rerr := s.r.ReadBytes('\n')
		if s.cancelled() {
			return Message{}, s.finish(io.EOF)
		}
		if rerr != nil && !errors.Is(rerr, io.EOF) {
			// A partial record cut off by a dropped connection is not
			// decodable; report the disconnect instead.
			return Message{}, s.finish(s.readError(rerr))
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			if rerr != nil {
				return Message{}, s.finish(s.readError(rerr))
			}
			continue
		}

		msg, err := s.decode(line)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				if rerr != nil {
					// Surface the error envelope; the read error ends the stream next time.
					s.err = s.readError(rerr)
					s.release()
				}
				return Message{}, err
			}
			return Message{}, s.finish(err)
		}
		if rerr != nil {
			s.err = s.readError(rerr)
			s.release()
		}
		return msg, nil
	}
}

// All returns the subscription as a sequence. Error envelopes are yielded
// alongside a zero Message; iteration stops after a terminal error or a
// clean end, and breaking out of the loop closes the subscription.
func (s *Subscription) All() iter.Seq2[Message, error] {
	return func(yield func(Message, error) bool) {
		defer s.Close()
		for {
			msg, err := s.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(msg, err) {
				return
			}
			if err != nil && s.err != nil {
				return
			}
		}
	}
}

// Close releases the underlying connection and unblocks a pending Next,
// which then reports io.EOF. It is safe to call more than once and from
// another goroutine.
func (s *Subscription) Close() error {
	s.closed.Store(true)
	s.release()
	return nil
}

func (s *Subscription) cancelled() bool {
	return s.closed.Load() || s.ctx.Err() != nil
}

func (s *Subscription) release() {
	s.closeOnce.Do(func() {
		_ = s.resp.Body.Close()
		s.logger.Debug("stream dropped")
	})
}

func (s *Subscription) finish(err error) error {
	s.err = err
	s.release()
	return err
}

func (s *Subscription) readError(err error) error {
	if errors.Is(err, io.EOF) {
		return io.EOF
	}
	return chaterr.Transport("pubsub/sub", err)
}

type delivery struct {
	From *string `json:"from"`
	Data *string `json:"data"`
}

// decode tries the delivery shape first and falls back to the error shape.
func (s *Subscription) decode(line []byte) (Message, error) {
	var d delivery
	if err := json.Unmarshal(line, &d); err == nil && d.From != nil && d.Data != nil {
		return s.decodeDelivery(*d.From, *d.Data)
	}
	if apiErr, ok := parseAPIError(line); ok {
		return Message{}, apiErr
	}
	return Message{}, chaterr.New(chaterr.KindProtocolDecode, "pubsub/sub",
		fmt.Sprintf("unrecognized record %q", truncate(line, 128)))
}

func (s *Subscription) decodeDelivery(from, data string) (Message, error) {
	var (
		sender  peer.ID
		payload []byte
		err     error
	)
	if s.multibase {
		sender, err = cidutil.ParsePeerID(from)
		if err == nil {
			_, payload, err = multibase.Decode(data)
		}
	} else {
		var raw []byte
		raw, err = decodeBase64Pad(from)
		if err == nil {
			sender, err = cidutil.PeerFromBytes(raw)
		}
		if err == nil {
			payload, err = decodeBase64Pad(data)
		}
	}
	if err != nil {
		return Message{}, chaterr.Wrap(chaterr.KindProtocolDecode, "pubsub/sub", "invalid delivery envelope", err)
	}
	return Message{From: sender, Sender: cidutil.PeerCID(sender), Data: payload}, nil
}

func decodeBase64Pad(s string) ([]byte, error) {
	enc, b, err := multibase.Decode(string(rune(multibase.Base64pad)) + s)
	if err != nil {
		return nil, err
	}
	if enc != multibase.Base64pad {
		return nil, fmt.Errorf("unexpected multibase encoding %q", enc)
	}
	return b, nil
}

func encodeTopic(topic string) (string, error) {
	return multibase.Encode(multibase.Base64url, []byte(topic))
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
