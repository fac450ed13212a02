// Package chatroom consumes a chat topic: it decodes each delivery as a
// schema.ChatMessage, fetches the credential it links to and checks that
// the credential was issued to the peer that actually sent the message.
package chatroom

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ipfs/go-cid"
	"github.com/libp2p/go-libp2p/core/peer"
	"go.uber.org/zap"

	"xdao.co/catchat/chaterr"
	"xdao.co/catchat/credential"
	"xdao.co/catchat/ipfs"
	"xdao.co/catchat/schema"
)

// Entry is one message ready for display.
type Entry struct {
	Sender     peer.ID
	SenderCID  cid.Cid
	Credential cid.Cid
	Message    schema.Body
	Received   time.Time

	// Address and Name come from the sender's credential. They are only
	// set when Verified.
	Address  common.Address
	Name     string
	Verified bool
}

// Subscriber opens topic subscriptions. *ipfs.Client implements it.
type Subscriber interface {
	PubsubSub(ctx context.Context, topic string) (*ipfs.Subscription, error)
}

// CredentialVerifier resolves and checks a credential. *credential.Verifier
// implements it.
type CredentialVerifier interface {
	Verify(ctx context.Context, id cid.Cid) (schema.Credential, error)
}

type Options struct {
	Logger *zap.Logger
	// Now stamps received entries. Defaults to time.Now.
	Now func() time.Time
}

// Room is a live view of one topic. Its lifetime is bounded by the context
// given to Join; cancel it (or call Close) when the window goes away.
type Room struct {
	ctx      context.Context
	sub      *ipfs.Subscription
	verifier CredentialVerifier
	logger   *zap.Logger
	now      func() time.Time
}

func Join(ctx context.Context, s Subscriber, topic string, v CredentialVerifier, opts Options) (*Room, error) {
	sub, err := s.PubsubSub(ctx, topic)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Room{
		ctx:      ctx,
		sub:      sub,
		verifier: v,
		logger:   logger.With(zap.Namespace("chatroom"), zap.String("topic", topic)),
		now:      now,
	}, nil
}

func (r *Room) Topic() string { return r.sub.Topic() }

// Next returns the next displayable entry. Error envelopes from the node,
// undecodable payloads and impersonation attempts are logged and skipped.
// io.EOF means the room was closed; other errors end the stream.
func (r *Room) Next() (Entry, error) {
	logger := r.logger.With(zap.String("site", "Next"))
	for {
		msg, err := r.sub.Next()
		if err != nil {
			var apiErr *ipfs.APIError
			if errors.As(err, &apiErr) {
				logger.Warn("node reported an error", zap.Error(apiErr))
				continue
			}
			return Entry{}, err
		}

		entry, err := r.entry(msg)
		if err != nil {
			logger.Debug("message dropped", zap.Stringer("from", msg.From), zap.Error(err))
			continue
		}
		return entry, nil
	}
}

func (r *Room) entry(msg ipfs.Message) (Entry, error) {
	var chat schema.ChatMessage
	if err := json.Unmarshal(msg.Data, &chat); err != nil {
		return Entry{}, chaterr.Decoding("chat-message", err)
	}
	entry := Entry{
		Sender:     msg.From,
		SenderCID:  msg.Sender,
		Credential: chat.Signature,
		Message:    chat.Message,
		Received:   r.now(),
	}

	cred, err := r.verifier.Verify(r.ctx, chat.Signature)
	switch {
	case chaterr.IsKind(err, chaterr.KindTransport):
		// The credential may show up later; show the message unverified.
		r.logger.Debug("credential unavailable", zap.String("site", "entry"),
			zap.Stringer("credential", chat.Signature), zap.Error(err))
		return entry, nil
	case err != nil:
		return Entry{}, err
	case cred.Data.PeerID != msg.From:
		return Entry{}, chaterr.New(chaterr.KindVerification, "chat-message",
			"credential issued to "+cred.Data.PeerID.String())
	}
	entry.Address = cred.Address
	entry.Name = cred.Data.Name
	entry.Verified = true
	return entry, nil
}

// Entries returns the room as a sequence. It ends when the room is closed;
// breaking out of the loop closes the room.
func (r *Room) Entries() iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		defer r.Close()
		for {
			e, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(e, err) || err != nil {
				return
			}
		}
	}
}

func (r *Room) Close() error { return r.sub.Close() }

var _ CredentialVerifier = (*credential.Verifier)(nil)
