package session

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/ipfs/go-cid"
	"go.uber.org/zap"

	"xdao.co/catchat/chaterr"
	"xdao.co/catchat/schema"
)

// Publisher publishes raw payloads on a topic. *ipfs.Client implements it.
type Publisher interface {
	PubsubPub(ctx context.Context, topic string, payload []byte) error
}

// CredentialSource yields the credential identifier messages link to, once
// there is one. *Session implements it.
type CredentialSource interface {
	Credential() (cid.Cid, bool)
}

// Composer accumulates outgoing text for one topic.
type Composer struct {
	source CredentialSource
	pub    Publisher
	topic  string
	logger *zap.Logger

	mu   sync.Mutex
	text string
}

func NewComposer(source CredentialSource, pub Publisher, topic string, opts Options) *Composer {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Composer{
		source: source,
		pub:    pub,
		topic:  topic,
		logger: logger.With(zap.Namespace("composer"), zap.String("topic", topic)),
	}
}

func (c *Composer) Topic() string { return c.topic }

// Text returns the pending text.
func (c *Composer) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// Input replaces the pending text with the editor contents. Text ending in
// a newline is sent right away; sent reports whether that happened.
func (c *Composer) Input(ctx context.Context, text string) (sent bool, err error) {
	c.mu.Lock()
	c.text = text
	c.mu.Unlock()
	if !strings.HasSuffix(text, "\n") {
		return false, nil
	}
	return c.Send(ctx)
}

// Send publishes the pending text as a ChatMessage linking to the current
// credential and clears it.
//
// Without a credential nothing is published and the text is kept; this is
// not an error since views only offer sending when Ready.
func (c *Composer) Send(ctx context.Context) (sent bool, err error) {
	logger := c.logger.With(zap.String("site", "Send"))

	id, ok := c.source.Credential()
	if !ok {
		logger.Debug("send refused: no credential")
		return false, nil
	}

	c.mu.Lock()
	text := c.text
	c.mu.Unlock()

	payload, err := json.Marshal(schema.ChatMessage{Message: schema.Text(text), Signature: id})
	if err != nil {
		return false, chaterr.Encoding("compose", err)
	}
	if err := c.pub.PubsubPub(ctx, c.topic, payload); err != nil {
		logger.Warn("publish failed", zap.Error(err))
		return false, err
	}

	c.mu.Lock()
	if c.text == text {
		c.text = ""
	}
	c.mu.Unlock()
	logger.Debug("message published", zap.Int("bytes", len(payload)))
	return true, nil
}
