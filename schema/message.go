package schema

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ipfs/go-cid"
	"github.com/libp2p/go-libp2p/core/peer"
)

// Body is the content of a ChatMessage: Text, Ban or Mod.
type Body interface {
	bodyTag() string
}

// Text is a plain chat line.
type Text string

// Ban asks moderators to ignore a participant.
type Ban struct {
	Address common.Address `json:"address"`
	PeerID  peer.ID        `json:"peer_id"`
}

// Mod promotes a participant to moderator.
type Mod struct {
	PeerID peer.ID `json:"peer_id"`
}

func (Text) bodyTag() string { return "Text" }
func (Ban) bodyTag() string  { return "Ban" }
func (Mod) bodyTag() string  { return "Mod" }

// ChatMessage is published on a topic. Signature links to the sender's
// Credential rather than embedding it.
//
// The body is externally tagged on the wire:
//
//	{"message":{"Text":"hi"},"signature":{"/":"bafy..."}}
type ChatMessage struct {
	Message   Body
	Signature cid.Cid
}

type chatMessageJSON struct {
	Message   map[string]json.RawMessage `json:"message"`
	Signature cid.Cid                    `json:"signature"`
}

func (m ChatMessage) MarshalJSON() ([]byte, error) {
	if m.Message == nil {
		return nil, fmt.Errorf("chat message: missing body")
	}
	if !m.Signature.Defined() {
		return nil, fmt.Errorf("chat message: missing credential link")
	}
	body, err := json.Marshal(m.Message)
	if err != nil {
		return nil, err
	}
	return json.Marshal(chatMessageJSON{
		Message:   map[string]json.RawMessage{m.Message.bodyTag(): body},
		Signature: m.Signature,
	})
}

func (m *ChatMessage) UnmarshalJSON(b []byte) error {
	var raw chatMessageJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw.Message) != 1 {
		return fmt.Errorf("chat message: expected exactly one body variant, got %d", len(raw.Message))
	}
	if !raw.Signature.Defined() {
		return fmt.Errorf("chat message: missing credential link")
	}
	var body Body
	for tag, v := range raw.Message {
		switch tag {
		case "Text":
			var t Text
			if err := json.Unmarshal(v, &t); err != nil {
				return fmt.Errorf("chat message: Text: %w", err)
			}
			body = t
		case "Ban":
			var ban Ban
			if err := json.Unmarshal(v, &ban); err != nil {
				return fmt.Errorf("chat message: Ban: %w", err)
			}
			body = ban
		case "Mod":
			var mod Mod
			if err := json.Unmarshal(v, &mod); err != nil {
				return fmt.Errorf("chat message: Mod: %w", err)
			}
			body = mod
		default:
			return fmt.Errorf("chat message: unknown body variant %q", tag)
		}
	}
	m.Message = body
	m.Signature = raw.Signature
	return nil
}
