package model

import (
	"time"

	"xdao.co/catchat/chatroom"
	"xdao.co/catchat/schema"
	"xdao.co/catchat/session"
)

// SessionView is what a view needs to render the identity handshake.
//
// Phase is one of AwaitingWallet, AwaitingName, AwaitingSignature, Ready.
// Busy is set while a wallet or network call for the current phase is in
// flight.
type SessionView struct {
	Phase        string      `json:"phase"`
	Busy         bool        `json:"busy"`
	Error        *CodedError `json:"error,omitempty"`
	Address      string      `json:"address,omitempty"`
	PeerID       string      `json:"peerID,omitempty"`
	Name         string      `json:"name,omitempty"`
	CredentialID string      `json:"credentialID,omitempty"`
}

func SessionViewOf(st session.State) SessionView {
	v := SessionView{Phase: st.Phase().String()}
	switch st := st.(type) {
	case session.AwaitingWallet:
		v.Error = ErrorOf(st.Err)
	case session.Recovering, session.Connecting:
		v.Busy = true
	case session.AwaitingName:
		v.Address = st.Address.Hex()
		v.PeerID = st.PeerID.String()
		v.Name = st.Name
	case session.AwaitingSignature:
		v.Busy = true
		v.Address = st.Address.Hex()
		v.PeerID = st.Payload.PeerID.String()
		v.Name = st.Payload.Name
	case session.Minting:
		v.Busy = true
		v.Address = st.Credential.Address.Hex()
		v.PeerID = st.Credential.Data.PeerID.String()
		v.Name = st.Credential.Data.Name
	case session.Ready:
		v.CredentialID = st.CredentialID.String()
	}
	return v
}

type MessageKind string

const (
	KindText MessageKind = "text"
	KindBan  MessageKind = "ban"
	KindMod  MessageKind = "mod"
)

// EntryView is one chat line. Target is set for moderation messages.
type EntryView struct {
	Kind       MessageKind `json:"kind"`
	Text       string      `json:"text,omitempty"`
	Target     string      `json:"target,omitempty"`
	Sender     string      `json:"sender"`
	Credential string      `json:"credential"`
	Address    string      `json:"address,omitempty"`
	Name       string      `json:"name,omitempty"`
	Verified   bool        `json:"verified"`
	Received   time.Time   `json:"received"`
}

func EntryViewOf(e chatroom.Entry) EntryView {
	v := EntryView{
		Sender:     e.SenderCID.String(),
		Credential: e.Credential.String(),
		Verified:   e.Verified,
		Received:   e.Received.UTC(),
	}
	if e.Verified {
		v.Address = e.Address.Hex()
		v.Name = e.Name
	}
	switch m := e.Message.(type) {
	case schema.Text:
		v.Kind = KindText
		v.Text = string(m)
	case schema.Ban:
		v.Kind = KindBan
		v.Target = m.PeerID.String()
	case schema.Mod:
		v.Kind = KindMod
		v.Target = m.PeerID.String()
	}
	return v
}
