package session

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ipfs/go-cid"
	"github.com/libp2p/go-libp2p/core/peer"

	"xdao.co/catchat/schema"
)

// Event is an input to Transition: a user action or the completion of an
// Effect. Completions carry the Attempt of the Connect that caused them so
// late results of an abandoned attempt are dropped.
type Event interface {
	isEvent()
}

// Connect starts an attempt. Session assigns Attempt.
type Connect struct {
	Attempt uint64
}

type AccountResolved struct {
	Attempt uint64
	Address common.Address
	Err     error
}

type PeerResolved struct {
	Attempt uint64
	PeerID  peer.ID
	Err     error
}

type NameResolved struct {
	Attempt uint64
	Name    string
	Err     error
}

// SetName edits the display name while AwaitingName.
type SetName struct {
	Name string
}

// SubmitName asks the wallet to sign the chosen name.
type SubmitName struct{}

type Signed struct {
	Attempt   uint64
	Signature schema.Signature
	Err       error
}

type Minted struct {
	Attempt uint64
	ID      cid.Cid
	Err     error
}

// Recovered completes RecoverCredential. The credential was verified by the
// effect; a nil Err means ID is trusted.
type Recovered struct {
	ID  cid.Cid
	Err error
}

func (Connect) isEvent()         {}
func (AccountResolved) isEvent() {}
func (PeerResolved) isEvent()    {}
func (NameResolved) isEvent()    {}
func (SetName) isEvent()         {}
func (SubmitName) isEvent()      {}
func (Signed) isEvent()          {}
func (Minted) isEvent()          {}
func (Recovered) isEvent()       {}

// Effect is work requested by Transition. Session executes effects; tests
// inspect them.
type Effect interface {
	isEffect()
}

type RequestAccounts struct{ Attempt uint64 }

type RequestPeerID struct{ Attempt uint64 }

type RequestReverseName struct {
	Attempt uint64
	Address common.Address
}

type RequestSignature struct {
	Attempt uint64
	Address common.Address
	Payload schema.ChatID
}

type MintCredential struct {
	Attempt    uint64
	Credential schema.Credential
}

type RecoverCredential struct{}

// Reject reports an event that was not applicable. Nothing was changed and
// no call was made.
type Reject struct {
	Event Event
	Err   error
}

func (RequestAccounts) isEffect()    {}
func (RequestPeerID) isEffect()      {}
func (RequestReverseName) isEffect() {}
func (RequestSignature) isEffect()   {}
func (MintCredential) isEffect()     {}
func (RecoverCredential) isEffect()  {}
func (Reject) isEffect()             {}
