// Package session drives the local user from "no wallet" to a minted
// credential and composes outgoing chat messages once there.
//
// The state machine is the pure function Transition. Session runs it as an
// actor: one goroutine owns the state and consumes events in order, while the
// effects Transition returns (wallet and network calls) run concurrently and
// report back as events.
package session

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ipfs/go-cid"
	"github.com/libp2p/go-libp2p/core/peer"

	"xdao.co/catchat/schema"
)

// Phase is the coarse protocol state a view renders.
type Phase int

const (
	PhaseAwaitingWallet Phase = iota
	PhaseAwaitingName
	PhaseAwaitingSignature
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingWallet:
		return "AwaitingWallet"
	case PhaseAwaitingName:
		return "AwaitingName"
	case PhaseAwaitingSignature:
		return "AwaitingSignature"
	case PhaseReady:
		return "Ready"
	default:
		return "Unknown"
	}
}

// State is one of AwaitingWallet, Recovering, Connecting, AwaitingName,
// AwaitingSignature, Minting or Ready. Each carries only the data valid in it.
type State interface {
	Phase() Phase
	isState()
}

// AwaitingWallet waits for the user to connect. Err holds the failure that
// sent the machine back here, if any.
type AwaitingWallet struct {
	Err error
}

// Recovering checks the credential minted in an earlier session.
type Recovering struct{}

// Connecting collects the account, the node's peer identity and the
// account's reverse name, requested concurrently.
type Connecting struct {
	Attempt uint64

	Address    common.Address
	HasAddress bool
	PeerID     peer.ID
	Name       string
	NameDone   bool
}

// AwaitingName lets the user pick the display name to sign.
type AwaitingName struct {
	Attempt uint64
	Address common.Address
	PeerID  peer.ID
	Name    string
}

// AwaitingSignature waits for the wallet to sign Payload.
type AwaitingSignature struct {
	Attempt uint64
	Address common.Address
	Payload schema.ChatID
}

// Minting stores a verified credential.
type Minting struct {
	Attempt    uint64
	Credential schema.Credential
}

// Ready holds the identifier of a verified credential. Messages may be sent.
type Ready struct {
	CredentialID cid.Cid
}

func (AwaitingWallet) Phase() Phase    { return PhaseAwaitingWallet }
func (Recovering) Phase() Phase        { return PhaseAwaitingWallet }
func (Connecting) Phase() Phase        { return PhaseAwaitingWallet }
func (AwaitingName) Phase() Phase      { return PhaseAwaitingName }
func (AwaitingSignature) Phase() Phase { return PhaseAwaitingSignature }
func (Minting) Phase() Phase           { return PhaseAwaitingSignature }
func (Ready) Phase() Phase             { return PhaseReady }

func (AwaitingWallet) isState()    {}
func (Recovering) isState()        {}
func (Connecting) isState()        {}
func (AwaitingName) isState()      {}
func (AwaitingSignature) isState() {}
func (Minting) isState()           {}
func (Ready) isState()             {}
