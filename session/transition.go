package session

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"xdao.co/catchat/chaterr"
	"xdao.co/catchat/credential"
)

// Initial returns the starting state. When a credential pointer is stored,
// readable or not, the machine first tries to recover it.
func Initial(stored bool) (State, []Effect) {
	if stored {
		return Recovering{}, []Effect{RecoverCredential{}}
	}
	return AwaitingWallet{}, nil
}

// Transition applies ev to st. It performs no I/O.
//
// Every failure reported by an effect returns the machine to
// AwaitingWallet with the error recorded, from where Connect starts over.
func Transition(st State, ev Event) (State, []Effect) {
	switch ev := ev.(type) {
	case Connect:
		switch st.(type) {
		case AwaitingWallet, Recovering:
			return Connecting{Attempt: ev.Attempt}, []Effect{
				RequestAccounts{Attempt: ev.Attempt},
				RequestPeerID{Attempt: ev.Attempt},
			}
		}

	case AccountResolved:
		if c, ok := st.(Connecting); ok && c.Attempt == ev.Attempt && !c.HasAddress {
			if ev.Err != nil {
				return AwaitingWallet{Err: ev.Err}, nil
			}
			c.Address, c.HasAddress = ev.Address, true
			return c.advance(), []Effect{RequestReverseName{Attempt: c.Attempt, Address: c.Address}}
		}

	case PeerResolved:
		if c, ok := st.(Connecting); ok && c.Attempt == ev.Attempt && c.PeerID == "" {
			if ev.Err != nil {
				return AwaitingWallet{Err: ev.Err}, nil
			}
			if ev.PeerID == "" {
				return AwaitingWallet{Err: chaterr.New(chaterr.KindDecoding, "id", "empty peer identity")}, nil
			}
			c.PeerID = ev.PeerID
			return c.advance(), nil
		}

	case NameResolved:
		if c, ok := st.(Connecting); ok && c.Attempt == ev.Attempt && c.HasAddress && !c.NameDone {
			// Best effort: a failed lookup leaves the name empty.
			if ev.Err == nil {
				c.Name = ev.Name
			}
			c.NameDone = true
			return c.advance(), nil
		}

	case SetName:
		if n, ok := st.(AwaitingName); ok {
			n.Name = ev.Name
			return n, nil
		}

	case SubmitName:
		n, ok := st.(AwaitingName)
		if !ok {
			break
		}
		if n.Address == (common.Address{}) || n.PeerID == "" {
			return st, []Effect{Reject{Event: ev, Err: chaterr.New(chaterr.KindPrecondition, "submit-name", "address and peer identity required")}}
		}
		payload := credential.NewPayload(n.PeerID, n.Name)
		return AwaitingSignature{Attempt: n.Attempt, Address: n.Address, Payload: payload},
			[]Effect{RequestSignature{Attempt: n.Attempt, Address: n.Address, Payload: payload}}

	case Signed:
		if s, ok := st.(AwaitingSignature); ok && s.Attempt == ev.Attempt {
			if ev.Err != nil {
				return AwaitingWallet{Err: ev.Err}, nil
			}
			cred, err := credential.Assemble(s.Address, s.Payload, ev.Signature)
			if err != nil {
				return AwaitingWallet{Err: err}, nil
			}
			return Minting{Attempt: s.Attempt, Credential: cred},
				[]Effect{MintCredential{Attempt: s.Attempt, Credential: cred}}
		}

	case Minted:
		if m, ok := st.(Minting); ok && m.Attempt == ev.Attempt {
			if ev.Err != nil {
				return AwaitingWallet{Err: ev.Err}, nil
			}
			return Ready{CredentialID: ev.ID}, nil
		}

	case Recovered:
		// A verified credential wins whenever it arrives; completions of a
		// handshake started meanwhile are then stale.
		if _, ready := st.(Ready); ev.Err == nil && ev.ID.Defined() && !ready {
			return Ready{CredentialID: ev.ID}, nil
		}
		if _, ok := st.(Recovering); ok {
			return AwaitingWallet{}, nil
		}
	}
	return st, []Effect{Reject{Event: ev, Err: notApplicable(st, ev)}}
}

// advance moves to AwaitingName once all three lookups have completed.
func (c Connecting) advance() State {
	if c.HasAddress && c.PeerID != "" && c.NameDone {
		return AwaitingName{Attempt: c.Attempt, Address: c.Address, PeerID: c.PeerID, Name: c.Name}
	}
	return c
}

func notApplicable(st State, ev Event) error {
	return chaterr.New(chaterr.KindPrecondition, "transition",
		fmt.Sprintf("%T not applicable in %T", ev, st))
}
