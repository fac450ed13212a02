package session

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multihash"
	"github.com/stretchr/testify/require"

	"xdao.co/catchat/chaterr"
	"xdao.co/catchat/cidutil"
	"xdao.co/catchat/schema"
)

func testPeer(t *testing.T) peer.ID {
	t.Helper()
	mh, err := multihash.Sum([]byte("Qm123"), multihash.SHA2_256, -1)
	require.NoError(t, err)
	return peer.ID(mh)
}

func signPayload(t *testing.T, hexKey string, payload schema.ChatID) (common.Address, schema.Signature) {
	t.Helper()
	key, err := crypto.HexToECDSA(hexKey)
	require.NoError(t, err)
	msg, err := payload.SigningBytes()
	require.NoError(t, err)
	raw, err := crypto.Sign(accounts.TextHash(msg), key)
	require.NoError(t, err)
	var sig schema.Signature
	copy(sig[:], raw)
	sig[64] += 27
	return crypto.PubkeyToAddress(key.PublicKey), sig
}

const testKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

func step(t *testing.T, st State, ev Event) (State, []Effect) {
	t.Helper()
	next, effects := Transition(st, ev)
	for _, e := range effects {
		if r, ok := e.(Reject); ok {
			t.Fatalf("%T rejected in %T: %v", ev, st, r.Err)
		}
	}
	return next, effects
}

func TestTransitionFreshSession(t *testing.T) {
	id := testPeer(t)
	payload := schema.ChatID{PeerID: id, Name: "alice"}
	addr, sig := signPayload(t, testKey, payload)

	st, effects := Initial(false)
	require.Equal(t, AwaitingWallet{}, st)
	require.Empty(t, effects)

	st, effects = step(t, st, Connect{Attempt: 1})
	require.Equal(t, Connecting{Attempt: 1}, st)
	require.ElementsMatch(t, []Effect{RequestAccounts{Attempt: 1}, RequestPeerID{Attempt: 1}}, effects)

	st, effects = step(t, st, PeerResolved{Attempt: 1, PeerID: id})
	require.IsType(t, Connecting{}, st)
	require.Empty(t, effects)

	st, effects = step(t, st, AccountResolved{Attempt: 1, Address: addr})
	require.IsType(t, Connecting{}, st)
	require.Equal(t, []Effect{RequestReverseName{Attempt: 1, Address: addr}}, effects)

	// Reverse lookup failing is not fatal.
	st, _ = step(t, st, NameResolved{Attempt: 1, Err: errors.New("no reverse record")})
	require.Equal(t, AwaitingName{Attempt: 1, Address: addr, PeerID: id, Name: ""}, st)
	require.Equal(t, PhaseAwaitingName, st.Phase())

	st, _ = step(t, st, SetName{Name: "alice"})
	st, effects = step(t, st, SubmitName{})
	require.Equal(t, AwaitingSignature{Attempt: 1, Address: addr, Payload: payload}, st)
	require.Equal(t, []Effect{RequestSignature{Attempt: 1, Address: addr, Payload: payload}}, effects)

	st, effects = step(t, st, Signed{Attempt: 1, Signature: sig})
	cred := schema.Credential{Address: addr, Data: payload, Signature: sig}
	require.Equal(t, Minting{Attempt: 1, Credential: cred}, st)
	require.Equal(t, []Effect{MintCredential{Attempt: 1, Credential: cred}}, effects)

	minted, err := cidutil.DagJSONCID([]byte(`{"minted":true}`))
	require.NoError(t, err)
	st, effects = step(t, st, Minted{Attempt: 1, ID: minted})
	require.Equal(t, Ready{CredentialID: minted}, st)
	require.Empty(t, effects)
	require.Equal(t, PhaseReady, st.Phase())
}

func TestTransitionFailuresRevert(t *testing.T) {
	boom := errors.New("boom")
	id := testPeer(t)
	payload := schema.ChatID{PeerID: id, Name: "alice"}
	addr, sig := signPayload(t, testKey, payload)

	cases := map[string]struct {
		st State
		ev Event
	}{
		"accounts": {Connecting{Attempt: 1}, AccountResolved{Attempt: 1, Err: boom}},
		"peer":     {Connecting{Attempt: 1}, PeerResolved{Attempt: 1, Err: boom}},
		"signer":   {AwaitingSignature{Attempt: 1, Address: addr, Payload: payload}, Signed{Attempt: 1, Err: boom}},
		"mint":     {Minting{Attempt: 1}, Minted{Attempt: 1, Err: boom}},
	}
	for name, tc := range cases {
		st, effects := Transition(tc.st, tc.ev)
		require.Equal(t, AwaitingWallet{Err: boom}, st, name)
		require.Empty(t, effects, name)
	}

	// A signature by another key is caught before anything is stored.
	other := AwaitingSignature{Attempt: 1, Address: common.HexToAddress("0xabcd"), Payload: payload}
	st, effects := Transition(other, Signed{Attempt: 1, Signature: sig})
	w, ok := st.(AwaitingWallet)
	require.True(t, ok)
	require.True(t, chaterr.IsKind(w.Err, chaterr.KindVerification), "got %v", w.Err)
	require.Empty(t, effects)

	// Connect restarts from a failure.
	st, effects = Transition(AwaitingWallet{Err: boom}, Connect{Attempt: 2})
	require.Equal(t, Connecting{Attempt: 2}, st)
	require.Len(t, effects, 2)
}

func TestTransitionRejects(t *testing.T) {
	id := testPeer(t)
	addr := common.HexToAddress("0xabcd")

	cases := map[string]struct {
		st State
		ev Event
	}{
		"submit before connect":  {AwaitingWallet{}, SubmitName{}},
		"submit without address": {AwaitingName{Attempt: 1, PeerID: id}, SubmitName{}},
		"submit without peer":    {AwaitingName{Attempt: 1, Address: addr}, SubmitName{}},
		"stale account":          {Connecting{Attempt: 2}, AccountResolved{Attempt: 1, Address: addr}},
		"stale signature":        {AwaitingSignature{Attempt: 2, Address: addr}, Signed{Attempt: 1}},
		"duplicate connect":      {Connecting{Attempt: 1}, Connect{Attempt: 2}},
		"name before account":    {Connecting{Attempt: 1}, NameResolved{Attempt: 1, Name: "x"}},
		"connect when ready":     {Ready{}, Connect{Attempt: 1}},
		"set name when ready":    {Ready{}, SetName{Name: "x"}},
		"late failed recovery":   {Connecting{Attempt: 1}, Recovered{Err: errors.New("gone")}},
		"recovery when ready":    {Ready{}, Recovered{}},
	}
	for name, tc := range cases {
		st, effects := Transition(tc.st, tc.ev)
		require.Equal(t, tc.st, st, name)
		require.Len(t, effects, 1, name)
		r, ok := effects[0].(Reject)
		require.True(t, ok, name)
		require.True(t, chaterr.IsKind(r.Err, chaterr.KindPrecondition), name)
	}
}

func TestTransitionRecovery(t *testing.T) {
	stored, err := cidutil.DagJSONCID([]byte(`{"cred":1}`))
	require.NoError(t, err)

	st, effects := Initial(true)
	require.Equal(t, Recovering{}, st)
	require.Equal(t, []Effect{RecoverCredential{}}, effects)
	require.Equal(t, PhaseAwaitingWallet, st.Phase())

	next, effects := step(t, st, Recovered{ID: stored})
	require.Equal(t, Ready{CredentialID: stored}, next)
	require.Empty(t, effects)

	next, _ = step(t, st, Recovered{Err: errors.New("bad signature")})
	require.Equal(t, AwaitingWallet{}, next)

	// The user may connect while recovery is in flight.
	next, _ = step(t, st, Connect{Attempt: 1})
	require.IsType(t, Connecting{}, next)
}

func TestTransitionRecoveryWinsOverHandshake(t *testing.T) {
	stored, err := cidutil.DagJSONCID([]byte(`{"cred":1}`))
	require.NoError(t, err)
	id := testPeer(t)
	addr := common.HexToAddress("0xabcd")
	payload := schema.ChatID{PeerID: id, Name: "alice"}

	for name, st := range map[string]State{
		"connecting":         Connecting{Attempt: 1, HasAddress: true, Address: addr},
		"awaiting name":      AwaitingName{Attempt: 1, Address: addr, PeerID: id},
		"awaiting signature": AwaitingSignature{Attempt: 1, Address: addr, Payload: payload},
		"reverted":           AwaitingWallet{Err: errors.New("user rejected the request")},
	} {
		next, effects := step(t, st, Recovered{ID: stored})
		require.Equal(t, Ready{CredentialID: stored}, next, name)
		require.Empty(t, effects, name)

		// The handshake's own completions are now stale.
		_, effects = Transition(next, Signed{Attempt: 1})
		require.Len(t, effects, 1, name)
		require.IsType(t, Reject{}, effects[0], name)
	}
}
