package schema_test

import (
	"crypto/ecdsa"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multihash"
	"github.com/stretchr/testify/require"

	"xdao.co/catchat/chaterr"
	"xdao.co/catchat/schema"
)

func testPeer(t *testing.T, seed string) peer.ID {
	t.Helper()
	mh, err := multihash.Sum([]byte(seed), multihash.SHA2_256, -1)
	require.NoError(t, err)
	return peer.ID(mh)
}

func testKey(t *testing.T, hexKey string) *ecdsa.PrivateKey {
	t.Helper()
	key, err := crypto.HexToECDSA(hexKey)
	require.NoError(t, err)
	return key
}

// sign mimics a wallet's personal_sign: V is shifted to 27/28.
func sign(t *testing.T, key *ecdsa.PrivateKey, data schema.ChatID) schema.Credential {
	t.Helper()
	msg, err := data.SigningBytes()
	require.NoError(t, err)
	sig, err := crypto.Sign(accounts.TextHash(msg), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27

	cred := schema.Credential{Address: crypto.PubkeyToAddress(key.PublicKey), Data: data}
	copy(cred.Signature[:], sig)
	return cred
}

const aliceKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

func TestCredentialVerify(t *testing.T) {
	key := testKey(t, aliceKey)
	cred := sign(t, key, schema.ChatID{PeerID: testPeer(t, "alice"), Name: "alice"})
	require.NoError(t, cred.Verify())

	// Raw recovery ids are accepted as well.
	raw := cred
	raw.Signature[64] -= 27
	require.NoError(t, raw.Verify())

	wrong := cred
	wrong.Address = common.HexToAddress("0x000000000000000000000000000000000000abcd")
	err := wrong.Verify()
	require.True(t, chaterr.IsKind(err, chaterr.KindVerification), "got %v", err)
}

func TestCredentialSingleBitMutation(t *testing.T) {
	key := testKey(t, aliceKey)
	cred := sign(t, key, schema.ChatID{PeerID: testPeer(t, "alice"), Name: "alice"})
	require.True(t, cred.Valid())

	for i := 0; i < schema.SignatureLength*8; i++ {
		mutated := cred
		mutated.Signature[i/8] ^= 1 << (i % 8)
		require.False(t, mutated.Valid(), "signature bit %d", i)
	}

	name := []byte(cred.Data.Name)
	for i := 0; i < len(name)*8; i++ {
		b := append([]byte(nil), name...)
		b[i/8] ^= 1 << (i % 8)
		mutated := cred
		mutated.Data.Name = string(b)
		require.False(t, mutated.Valid(), "name bit %d", i)
	}

	id := []byte(cred.Data.PeerID)
	for i := 0; i < len(id)*8; i++ {
		b := append([]byte(nil), id...)
		b[i/8] ^= 1 << (i % 8)
		mutated := cred
		mutated.Data.PeerID = peer.ID(b)
		require.False(t, mutated.Valid(), "peer id bit %d", i)
	}

	for i := 0; i < common.AddressLength*8; i++ {
		mutated := cred
		mutated.Address[i/8] ^= 1 << (i % 8)
		require.False(t, mutated.Valid(), "address bit %d", i)
	}
}

func TestCredentialJSON(t *testing.T) {
	key := testKey(t, aliceKey)
	cred := sign(t, key, schema.ChatID{PeerID: testPeer(t, "alice"), Name: "alice"})

	b, err := json.Marshal(cred)
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &fields))
	require.ElementsMatch(t, []string{"address", "data", "signature"}, keys(fields))
	require.JSONEq(t,
		`{"peer_id":"`+cred.Data.PeerID.String()+`","name":"alice"}`,
		string(fields["data"]))

	var sig string
	require.NoError(t, json.Unmarshal(fields["signature"], &sig))
	require.True(t, strings.HasPrefix(sig, "0x"))
	require.Len(t, sig, 2+2*schema.SignatureLength)

	var back schema.Credential
	require.NoError(t, json.Unmarshal(b, &back))
	require.Equal(t, cred, back)
	require.NoError(t, back.Verify())

	short := strings.Replace(string(b), sig, sig[:len(sig)-2], 1)
	require.Error(t, json.Unmarshal([]byte(short), &back))
}

func keys(m map[string]json.RawMessage) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
