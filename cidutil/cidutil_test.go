package cidutil

import (
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multihash"
	"github.com/stretchr/testify/require"
)

func testPeer(t *testing.T, seed string) peer.ID {
	t.Helper()
	mh, err := multihash.Sum([]byte(seed), multihash.SHA2_256, -1)
	require.NoError(t, err)
	return peer.ID(mh)
}

func TestDagJSONCIDStable(t *testing.T) {
	b := []byte(`{"name":"alice"}`)
	a, err := DagJSONCID(b)
	require.NoError(t, err)
	c, err := DagJSONCID(b)
	require.NoError(t, err)
	require.True(t, a.Equals(c))
	require.Equal(t, uint64(cid.DagJSON), a.Prefix().Codec)

	d, err := DagJSONCID([]byte(`{"name":"bob"}`))
	require.NoError(t, err)
	require.False(t, a.Equals(d))
}

func TestVerify(t *testing.T) {
	b := []byte("hello")
	id, err := CIDv1RawSHA256CID(b)
	require.NoError(t, err)
	require.NoError(t, Verify(id, b))
	require.ErrorIs(t, Verify(id, []byte("hellO")), ErrMismatch)
	require.Error(t, Verify(cid.Undef, b))
	require.Equal(t, id.String(), CIDv1RawSHA256(b))
}

func TestPeerRoundTrip(t *testing.T) {
	p := testPeer(t, "node-a")

	got, err := PeerFromBytes([]byte(p))
	require.NoError(t, err)
	require.Equal(t, p, got)

	parsed, err := ParsePeerID(p.String())
	require.NoError(t, err)
	require.Equal(t, p, parsed)

	c := PeerCID(p)
	require.Equal(t, uint64(cid.Libp2pKey), c.Prefix().Codec)
	fromCID, err := ParsePeerID(c.String())
	require.NoError(t, err)
	require.Equal(t, p, fromCID)

	_, err = PeerFromBytes(nil)
	require.Error(t, err)
	_, err = ParsePeerID("")
	require.Error(t, err)
}
