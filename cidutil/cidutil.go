package cidutil

import (
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multihash"
)

// ErrMismatch is returned by Verify when bytes do not hash to the given CID.
var ErrMismatch = errors.New("cidutil: cid mismatch")

// CIDv1RawSHA256 returns a CIDv1 string using the "raw" multicodec
// and a sha2-256 multihash.
func CIDv1RawSHA256(data []byte) string {
	id, err := CIDv1RawSHA256CID(data)
	if err != nil {
		return ""
	}
	return id.String()
}

// CIDv1RawSHA256CID returns a CIDv1 (raw + sha2-256) derived from data.
func CIDv1RawSHA256CID(data []byte) (cid.Cid, error) {
	return sum(cid.Raw, data)
}

// DagJSONCID returns the CIDv1 (dag-json + sha2-256) a store assigns to an
// encoded JSON node. It matches what dag/put returns with default options.
func DagJSONCID(encoded []byte) (cid.Cid, error) {
	return sum(cid.DagJSON, encoded)
}

// Sum returns a CIDv1 for data under codec with a sha2-256 multihash.
func Sum(codec uint64, data []byte) (cid.Cid, error) {
	return sum(codec, data)
}

func sum(codec uint64, data []byte) (cid.Cid, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(codec, mh), nil
}

// Verify recomputes id's hash over data using id's own prefix.
func Verify(id cid.Cid, data []byte) error {
	if !id.Defined() {
		return fmt.Errorf("cidutil: undefined cid")
	}
	got, err := id.Prefix().Sum(data)
	if err != nil {
		return err
	}
	if !got.Equals(id) {
		return ErrMismatch
	}
	return nil
}

// PeerCID projects a peer identity into CID space (CIDv1, libp2p-key codec),
// the representation used for senders on the pub/sub stream.
func PeerCID(id peer.ID) cid.Cid {
	return peer.ToCid(id)
}

// PeerFromBytes parses the raw multihash bytes of a peer identity.
func PeerFromBytes(b []byte) (peer.ID, error) {
	if len(b) == 0 {
		return "", errors.New("cidutil: empty peer id")
	}
	return peer.IDFromBytes(b)
}

// ParsePeerID parses a peer identity given either as a base58 multihash
// (Qm..., 12D3...) or as a CID string (bafz...).
func ParsePeerID(s string) (peer.ID, error) {
	if s == "" {
		return "", errors.New("cidutil: empty peer id")
	}
	return peer.Decode(s)
}
