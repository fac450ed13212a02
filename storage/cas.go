package storage

import "github.com/ipfs/go-cid"

// CAS is a minimal content-addressable block store.
//
// Contract:
// - Put MUST be idempotent.
// - Stored objects MUST be immutable.
// - CIDs MUST be derived from the bytes written under the given codec
//   (CIDv1, sha2-256).
// - Get MUST return ErrNotFound when the CID is absent.
type CAS interface {
	Put(codec uint64, bytes []byte) (cid.Cid, error)
	Get(id cid.Cid) ([]byte, error)
	Has(id cid.Cid) bool
}
