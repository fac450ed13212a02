// Package storage defines a small content-addressed block store.
//
// It backs the in-process store node used by tests (see ipfs/ipfstest).
// Rooted on disk via storage/localfs, it holds the daemon's local copy of
// credential nodes (see credential.Blocks).
package storage
