// Package kv is the durable key-value boundary of the client: a small,
// synchronous, device-local map from string keys to string values.
package kv

import (
	"errors"

	"github.com/ipfs/go-cid"
)

var (
	// ErrZeroKey is returned if an attempt was made to use a 0-length key.
	ErrZeroKey = errors.New("kv: 0-length key")

	// ErrNotFound is returned if an unknown key is attempted to be retrieved.
	ErrNotFound = errors.New("kv: not found")
)

type Store interface {
	// Get returns the previously stored value, or ErrNotFound.
	Get(key string) (string, error)

	// Put stores a value by key.
	Put(key, value string) error

	// Delete removes a key-value pair. Deleting an unknown key is a noop.
	Delete(key string) error
}

// GetCID returns the content identifier stored under key. Values that do
// not parse as a CID are reported as absent.
func GetCID(s Store, key string) (cid.Cid, bool) {
	v, err := s.Get(key)
	if err != nil {
		return cid.Undef, false
	}
	id, err := cid.Decode(v)
	if err != nil || !id.Defined() {
		return cid.Undef, false
	}
	return id, true
}

// SetCID stores id under key in its canonical string form.
func SetCID(s Store, key string, id cid.Cid) error {
	if !id.Defined() {
		return errors.New("kv: undefined cid")
	}
	return s.Put(key, id.String())
}
