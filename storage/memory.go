package storage

import (
	"bytes"
	"sync"

	"github.com/ipfs/go-cid"

	"xdao.co/catchat/cidutil"
)

// Memory is an in-process CAS. The zero value is not usable; use NewMemory.
type Memory struct {
	mu     sync.RWMutex
	blocks map[cid.Cid][]byte
}

var _ CAS = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{blocks: make(map[cid.Cid][]byte)}
}

func (m *Memory) Put(codec uint64, data []byte) (cid.Cid, error) {
	id, err := cidutil.Sum(codec, data)
	if err != nil {
		return cid.Undef, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.blocks[id]; ok {
		if !bytes.Equal(existing, data) {
			return cid.Undef, ErrImmutable
		}
		return id, nil
	}
	m.blocks[id] = append([]byte(nil), data...)
	return id, nil
}

func (m *Memory) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, ErrInvalidCID
	}
	m.mu.RLock()
	b, ok := m.blocks[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if err := cidutil.Verify(id, b); err != nil {
		return nil, ErrCIDMismatch
	}
	return append([]byte(nil), b...), nil
}

func (m *Memory) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blocks[id]
	return ok
}

// Corrupt replaces the stored bytes for id without recomputing the CID.
// It exists so tests can simulate tampered content.
func (m *Memory) Corrupt(id cid.Cid, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocks[id] = append([]byte(nil), data...)
}
