package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"xdao.co/catchat/schema"
)

// KeySigner signs with a single in-memory secp256k1 key.
type KeySigner struct {
	key  *ecdsa.PrivateKey
	addr common.Address

	mu   sync.RWMutex
	name string
}

func NewKeySigner(key *ecdsa.PrivateKey) *KeySigner {
	return &KeySigner{key: key, addr: crypto.PubkeyToAddress(key.PublicKey)}
}

// GenerateKeySigner returns a signer for a fresh random key.
func GenerateKeySigner() (*KeySigner, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return NewKeySigner(key), nil
}

// ParseKeyHex decodes a hex private key, with or without 0x prefix.
func ParseKeyHex(keyHex string) (*ecdsa.PrivateKey, error) {
	keyHex = strings.TrimSpace(keyHex)
	keyHex = strings.TrimPrefix(keyHex, "0x")
	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("wallet: invalid key: %w", err)
	}
	return key, nil
}

func (k *KeySigner) Address() common.Address { return k.addr }

// SetName sets the name returned by ReverseResolve. An empty name makes
// ReverseResolve fail with ErrNoName.
func (k *KeySigner) SetName(name string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.name = name
}

func (k *KeySigner) Accounts(ctx context.Context) ([]common.Address, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []common.Address{k.addr}, nil
}

func (k *KeySigner) Sign(ctx context.Context, addr common.Address, payload []byte) (schema.Signature, error) {
	var sig schema.Signature
	if err := ctx.Err(); err != nil {
		return sig, err
	}
	if addr != k.addr {
		return sig, fmt.Errorf("%w: %s", ErrUnknownAccount, addr.Hex())
	}
	raw, err := crypto.Sign(accounts.TextHash(payload), k.key)
	if err != nil {
		return sig, err
	}
	copy(sig[:], raw)
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

func (k *KeySigner) ReverseResolve(ctx context.Context, addr common.Address) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	k.mu.RLock()
	defer k.mu.RUnlock()
	if addr != k.addr || k.name == "" {
		return "", ErrNoName
	}
	return k.name, nil
}
