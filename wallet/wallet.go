// Package wallet is the boundary to the external signer that owns the
// user's Ethereum account.
//
// The signer is opaque: it lists accounts, signs payloads with personal-sign
// semantics and may map an address back to a human-readable name. RPCSigner
// talks to a wallet over JSON-RPC; KeySigner holds a local key and exists for
// headless use and tests.
package wallet

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"xdao.co/catchat/schema"
)

var (
	ErrNoAccounts     = errors.New("wallet: no accounts available")
	ErrUnknownAccount = errors.New("wallet: unknown account")
	ErrNoName         = errors.New("wallet: no name for address")
)

// Signer is implemented by wallets. All methods may block on the user or the
// network and may fail.
type Signer interface {
	// Accounts returns the accounts the user agreed to expose, first one
	// preferred.
	Accounts(ctx context.Context) ([]common.Address, error)
	// Sign returns a 65-byte personal-sign signature of payload by addr.
	Sign(ctx context.Context, addr common.Address, payload []byte) (schema.Signature, error)
	// ReverseResolve returns the primary name of addr.
	ReverseResolve(ctx context.Context, addr common.Address) (string, error)
}
