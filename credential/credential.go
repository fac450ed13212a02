// Package credential implements the signed chat credential: a wallet
// signature binding a transport peer identity and a display name to an
// Ethereum address, stored as a node in the content-addressed store and
// remembered across sessions by its identifier.
package credential

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ipfs/go-cid"
	"github.com/libp2p/go-libp2p/core/peer"
	"go.uber.org/zap"

	"xdao.co/catchat/chaterr"
	"xdao.co/catchat/kv"
	"xdao.co/catchat/schema"
	"xdao.co/catchat/wallet"
)

// StorageKey is the durable key holding the identifier of the minted
// credential.
const StorageKey = "signed_message"

// ErrNoCredential is returned by Recover when nothing was minted before.
var ErrNoCredential = errors.New("credential: none stored")

// NodeStore puts and gets JSON nodes. *ipfs.Client implements it.
type NodeStore interface {
	DagPut(ctx context.Context, node any) (cid.Cid, error)
	DagGet(ctx context.Context, id cid.Cid, path string, out any) error
}

// NewPayload builds the signable identity payload.
func NewPayload(id peer.ID, name string) schema.ChatID {
	return schema.ChatID{PeerID: id, Name: name}
}

type Options struct {
	Logger *zap.Logger
}

// Protocol signs, stores and recovers the local user's credential.
type Protocol struct {
	store  NodeStore
	signer wallet.Signer
	kv     kv.Store
	logger *zap.Logger
}

func New(store NodeStore, signer wallet.Signer, s kv.Store, opts Options) *Protocol {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Protocol{
		store:  store,
		signer: signer,
		kv:     s,
		logger: logger.With(zap.Namespace("credential")),
	}
}

// Sign asks the wallet to sign payload as addr and verifies the result
// before returning it.
func (p *Protocol) Sign(ctx context.Context, addr common.Address, payload schema.ChatID) (schema.Credential, error) {
	msg, err := payload.SigningBytes()
	if err != nil {
		return schema.Credential{}, err
	}
	sig, err := p.signer.Sign(ctx, addr, msg)
	if err != nil {
		return schema.Credential{}, err
	}
	return Assemble(addr, payload, sig)
}

// Assemble builds a credential from a wallet signature and verifies it.
func Assemble(addr common.Address, payload schema.ChatID, sig schema.Signature) (schema.Credential, error) {
	cred := schema.Credential{Address: addr, Data: payload, Signature: sig}
	if err := cred.Verify(); err != nil {
		return schema.Credential{}, err
	}
	return cred, nil
}

// Mint stores cred and remembers its identifier under StorageKey. An
// unverifiable credential is never stored.
func (p *Protocol) Mint(ctx context.Context, cred schema.Credential) (cid.Cid, error) {
	if err := cred.Verify(); err != nil {
		return cid.Undef, err
	}
	id, err := p.store.DagPut(ctx, cred)
	if err != nil {
		return cid.Undef, err
	}
	if err := kv.SetCID(p.kv, StorageKey, id); err != nil {
		return cid.Undef, err
	}
	p.logger.Info("credential minted", zap.String("site", "Mint"),
		zap.Stringer("cid", id), zap.Stringer("address", cred.Address))
	return id, nil
}

// Stored returns the remembered identifier, if any.
func (p *Protocol) Stored() (cid.Cid, bool) {
	return kv.GetCID(p.kv, StorageKey)
}

// Pending reports whether a pointer is stored at all, parsable or not.
func (p *Protocol) Pending() bool {
	_, err := p.kv.Get(StorageKey)
	return err == nil
}

// Recover loads the credential minted in a previous session.
//
// A pointer whose node does not decode as a credential, or whose credential
// does not verify, is removed. Transport failures leave it in place.
func (p *Protocol) Recover(ctx context.Context) (cid.Cid, schema.Credential, error) {
	logger := p.logger.With(zap.String("site", "Recover"))

	raw, err := p.kv.Get(StorageKey)
	if errors.Is(err, kv.ErrNotFound) {
		return cid.Undef, schema.Credential{}, ErrNoCredential
	}
	if err != nil {
		return cid.Undef, schema.Credential{}, err
	}
	id, err := cid.Decode(raw)
	if err != nil {
		return cid.Undef, schema.Credential{}, p.discard(logger, chaterr.Decoding("recover", err))
	}

	var cred schema.Credential
	if err := p.store.DagGet(ctx, id, "", &cred); err != nil {
		if chaterr.IsKind(err, chaterr.KindDecoding) {
			return cid.Undef, schema.Credential{}, p.discard(logger, err)
		}
		logger.Warn("credential fetch failed", zap.Stringer("cid", id), zap.Error(err))
		return cid.Undef, schema.Credential{}, err
	}
	if err := cred.Verify(); err != nil {
		return cid.Undef, schema.Credential{}, p.discard(logger, err)
	}
	logger.Debug("credential recovered", zap.Stringer("cid", id))
	return id, cred, nil
}

// Forget removes the remembered identifier.
func (p *Protocol) Forget() error {
	return p.kv.Delete(StorageKey)
}

func (p *Protocol) discard(logger *zap.Logger, cause error) error {
	logger.Warn("discarding stored credential", zap.Error(cause))
	if err := p.Forget(); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}
