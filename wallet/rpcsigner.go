package wallet

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"xdao.co/catchat/chaterr"
	"xdao.co/catchat/schema"
)

type RPCOptions struct {
	// Registry is the ENS registry used by ReverseResolve. Defaults to
	// MainnetRegistry.
	Registry common.Address
	Logger   *zap.Logger
}

// RPCSigner delegates to a wallet exposing the Ethereum JSON-RPC API
// (eth_requestAccounts, personal_sign, eth_call).
type RPCSigner struct {
	rpc      *rpc.Client
	eth      *ethclient.Client
	registry common.Address
	logger   *zap.Logger
}

// DialRPC connects to the wallet endpoint at rawurl.
func DialRPC(ctx context.Context, rawurl string, opts RPCOptions) (*RPCSigner, error) {
	c, err := rpc.DialContext(ctx, rawurl)
	if err != nil {
		return nil, chaterr.Transport("wallet/dial", err)
	}
	return NewRPCSigner(c, opts), nil
}

func NewRPCSigner(c *rpc.Client, opts RPCOptions) *RPCSigner {
	registry := opts.Registry
	if registry == (common.Address{}) {
		registry = MainnetRegistry
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RPCSigner{
		rpc:      c,
		eth:      ethclient.NewClient(c),
		registry: registry,
		logger:   logger.With(zap.Namespace("wallet")),
	}
}

func (s *RPCSigner) Accounts(ctx context.Context) ([]common.Address, error) {
	var accs []common.Address
	if err := s.rpc.CallContext(ctx, &accs, "eth_requestAccounts"); err != nil {
		return nil, chaterr.Transport("eth_requestAccounts", err)
	}
	if len(accs) == 0 {
		return nil, ErrNoAccounts
	}
	s.logger.Debug("accounts", zap.String("site", "Accounts"), zap.Stringer("address", accs[0]))
	return accs, nil
}

func (s *RPCSigner) Sign(ctx context.Context, addr common.Address, payload []byte) (schema.Signature, error) {
	var sig schema.Signature
	var res hexutil.Bytes
	if err := s.rpc.CallContext(ctx, &res, "personal_sign", hexutil.Bytes(payload), addr); err != nil {
		return sig, chaterr.Transport("personal_sign", err)
	}
	if len(res) != schema.SignatureLength {
		return sig, chaterr.New(chaterr.KindDecoding, "personal_sign",
			fmt.Sprintf("expected %d signature bytes, got %d", schema.SignatureLength, len(res)))
	}
	copy(sig[:], res)
	return sig, nil
}

func (s *RPCSigner) ReverseResolve(ctx context.Context, addr common.Address) (string, error) {
	name, err := reverseResolve(ctx, s.eth, s.registry, addr)
	if err != nil {
		s.logger.Debug("reverse resolution failed", zap.String("site", "ReverseResolve"),
			zap.Stringer("address", addr), zap.Error(err))
		return "", err
	}
	return name, nil
}

func (s *RPCSigner) Close() { s.rpc.Close() }
