package wallet

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"

	"xdao.co/catchat/chaterr"
	"xdao.co/catchat/schema"
)

// fakeWallet serves the eth and personal namespaces a browser wallet exposes.
type fakeWallet struct {
	key      *ecdsa.PrivateKey
	registry common.Address
	resolver common.Address
	names    map[common.Hash]string
	refuse   bool
}

func (f *fakeWallet) RequestAccounts() ([]common.Address, error) {
	if f.refuse {
		return nil, errors.New("user rejected the request")
	}
	return []common.Address{crypto.PubkeyToAddress(f.key.PublicKey)}, nil
}

func (f *fakeWallet) Sign(data hexutil.Bytes, addr common.Address) (hexutil.Bytes, error) {
	if f.refuse || addr != crypto.PubkeyToAddress(f.key.PublicKey) {
		return nil, errors.New("user rejected the request")
	}
	sig, err := crypto.Sign(accounts.TextHash(data), f.key)
	if err != nil {
		return nil, err
	}
	sig[64] += 27
	return sig, nil
}

func (f *fakeWallet) Call(args map[string]interface{}, block string) (hexutil.Bytes, error) {
	to := common.HexToAddress(args["to"].(string))
	raw, ok := args["input"].(string)
	if !ok {
		raw, _ = args["data"].(string)
	}
	input, err := hexutil.Decode(raw)
	if err != nil || len(input) != 4+32 {
		return nil, errors.New("bad call data")
	}
	node := common.BytesToHash(input[4:])
	switch {
	case to == f.registry && bytes.Equal(input[:4], registryContract.Methods["resolver"].ID):
		if _, ok := f.names[node]; !ok {
			return registryContract.Methods["resolver"].Outputs.Pack(common.Address{})
		}
		return registryContract.Methods["resolver"].Outputs.Pack(f.resolver)
	case to == f.resolver && bytes.Equal(input[:4], resolverContract.Methods["name"].ID):
		return resolverContract.Methods["name"].Outputs.Pack(f.names[node])
	}
	return hexutil.Bytes{}, nil
}

func newRPCSigner(t *testing.T, f *fakeWallet) *RPCSigner {
	t.Helper()
	srv := rpc.NewServer()
	require.NoError(t, srv.RegisterName("eth", f))
	require.NoError(t, srv.RegisterName("personal", f))
	t.Cleanup(srv.Stop)

	s := NewRPCSigner(rpc.DialInProc(srv), RPCOptions{Registry: f.registry})
	t.Cleanup(s.Close)
	return s
}

func TestRPCSigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey)
	f := &fakeWallet{
		key:      key,
		registry: common.HexToAddress("0x1000000000000000000000000000000000000001"),
		resolver: common.HexToAddress("0x2000000000000000000000000000000000000002"),
		names:    map[common.Hash]string{ReverseNode(addr): "alice.eth"},
	}
	s := newRPCSigner(t, f)
	ctx := context.Background()

	accs, err := s.Accounts(ctx)
	require.NoError(t, err)
	require.Equal(t, []common.Address{addr}, accs)

	data := schema.ChatID{Name: "alice"}
	msg, err := data.SigningBytes()
	require.NoError(t, err)
	sig, err := s.Sign(ctx, addr, msg)
	require.NoError(t, err)
	require.NoError(t, schema.Credential{Address: addr, Data: data, Signature: sig}.Verify())

	name, err := s.ReverseResolve(ctx, addr)
	require.NoError(t, err)
	require.Equal(t, "alice.eth", name)

	_, err = s.ReverseResolve(ctx, common.HexToAddress("0x3000000000000000000000000000000000000003"))
	require.ErrorIs(t, err, ErrNoName)
}

func TestRPCSignerRejected(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	s := newRPCSigner(t, &fakeWallet{key: key, refuse: true})
	ctx := context.Background()

	_, err = s.Accounts(ctx)
	require.True(t, chaterr.IsKind(err, chaterr.KindTransport), "got %v", err)
	_, err = s.Sign(ctx, crypto.PubkeyToAddress(key.PublicKey), []byte("x"))
	require.True(t, chaterr.IsKind(err, chaterr.KindTransport), "got %v", err)
}

func TestNameHash(t *testing.T) {
	require.Equal(t, common.Hash{}, NameHash(""))
	// Reference values from EIP-137.
	require.Equal(t,
		common.HexToHash("0x93cdeb708b7545dc668eb9280176169d1c33cfd8ed6f04690a0bcc88a93fc4ae"),
		NameHash("eth"))
	require.Equal(t,
		common.HexToHash("0xde9b09fd7c5f901e23a3f19fecc54828e9c848539801e86591bd9801b019f84f"),
		NameHash("foo.eth"))
}
