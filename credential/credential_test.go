package credential_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"xdao.co/catchat/chaterr"
	"xdao.co/catchat/credential"
	"xdao.co/catchat/ipfs"
	"xdao.co/catchat/ipfs/ipfstest"
	"xdao.co/catchat/kv"
	"xdao.co/catchat/schema"
	"xdao.co/catchat/wallet"
)

// countingSigner records how often the wallet was asked to sign.
type countingSigner struct {
	wallet.Signer
	signs atomic.Int32
}

func (c *countingSigner) Sign(ctx context.Context, addr common.Address, payload []byte) (schema.Signature, error) {
	c.signs.Add(1)
	return c.Signer.Sign(ctx, addr, payload)
}

type fixture struct {
	node     *ipfstest.Node
	client   *ipfs.Client
	store    *kv.Memory
	signer   *countingSigner
	address  common.Address
	protocol *credential.Protocol
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	node := ipfstest.New(t, nil)
	client, err := ipfs.New(node.URL(), ipfs.Options{})
	require.NoError(t, err)
	ks, err := wallet.GenerateKeySigner()
	require.NoError(t, err)
	f := &fixture{
		node:    node,
		client:  client,
		store:   kv.NewMemory(),
		signer:  &countingSigner{Signer: ks},
		address: ks.Address(),
	}
	f.protocol = credential.New(client, f.signer, f.store, credential.Options{})
	return f
}

func (f *fixture) mint(t *testing.T, name string) schema.Credential {
	t.Helper()
	ctx := context.Background()
	cred, err := f.protocol.Sign(ctx, f.address, credential.NewPayload(f.node.ID(), name))
	require.NoError(t, err)
	_, err = f.protocol.Mint(ctx, cred)
	require.NoError(t, err)
	return cred
}

func TestSignMintRecover(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cred := f.mint(t, "alice")
	stored, ok := f.protocol.Stored()
	require.True(t, ok)
	raw, err := f.store.Get(credential.StorageKey)
	require.NoError(t, err)
	require.Equal(t, stored.String(), raw)

	// Recovering twice yields the same credential without signing again.
	for i := 0; i < 2; i++ {
		id, got, err := f.protocol.Recover(ctx)
		require.NoError(t, err)
		require.True(t, id.Equals(stored))
		require.Equal(t, cred, got)
	}
	require.EqualValues(t, 1, f.signer.signs.Load())
}

func TestRecoverNothingStored(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.protocol.Recover(context.Background())
	require.ErrorIs(t, err, credential.ErrNoCredential)
	require.Zero(t, f.node.Calls("dag/get"))
}

func TestRecoverDiscardsBadPointers(t *testing.T) {
	ctx := context.Background()

	cases := map[string]func(t *testing.T, f *fixture) string{
		"not a cid": func(t *testing.T, f *fixture) string { return "definitely-not-a-cid" },
		"wrong shape": func(t *testing.T, f *fixture) string {
			id, err := f.client.DagPut(ctx, []int{1, 2, 3})
			require.NoError(t, err)
			return id.String()
		},
		"unrelated node": func(t *testing.T, f *fixture) string {
			id, err := f.client.DagPut(ctx, map[string]string{"hello": "world"})
			require.NoError(t, err)
			return id.String()
		},
		"tampered address": func(t *testing.T, f *fixture) string {
			cred := f.mint(t, "alice")
			cred.Address = common.HexToAddress("0x000000000000000000000000000000000000abcd")
			id, err := f.client.DagPut(ctx, cred)
			require.NoError(t, err)
			return id.String()
		},
		"tampered name": func(t *testing.T, f *fixture) string {
			cred := f.mint(t, "alice")
			cred.Data.Name = "mallory"
			id, err := f.client.DagPut(ctx, cred)
			require.NoError(t, err)
			return id.String()
		},
	}
	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			require.NoError(t, f.store.Put(credential.StorageKey, setup(t, f)))
			require.True(t, f.protocol.Pending())

			_, _, err := f.protocol.Recover(ctx)
			require.Error(t, err)
			require.True(t,
				chaterr.IsKind(err, chaterr.KindDecoding) || chaterr.IsKind(err, chaterr.KindVerification),
				"got %v", err)

			_, err = f.store.Get(credential.StorageKey)
			require.ErrorIs(t, err, kv.ErrNotFound)
			require.False(t, f.protocol.Pending())
		})
	}
}

func TestRecoverKeepsPointerOnTransportFailure(t *testing.T) {
	f := newFixture(t)
	f.mint(t, "alice")
	f.node.Fail("dag/get", errors.New("node offline"))

	_, _, err := f.protocol.Recover(context.Background())
	require.True(t, chaterr.IsKind(err, chaterr.KindTransport), "got %v", err)
	_, ok := f.protocol.Stored()
	require.True(t, ok)
}

func TestSignRejectsForeignSignature(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	payload := credential.NewPayload(f.node.ID(), "alice")
	other, err := wallet.GenerateKeySigner()
	require.NoError(t, err)
	msg, err := payload.SigningBytes()
	require.NoError(t, err)
	sig, err := other.Sign(ctx, other.Address(), msg)
	require.NoError(t, err)

	_, err = credential.Assemble(f.address, payload, sig)
	require.True(t, chaterr.IsKind(err, chaterr.KindVerification), "got %v", err)

	_, err = f.protocol.Mint(ctx, schema.Credential{Address: f.address, Data: payload, Signature: sig})
	require.True(t, chaterr.IsKind(err, chaterr.KindVerification), "got %v", err)
	require.Zero(t, f.node.Calls("dag/put"))
	_, ok := f.protocol.Stored()
	require.False(t, ok)
}

func TestMintTransportFailureLeavesNoPointer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cred, err := f.protocol.Sign(ctx, f.address, credential.NewPayload(f.node.ID(), "alice"))
	require.NoError(t, err)

	f.node.Fail("dag/put", errors.New("disk full"))
	_, err = f.protocol.Mint(ctx, cred)
	require.True(t, chaterr.IsKind(err, chaterr.KindTransport), "got %v", err)
	_, ok := f.protocol.Stored()
	require.False(t, ok)
}
