package wallet

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// MainnetRegistry is the ENS registry address on Ethereum mainnet.
var MainnetRegistry = common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")

const (
	registryABI = `[{"constant":true,"inputs":[{"name":"node","type":"bytes32"}],"name":"resolver","outputs":[{"name":"","type":"address"}],"type":"function"}]`
	resolverABI = `[{"constant":true,"inputs":[{"name":"node","type":"bytes32"}],"name":"name","outputs":[{"name":"","type":"string"}],"type":"function"}]`
)

var (
	registryContract = mustABI(registryABI)
	resolverContract = mustABI(resolverABI)
)

func mustABI(def string) abi.ABI {
	a, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return a
}

// NameHash implements the ENS namehash of a dot-separated name.
func NameHash(name string) common.Hash {
	var node common.Hash
	if name == "" {
		return node
	}
	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		label := keccak256([]byte(labels[i]))
		node = common.BytesToHash(keccak256(node[:], label))
	}
	return node
}

// ReverseNode returns the namehash of <addr>.addr.reverse.
func ReverseNode(addr common.Address) common.Hash {
	return NameHash(strings.ToLower(addr.Hex()[2:]) + ".addr.reverse")
}

func keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, b := range data {
		h.Write(b)
	}
	return h.Sum(nil)
}

// reverseResolve looks up the resolver of the reverse record for addr, then
// asks it for the name.
func reverseResolve(ctx context.Context, caller ethereum.ContractCaller, registry, addr common.Address) (string, error) {
	node := ReverseNode(addr)

	var resolver common.Address
	if err := call(ctx, caller, registry, registryContract, "resolver", &resolver, node); err != nil {
		return "", err
	}
	if resolver == (common.Address{}) {
		return "", ErrNoName
	}

	var name string
	if err := call(ctx, caller, resolver, resolverContract, "name", &name, node); err != nil {
		return "", err
	}
	if name == "" {
		return "", ErrNoName
	}
	return name, nil
}

func call(ctx context.Context, caller ethereum.ContractCaller, to common.Address, contract abi.ABI, method string, out any, node common.Hash) error {
	input, err := contract.Pack(method, node)
	if err != nil {
		return err
	}
	res, err := caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, nil)
	if err != nil {
		return fmt.Errorf("wallet: ens %s: %w", method, err)
	}
	if len(res) == 0 {
		return ErrNoName
	}
	if err := contract.UnpackIntoInterface(out, method, res); err != nil {
		return fmt.Errorf("wallet: ens %s: %w", method, err)
	}
	return nil
}
