package schema

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/libp2p/go-libp2p/core/peer"

	"xdao.co/catchat/chaterr"
)

// SignatureLength is the size of a recoverable secp256k1 signature [R || S || V].
const SignatureLength = crypto.SignatureLength

// ChatID binds a transport peer to a display name. It is the unit a wallet
// signs.
type ChatID struct {
	PeerID peer.ID `json:"peer_id"`
	Name   string  `json:"name"`
}

// SigningBytes returns the canonical encoding handed to the signer.
func (c ChatID) SigningBytes() ([]byte, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, chaterr.Encoding("chat-id", err)
	}
	return b, nil
}

// Signature is a personal-sign signature. V is 27 or 28 as returned by
// wallets; 0 and 1 are accepted too.
type Signature [SignatureLength]byte

func (s Signature) MarshalText() ([]byte, error) {
	return []byte(hexutil.Encode(s[:])), nil
}

func (s *Signature) UnmarshalText(text []byte) error {
	b, err := hexutil.Decode(string(text))
	if err != nil {
		return fmt.Errorf("signature: %w", err)
	}
	if len(b) != SignatureLength {
		return fmt.Errorf("signature: expected %d bytes, got %d", SignatureLength, len(b))
	}
	copy(s[:], b)
	return nil
}

func (s Signature) String() string { return hexutil.Encode(s[:]) }

// Credential is a wallet-signed ChatID.
//
// It is valid when the address recovered from Signature over the personal-sign
// hash of Data.SigningBytes() equals Address.
type Credential struct {
	Address   common.Address `json:"address"`
	Data      ChatID         `json:"data"`
	Signature Signature      `json:"signature"`
}

// Verify checks the signature. It is pure and makes no network call.
// A mismatch is reported as a KindVerification error.
func (c Credential) Verify() error {
	msg, err := c.Data.SigningBytes()
	if err != nil {
		return err
	}
	signer, err := RecoverAddress(msg, c.Signature)
	if err != nil {
		return chaterr.Wrap(chaterr.KindVerification, "verify", "unrecoverable signature", err)
	}
	if signer != c.Address {
		return chaterr.New(chaterr.KindVerification, "verify",
			fmt.Sprintf("signed by %s, claimed %s", signer.Hex(), c.Address.Hex()))
	}
	return nil
}

// Valid reports whether Verify succeeds.
func (c Credential) Valid() bool { return c.Verify() == nil }

// RecoverAddress returns the account whose key produced sig over the
// personal-sign hash of msg.
func RecoverAddress(msg []byte, sig Signature) (common.Address, error) {
	v := sig[crypto.RecoveryIDOffset]
	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return common.Address{}, fmt.Errorf("invalid recovery id %d", sig[crypto.RecoveryIDOffset])
	}
	sig[crypto.RecoveryIDOffset] = v

	pub, err := crypto.SigToPub(accounts.TextHash(msg), sig[:])
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}
