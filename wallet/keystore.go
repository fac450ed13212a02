package wallet

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// KeyStore keeps unencrypted secp256k1 keys for headless clients, one file
// per identifier under Directory.
//
// Keys are stored as hex with mode 0600. Wallet-backed clients should use
// RPCSigner instead.
type KeyStore struct {
	Directory string
}

type KeyEntry struct {
	Identifier string
	Address    common.Address
}

func DefaultKeyDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".xdao", "chat", "keys"), nil
}

func OpenKeyStore(directory string) (*KeyStore, error) {
	if directory == "" {
		var err error
		directory, err = DefaultKeyDirectory()
		if err != nil {
			return nil, err
		}
	}
	return &KeyStore{Directory: directory}, nil
}

func CheckKeyName(identifier string) error {
	if identifier == "" {
		return errors.New("identifier cannot be empty")
	}
	for _, char := range identifier {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in identifier", char)
	}
	return nil
}

func (ks *KeyStore) keyFilePath(identifier string) string {
	return filepath.Join(ks.Directory, identifier+".key")
}

func (ks *KeyStore) saveKeyToFile(filePath string, key *ecdsa.PrivateKey, overwrite bool) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(filePath, flags, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := file.WriteString(hex.EncodeToString(crypto.FromECDSA(key)) + "\n"); err != nil {
		return err
	}
	return file.Close()
}

// Create generates a key for identifier. Existing keys are kept unless
// overwrite is set.
func (ks *KeyStore) Create(identifier string, overwrite bool) (common.Address, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return common.Address{}, err
	}
	return ks.Import(identifier, key, overwrite)
}

func (ks *KeyStore) Import(identifier string, key *ecdsa.PrivateKey, overwrite bool) (common.Address, error) {
	if err := CheckKeyName(identifier); err != nil {
		return common.Address{}, err
	}
	if err := ks.saveKeyToFile(ks.keyFilePath(identifier), key, overwrite); err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}

func (ks *KeyStore) Load(identifier string) (*ecdsa.PrivateKey, error) {
	if err := CheckKeyName(identifier); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(ks.keyFilePath(identifier))
	if err != nil {
		return nil, err
	}
	return ParseKeyHex(string(data))
}

// Signer loads identifier and wraps it in a KeySigner.
func (ks *KeyStore) Signer(identifier string) (*KeySigner, error) {
	key, err := ks.Load(identifier)
	if err != nil {
		return nil, err
	}
	return NewKeySigner(key), nil
}

func (ks *KeyStore) List() ([]KeyEntry, error) {
	entries, err := os.ReadDir(ks.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var identifiers []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".key") {
			continue
		}
		identifiers = append(identifiers, strings.TrimSuffix(entry.Name(), ".key"))
	}
	sort.Strings(identifiers)

	var result []KeyEntry
	for _, identifier := range identifiers {
		key, err := ks.Load(identifier)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", identifier, err)
		}
		result = append(result, KeyEntry{Identifier: identifier, Address: crypto.PubkeyToAddress(key.PublicKey)})
	}
	return result, nil
}
