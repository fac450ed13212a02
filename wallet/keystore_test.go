package wallet

import (
	"os"
	"path/filepath"
	"testing"
)

func TestKeyStoreCreateLoad(t *testing.T) {
	ks, err := OpenKeyStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenKeyStore: %v", err)
	}

	addr, err := ks.Create("alice", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	signer, err := ks.Signer("alice")
	if err != nil {
		t.Fatalf("Signer: %v", err)
	}
	if signer.Address() != addr {
		t.Fatalf("expected %s, got %s", addr.Hex(), signer.Address().Hex())
	}

	info, err := os.Stat(filepath.Join(ks.Directory, "alice.key"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected mode 0600, got %v", info.Mode().Perm())
	}

	if _, err := ks.Create("alice", false); err == nil {
		t.Fatalf("expected existing key to be kept")
	}
	replaced, err := ks.Create("alice", true)
	if err != nil {
		t.Fatalf("Create overwrite: %v", err)
	}
	if replaced == addr {
		t.Fatalf("expected a new key after overwrite")
	}
}

func TestKeyStoreList(t *testing.T) {
	ks := &KeyStore{Directory: filepath.Join(t.TempDir(), "missing")}
	entries, err := ks.List()
	if err != nil || entries != nil {
		t.Fatalf("expected empty listing, got %v, %v", entries, err)
	}

	b, err := ks.Create("bob", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	a, err := ks.Create("alice", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	entries, err = ks.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 || entries[0].Identifier != "alice" || entries[1].Identifier != "bob" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if entries[0].Address != a || entries[1].Address != b {
		t.Fatalf("addresses do not match created keys")
	}
}

func TestCheckKeyName(t *testing.T) {
	for _, bad := range []string{"", "../etc", "a b", "é"} {
		if err := CheckKeyName(bad); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
	if err := CheckKeyName("alice_01-x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
