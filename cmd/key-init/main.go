package main

import (
	"bufio"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	hdwallet "github.com/miguelmota/go-ethereum-hdwallet"

	"github.com/mooveapp/auctiond/pkg/secretstore"
)

// key-init derives the operator wallet from a BIP-39 mnemonic and persists the
// private key in the encrypted badger secret store that auctiond reads at boot.
func main() {
	var (
		storePath      = flag.String("store", getenv("AUCTIOND_SECRETSTORE_PATH", "data/secrets"), "badger secret store directory")
		derivationPath = flag.String("path", "m/44'/60'/0'/0/0", "BIP-44 derivation path")
		force          = flag.Bool("force", false, "overwrite an existing operator key")
	)
	flag.Parse()

	encKey, err := loadEncryptionKey()
	if err != nil {
		fatal(err)
	}

	store, err := secretstore.Open(secretstore.OpenOptions{
		Path:          *storePath,
		EncryptionKey: encKey,
	})
	if err != nil {
		fatal(fmt.Errorf("open secret store: %w", err))
	}
	defer store.Close()

	if _, ok, _ := store.GetString(secretstore.KeyOperatorPrivateKey); ok && !*force {
		fatal(errors.New("operator key already exists (use -force to overwrite)"))
	}

	fmt.Fprintln(os.Stderr, "Enter mnemonic (12/15/18/21/24 words), then press enter:")
	mnemonic := strings.TrimSpace(readLine())
	if mnemonic == "" {
		fatal(errors.New("mnemonic is empty"))
	}

	wallet, err := hdwallet.NewFromMnemonic(mnemonic)
	if err != nil {
		fatal(fmt.Errorf("invalid mnemonic: %w", err))
	}
	path, err := hdwallet.ParseDerivationPath(*derivationPath)
	if err != nil {
		fatal(fmt.Errorf("invalid derivation path: %w", err))
	}
	acct, err := wallet.Derive(path, false)
	if err != nil {
		fatal(fmt.Errorf("derive failed: %w", err))
	}
	privateKeyHex, err := wallet.PrivateKeyHex(acct)
	if err != nil {
		fatal(fmt.Errorf("private key failed: %w", err))
	}

	if err := store.SetString(secretstore.KeyOperatorPrivateKey, privateKeyHex); err != nil {
		fatal(fmt.Errorf("store private key: %w", err))
	}
	address := strings.ToLower(acct.Address.Hex())
	if err := store.SetString(secretstore.KeyOperatorAddress, address); err != nil {
		fatal(fmt.Errorf("store address: %w", err))
	}

	fmt.Fprintf(os.Stderr, "operator key stored in %s\n", *storePath)
	fmt.Fprintf(os.Stderr, "operator address: %s\n", address)
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func readLine() string {
	br := bufio.NewReader(os.Stdin)
	s, _ := br.ReadString('\n')
	return strings.TrimSpace(s)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err.Error())
	os.Exit(1)
}

// loadEncryptionKey reads AUCTIOND_SECRETSTORE_KEY (hex, 32 bytes).
// Empty means the store is opened without encryption.
func loadEncryptionKey() ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv("AUCTIOND_SECRETSTORE_KEY"))
	if raw == "" {
		fmt.Fprintln(os.Stderr, "warning: AUCTIOND_SECRETSTORE_KEY not set, store will not be encrypted")
		return nil, nil
	}
	raw = strings.TrimPrefix(raw, "0x")
	b, err := hex.DecodeString(raw)
	if err != nil {
		return nil, errors.New("AUCTIOND_SECRETSTORE_KEY must be hex")
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("AUCTIOND_SECRETSTORE_KEY must decode to 32 bytes, got %d", len(b))
	}
	return b, nil
}
