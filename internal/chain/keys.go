package chain

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/cosmos/go-bip39"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/orderly-network/order-token-ops/configs"
)

var ErrNoSigner = errors.New("no signer configured")

// LoadKey returns the signing key from configuration. A mnemonic wins over a raw private key.
func LoadKey(cfg configs.Signer) (*ecdsa.PrivateKey, error) {
	switch {
	case strings.TrimSpace(cfg.Mnemonic) != "":
		path := cfg.DerivationPath
		if path == "" {
			path = accounts.DefaultBaseDerivationPath.String()
		}
		return DeriveKey(cfg.Mnemonic, path)
	case cfg.PrivateKey != "":
		return ParsePrivateKey(cfg.PrivateKey)
	default:
		return nil, ErrNoSigner
	}
}

func ParsePrivateKey(privateKeyHex string) (*ecdsa.PrivateKey, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return privateKey, nil
}

// DeriveKey walks a BIP-32 path from a BIP-39 mnemonic.
func DeriveKey(mnemonic, path string) (*ecdsa.PrivateKey, error) {
	seed, err := bip39.NewSeedWithErrorChecking(strings.TrimSpace(mnemonic), "")
	if err != nil {
		return nil, fmt.Errorf("failed to read mnemonic: %w", err)
	}

	derivationPath, err := accounts.ParseDerivationPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse derivation path '%s': %w", path, err)
	}

	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create master key: %w", err)
	}
	for _, index := range derivationPath {
		key, err = key.Derive(index)
		if err != nil {
			return nil, fmt.Errorf("failed to derive child %d: %w", index, err)
		}
	}

	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("failed to extract private key: %w", err)
	}

	return crypto.ToECDSA(priv.Serialize())
}

// AddressOf derives the account address of a key.
func AddressOf(privateKey *ecdsa.PrivateKey) (common.Address, error) {
	publicKeyECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return common.Address{}, fmt.Errorf("failed to cast public key to ECDSA")
	}
	return crypto.PubkeyToAddress(*publicKeyECDSA), nil
}
