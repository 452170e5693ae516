package chain

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/orderly-network/order-token-ops/configs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testMnemonic   = "test test test test test test test test test test test junk"
	testPrivateKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddress    = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func TestDeriveKey(t *testing.T) {
	key, err := DeriveKey(testMnemonic, "m/44'/60'/0'/0/0")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testAddress), crypto.PubkeyToAddress(key.PublicKey))

	second, err := DeriveKey(testMnemonic, "m/44'/60'/0'/0/1")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"), crypto.PubkeyToAddress(second.PublicKey))

	_, err = DeriveKey("not a valid mnemonic at all", "m/44'/60'/0'/0/0")
	assert.Error(t, err)

	_, err = DeriveKey(testMnemonic, "m/x")
	assert.Error(t, err)
}

func TestLoadKey(t *testing.T) {
	tests := []struct {
		name    string
		cfg     configs.Signer
		want    string
		wantErr error
	}{
		{name: "private key", cfg: configs.Signer{PrivateKey: testPrivateKey}, want: testAddress},
		{name: "mnemonic default path", cfg: configs.Signer{Mnemonic: testMnemonic}, want: testAddress},
		{name: "mnemonic wins", cfg: configs.Signer{Mnemonic: testMnemonic, DerivationPath: "m/44'/60'/0'/0/1", PrivateKey: testPrivateKey}, want: "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"},
		{name: "nothing", cfg: configs.Signer{}, wantErr: ErrNoSigner},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := LoadKey(tt.cfg)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			addr, err := AddressOf(key)
			require.NoError(t, err)
			assert.Equal(t, common.HexToAddress(tt.want), addr)
		})
	}
}

func TestResolveRPC(t *testing.T) {
	env := map[string]string{"SEPOLIA_RPC_URL": "https://env.example"}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	got, err := ResolveRPC("sepolia", map[string]string{"sepolia": "https://cfg.example"}, lookup, "https://default.example")
	require.NoError(t, err)
	assert.Equal(t, "https://cfg.example", got)

	got, err = ResolveRPC("sepolia", nil, lookup, "https://default.example")
	require.NoError(t, err)
	assert.Equal(t, "https://env.example", got)

	got, err = ResolveRPC("fuji", nil, lookup, "https://default.example")
	require.NoError(t, err)
	assert.Equal(t, "https://default.example", got)

	_, err = ResolveRPC("ethereum", nil, lookup, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ETHEREUM_RPC_URL")
}

func TestSequencer(t *testing.T) {
	s := NewSequencer(7)
	assert.Equal(t, uint64(7), s.Peek())
	assert.Equal(t, uint64(7), s.Next())
	assert.Equal(t, uint64(8), s.Next())
	assert.Equal(t, uint64(9), s.Peek())
	assert.Equal(t, 2, s.Issued())
}
