package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/orderly-network/order-token-ops/configs"
	"github.com/orderly-network/order-token-ops/internal/chain"
	"github.com/orderly-network/order-token-ops/internal/deploy"
	"github.com/orderly-network/order-token-ops/internal/network"
	"github.com/orderly-network/order-token-ops/internal/output"
	"github.com/orderly-network/order-token-ops/internal/peering"
	"github.com/orderly-network/order-token-ops/internal/roles"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) configs.Config {
	t.Helper()
	cfg, err := configs.DefaultConfig()
	require.NoError(t, err)

	dir := t.TempDir()
	cfg.Ledger.AddressFile = filepath.Join(dir, "oftAddress.json")
	cfg.Ledger.PeersFile = filepath.Join(dir, "oftPeers.json")
	cfg.Output = output.FormatJSON
	return cfg
}

// execute runs cmd against cfg as the process-wide configuration.
func execute(t *testing.T, cfg configs.Config, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	previous := configs.Values
	configs.Values = cfg
	t.Cleanup(func() { configs.Values = previous })

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestCommandsHaveCamelCaseAliases(t *testing.T) {
	seen := make(map[string]bool)
	for _, cmd := range Commands() {
		assert.False(t, seen[cmd.Name()], cmd.Name())
		seen[cmd.Name()] = true
		for _, alias := range cmd.Aliases {
			assert.NotContains(t, alias, "-", cmd.Name())
		}
	}
	assert.Len(t, seen, 19)
	assert.True(t, seen["set-library-config"])
}

func TestRuntimeNetwork(t *testing.T) {
	cfg := testConfig(t)

	rt, err := NewRuntime(cfg, &bytes.Buffer{})
	require.NoError(t, err)
	_, err = rt.Network()
	assert.ErrorIs(t, err, ErrNetworkRequired)

	cfg.Network = "arbitrum"
	rt, err = NewRuntime(cfg, &bytes.Buffer{})
	require.NoError(t, err)
	_, err = rt.Network()
	assert.ErrorIs(t, err, network.ErrUnsupportedNetwork, "mainnet network under a test env")

	cfg.Network = "arbitrumsepolia"
	rt, err = NewRuntime(cfg, &bytes.Buffer{})
	require.NoError(t, err)
	net, err := rt.Network()
	require.NoError(t, err)
	assert.Equal(t, uint32(40231), net.EndpointID)
}

func TestRuntimeSessionRequiresSigner(t *testing.T) {
	cfg := testConfig(t)
	cfg.Network = "sepolia"

	rt, err := NewRuntime(cfg, &bytes.Buffer{})
	require.NoError(t, err)
	defer rt.Close()

	_, err = rt.Session(context.Background())
	assert.ErrorIs(t, err, chain.ErrNoSigner)
}

func TestNewRuntimeValidates(t *testing.T) {
	cfg := testConfig(t)
	cfg.Env = "prod"

	_, err := NewRuntime(cfg, &bytes.Buffer{})
	assert.ErrorIs(t, err, configs.ErrUnsupportedEnv)
}

func TestPeerInitAndShow(t *testing.T) {
	cfg := testConfig(t)

	out, err := execute(t, cfg, peerInitCmd())
	require.NoError(t, err)
	assert.Contains(t, out, `"pairs": 56`)

	out, err = execute(t, cfg, peerShowCmd())
	require.NoError(t, err)

	var rows []peerRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 56)
	assert.Equal(t, peerRow{From: "amoy", To: "arbitrumsepolia", Connected: false}, rows[0])
}

func TestPrintAddresses(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output = output.FormatTable

	rt, err := NewRuntime(cfg, &bytes.Buffer{})
	require.NoError(t, err)
	token := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	require.NoError(t, rt.Ledger.SaveAddress("dev", "sepolia", roles.OrderToken, token))
	require.NoError(t, rt.Ledger.SaveAddress("dev", "arbitrumsepolia", roles.OrderOFT, token))

	out, err := execute(t, cfg, printCmd())
	require.NoError(t, err)
	assert.Contains(t, out, "OrderToken")
	assert.Contains(t, out, token.Hex())
	assert.Less(t, bytes.Index([]byte(out), []byte("| arbitrumsepolia ")), bytes.Index([]byte(out), []byte("| sepolia ")))
}

func TestDecodeLibraryConfig(t *testing.T) {
	cfg := testConfig(t)
	send, _, err := network.MustDefault().RequireLibraryConfig("sepolia")
	require.NoError(t, err)
	raw, err := peering.EncodeUlnConfig(send.Policy)
	require.NoError(t, err)

	out, err := execute(t, cfg, decodeLibraryConfigCmd(), "--raw", hexutil.Encode(raw))
	require.NoError(t, err)

	var policy network.VerificationPolicy
	require.NoError(t, json.Unmarshal([]byte(out), &policy))
	assert.True(t, send.Policy.Equal(policy))
}

func TestFailOnError(t *testing.T) {
	cfg := testConfig(t)

	_, err := execute(t, cfg, decodeLibraryConfigCmd(), "--raw", "not-hex")
	assert.Error(t, err)

	cfg.FailOnError = false
	_, err = execute(t, cfg, decodeLibraryConfigCmd(), "--raw", "not-hex")
	assert.NoError(t, err, "errors are only logged")
}

func TestRecoveryRejectsBadHash(t *testing.T) {
	cfg := testConfig(t)
	cfg.Network = "sepolia"

	_, err := execute(t, cfg, replayReceiveCmd(), "--tx-hash", "0x1234")
	assert.ErrorContains(t, err, "not a transaction hash")
}

func TestPredictAddressesIsOffline(t *testing.T) {
	cfg := testConfig(t)
	cfg.Network = "sepolia"
	cfg.Signer.PrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	cfg.RPC = map[string]string{"sepolia": "http://127.0.0.1:1"}
	cfg.Deployment.ArtifactsFile = filepath.Join(t.TempDir(), "missing.json")

	_, err := execute(t, cfg, predictAddressesCmd())
	assert.ErrorIs(t, err, deploy.ErrArtifactNotFound)

	signer := signerOnly(common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"))
	_, err = signer.TransactOpts(context.Background())
	assert.ErrorIs(t, err, errOffline)
}

func TestViews(t *testing.T) {
	predictions := predictionView{{Role: roles.OrderToken, Address: common.HexToAddress("0x01")}}
	assert.Equal(t, []string{"OrderToken", common.HexToAddress("0x01").Hex(), "-", common.Hash{}.Hex()}, predictions.TableRows()[0])

	owners := ownerView{{Role: roles.OrderSafe, Applied: true}}
	assert.Equal(t, "true", owners.TableRows()[0][4])

	library := libraryView(peering.LibraryResult{Drifts: []peering.LibraryDrift{{
		Network:    "arbitrumsepolia",
		EndpointID: 40231,
		Send:       peering.LibrarySide{PolicyDrifted: true, DesiredPolicy: network.VerificationPolicy{Confirmations: 1}},
	}}})
	rows := library.TableRows()
	require.Len(t, rows, 2)
	assert.Equal(t, "send", rows[0][2])
	assert.Contains(t, rows[0][6], "confirmations=0 required=[] -> confirmations=1")
	assert.Equal(t, "-", rows[1][6])

	var _ output.Tabular = predictionView(nil)
	var _ output.Tabular = ownerView([]deploy.OwnerChange{})
	var _ output.Tabular = deliveryView(nil)
	var _ output.Tabular = addressView(nil)
	var _ output.Tabular = peerView(nil)
}
