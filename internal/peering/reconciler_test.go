package peering

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/orderly-network/order-token-ops/configs"
	"github.com/orderly-network/order-token-ops/internal/chain/chaintest"
	"github.com/orderly-network/order-token-ops/internal/ledger"
	"github.com/orderly-network/order-token-ops/internal/network"
	"github.com/orderly-network/order-token-ops/internal/options"
	"github.com/orderly-network/order-token-ops/internal/roles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	signer       = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	caller       = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	deployedOn   = []string{"sepolia", "arbitrumsepolia", "opsepolia", "orderlysepolia"}
	addressOfNet = map[string]common.Address{
		"sepolia":         common.HexToAddress("0x00000000000000000000000000000000000000a1"),
		"arbitrumsepolia": common.HexToAddress("0x00000000000000000000000000000000000000a2"),
		"opsepolia":       common.HexToAddress("0x00000000000000000000000000000000000000a3"),
		"orderlysepolia":  common.HexToAddress("0x00000000000000000000000000000000000000a4"),
	}
)

type fixture struct {
	registry   *network.Registry
	store      *ledger.MemoryStore
	transactor *chaintest.Transactor
	oapps      map[common.Address]*fakeOApp
	messaging  configs.Messaging
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	registry := network.MustDefault()
	resolver := roles.NewResolver(registry)
	store := ledger.NewMemoryStore()
	for _, name := range deployedOn {
		require.NoError(t, store.SaveAddress("dev", name, resolver.TransferContractRole(name), addressOfNet[name]))
	}

	oapps := make(map[common.Address]*fakeOApp)
	for _, addr := range addressOfNet {
		oapps[addr] = newFakeOApp(addr)
	}

	defaults, err := configs.DefaultConfig()
	require.NoError(t, err)
	messaging := defaults.Messaging
	messaging.TrustedCallers = map[string]map[string]string{
		"dev": {"orderlysepolia": caller.Hex(), "arbitrumsepolia": caller.Hex()},
	}

	return &fixture{
		registry:   registry,
		store:      store,
		transactor: chaintest.NewTransactor(signer, 10),
		oapps:      oapps,
		messaging:  messaging,
	}
}

func (f *fixture) reconciler() *Reconciler {
	return NewReconciler(f.registry, f.store, f.messaging, f.transactor, func(addr common.Address) OApp {
		return f.oapps[addr]
	})
}

func TestReconcileConvergesAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.reconciler().Reconcile(ctx, configs.EnvDev, "arbitrumsepolia")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"sepolia", "opsepolia", "orderlysepolia"}, first.PeersAdded)
	assert.Len(t, first.OptionsUpdated, 6)
	assert.True(t, first.TrustedCallerSet)
	assert.False(t, first.OnlyTrustedCallerEnabled, "arbitrumsepolia is not a hub")
	assert.Contains(t, first.Skipped, "fuji")
	assert.Equal(t, 3, first.Writes())
	assert.Equal(t, 3, f.transactor.Issued())
	assert.Len(t, f.transactor.Waited(), 3)

	local := f.oapps[addressOfNet["arbitrumsepolia"]]
	sepolia, err := f.registry.Lookup("sepolia")
	require.NoError(t, err)
	assert.Equal(t, network.PeerAddress(addressOfNet["sepolia"]), local.peers[sepolia.EndpointID])

	connected, err := f.store.PeerFlag("dev", "arbitrumsepolia", "sepolia")
	require.NoError(t, err)
	assert.True(t, connected)

	second, err := f.reconciler().Reconcile(ctx, configs.EnvDev, "arbitrumsepolia")
	require.NoError(t, err)
	assert.Zero(t, second.Writes())
	assert.Empty(t, second.PeersAdded)
	assert.Empty(t, second.OptionsUpdated)
	assert.False(t, second.TrustedCallerSet)
	assert.Equal(t, 3, f.transactor.Issued())
}

func TestReconcileOnlyDelta(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	local := f.oapps[addressOfNet["sepolia"]]
	opsepolia, err := f.registry.Lookup("opsepolia")
	require.NoError(t, err)
	local.peers[opsepolia.EndpointID] = network.PeerAddress(addressOfNet["opsepolia"])

	result, err := f.reconciler().Reconcile(ctx, configs.EnvDev, "sepolia")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"arbitrumsepolia", "orderlysepolia"}, result.PeersAdded)
	assert.False(t, result.TrustedCallerSet, "no caller configured for sepolia")
	assert.Equal(t, []string{"setPeers", "setEnforcedOptions"}, local.writes)

	_, err = f.store.PeerFlag("dev", "sepolia", "opsepolia")
	assert.ErrorIs(t, err, ledger.ErrPeerNotFound)
}

func TestReconcileIgnoresStalePeerCache(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.SetPeerFlag("dev", "sepolia", "arbitrumsepolia", true))

	result, err := f.reconciler().Reconcile(context.Background(), configs.EnvDev, "sepolia")
	require.NoError(t, err)
	assert.Contains(t, result.PeersAdded, "arbitrumsepolia")

	local := f.oapps[addressOfNet["sepolia"]]
	arbitrumsepolia, err := f.registry.Lookup("arbitrumsepolia")
	require.NoError(t, err)
	assert.Equal(t, network.PeerAddress(addressOfNet["arbitrumsepolia"]), local.peers[arbitrumsepolia.EndpointID])
}

func TestReconcileComparesExactOptionBytes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.reconciler().Reconcile(ctx, configs.EnvDev, "opsepolia")
	require.NoError(t, err)

	local := f.oapps[addressOfNet["opsepolia"]]
	sepolia, err := f.registry.Lookup("sepolia")
	require.NoError(t, err)

	// an identical encoding built independently is accepted
	gas := f.messaging.Options.OptionsFor("sepolia").Send.Gas
	local.options[sepolia.EndpointID][options.MsgTypeSend] = options.New().AddExecutorLzReceiveOption(gas, nil).Bytes()
	require.True(t, options.Equal(local.options[sepolia.EndpointID][options.MsgTypeSend], desiredOptions(f.messaging.Options.OptionsFor("sepolia"))[0].options))

	result, err := f.reconciler().Reconcile(ctx, configs.EnvDev, "opsepolia")
	require.NoError(t, err)
	assert.Empty(t, result.OptionsUpdated)

	local.options[sepolia.EndpointID][options.MsgTypeSend] = append(local.options[sepolia.EndpointID][options.MsgTypeSend], 0x00)
	result, err = f.reconciler().Reconcile(ctx, configs.EnvDev, "opsepolia")
	require.NoError(t, err)
	require.Len(t, result.OptionsUpdated, 1)
	assert.Equal(t, "sepolia", result.OptionsUpdated[0].Network)
	assert.Equal(t, options.MsgTypeSend, result.OptionsUpdated[0].MsgType)
}

func TestReconcileHubEnablesOnlyTrustedCaller(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.reconciler().Reconcile(ctx, configs.EnvDev, "orderlysepolia")
	require.NoError(t, err)
	assert.True(t, result.OnlyTrustedCallerEnabled)
	assert.True(t, result.TrustedCallerSet)

	local := f.oapps[addressOfNet["orderlysepolia"]]
	assert.True(t, local.onlyTrusted)
	assert.True(t, local.trusted[caller])

	again, err := f.reconciler().Reconcile(ctx, configs.EnvDev, "orderlysepolia")
	require.NoError(t, err)
	assert.False(t, again.OnlyTrustedCallerEnabled)
	assert.Zero(t, again.Writes())
}

func TestReconcileRequiresLocalDeployment(t *testing.T) {
	f := newFixture(t)

	_, err := f.reconciler().Reconcile(context.Background(), configs.EnvDev, "fuji")
	assert.ErrorIs(t, err, ledger.ErrAddressNotFound)

	_, err = f.reconciler().Reconcile(context.Background(), configs.EnvDev, "mars")
	assert.ErrorIs(t, err, network.ErrUnsupportedNetwork)
}

func TestReconcileNeverCrossesClasses(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.SaveAddress("dev", "arbitrum", roles.OrderOFT, common.HexToAddress("0x00000000000000000000000000000000000000f1")))

	result, err := f.reconciler().Reconcile(context.Background(), configs.EnvDev, "sepolia")
	require.NoError(t, err)
	assert.NotContains(t, result.PeersAdded, "arbitrum")
	assert.NotContains(t, result.Skipped, "arbitrum")
}

func TestInitPeers(t *testing.T) {
	registry := network.MustDefault()
	store := ledger.NewMemoryStore()
	require.NoError(t, store.SetPeerFlag("qa", "sepolia", "fuji", true))

	written, err := InitPeers(registry, store, configs.EnvQA)
	require.NoError(t, err)

	n := len(registry.Networks(network.ClassTest))
	assert.Equal(t, n*(n-1), written)

	connected, err := store.PeerFlag("qa", "sepolia", "fuji")
	require.NoError(t, err)
	assert.False(t, connected)

	_, err = InitPeers(registry, store, configs.Env("prod"))
	assert.ErrorIs(t, err, network.ErrUnsupportedEnv)
}
