package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/orderly-network/order-token-ops/configs"
	"github.com/orderly-network/order-token-ops/internal/chain"
	"github.com/orderly-network/order-token-ops/internal/ledger"
	"github.com/orderly-network/order-token-ops/internal/network"
	"github.com/orderly-network/order-token-ops/internal/roles"
)

type (
	// wiring collects the setter calls of one Initialize run.
	wiring struct {
		ctx        context.Context
		transactor chain.Transactor
		log        *slog.Logger
		txs        []*types.Transaction
	}

	setter func(opts *bind.TransactOpts) (*types.Transaction, error)
)

func (w *wiring) send(name string, call setter) error {
	opts, err := w.transactor.TransactOpts(w.ctx)
	if err != nil {
		return err
	}
	tx, err := call(opts)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", name, err)
	}
	w.log.With("call", name).With("tx_hash", tx.Hash().Hex()).Info("wiring submitted")
	w.txs = append(w.txs, tx)
	return nil
}

// Initialize wires a deployed relayer or vault to its endpoint, OApp and sibling contracts.
// Optional siblings that are not recorded yet are logged and left for a later run.
func (d *Deployer) Initialize(ctx context.Context, role roles.Role, env configs.Env, net string) ([]common.Hash, error) {
	log := d.logger.With("env", env).With("network", net).With("role", role)

	cfg, err := d.registry.Lookup(net)
	if err != nil {
		return nil, err
	}
	if !role.IsRelayer() && !role.IsVault() {
		log.Info("nothing to initialize")
		return nil, nil
	}

	self, err := d.store.LoadAddress(string(env), net, role)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", role, err)
	}
	oappRole := d.resolver.TransferContractRole(net)
	oapp, err := d.store.LoadAddress(string(env), net, oappRole)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", oappRole, err)
	}

	w := &wiring{ctx: ctx, transactor: d.transactor, log: log}
	contract := d.bindings.Relayer(self)

	if role.IsRelayer() {
		err = d.initializeRelayer(w, contract, role, env, cfg, oapp)
	} else {
		err = d.initializeVault(w, contract, role, env, net, oapp)
	}
	if err != nil {
		return nil, err
	}

	if err := chain.WaitAll(ctx, d.transactor, w.txs); err != nil {
		return nil, fmt.Errorf("failed to confirm wiring: %w", err)
	}

	hashes := make([]common.Hash, 0, len(w.txs))
	for _, tx := range w.txs {
		hashes = append(hashes, tx.Hash())
	}
	log.With("writes", len(hashes)).Info("contract initialized")

	return hashes, nil
}

func (d *Deployer) initializeRelayer(w *wiring, relayer Relayer, role roles.Role, env configs.Env, cfg network.Config, oapp common.Address) error {
	if err := w.send("setEndpoint", func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return relayer.SetEndpoint(opts, cfg.EndpointAddress)
	}); err != nil {
		return err
	}
	if err := w.send("setOft", func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return relayer.SetOft(opts, oapp)
	}); err != nil {
		return err
	}
	if err := w.send("setComposeMsgSender", func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return relayer.SetComposeMsgSender(opts, oapp, true)
	}); err != nil {
		return err
	}
	for _, peer := range d.registry.Networks(cfg.Class) {
		chainID, eid := new(big.Int).SetUint64(peer.ChainID), peer.EndpointID
		if err := w.send("setEid", func(opts *bind.TransactOpts) (*types.Transaction, error) {
			return relayer.SetEid(opts, chainID, eid)
		}); err != nil {
			return err
		}
	}

	switch role {
	case roles.OrderSafeRelayer:
		hub, err := d.registry.Hub(cfg.Class, d.opts.HubNetworks)
		if err != nil {
			return err
		}
		if err := w.send("setOrderChainId", func(opts *bind.TransactOpts) (*types.Transaction, error) {
			return relayer.SetOrderChainID(opts, new(big.Int).SetUint64(hub.ChainID))
		}); err != nil {
			return err
		}
		if err := d.optional(w, env, cfg.Name, roles.OrderSafe, "setOrderSafe", relayer.SetOrderSafe); err != nil {
			return err
		}
		return d.optional(w, env, hub.Name, roles.OrderBoxRelayer, "setOrderBoxRelayer", relayer.SetOrderBoxRelayer)
	case roles.OrderBoxRelayer:
		return d.optional(w, env, cfg.Name, roles.OrderBox, "setOrderBox", relayer.SetOrderBox)
	}

	return nil
}

func (d *Deployer) initializeVault(w *wiring, vault Relayer, role roles.Role, env configs.Env, net string, oapp common.Address) error {
	if err := w.send("setOft", func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return vault.SetOft(opts, oapp)
	}); err != nil {
		return err
	}

	relayerRole := roles.OrderSafeRelayer
	if role == roles.OrderBox {
		relayerRole = roles.OrderBoxRelayer
	}
	return d.optional(w, env, net, relayerRole, "setOrderRelayer", vault.SetOrderRelayer)
}

// optional sends set(address of role on net) when the address is recorded.
func (d *Deployer) optional(
	w *wiring,
	env configs.Env,
	net string,
	role roles.Role,
	name string,
	set func(*bind.TransactOpts, common.Address) (*types.Transaction, error),
) error {
	addr, err := d.store.LoadAddress(string(env), net, role)
	if errors.Is(err, ledger.ErrAddressNotFound) {
		w.log.With("call", name).With("missing", role).With("missing_network", net).Info("dependency not deployed, configure later")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load %s on %s: %w", role, net, err)
	}
	return w.send(name, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return set(opts, addr)
	})
}
