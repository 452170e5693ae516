package peering

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/orderly-network/order-token-ops/configs"
	"github.com/orderly-network/order-token-ops/internal/chain"
	"github.com/orderly-network/order-token-ops/internal/contracts"
	"github.com/orderly-network/order-token-ops/internal/ledger"
	"github.com/orderly-network/order-token-ops/internal/logger"
	"github.com/orderly-network/order-token-ops/internal/network"
	"github.com/orderly-network/order-token-ops/internal/options"
	"github.com/orderly-network/order-token-ops/internal/roles"
)

type (
	// Reconciler converges the peers, enforced options and trusted-caller settings of one local OApp.
	Reconciler struct {
		registry   *network.Registry
		resolver   *roles.Resolver
		store      ledger.Store
		messaging  configs.Messaging
		transactor chain.Transactor
		bindOApp   OAppBinder
		logger     *slog.Logger
	}

	OptionUpdate struct {
		Network string `json:"network" yaml:"network"`
		MsgType uint16 `json:"msg-type" yaml:"msg-type"`
		Options string `json:"options" yaml:"options"`
	}

	Result struct {
		PeersAdded               []string       `json:"peers-added" yaml:"peers-added"`
		OptionsUpdated           []OptionUpdate `json:"options-updated" yaml:"options-updated"`
		TrustedCallerSet         bool           `json:"trusted-caller-set" yaml:"trusted-caller-set"`
		OnlyTrustedCallerEnabled bool           `json:"only-trusted-caller-enabled" yaml:"only-trusted-caller-enabled"`
		Skipped                  []string       `json:"skipped" yaml:"skipped"`
		Transactions             []common.Hash  `json:"transactions" yaml:"transactions"`
	}
)

func NewReconciler(
	registry *network.Registry,
	store ledger.Store,
	messaging configs.Messaging,
	transactor chain.Transactor,
	bindOApp OAppBinder,
) *Reconciler {
	return &Reconciler{
		registry:   registry,
		resolver:   roles.NewResolver(registry),
		store:      store,
		messaging:  messaging,
		transactor: transactor,
		bindOApp:   bindOApp,
		logger:     logger.Named("peering"),
	}
}

// Writes reports how many transactions the run submitted.
func (r Result) Writes() int {
	return len(r.Transactions)
}

// Reconcile reads the on-chain state of the OApp on from and writes only what differs from the desired state.
func (r *Reconciler) Reconcile(ctx context.Context, env configs.Env, from string) (Result, error) {
	var result Result

	local, err := r.registry.Lookup(from)
	if err != nil {
		return result, err
	}
	localRole := r.resolver.TransferContractRole(from)
	localAddr, err := r.store.LoadAddress(string(env), from, localRole)
	if err != nil {
		return result, fmt.Errorf("failed to load local %s on %s: %w", localRole, from, err)
	}

	log := r.logger.With("env", env).With("network", from).With("oapp", localAddr.Hex())
	oapp := r.bindOApp(localAddr)
	callOpts := r.transactor.CallOpts(ctx)

	var (
		peerEids   []uint32
		peerAddrs  [][32]byte
		peerNames  []string
		optionsSet []contracts.EnforcedOptionParam
		pending    []*types.Transaction
	)

	for _, remote := range r.registry.Networks(local.Class) {
		if remote.Name == from {
			continue
		}
		remoteRole := r.resolver.TransferContractRole(remote.Name)
		remoteAddr, err := r.store.LoadAddress(string(env), remote.Name, remoteRole)
		if errors.Is(err, ledger.ErrAddressNotFound) {
			log.With("remote", remote.Name).With("role", remoteRole).Info("remote not deployed, skipping")
			result.Skipped = append(result.Skipped, remote.Name)
			continue
		}
		if err != nil {
			return result, fmt.Errorf("failed to load %s on %s: %w", remoteRole, remote.Name, err)
		}

		peer := network.PeerAddress(remoteAddr)
		connected, err := oapp.IsPeer(callOpts, remote.EndpointID, peer)
		if err != nil {
			return result, fmt.Errorf("failed to query peer %s: %w", remote.Name, err)
		}
		if !connected {
			peerEids = append(peerEids, remote.EndpointID)
			peerAddrs = append(peerAddrs, peer)
			peerNames = append(peerNames, remote.Name)
		}

		for _, want := range desiredOptions(r.messaging.Options.OptionsFor(remote.Name)) {
			msgType, desired := want.msgType, want.options
			current, err := oapp.EnforcedOptions(callOpts, remote.EndpointID, msgType)
			if err != nil {
				return result, fmt.Errorf("failed to query enforced options for %s type %d: %w", remote.Name, msgType, err)
			}
			if options.Equal(current, desired) {
				continue
			}
			optionsSet = append(optionsSet, contracts.EnforcedOptionParam{
				Eid:     remote.EndpointID,
				MsgType: msgType,
				Options: desired,
			})
			result.OptionsUpdated = append(result.OptionsUpdated, OptionUpdate{
				Network: remote.Name,
				MsgType: msgType,
				Options: hexutil.Encode(desired),
			})
			log.
				With("remote", remote.Name).
				With("msg_type", msgType).
				With("current", hexutil.Encode(current)).
				With("desired", hexutil.Encode(desired)).
				Info("enforced options differ")
		}
	}

	if len(peerEids) > 0 {
		opts, err := r.transactor.TransactOpts(ctx)
		if err != nil {
			return result, err
		}
		tx, err := oapp.SetPeers(opts, peerEids, peerAddrs)
		if err != nil {
			return result, fmt.Errorf("failed to set peers: %w", err)
		}
		pending = append(pending, tx)
		result.Transactions = append(result.Transactions, tx.Hash())
		result.PeersAdded = peerNames

		for _, to := range peerNames {
			if err := r.store.SetPeerFlag(string(env), from, to, true); err != nil {
				return result, fmt.Errorf("failed to record peer %s: %w", to, err)
			}
		}
		log.With("peers", peerNames).With("tx_hash", tx.Hash().Hex()).Info("peers submitted")
	}

	if len(optionsSet) > 0 {
		opts, err := r.transactor.TransactOpts(ctx)
		if err != nil {
			return result, err
		}
		tx, err := oapp.SetEnforcedOptions(opts, optionsSet)
		if err != nil {
			return result, fmt.Errorf("failed to set enforced options: %w", err)
		}
		pending = append(pending, tx)
		result.Transactions = append(result.Transactions, tx.Hash())
		log.With("len", len(optionsSet)).With("tx_hash", tx.Hash().Hex()).Info("enforced options submitted")
	}

	tx, err := r.reconcileTrustedCaller(ctx, env, from, oapp, log)
	if err != nil {
		return result, err
	}
	if tx != nil {
		pending = append(pending, tx)
		result.Transactions = append(result.Transactions, tx.Hash())
		result.TrustedCallerSet = true
	}

	tx, err = r.reconcileOnlyTrustedCaller(ctx, from, oapp, log)
	if err != nil {
		return result, err
	}
	if tx != nil {
		pending = append(pending, tx)
		result.Transactions = append(result.Transactions, tx.Hash())
		result.OnlyTrustedCallerEnabled = true
	}

	if r.messaging.WaitForBatches {
		if err := chain.WaitAll(ctx, r.transactor, pending); err != nil {
			return result, fmt.Errorf("failed to confirm peering batches: %w", err)
		}
	}

	log.
		With("peers_added", len(result.PeersAdded)).
		With("options_updated", len(result.OptionsUpdated)).
		With("writes", result.Writes()).
		Info("peering reconciled")

	return result, nil
}

func (r *Reconciler) reconcileTrustedCaller(ctx context.Context, env configs.Env, from string, oapp OApp, log *slog.Logger) (*types.Transaction, error) {
	caller, ok := r.messaging.TrustedCaller(env, from)
	if !ok {
		log.Info("no trusted caller configured, skipping")
		return nil, nil
	}

	trusted, err := oapp.IsTrustedCaller(r.transactor.CallOpts(ctx), caller)
	if err != nil {
		return nil, fmt.Errorf("failed to query trusted caller: %w", err)
	}
	if trusted {
		return nil, nil
	}

	opts, err := r.transactor.TransactOpts(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := oapp.SetTrustedCaller(opts, caller, true)
	if err != nil {
		return nil, fmt.Errorf("failed to set trusted caller: %w", err)
	}
	log.With("caller", caller.Hex()).With("tx_hash", tx.Hash().Hex()).Info("trusted caller submitted")

	return tx, nil
}

// reconcileOnlyTrustedCaller turns the restriction on for hub networks. It is never turned off here.
func (r *Reconciler) reconcileOnlyTrustedCaller(ctx context.Context, from string, oapp OApp, log *slog.Logger) (*types.Transaction, error) {
	if !r.messaging.IsHub(from) {
		return nil, nil
	}

	enabled, err := oapp.OnlyTrustedCaller(r.transactor.CallOpts(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to query only-trusted-caller: %w", err)
	}
	if enabled {
		return nil, nil
	}

	opts, err := r.transactor.TransactOpts(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := oapp.SetOnlyTrustedCaller(opts, true)
	if err != nil {
		return nil, fmt.Errorf("failed to enable only-trusted-caller: %w", err)
	}
	log.With("tx_hash", tx.Hash().Hex()).Info("only-trusted-caller submitted")

	return tx, nil
}

type enforcedOption struct {
	msgType uint16
	options []byte
}

// desiredOptions renders the enforced options per message type for one destination.
func desiredOptions(set configs.OptionSet) []enforcedOption {
	send := options.New().
		AddExecutorLzReceiveOption(set.Send.Gas, new(big.Int).SetUint64(set.Send.Value)).
		Bytes()
	sendAndCall := options.New().
		AddExecutorLzReceiveOption(set.SendAndCall.Gas, new(big.Int).SetUint64(set.SendAndCall.Value)).
		AddExecutorComposeOption(0, set.SendAndCall.ComposeGas, new(big.Int).SetUint64(set.SendAndCall.ComposeValue)).
		Bytes()

	return []enforcedOption{
		{msgType: options.MsgTypeSend, options: send},
		{msgType: options.MsgTypeSendAndCall, options: sendAndCall},
	}
}

// InitPeers writes false for every ordered pair of the env's class into the peer cache.
func InitPeers(registry *network.Registry, cache ledger.PeerCache, env configs.Env) (int, error) {
	class, err := network.ClassForEnv(string(env))
	if err != nil {
		return 0, err
	}

	written := 0
	networks := registry.Networks(class)
	for _, from := range networks {
		for _, to := range networks {
			if from.Name == to.Name {
				continue
			}
			if err := cache.SetPeerFlag(string(env), from.Name, to.Name, false); err != nil {
				return written, fmt.Errorf("failed to reset peer %s -> %s: %w", from.Name, to.Name, err)
			}
			written++
		}
	}

	return written, nil
}
