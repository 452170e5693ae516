package peering

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
	"github.com/orderly-network/order-token-ops/internal/contracts"
	"github.com/orderly-network/order-token-ops/internal/ledger"
	"github.com/orderly-network/order-token-ops/internal/logger"
	"github.com/orderly-network/order-token-ops/internal/network"
	"github.com/orderly-network/order-token-ops/internal/roles"
)

type (
	// LibraryReconciler compares the send and receive library selection and ULN config of the local OApp
	// against the policy declared for the local network.
	LibraryReconciler struct {
		registry   *network.Registry
		resolver   *roles.Resolver
		store      ledger.AddressBook
		endpoint   Endpoint
		transactor chain.Transactor
		wait       bool
		logger     *slog.Logger
	}

	LibraryRequest struct {
		Env   configs.Env
		From  string
		Apply bool
		Force bool
	}

	LibrarySide struct {
		CurrentLibrary common.Address             `json:"current-library" yaml:"current-library"`
		DesiredLibrary common.Address             `json:"desired-library" yaml:"desired-library"`
		SwitchLibrary  bool                       `json:"switch-library" yaml:"switch-library"`
		CurrentPolicy  network.VerificationPolicy `json:"current-policy" yaml:"current-policy"`
		DesiredPolicy  network.VerificationPolicy `json:"desired-policy" yaml:"desired-policy"`
		PolicyDrifted  bool                       `json:"policy-drifted" yaml:"policy-drifted"`
	}

	LibraryDrift struct {
		Network    string      `json:"network" yaml:"network"`
		EndpointID uint32      `json:"endpoint-id" yaml:"endpoint-id"`
		Send       LibrarySide `json:"send" yaml:"send"`
		Receive    LibrarySide `json:"receive" yaml:"receive"`
	}

	LibraryResult struct {
		Drifts       []LibraryDrift `json:"drifts" yaml:"drifts"`
		Skipped      []string       `json:"skipped" yaml:"skipped"`
		Applied      bool           `json:"applied" yaml:"applied"`
		Transactions []common.Hash  `json:"transactions" yaml:"transactions"`
	}

	librarySwitch struct {
		eid     uint32
		lib     common.Address
		receive bool
	}
)

func NewLibraryReconciler(
	registry *network.Registry,
	store ledger.AddressBook,
	endpoint Endpoint,
	transactor chain.Transactor,
	waitForBatches bool,
) *LibraryReconciler {
	return &LibraryReconciler{
		registry:   registry,
		resolver:   roles.NewResolver(registry),
		store:      store,
		endpoint:   endpoint,
		transactor: transactor,
		wait:       waitForBatches,
		logger:     logger.Named("library_config"),
	}
}

// Drifted reports whether any side of the pair needs a write.
func (d LibraryDrift) Drifted() bool {
	return d.Send.SwitchLibrary || d.Send.PolicyDrifted || d.Receive.SwitchLibrary || d.Receive.PolicyDrifted
}

// Reconcile plans the library and config writes for every remote of the local class and sends them when Apply is
// set. Force treats every config as drifted; library selection is still only switched when it differs.
func (r *LibraryReconciler) Reconcile(ctx context.Context, req LibraryRequest) (LibraryResult, error) {
	var result LibraryResult

	send, receive, err := r.registry.RequireLibraryConfig(req.From)
	if err != nil {
		return result, err
	}
	local, err := r.registry.Lookup(req.From)
	if err != nil {
		return result, err
	}
	localRole := r.resolver.TransferContractRole(req.From)
	oapp, err := r.store.LoadAddress(string(req.Env), req.From, localRole)
	if err != nil {
		return result, fmt.Errorf("failed to load local %s on %s: %w", localRole, req.From, err)
	}

	log := r.logger.With("env", req.Env).With("network", req.From).With("oapp", oapp.Hex())
	callOpts := r.transactor.CallOpts(ctx)

	var (
		switches      []librarySwitch
		sendParams    []contracts.SetConfigParam
		receiveParams []contracts.SetConfigParam
	)

	for _, remote := range r.registry.Networks(local.Class) {
		if remote.Name == req.From {
			continue
		}
		if remote.SendLibrary == nil || remote.ReceiveLibrary == nil {
			log.With("remote", remote.Name).Info("remote has no library config, skipping")
			result.Skipped = append(result.Skipped, remote.Name)
			continue
		}
		remoteRole := r.resolver.TransferContractRole(remote.Name)
		if _, err := r.store.LoadAddress(string(req.Env), remote.Name, remoteRole); err != nil {
			if errors.Is(err, ledger.ErrAddressNotFound) {
				log.With("remote", remote.Name).Info("remote not deployed, skipping")
				result.Skipped = append(result.Skipped, remote.Name)
				continue
			}
			return result, fmt.Errorf("failed to load %s on %s: %w", remoteRole, remote.Name, err)
		}

		drift := LibraryDrift{Network: remote.Name, EndpointID: remote.EndpointID}

		currentSend, err := r.endpoint.GetSendLibrary(callOpts, oapp, remote.EndpointID)
		if err != nil {
			return result, fmt.Errorf("failed to query send library for %s: %w", remote.Name, err)
		}
		currentReceive, _, err := r.endpoint.GetReceiveLibrary(callOpts, oapp, remote.EndpointID)
		if err != nil {
			return result, fmt.Errorf("failed to query receive library for %s: %w", remote.Name, err)
		}

		drift.Send, err = r.inspectSide(callOpts, oapp, remote.EndpointID, currentSend, send, req.Force)
		if err != nil {
			return result, fmt.Errorf("failed to inspect send config for %s: %w", remote.Name, err)
		}
		drift.Receive, err = r.inspectSide(callOpts, oapp, remote.EndpointID, currentReceive, receive, req.Force)
		if err != nil {
			return result, fmt.Errorf("failed to inspect receive config for %s: %w", remote.Name, err)
		}

		if drift.Send.SwitchLibrary {
			switches = append(switches, librarySwitch{eid: remote.EndpointID, lib: send.Address})
		}
		if drift.Receive.SwitchLibrary {
			switches = append(switches, librarySwitch{eid: remote.EndpointID, lib: receive.Address, receive: true})
		}
		if drift.Send.PolicyDrifted {
			param, err := ulnParam(remote.EndpointID, send.Policy)
			if err != nil {
				return result, err
			}
			sendParams = append(sendParams, param)
		}
		if drift.Receive.PolicyDrifted {
			param, err := ulnParam(remote.EndpointID, receive.Policy)
			if err != nil {
				return result, err
			}
			receiveParams = append(receiveParams, param)
		}

		if drift.Drifted() {
			log.
				With("remote", remote.Name).
				With("send_switch", drift.Send.SwitchLibrary).
				With("send_drift", drift.Send.PolicyDrifted).
				With("receive_switch", drift.Receive.SwitchLibrary).
				With("receive_drift", drift.Receive.PolicyDrifted).
				Info("library config drift")
			result.Drifts = append(result.Drifts, drift)
		}
	}

	if !req.Apply {
		log.With("drifts", len(result.Drifts)).Info("dry run, nothing sent")
		return result, nil
	}

	var pending []*types.Transaction
	for _, s := range switches {
		opts, err := r.transactor.TransactOpts(ctx)
		if err != nil {
			return result, err
		}
		var tx *types.Transaction
		if s.receive {
			tx, err = r.endpoint.SetReceiveLibrary(opts, oapp, s.eid, s.lib, big.NewInt(0))
		} else {
			tx, err = r.endpoint.SetSendLibrary(opts, oapp, s.eid, s.lib)
		}
		if err != nil {
			return result, fmt.Errorf("failed to switch library for eid %d: %w", s.eid, err)
		}
		pending = append(pending, tx)
		result.Transactions = append(result.Transactions, tx.Hash())
	}

	for _, batch := range []struct {
		lib    common.Address
		params []contracts.SetConfigParam
	}{
		{lib: send.Address, params: sendParams},
		{lib: receive.Address, params: receiveParams},
	} {
		if len(batch.params) == 0 {
			continue
		}
		opts, err := r.transactor.TransactOpts(ctx)
		if err != nil {
			return result, err
		}
		tx, err := r.endpoint.SetConfig(opts, oapp, batch.lib, batch.params)
		if err != nil {
			return result, fmt.Errorf("failed to set config on %s: %w", batch.lib.Hex(), err)
		}
		pending = append(pending, tx)
		result.Transactions = append(result.Transactions, tx.Hash())
	}

	if r.wait {
		if err := chain.WaitAll(ctx, r.transactor, pending); err != nil {
			return result, fmt.Errorf("failed to confirm library config: %w", err)
		}
	}
	result.Applied = true

	log.With("writes", len(result.Transactions)).Info("library config applied")

	return result, nil
}

func (r *LibraryReconciler) inspectSide(
	callOpts *bind.CallOpts,
	oapp common.Address,
	eid uint32,
	currentLib common.Address,
	desired network.LibraryConfig,
	force bool,
) (LibrarySide, error) {
	side := LibrarySide{
		CurrentLibrary: currentLib,
		DesiredLibrary: desired.Address,
		SwitchLibrary:  currentLib != desired.Address,
		DesiredPolicy:  desired.Policy,
	}

	raw, err := r.endpoint.GetConfig(callOpts, oapp, desired.Address, eid, contracts.ConfigTypeULN)
	if err != nil {
		return side, err
	}
	var current network.VerificationPolicy
	if len(raw) > 0 {
		if current, err = DecodeUlnConfig(raw); err != nil {
			return side, err
		}
	}
	side.CurrentPolicy = current
	side.PolicyDrifted = force || !current.Equal(desired.Policy)

	return side, nil
}

func ulnParam(eid uint32, policy network.VerificationPolicy) (contracts.SetConfigParam, error) {
	encoded, err := EncodeUlnConfig(policy)
	if err != nil {
		return contracts.SetConfigParam{}, err
	}
	return contracts.SetConfigParam{Eid: eid, ConfigType: contracts.ConfigTypeULN, Config: encoded}, nil
}
