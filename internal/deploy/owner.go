package deploy

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/orderly-network/order-token-ops/configs"
	"github.com/orderly-network/order-token-ops/internal/chain"
	"github.com/orderly-network/order-token-ops/internal/ledger"
	"github.com/orderly-network/order-token-ops/internal/roles"
)

var ErrOwnerNotConfigured = errors.New("owner not configured")

type OwnerChange struct {
	Role         roles.Role     `json:"role" yaml:"role"`
	Address      common.Address `json:"address" yaml:"address"`
	Current      common.Address `json:"current" yaml:"current"`
	Target       common.Address `json:"target" yaml:"target"`
	Applied      bool           `json:"applied" yaml:"applied"`
	Transactions []common.Hash  `json:"transactions" yaml:"transactions"`
}

// SetOwner hands every owned contract recorded on net to the env's configured owner. OApps get the new owner as
// endpoint delegate first. Without apply only the plan is returned.
func (d *Deployer) SetOwner(ctx context.Context, env configs.Env, net string, apply bool) ([]OwnerChange, error) {
	raw, ok := d.opts.Owners[string(env)]
	if !ok || !common.IsHexAddress(raw) {
		return nil, fmt.Errorf("%w: messaging.owners.%s", ErrOwnerNotConfigured, env)
	}
	target := common.HexToAddress(raw)
	log := d.logger.With("env", env).With("network", net).With("owner", target.Hex())

	if _, err := d.registry.Lookup(net); err != nil {
		return nil, err
	}

	var (
		changes []OwnerChange
		pending []*types.Transaction
	)
	for _, role := range roles.All {
		if !role.Proxied() {
			continue
		}
		addr, err := d.store.LoadAddress(string(env), net, role)
		if errors.Is(err, ledger.ErrAddressNotFound) {
			continue
		}
		if err != nil {
			return changes, fmt.Errorf("failed to load %s: %w", role, err)
		}

		ownable := d.bindings.Ownable(addr)
		current, err := ownable.Owner(d.transactor.CallOpts(ctx))
		if err != nil {
			return changes, fmt.Errorf("failed to query owner of %s: %w", role, err)
		}
		if current == target {
			continue
		}

		change := OwnerChange{Role: role, Address: addr, Current: current, Target: target}
		if apply {
			if role.IsOApp() {
				opts, err := d.transactor.TransactOpts(ctx)
				if err != nil {
					return changes, err
				}
				tx, err := d.bindings.Delegator(addr).SetDelegate(opts, target)
				if err != nil {
					return changes, fmt.Errorf("failed to set delegate of %s: %w", role, err)
				}
				pending = append(pending, tx)
				change.Transactions = append(change.Transactions, tx.Hash())
			}

			opts, err := d.transactor.TransactOpts(ctx)
			if err != nil {
				return changes, err
			}
			tx, err := ownable.TransferOwnership(opts, target)
			if err != nil {
				return changes, fmt.Errorf("failed to transfer ownership of %s: %w", role, err)
			}
			pending = append(pending, tx)
			change.Transactions = append(change.Transactions, tx.Hash())
			change.Applied = true
		}

		log.
			With("role", role).
			With("current", current.Hex()).
			With("applied", change.Applied).
			Info("owner differs")
		changes = append(changes, change)
	}

	if err := chain.WaitAll(ctx, d.transactor, pending); err != nil {
		return changes, fmt.Errorf("failed to confirm ownership transfer: %w", err)
	}

	return changes, nil
}
