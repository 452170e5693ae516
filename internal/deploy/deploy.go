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
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/orderly-network/order-token-ops/configs"
	"github.com/orderly-network/order-token-ops/internal/chain"
	"github.com/orderly-network/order-token-ops/internal/contracts"
	"github.com/orderly-network/order-token-ops/internal/ledger"
	"github.com/orderly-network/order-token-ops/internal/logger"
	"github.com/orderly-network/order-token-ops/internal/network"
	"github.com/orderly-network/order-token-ops/internal/roles"
)

const defaultSaltSeed = "deterministicDeployment"

var (
	ErrRoleNotDeployable  = errors.New("role not deployable on network")
	ErrRoleNotUpgradeable = errors.New("role not upgradeable")
	ErrArtifactNotFound   = contracts.ErrArtifactNotFound
)

type (
	// Factory deploys through CREATE2 and reports deployed code.
	Factory interface {
		Address() common.Address
		CodeAt(ctx context.Context, address common.Address) ([]byte, error)
		Create2(opts *bind.TransactOpts, salt [32]byte, initCode []byte) (*types.Transaction, error)
	}

	Relayer interface {
		SetEndpoint(opts *bind.TransactOpts, endpoint common.Address) (*types.Transaction, error)
		SetOft(opts *bind.TransactOpts, oft common.Address) (*types.Transaction, error)
		SetComposeMsgSender(opts *bind.TransactOpts, sender common.Address, allowed bool) (*types.Transaction, error)
		SetEid(opts *bind.TransactOpts, chainID *big.Int, eid uint32) (*types.Transaction, error)
		SetOrderChainID(opts *bind.TransactOpts, chainID *big.Int) (*types.Transaction, error)
		SetOrderSafe(opts *bind.TransactOpts, safe common.Address) (*types.Transaction, error)
		SetOrderBoxRelayer(opts *bind.TransactOpts, relayer common.Address) (*types.Transaction, error)
		SetOrderBox(opts *bind.TransactOpts, box common.Address) (*types.Transaction, error)
		SetOrderRelayer(opts *bind.TransactOpts, relayer common.Address) (*types.Transaction, error)
	}

	Ownable interface {
		Owner(opts *bind.CallOpts) (common.Address, error)
		TransferOwnership(opts *bind.TransactOpts, newOwner common.Address) (*types.Transaction, error)
		UpgradeToAndCall(opts *bind.TransactOpts, implementation common.Address, data []byte) (*types.Transaction, error)
	}

	Delegator interface {
		SetDelegate(opts *bind.TransactOpts, delegate common.Address) (*types.Transaction, error)
	}

	// Bindings attach the contract interfaces used after deployment.
	Bindings struct {
		Relayer   func(common.Address) Relayer
		Ownable   func(common.Address) Ownable
		Delegator func(common.Address) Delegator
	}

	Options struct {
		Salts         configs.Salts
		HubNetworks   []string
		Owners        map[string]string
		GasLimit      uint64
		ProxyGasLimit uint64
	}

	// Deployer drives deterministic deployment, upgrades, post-deploy wiring and ownership for one network session.
	Deployer struct {
		registry   *network.Registry
		resolver   *roles.Resolver
		store      ledger.AddressBook
		artifacts  contracts.Artifacts
		factory    Factory
		bindings   Bindings
		transactor chain.Transactor
		opts       Options
		logger     *slog.Logger
	}

	Deployment struct {
		Role           roles.Role     `json:"role" yaml:"role"`
		Network        string         `json:"network" yaml:"network"`
		Address        common.Address `json:"address" yaml:"address"`
		Implementation common.Address `json:"implementation" yaml:"implementation"`
		Reused         bool           `json:"reused" yaml:"reused"`
		Transactions   []common.Hash  `json:"transactions" yaml:"transactions"`
	}
)

// BindingsFrom adapts the generated contract wrappers.
func BindingsFrom(binder *contracts.Binder) Bindings {
	return Bindings{
		Relayer:   func(addr common.Address) Relayer { return binder.Relayer(addr) },
		Ownable:   func(addr common.Address) Ownable { return binder.Ownable(addr) },
		Delegator: func(addr common.Address) Delegator { return binder.OApp(addr) },
	}
}

func NewDeployer(
	registry *network.Registry,
	store ledger.AddressBook,
	artifacts contracts.Artifacts,
	factory Factory,
	bindings Bindings,
	transactor chain.Transactor,
	opts Options,
) *Deployer {
	return &Deployer{
		registry:   registry,
		resolver:   roles.NewResolver(registry),
		store:      store,
		artifacts:  artifacts,
		factory:    factory,
		bindings:   bindings,
		transactor: transactor,
		opts:       opts,
		logger:     logger.Named("deployer"),
	}
}

// DeterministicSalt hashes seed+env. An empty seed is replaced by a fixed literal; the env is always mixed in.
func DeterministicSalt(env configs.Env, seed string) [32]byte {
	if seed == "" {
		seed = defaultSaltSeed
	}
	return crypto.Keccak256Hash([]byte(seed + string(env)))
}

// PredictAddress is the CREATE2 address of init code with hash initCodeHash deployed by factory at salt.
func PredictAddress(factory common.Address, salt [32]byte, initCodeHash common.Hash) common.Address {
	return crypto.CreateAddress2(factory, salt, initCodeHash.Bytes())
}

func (o Options) seed(family roles.SaltFamily) string {
	switch family {
	case roles.SaltFamilySafe:
		return o.Salts.Safe
	case roles.SaltFamilyBox:
		return o.Salts.Box
	case roles.SaltFamilyRelayer:
		return o.Salts.Relayer
	default:
		return o.Salts.Order
	}
}

// Deploy places role on net, reusing code already at the predicted addresses, records the address and wires it.
func (d *Deployer) Deploy(ctx context.Context, role roles.Role, env configs.Env, net string) (Deployment, error) {
	log := d.logger.With("env", env).With("network", net).With("role", role)

	p, err := d.plan(role, env, net, true)
	if err != nil {
		return Deployment{}, err
	}

	deployment := Deployment{Role: role, Network: net, Address: p.address(), Implementation: p.implementation.address}

	implTx, implReused, err := d.ensure(ctx, p.implementation, d.opts.GasLimit, log.With("part", "implementation"))
	if err != nil {
		return deployment, fmt.Errorf("failed to deploy %s implementation: %w", role, err)
	}
	deployment.Reused = implReused
	if implTx != nil {
		deployment.Transactions = append(deployment.Transactions, implTx.Hash())
	}

	if p.proxy != nil {
		proxyTx, proxyReused, err := d.ensure(ctx, *p.proxy, d.opts.ProxyGasLimit, log.With("part", "proxy"))
		if err != nil {
			return deployment, fmt.Errorf("failed to deploy %s proxy: %w", role, err)
		}
		deployment.Reused = proxyReused
		if proxyTx != nil {
			deployment.Transactions = append(deployment.Transactions, proxyTx.Hash())
		}
	}

	if err := d.store.SaveAddress(string(env), net, role, deployment.Address); err != nil {
		return deployment, fmt.Errorf("failed to record %s: %w", role, err)
	}

	log.
		With("address", deployment.Address.Hex()).
		With("reused", deployment.Reused).
		Info("contract deployed")

	initTxs, err := d.Initialize(ctx, role, env, net)
	if err != nil {
		return deployment, fmt.Errorf("failed to initialize %s: %w", role, err)
	}
	deployment.Transactions = append(deployment.Transactions, initTxs...)

	return deployment, nil
}

// ensure sends the CREATE2 deployment unless code already exists at the target and checks that code landed.
func (d *Deployer) ensure(ctx context.Context, c create2Target, gasLimit uint64, log *slog.Logger) (*types.Transaction, bool, error) {
	code, err := d.factory.CodeAt(ctx, c.address)
	if err != nil {
		return nil, false, err
	}
	if len(code) > 0 {
		log.With("address", c.address.Hex()).Info("code already deployed, reusing")
		return nil, true, nil
	}

	opts, err := d.transactor.TransactOpts(ctx)
	if err != nil {
		return nil, false, err
	}
	opts.GasLimit = gasLimit
	tx, err := d.factory.Create2(opts, c.salt, c.initCode)
	if err != nil {
		return nil, false, fmt.Errorf("failed to submit create2: %w", err)
	}
	log.With("address", c.address.Hex()).With("tx_hash", tx.Hash().Hex()).Info("create2 submitted")

	if _, err := d.transactor.Wait(ctx, tx); err != nil {
		return tx, false, err
	}

	code, err = d.factory.CodeAt(ctx, c.address)
	if err != nil {
		return tx, false, err
	}
	if len(code) == 0 {
		return tx, false, fmt.Errorf("no code at %s after %s", c.address.Hex(), tx.Hash().Hex())
	}

	return tx, false, nil
}

// Upgrade deploys the current implementation of role and points the recorded proxy at it.
func (d *Deployer) Upgrade(ctx context.Context, role roles.Role, env configs.Env, net string) (common.Hash, error) {
	if !role.Proxied() {
		return common.Hash{}, fmt.Errorf("%w: %s", ErrRoleNotUpgradeable, role)
	}
	log := d.logger.With("env", env).With("network", net).With("role", role)

	proxy, err := d.store.LoadAddress(string(env), net, role)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to load %s proxy: %w", role, err)
	}

	impl, err := d.implementationTarget(role, env)
	if err != nil {
		return common.Hash{}, err
	}
	if _, _, err := d.ensure(ctx, impl, d.opts.GasLimit, log.With("part", "implementation")); err != nil {
		return common.Hash{}, fmt.Errorf("failed to deploy %s implementation: %w", role, err)
	}

	opts, err := d.transactor.TransactOpts(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	tx, err := d.bindings.Ownable(proxy).UpgradeToAndCall(opts, impl.address, []byte{})
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to upgrade %s: %w", role, err)
	}
	if _, err := d.transactor.Wait(ctx, tx); err != nil {
		return tx.Hash(), err
	}

	log.
		With("proxy", proxy.Hex()).
		With("implementation", impl.address.Hex()).
		With("tx_hash", tx.Hash().Hex()).
		Info("contract upgraded")

	return tx.Hash(), nil
}
