package deploy

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/orderly-network/order-token-ops/configs"
	"github.com/orderly-network/order-token-ops/internal/contracts"
	"github.com/orderly-network/order-token-ops/internal/ledger"
	"github.com/orderly-network/order-token-ops/internal/network"
	"github.com/orderly-network/order-token-ops/internal/roles"
)

type (
	create2Target struct {
		salt     [32]byte
		initCode []byte
		address  common.Address
	}

	plan struct {
		role           roles.Role
		implementation create2Target
		proxy          *create2Target
	}

	Prediction struct {
		Role           roles.Role     `json:"role" yaml:"role"`
		Address        common.Address `json:"address" yaml:"address"`
		Implementation common.Address `json:"implementation" yaml:"implementation"`
		Salt           common.Hash    `json:"salt" yaml:"salt"`
	}
)

// address is where the role is reachable: the proxy when there is one.
func (p plan) address() common.Address {
	if p.proxy != nil {
		return p.proxy.address
	}
	return p.implementation.address
}

func (d *Deployer) target(salt [32]byte, initCode []byte) create2Target {
	return create2Target{
		salt:     salt,
		initCode: initCode,
		address:  PredictAddress(d.factory.Address(), salt, crypto.Keccak256Hash(initCode)),
	}
}

func (d *Deployer) implementationTarget(role roles.Role, env configs.Env) (create2Target, error) {
	artifact, err := d.artifacts.Get(string(role))
	if err != nil {
		return create2Target{}, err
	}

	var args []any
	if role == roles.OrderToken {
		args = append(args, d.transactor.From())
	}
	initCode, err := artifact.InitCode(args...)
	if err != nil {
		return create2Target{}, err
	}

	return d.target(DeterministicSalt(env, d.opts.seed(role.SaltFamily())), initCode), nil
}

// plan computes the CREATE2 targets of role on net. When strict, the adapter's token must already be recorded;
// otherwise its predicted address stands in.
func (d *Deployer) plan(role roles.Role, env configs.Env, net string, strict bool) (plan, error) {
	cfg, err := d.registry.Lookup(net)
	if err != nil {
		return plan{}, err
	}
	if !d.resolver.Deployable(role, net) {
		return plan{}, fmt.Errorf("%w: %s on %s", ErrRoleNotDeployable, role, net)
	}

	impl, err := d.implementationTarget(role, env)
	if err != nil {
		return plan{}, err
	}
	p := plan{role: role, implementation: impl}
	if !role.Proxied() {
		return p, nil
	}

	initData, err := d.initData(role, env, cfg, strict)
	if err != nil {
		return plan{}, err
	}
	proxyArtifact, err := d.artifacts.Get(contracts.ProxyContractName)
	if err != nil {
		return plan{}, err
	}
	proxyInitCode, err := proxyArtifact.InitCode(impl.address, initData)
	if err != nil {
		return plan{}, err
	}
	proxy := d.target(impl.salt, proxyInitCode)
	p.proxy = &proxy

	return p, nil
}

func (d *Deployer) initData(role roles.Role, env configs.Env, cfg network.Config, strict bool) ([]byte, error) {
	artifact, err := d.artifacts.Get(string(role))
	if err != nil {
		return nil, err
	}
	owner := d.transactor.From()

	switch role {
	case roles.OrderAdapter:
		token, err := d.tokenAddress(env, cfg.Name, strict)
		if err != nil {
			return nil, err
		}
		return artifact.Calldata("initialize", token, cfg.EndpointAddress, owner)
	case roles.OrderOFT:
		return artifact.Calldata("initialize", cfg.EndpointAddress, owner)
	default:
		return artifact.Calldata("initialize", owner)
	}
}

func (d *Deployer) tokenAddress(env configs.Env, net string, strict bool) (common.Address, error) {
	token, err := d.store.LoadAddress(string(env), net, roles.OrderToken)
	if err == nil {
		return token, nil
	}
	if strict || !errors.Is(err, ledger.ErrAddressNotFound) {
		return common.Address{}, fmt.Errorf("failed to load %s on %s: %w", roles.OrderToken, net, err)
	}
	impl, err := d.implementationTarget(roles.OrderToken, env)
	if err != nil {
		return common.Address{}, err
	}
	return impl.address, nil
}

// PredictAddresses computes the addresses every deployable role would land at on net without touching the chain.
func (d *Deployer) PredictAddresses(env configs.Env, net string) ([]Prediction, error) {
	if _, err := d.registry.Lookup(net); err != nil {
		return nil, err
	}

	var predictions []Prediction
	for _, role := range roles.All {
		if !d.resolver.Deployable(role, net) {
			continue
		}
		p, err := d.plan(role, env, net, false)
		if err != nil {
			return nil, fmt.Errorf("failed to plan %s: %w", role, err)
		}
		predictions = append(predictions, Prediction{
			Role:           role,
			Address:        p.address(),
			Implementation: p.implementation.address,
			Salt:           p.implementation.salt,
		})
	}

	return predictions, nil
}

// PredictAddress returns the address role would land at on net.
func (d *Deployer) PredictAddress(role roles.Role, env configs.Env, net string) (common.Address, error) {
	p, err := d.plan(role, env, net, false)
	if err != nil {
		return common.Address{}, err
	}
	return p.address(), nil
}
