package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/orderly-network/order-token-ops/internal/chain"
	"github.com/orderly-network/order-token-ops/internal/contracts"
	"github.com/orderly-network/order-token-ops/internal/deploy"
	fsjson "github.com/orderly-network/order-token-ops/internal/infra/filesystem/json"
	"github.com/orderly-network/order-token-ops/internal/roles"
	"github.com/spf13/cobra"
)

type contractResult struct {
	Role         roles.Role     `json:"role" yaml:"role"`
	Network      string         `json:"network" yaml:"network"`
	Address      common.Address `json:"address,omitempty" yaml:"address,omitempty"`
	Transactions []common.Hash  `json:"transactions,omitempty" yaml:"transactions,omitempty"`
}

var errOffline = errors.New("address prediction does not touch the chain")

// signerOnly stands in for a session when only the signer address is needed.
type signerOnly common.Address

var _ chain.Transactor = signerOnly{}

func (s signerOnly) From() common.Address {
	return common.Address(s)
}

func (s signerOnly) CallOpts(ctx context.Context) *bind.CallOpts {
	return &bind.CallOpts{Context: ctx, From: s.From()}
}

func (s signerOnly) TransactOpts(context.Context) (*bind.TransactOpts, error) {
	return nil, errOffline
}

func (s signerOnly) Wait(context.Context, *types.Transaction) (*types.Receipt, error) {
	return nil, errOffline
}

// newDeployer builds a deployer on a live session, or on the signer alone when offline.
func newDeployer(ctx context.Context, rt *Runtime, offline bool) (*deploy.Deployer, error) {
	var (
		binder     *contracts.Binder
		transactor chain.Transactor
	)
	if offline {
		key, err := chain.LoadKey(rt.Config.Signer)
		if err != nil {
			return nil, err
		}
		from, err := chain.AddressOf(key)
		if err != nil {
			return nil, err
		}
		binder, transactor = contracts.NewBinder(nil), signerOnly(from)
	} else {
		b, session, err := rt.Binder(ctx)
		if err != nil {
			return nil, err
		}
		binder, transactor = b, session
	}

	artifacts, err := contracts.LoadArtifacts(fsjson.NewReader(), rt.Config.Deployment.ArtifactsFile)
	if err != nil {
		return nil, err
	}

	factory := contracts.ArachnidFactoryAddress
	if rt.Config.Deployment.Factory != "" {
		factory = common.HexToAddress(rt.Config.Deployment.Factory)
	}

	return deploy.NewDeployer(
		rt.Registry,
		rt.Ledger,
		artifacts,
		binder.Create2Factory(factory),
		deploy.BindingsFrom(binder),
		transactor,
		deploy.Options{
			Salts:         rt.Config.Salts,
			HubNetworks:   rt.Config.Messaging.HubNetworks,
			Owners:        rt.Config.Messaging.Owners,
			GasLimit:      rt.Config.Deployment.GasLimit,
			ProxyGasLimit: rt.Config.Deployment.ProxyGasLimit,
		},
	), nil
}

func contractFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, "contract", "", "Contract role, e.g. OrderOFT or OrderSafeRelayer")
	_ = cmd.MarkFlagRequired("contract")
}

func deployCmd() *cobra.Command {
	var (
		contract string
		predict  bool
	)
	cmd := newTask("deploy", "", "Deploy a contract role deterministically and run its wiring",
		func(ctx context.Context, rt *Runtime) (any, error) {
			role, err := roles.Parse(contract)
			if err != nil {
				return nil, err
			}
			net, err := rt.Network()
			if err != nil {
				return nil, err
			}
			deployer, err := newDeployer(ctx, rt, predict)
			if err != nil {
				return nil, err
			}

			if predict {
				addr, err := deployer.PredictAddress(role, rt.Env, net.Name)
				if err != nil {
					return nil, err
				}
				return contractResult{Role: role, Network: net.Name, Address: addr}, nil
			}

			deployment, err := deployer.Deploy(ctx, role, rt.Env, net.Name)
			if err != nil {
				return nil, err
			}
			return deployment, nil
		})
	contractFlag(cmd, &contract)
	cmd.Flags().BoolVar(&predict, "predict-address", false, "Only print the address the role would deploy to")
	return cmd
}

func predictAddressesCmd() *cobra.Command {
	return newTask("predict-addresses", "predictAddresses", "Print the deterministic address of every role on the network",
		func(ctx context.Context, rt *Runtime) (any, error) {
			net, err := rt.Network()
			if err != nil {
				return nil, err
			}
			deployer, err := newDeployer(ctx, rt, true)
			if err != nil {
				return nil, err
			}
			predictions, err := deployer.PredictAddresses(rt.Env, net.Name)
			if err != nil {
				return nil, err
			}
			return predictionView(predictions), nil
		})
}

func initializeContractCmd() *cobra.Command {
	var contract string
	cmd := newTask("initialize-contract", "initializeContract", "Re-run the post-deploy wiring of a deployed role",
		func(ctx context.Context, rt *Runtime) (any, error) {
			role, err := roles.Parse(contract)
			if err != nil {
				return nil, err
			}
			net, err := rt.Network()
			if err != nil {
				return nil, err
			}
			deployer, err := newDeployer(ctx, rt, false)
			if err != nil {
				return nil, err
			}
			txs, err := deployer.Initialize(ctx, role, rt.Env, net.Name)
			if err != nil {
				return nil, err
			}
			return contractResult{Role: role, Network: net.Name, Transactions: txs}, nil
		})
	contractFlag(cmd, &contract)
	return cmd
}

func upgradeContractCmd() *cobra.Command {
	var contract string
	cmd := newTask("upgrade-contract", "upgradeContract", "Deploy a new implementation and point the proxy at it",
		func(ctx context.Context, rt *Runtime) (any, error) {
			role, err := roles.Parse(contract)
			if err != nil {
				return nil, err
			}
			net, err := rt.Network()
			if err != nil {
				return nil, err
			}
			deployer, err := newDeployer(ctx, rt, false)
			if err != nil {
				return nil, err
			}
			tx, err := deployer.Upgrade(ctx, role, rt.Env, net.Name)
			if err != nil {
				return nil, err
			}
			return contractResult{Role: role, Network: net.Name, Transactions: []common.Hash{tx}}, nil
		})
	contractFlag(cmd, &contract)
	return cmd
}

func setOwnerCmd() *cobra.Command {
	var apply bool
	cmd := newTask("set-owner", "setOwner", "Transfer ownership of every deployed role to the configured owner",
		func(ctx context.Context, rt *Runtime) (any, error) {
			net, err := rt.Network()
			if err != nil {
				return nil, err
			}
			deployer, err := newDeployer(ctx, rt, false)
			if err != nil {
				return nil, err
			}
			changes, err := deployer.SetOwner(ctx, rt.Env, net.Name, apply)
			if err != nil {
				return nil, err
			}
			return ownerView(changes), nil
		})
	cmd.Flags().BoolVar(&apply, "apply", false, "Submit the transfers instead of printing the plan")
	return cmd
}

func compileCmd() *cobra.Command {
	return newTask("compile", "", "Compile the contracts with forge into the artifacts file",
		func(ctx context.Context, rt *Runtime) (any, error) {
			names := make([]string, 0, len(roles.All)+1)
			for _, role := range roles.All {
				names = append(names, role.String())
			}
			names = append(names, contracts.ProxyContractName)

			compiler := contracts.NewCompiler(rt.Config.Deployment.ContractsDir, rt.Config.Deployment.ArtifactsFile, fsjson.NewWriter())
			if err := compiler.Compile(ctx, names); err != nil {
				return nil, fmt.Errorf("failed to compile contracts: %w", err)
			}
			return map[string]any{"artifacts-file": rt.Config.Deployment.ArtifactsFile, "contracts": names}, nil
		})
}
