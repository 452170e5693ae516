package tasks

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/orderly-network/order-token-ops/internal/transfer"
	"github.com/spf13/cobra"
)

type tokenArgs struct {
	dstNetwork string
	receiver   string
	amount     string
}

func (a *tokenArgs) receiverAddress() (common.Address, error) {
	if !common.IsHexAddress(a.receiver) {
		return common.Address{}, fmt.Errorf("--receiver is not an address: '%s'", a.receiver)
	}
	return common.HexToAddress(a.receiver), nil
}

func (a *tokenArgs) request(rt *Runtime, from string) (transfer.Request, error) {
	receiver, err := a.receiverAddress()
	if err != nil {
		return transfer.Request{}, err
	}
	return transfer.Request{Env: rt.Env, From: from, To: a.dstNetwork, Receiver: receiver, Amount: a.amount}, nil
}

func (a *tokenArgs) bind(cmd *cobra.Command, dst, receiver bool) {
	if dst {
		cmd.Flags().StringVar(&a.dstNetwork, "dst-network", "", "Destination network")
		_ = cmd.MarkFlagRequired("dst-network")
	}
	if receiver {
		cmd.Flags().StringVar(&a.receiver, "receiver", "", "Receiving address")
		_ = cmd.MarkFlagRequired("receiver")
	}
	cmd.Flags().StringVar(&a.amount, "amount", "", "Amount in whole tokens, e.g. 1.5")
	_ = cmd.MarkFlagRequired("amount")
}

func newTransferService(ctx context.Context, rt *Runtime) (*transfer.Service, error) {
	binder, session, err := rt.Binder(ctx)
	if err != nil {
		return nil, err
	}
	return transfer.NewService(rt.Registry, rt.Ledger, transfer.BindingsFrom(binder), session, transfer.Options{
		LzReceiveGas: rt.Config.Transfer.LzReceiveGas,
		ComposeGas:   rt.Config.Transfer.ComposeGas,
		SendGasLimit: rt.Config.Transfer.SendGasLimit,
		HubNetworks:  rt.Config.Messaging.HubNetworks,
	}), nil
}

func transferTokensCmd() *cobra.Command {
	var args tokenArgs
	cmd := newTask("transfer-tokens", "transferTokens", "Transfer tokens to an address on the same network",
		func(ctx context.Context, rt *Runtime) (any, error) {
			net, err := rt.Network()
			if err != nil {
				return nil, err
			}
			receiver, err := args.receiverAddress()
			if err != nil {
				return nil, err
			}
			service, err := newTransferService(ctx, rt)
			if err != nil {
				return nil, err
			}
			tx, err := service.Transfer(ctx, rt.Env, net.Name, receiver, args.amount)
			if err != nil {
				return nil, err
			}
			return map[string]any{"network": net.Name, "receiver": receiver, "amount": args.amount, "tx-hash": tx}, nil
		})
	args.bind(cmd, false, true)
	return cmd
}

func bridgeTokensCmd() *cobra.Command {
	var args tokenArgs
	cmd := newTask("bridge-tokens", "bridgeTokens", "Send tokens to another network through the OFT mesh",
		func(ctx context.Context, rt *Runtime) (any, error) {
			net, err := rt.Network()
			if err != nil {
				return nil, err
			}
			req, err := args.request(rt, net.Name)
			if err != nil {
				return nil, err
			}
			service, err := newTransferService(ctx, rt)
			if err != nil {
				return nil, err
			}
			receipt, err := service.Send(ctx, req)
			if err != nil {
				return nil, err
			}
			return receipt, nil
		})
	args.bind(cmd, true, true)
	return cmd
}

func quoteTransferFeeCmd() *cobra.Command {
	var args tokenArgs
	cmd := newTask("quote-transfer-fee", "quoteTransferFee", "Quote the messaging fee of a cross-network send",
		func(ctx context.Context, rt *Runtime) (any, error) {
			net, err := rt.Network()
			if err != nil {
				return nil, err
			}
			req, err := args.request(rt, net.Name)
			if err != nil {
				return nil, err
			}
			service, err := newTransferService(ctx, rt)
			if err != nil {
				return nil, err
			}
			quote, err := service.Quote(ctx, req)
			if err != nil {
				return nil, err
			}
			return quote, nil
		})
	args.bind(cmd, true, true)
	return cmd
}

func stakeTokensCmd() *cobra.Command {
	var args tokenArgs
	cmd := newTask("stake-tokens", "stakeTokens", "Bridge tokens to the hub box relayer and stake them for the signer",
		func(ctx context.Context, rt *Runtime) (any, error) {
			net, err := rt.Network()
			if err != nil {
				return nil, err
			}
			service, err := newTransferService(ctx, rt)
			if err != nil {
				return nil, err
			}
			receipt, err := service.Stake(ctx, rt.Env, net.Name, args.amount)
			if err != nil {
				return nil, err
			}
			return receipt, nil
		})
	args.bind(cmd, false, false)
	return cmd
}
