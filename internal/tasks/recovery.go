package tasks

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/orderly-network/order-token-ops/internal/messaging"
	"github.com/spf13/cobra"
)

type recoveryFunc func(r *messaging.Recoverer, ctx context.Context, txHash common.Hash) ([]messaging.Delivery, error)

func recoveryTask(use, alias, short string, run recoveryFunc) *cobra.Command {
	var txHash string
	cmd := newTask(use, alias, short, func(ctx context.Context, rt *Runtime) (any, error) {
		raw, err := hexutil.Decode(txHash)
		if err != nil || len(raw) != common.HashLength {
			return nil, fmt.Errorf("--tx-hash is not a transaction hash: '%s'", txHash)
		}
		net, err := rt.Network()
		if err != nil {
			return nil, err
		}
		binder, session, err := rt.Binder(ctx)
		if err != nil {
			return nil, err
		}

		recoverer := messaging.NewRecoverer(binder.Endpoint(net.EndpointAddress), session, session, rt.Config.Recovery)
		deliveries, err := run(recoverer, ctx, common.BytesToHash(raw))
		if len(deliveries) == 0 {
			return nil, err
		}
		return deliveryView(deliveries), err
	})
	cmd.Flags().StringVar(&txHash, "tx-hash", "", "Transaction whose endpoint events are recovered")
	_ = cmd.MarkFlagRequired("tx-hash")
	return cmd
}

func executeComposedMessageCmd() *cobra.Command {
	return recoveryTask("execute-composed-message", "executeComposedMessage",
		"Execute queued compose messages emitted by a transaction", (*messaging.Recoverer).ExecuteComposed)
}

func retryComposedMessageCmd() *cobra.Command {
	return recoveryTask("retry-composed-message", "retryComposedMessage",
		"Retry compose messages that raised LzComposeAlert", (*messaging.Recoverer).RetryComposed)
}

func replayReceiveCmd() *cobra.Command {
	return recoveryTask("replay-receive", "replayReceive",
		"Replay inbound packets that raised LzReceiveAlert", (*messaging.Recoverer).ReplayReceive)
}
