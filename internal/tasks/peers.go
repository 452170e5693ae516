package tasks

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/orderly-network/order-token-ops/internal/peering"
	"github.com/spf13/cobra"
)

func setPeersCmd() *cobra.Command {
	return newTask("set-peers", "setPeers", "Converge peers, enforced options and trusted callers of the local OApp",
		func(ctx context.Context, rt *Runtime) (any, error) {
			net, err := rt.Network()
			if err != nil {
				return nil, err
			}
			binder, session, err := rt.Binder(ctx)
			if err != nil {
				return nil, err
			}

			reconciler := peering.NewReconciler(rt.Registry, rt.Ledger, rt.Config.Messaging, session,
				func(addr common.Address) peering.OApp { return binder.OApp(addr) })
			result, err := reconciler.Reconcile(ctx, rt.Env, net.Name)
			if err != nil {
				return nil, err
			}
			return result, nil
		})
}

func peerInitCmd() *cobra.Command {
	return newTask("peer-init", "peerInit", "Reset the peer cache of the env to unconnected",
		func(_ context.Context, rt *Runtime) (any, error) {
			written, err := peering.InitPeers(rt.Registry, rt.Ledger, rt.Env)
			if err != nil {
				return nil, err
			}
			return map[string]any{"env": rt.Env, "pairs": written}, nil
		})
}

func peerShowCmd() *cobra.Command {
	return newTask("peer-show", "peerShow", "Print the peer cache of the env",
		func(_ context.Context, rt *Runtime) (any, error) {
			peers, err := rt.Ledger.Peers(string(rt.Env))
			if err != nil {
				return nil, err
			}
			return newPeerView(peers), nil
		})
}

func setLibraryConfigCmd() *cobra.Command {
	var apply, force bool
	cmd := newTask("set-library-config", "setLibraryConfig", "Compare and converge send and receive library configuration",
		func(ctx context.Context, rt *Runtime) (any, error) {
			net, err := rt.Network()
			if err != nil {
				return nil, err
			}
			binder, session, err := rt.Binder(ctx)
			if err != nil {
				return nil, err
			}

			reconciler := peering.NewLibraryReconciler(rt.Registry, rt.Ledger, binder.Endpoint(net.EndpointAddress), session,
				rt.Config.Messaging.WaitForBatches)
			result, err := reconciler.Reconcile(ctx, peering.LibraryRequest{Env: rt.Env, From: net.Name, Apply: apply, Force: force})
			if err != nil {
				return nil, err
			}
			return libraryView(result), nil
		})
	cmd.Flags().BoolVar(&apply, "apply", false, "Submit the library switches and config updates")
	cmd.Flags().BoolVar(&force, "force", false, "Re-send the config even where it already matches")
	return cmd
}

func decodeLibraryConfigCmd() *cobra.Command {
	var raw string
	cmd := newTask("decode-library-config", "decodeLibraryConfig", "Decode a raw ULN config as returned by getConfig",
		func(_ context.Context, _ *Runtime) (any, error) {
			data, err := hexutil.Decode(raw)
			if err != nil {
				return nil, fmt.Errorf("failed to decode --raw: %w", err)
			}
			policy, err := peering.DecodeUlnConfig(data)
			if err != nil {
				return nil, err
			}
			return policy, nil
		})
	cmd.Flags().StringVar(&raw, "raw", "", "0x-prefixed config bytes")
	_ = cmd.MarkFlagRequired("raw")
	return cmd
}
