package tasks

import (
	"context"

	"github.com/orderly-network/order-token-ops/configs"
	"github.com/orderly-network/order-token-ops/internal/logger"
	"github.com/spf13/cobra"
)

// taskFunc returns the value rendered through the output formatter, or nil when there is nothing to show.
type taskFunc func(ctx context.Context, rt *Runtime) (any, error)

// runTask builds the Runtime from configs.Values, runs fn and renders its result. Errors are always logged and
// only returned when fail-on-error is set.
func runTask(name string, fn taskFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		log := logger.Named(name)
		cfg := configs.Values

		err := func() error {
			rt, err := NewRuntime(cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer rt.Close()

			log.With("env", rt.Env).With("network", cfg.Network).Debug("task started")
			result, err := fn(cmd.Context(), rt)
			if result != nil {
				if printErr := rt.Output.Print(result); printErr != nil {
					log.With("err", printErr.Error()).Error("failed to print result")
				}
			}
			return err
		}()
		if err == nil {
			log.Debug("task finished")
			return nil
		}

		log.With("err", err.Error()).Error("task failed")
		if cfg.FailOnError {
			return err
		}
		return nil
	}
}

// newTask wires the kebab-case name, its camelCase alias and the runner.
func newTask(use, alias, short string, fn taskFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:          use,
		Short:        short,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         runTask(use, fn),
	}
	if alias != "" {
		cmd.Aliases = []string{alias}
	}
	return cmd
}

// Commands returns every task command.
func Commands() []*cobra.Command {
	return []*cobra.Command{
		deployCmd(),
		predictAddressesCmd(),
		initializeContractCmd(),
		upgradeContractCmd(),
		setOwnerCmd(),
		compileCmd(),
		setPeersCmd(),
		peerInitCmd(),
		peerShowCmd(),
		setLibraryConfigCmd(),
		decodeLibraryConfigCmd(),
		transferTokensCmd(),
		bridgeTokensCmd(),
		quoteTransferFeeCmd(),
		stakeTokensCmd(),
		executeComposedMessageCmd(),
		retryComposedMessageCmd(),
		replayReceiveCmd(),
		printCmd(),
	}
}
