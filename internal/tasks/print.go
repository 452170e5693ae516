package tasks

import (
	"context"

	"github.com/spf13/cobra"
)

func printCmd() *cobra.Command {
	return newTask("print", "", "Print the deployed addresses of the env",
		func(_ context.Context, rt *Runtime) (any, error) {
			addresses, err := rt.Ledger.Addresses(string(rt.Env))
			if err != nil {
				return nil, err
			}
			return newAddressView(addresses), nil
		})
}
