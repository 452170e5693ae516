package tasks

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagDef defines a persistent flag bound to a viper configuration key.
type (
	flagType interface {
		string | int | bool
	}

	flagDef[T flagType] struct {
		name         string
		viperKey     string
		defaultValue T
		description  string
	}
)

var (
	stringFlags = []flagDef[string]{
		{"env", "env", "dev", "Deployment environment: dev, qa, staging or mainnet"},
		{"network", "network", "", "Network the task runs against"},
		{"output", "output", "table", "Result format: table, yaml or json"},

		// Logging
		{"log-level", "log.level", "info", "Log level: debug, info, warn or error"},
		{"log-format", "log.format", "json", "Log format: json or text"},

		// Ledger
		{"address-file", "ledger.address-file", "./config/oftAddress.json", "Deployed address ledger"},
		{"peers-file", "ledger.peers-file", "./config/oftPeers.json", "Peer cache"},

		// Deployment
		{"artifacts-file", "deployment.artifacts-file", "./artifacts/contracts.json", "Compiled contract artifacts"},
		{"contracts-dir", "deployment.contracts-dir", "./contracts", "Foundry project compiled by the compile task"},
	}

	boolFlags = []flagDef[bool]{
		{"fail-on-error", "fail-on-error", true, "Exit non-zero when a task fails"},
		{"ledger-lock", "ledger.lock", true, "Lock ledger files while writing"},
	}
)

// DeclareFlags declares the global flags on cmd and binds them to viper.
func DeclareFlags(cmd *cobra.Command) error {
	flags := cmd.PersistentFlags()
	if err := declareFlags(flags, stringFlags); err != nil {
		return err
	}
	return declareFlags(flags, boolFlags)
}

// declareFlags declares multiple flags and binds them to viper configuration keys.
func declareFlags[T flagType](set *pflag.FlagSet, flags []flagDef[T]) error {
	for _, flag := range flags {
		if err := declareFlag(set, flag.name, flag.viperKey, flag.defaultValue, flag.description); err != nil {
			return err
		}
	}
	return nil
}

// declareFlag declares a single flag and binds it to a viper configuration key.
// The type parameter T determines the flag type (string, int, or bool).
func declareFlag[T flagType](set *pflag.FlagSet, flagName, viperKey string, defaultValue T, description string) error {
	var zero T
	switch any(zero).(type) {
	case string:
		set.String(flagName, any(defaultValue).(string), description)
	case int:
		set.Int(flagName, any(defaultValue).(int), description)
	case bool:
		set.Bool(flagName, any(defaultValue).(bool), description)
	}
	return viper.BindPFlag(viperKey, set.Lookup(flagName))
}
