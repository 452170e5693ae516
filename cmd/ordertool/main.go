package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/orderly-network/order-token-ops/configs"
	"github.com/orderly-network/order-token-ops/internal/logger"
	"github.com/orderly-network/order-token-ops/internal/tasks"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	appName   = "ordertool"
	envPrefix = "ORDERTOOL"
)

var (
	configFile string

	// envBindings maps config keys onto the unprefixed variables operators already export.
	envBindings = map[string]string{
		"signer.mnemonic":    "MNEMONIC",
		"signer.private-key": "PRIVATE_KEY",
		"salts.order":        "ORDER_DEPLOYMENT_SALT",
		"salts.safe":         "SAFE_DEPLOYMENT_SALT",
		"salts.box":          "BOX_DEPLOYMENT_SALT",
		"salts.relayer":      "RELAYER_DEPLOYMENT_SALT",
	}
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Deploy, wire and operate the ORDER token across its LayerZero networks",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if exported, err := configs.LoadDotEnv(".env"); err != nil {
			slog.With("err", err.Error()).Error("failed to load .env")
			return err
		} else if exported > 0 {
			slog.With("variables", exported).Debug(".env loaded")
		}

		viper.SetConfigType("yaml")
		if err := viper.ReadConfig(strings.NewReader(configs.DefaultYAML())); err != nil {
			const errMsg = "error reading embedded defaults"
			slog.With("err", err.Error()).Error(errMsg)
			return errors.Join(err, errors.New(errMsg))
		}

		if configFile != "" {
			viper.SetConfigFile(configFile)
		} else {
			viper.SetConfigName("config")
			if execPath, err := os.Executable(); err == nil {
				viper.AddConfigPath(filepath.Dir(execPath))
			}
			viper.AddConfigPath(".")
			viper.AddConfigPath("./configs")
		}

		// Try to merge a config file, but don't fail if it doesn't exist.
		// Embedded defaults, env and flags can provide all necessary configuration.
		if err := viper.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				slog.Debug("no config file found, will rely on defaults, env and flags")
			} else {
				const errMsg = "error reading config file"
				slog.With("err", err.Error()).Error(errMsg)
				return errors.Join(err, errors.New(errMsg))
			}
		} else {
			slog.With("config_file", viper.ConfigFileUsed()).Debug("config file loaded")
		}

		viper.SetEnvPrefix(envPrefix)
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
		viper.AutomaticEnv()
		for key, name := range envBindings {
			prefixed := envPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
			if err := viper.BindEnv(key, prefixed, name); err != nil {
				return err
			}
		}

		if err := viper.Unmarshal(&configs.Values); err != nil {
			const errMsg = "unable to decode application config"
			slog.With("err", err.Error()).Error(errMsg)
			return errors.Join(err, errors.New(errMsg))
		}

		level, err := logger.ParseLevel(configs.Values.Log.Level)
		if err != nil {
			return err
		}
		logger.Initialize(level, configs.Values.Log.Format)

		slog.
			With("env", configs.Values.Env).
			With("network", configs.Values.Network).
			With("output", configs.Values.Output).
			Debug("configuration loaded")

		return nil
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: config.yaml in the exec dir, . or ./configs)")
	if err := tasks.DeclareFlags(rootCmd); err != nil {
		slog.With("err", err.Error()).Error("failed to declare flags")
		os.Exit(1)
	}
	rootCmd.AddCommand(tasks.Commands()...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.With("err", err.Error()).Error("failed to execute root command")
		stop()
		os.Exit(1)
	}
}
