// Package tasks exposes the operations as cobra commands sharing one request-scoped Runtime.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/orderly-network/order-token-ops/configs"
	"github.com/orderly-network/order-token-ops/internal/chain"
	"github.com/orderly-network/order-token-ops/internal/contracts"
	"github.com/orderly-network/order-token-ops/internal/ledger"
	"github.com/orderly-network/order-token-ops/internal/logger"
	"github.com/orderly-network/order-token-ops/internal/network"
	"github.com/orderly-network/order-token-ops/internal/output"
)

var ErrNetworkRequired = errors.New("--network is required")

// Runtime carries everything a task needs for one invocation. The chain session is dialed on first use.
type Runtime struct {
	Config   configs.Config
	Env      configs.Env
	Registry *network.Registry
	Ledger   *ledger.FileStore
	Output   *output.Formatter

	lookup  chain.EnvLookup
	session *chain.Session
	logger  *slog.Logger
}

func NewRuntime(cfg configs.Config, out io.Writer) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	env, err := configs.ParseEnv(string(cfg.Env))
	if err != nil {
		return nil, err
	}
	registry, err := network.Default()
	if err != nil {
		return nil, err
	}

	return &Runtime{
		Config:   cfg,
		Env:      env,
		Registry: registry,
		Ledger:   ledger.NewFileStore(cfg.Ledger.AddressFile, cfg.Ledger.PeersFile, cfg.Ledger.Lock),
		Output:   output.NewFormatter(cfg.Output, out),
		lookup:   os.LookupEnv,
		logger:   logger.Named("runtime").With("env", env),
	}, nil
}

// Network resolves --network and checks it belongs to the env's network class.
func (r *Runtime) Network() (network.Config, error) {
	if r.Config.Network == "" {
		return network.Config{}, ErrNetworkRequired
	}
	cfg, err := r.Registry.Lookup(r.Config.Network)
	if err != nil {
		return network.Config{}, err
	}
	class, err := network.ClassForEnv(string(r.Env))
	if err != nil {
		return network.Config{}, err
	}
	if cfg.Class != class {
		return network.Config{}, fmt.Errorf("%w: %s is a %s network but env %s uses %s networks",
			network.ErrUnsupportedNetwork, cfg.Name, cfg.Class, r.Env, class)
	}
	return cfg, nil
}

// Session dials the selected network with the configured signer.
func (r *Runtime) Session(ctx context.Context) (*chain.Session, error) {
	if r.session != nil {
		return r.session, nil
	}
	net, err := r.Network()
	if err != nil {
		return nil, err
	}
	rpcURL, err := chain.ResolveRPC(net.Name, r.Config.RPC, r.lookup, net.RPC)
	if err != nil {
		return nil, err
	}
	key, err := chain.LoadKey(r.Config.Signer)
	if err != nil {
		return nil, err
	}

	session, err := chain.Dial(ctx, net.Name, rpcURL, net.ChainID, key)
	if err != nil {
		return nil, err
	}
	r.logger.
		With("network", net.Name).
		With("signer", session.From().Hex()).
		Info("session opened")
	r.session = session

	return session, nil
}

func (r *Runtime) Binder(ctx context.Context) (*contracts.Binder, *chain.Session, error) {
	session, err := r.Session(ctx)
	if err != nil {
		return nil, nil, err
	}
	return contracts.NewBinder(session.Backend()), session, nil
}

func (r *Runtime) Close() {
	if r.session != nil {
		r.session.Close()
		r.session = nil
	}
}
