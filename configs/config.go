package configs

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var Values Config

type (
	Env string

	Config struct {
		Env         Env               `mapstructure:"env"`
		Network     string            `mapstructure:"network"`
		FailOnError bool              `mapstructure:"fail-on-error"`
		Output      string            `mapstructure:"output"`
		Log         Log               `mapstructure:"log"`
		Ledger      Ledger            `mapstructure:"ledger"`
		Signer      Signer            `mapstructure:"signer"`
		RPC         map[string]string `mapstructure:"rpc"`
		Salts       Salts             `mapstructure:"salts"`
		Deployment  Deployment        `mapstructure:"deployment"`
		Messaging   Messaging         `mapstructure:"messaging"`
		Transfer    Transfer          `mapstructure:"transfer"`
		Recovery    Recovery          `mapstructure:"recovery"`
	}

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	}

	Ledger struct {
		AddressFile string `mapstructure:"address-file"`
		PeersFile   string `mapstructure:"peers-file"`
		Lock        bool   `mapstructure:"lock"`
	}

	Signer struct {
		PrivateKey     string `mapstructure:"private-key"`
		Mnemonic       string `mapstructure:"mnemonic"`
		DerivationPath string `mapstructure:"derivation-path"`
	}

	// Salts holds one deployment-salt seed per contract family.
	Salts struct {
		Order   string `mapstructure:"order"`
		Safe    string `mapstructure:"safe"`
		Box     string `mapstructure:"box"`
		Relayer string `mapstructure:"relayer"`
	}

	Deployment struct {
		ArtifactsFile string `mapstructure:"artifacts-file"`
		ContractsDir  string `mapstructure:"contracts-dir"`
		Factory       string `mapstructure:"factory"`
		GasLimit      uint64 `mapstructure:"gas-limit"`
		ProxyGasLimit uint64 `mapstructure:"proxy-gas-limit"`
	}

	Messaging struct {
		HubNetworks    []string                     `mapstructure:"hub-networks"`
		TrustedCallers map[string]map[string]string `mapstructure:"trusted-callers"`
		Owners         map[string]string            `mapstructure:"owners"`
		Options        OptionsTable                 `mapstructure:"options"`
		WaitForBatches bool                         `mapstructure:"wait-for-batches"`
	}

	// OptionsTable is the desired enforced-options source. Networks entries override Default per destination.
	OptionsTable struct {
		Default  OptionSet            `mapstructure:"default"`
		Networks map[string]OptionSet `mapstructure:"networks"`
	}

	OptionSet struct {
		Send        ExecutorGas `mapstructure:"send"`
		SendAndCall ComposeGas  `mapstructure:"send-and-call"`
	}

	ExecutorGas struct {
		Gas   uint64 `mapstructure:"gas"`
		Value uint64 `mapstructure:"value"`
	}

	ComposeGas struct {
		Gas          uint64 `mapstructure:"gas"`
		Value        uint64 `mapstructure:"value"`
		ComposeGas   uint64 `mapstructure:"compose-gas"`
		ComposeValue uint64 `mapstructure:"compose-value"`
	}

	Transfer struct {
		LzReceiveGas uint64 `mapstructure:"lz-receive-gas"`
		ComposeGas   uint64 `mapstructure:"compose-gas"`
		SendGasLimit uint64 `mapstructure:"send-gas-limit"`
	}

	Recovery struct {
		GasLimit uint64 `mapstructure:"gas-limit"`
	}
)

const (
	EnvDev     Env = "dev"
	EnvQA      Env = "qa"
	EnvStaging Env = "staging"
	EnvMainnet Env = "mainnet"
)

var ErrUnsupportedEnv = errors.New("unsupported env")

// Envs lists every deployment environment.
var Envs = []Env{EnvDev, EnvQA, EnvStaging, EnvMainnet}

// ParseEnv validates an environment name.
func ParseEnv(s string) (Env, error) {
	env := Env(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(Envs, env) {
		return "", fmt.Errorf("%w: '%s'", ErrUnsupportedEnv, s)
	}
	return env, nil
}

func (e Env) IsMainnet() bool {
	return e == EnvMainnet
}

// OptionsFor returns the options set for a destination network, falling back to the default entry.
func (t OptionsTable) OptionsFor(network string) OptionSet {
	if set, ok := t.Networks[network]; ok {
		return set
	}
	return t.Default
}

// TrustedCaller returns the privileged caller configured for env and network.
func (m Messaging) TrustedCaller(env Env, network string) (common.Address, bool) {
	byNetwork, ok := m.TrustedCallers[string(env)]
	if !ok {
		return common.Address{}, false
	}
	raw, ok := byNetwork[network]
	if !ok || !common.IsHexAddress(raw) {
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

func (m Messaging) IsHub(network string) bool {
	return slices.Contains(m.HubNetworks, network)
}

func (c *Config) Validate() error {
	var errs []error

	if c.Env == "" {
		errs = append(errs, errors.New("env is required"))
	} else if _, err := ParseEnv(string(c.Env)); err != nil {
		errs = append(errs, err)
	}
	if c.Ledger.AddressFile == "" {
		errs = append(errs, errors.New("ledger.address-file is required"))
	}
	if c.Ledger.PeersFile == "" {
		errs = append(errs, errors.New("ledger.peers-file is required"))
	}
	if c.Deployment.Factory != "" && !common.IsHexAddress(c.Deployment.Factory) {
		errs = append(errs, fmt.Errorf("deployment.factory is not an address: '%s'", c.Deployment.Factory))
	}
	if len(c.Messaging.HubNetworks) == 0 {
		errs = append(errs, errors.New("messaging.hub-networks must name at least one network"))
	}
	for env, owner := range c.Messaging.Owners {
		if !common.IsHexAddress(owner) {
			errs = append(errs, fmt.Errorf("messaging.owners.%s is not an address: '%s'", env, owner))
		}
	}
	for env, byNetwork := range c.Messaging.TrustedCallers {
		for network, caller := range byNetwork {
			if !common.IsHexAddress(caller) {
				errs = append(errs, fmt.Errorf("messaging.trusted-callers.%s.%s is not an address: '%s'", env, network, caller))
			}
		}
	}
	switch c.Output {
	case "", "table", "yaml", "json":
	default:
		errs = append(errs, fmt.Errorf("output must be one of table, yaml, json: '%s'", c.Output))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %w", errors.Join(errs...))
	}

	return nil
}

// ValidateSigner checks that a signing source is configured. A mnemonic takes precedence over a private key.
func (s Signer) ValidateSigner() error {
	if s.PrivateKey == "" && s.Mnemonic == "" {
		return errors.New("signer.private-key or signer.mnemonic is required")
	}
	return nil
}
