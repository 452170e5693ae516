package network

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

type Class string

const (
	ClassTest Class = "test"
	ClassMain Class = "main"
)

var (
	ErrUnsupportedNetwork      = errors.New("unsupported network")
	ErrUnsupportedEnv          = errors.New("unsupported env")
	ErrIncompleteLibraryConfig = errors.New("incomplete library config")

	//go:embed networks.yaml
	defaultNetworksYAML []byte

	defaultRegistryOnce sync.Once
	defaultRegistry     *Registry
	defaultRegistryErr  error
)

type (
	Config struct {
		Name            string
		Class           Class
		EndpointAddress common.Address
		EndpointID      uint32
		ChainID         uint64
		Canonical       bool
		RPC             string
		SendLibrary     *LibraryConfig
		ReceiveLibrary  *LibraryConfig
	}

	LibraryConfig struct {
		Address common.Address
		Policy  VerificationPolicy
	}

	// VerificationPolicy mirrors the ULN config tuple stored by the messaging libraries.
	VerificationPolicy struct {
		Confirmations        uint64
		RequiredDVNCount     uint8
		OptionalDVNCount     uint8
		OptionalDVNThreshold uint8
		RequiredDVNs         []common.Address
		OptionalDVNs         []common.Address
	}

	Registry struct {
		byName  map[string]Config
		classes map[Class][]string
	}

	yamlLibrary struct {
		Address              string   `yaml:"address"`
		Confirmations        uint64   `yaml:"confirmations"`
		RequiredDVNs         []string `yaml:"required-dvns"`
		OptionalDVNs         []string `yaml:"optional-dvns"`
		OptionalDVNThreshold uint8    `yaml:"optional-dvn-threshold"`
	}

	yamlNetwork struct {
		Name           string       `yaml:"name"`
		Canonical      bool         `yaml:"canonical"`
		EndpointID     uint32       `yaml:"endpoint-id"`
		ChainID        uint64       `yaml:"chain-id"`
		Endpoint       string       `yaml:"endpoint"`
		RPC            string       `yaml:"rpc"`
		SendLibrary    *yamlLibrary `yaml:"send-library"`
		ReceiveLibrary *yamlLibrary `yaml:"receive-library"`
	}
)

// Default returns the registry built from the embedded networks.yaml.
func Default() (*Registry, error) {
	defaultRegistryOnce.Do(func() {
		defaultRegistry, defaultRegistryErr = Parse(defaultNetworksYAML)
	})
	return defaultRegistry, defaultRegistryErr
}

// MustDefault returns the embedded registry or panics if it is invalid.
func MustDefault() *Registry {
	r, err := Default()
	if err != nil {
		panic(err)
	}
	return r
}

// Parse builds and validates a registry from its YAML form: a mapping of class name to an ordered network list.
func Parse(data []byte) (*Registry, error) {
	var raw map[Class][]yamlNetwork
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal network registry: %w", err)
	}

	r := &Registry{
		byName:  make(map[string]Config),
		classes: make(map[Class][]string),
	}
	for _, class := range []Class{ClassTest, ClassMain} {
		for _, n := range raw[class] {
			if _, dup := r.byName[n.Name]; dup {
				return nil, fmt.Errorf("network '%s' is declared twice", n.Name)
			}
			cfg, err := n.toConfig(class)
			if err != nil {
				return nil, fmt.Errorf("failed to load network '%s': %w", n.Name, err)
			}
			r.byName[n.Name] = cfg
			r.classes[class] = append(r.classes[class], n.Name)
		}
	}
	for class := range raw {
		if class != ClassTest && class != ClassMain {
			return nil, fmt.Errorf("unknown network class '%s'", class)
		}
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}

	return r, nil
}

func (n yamlNetwork) toConfig(class Class) (Config, error) {
	if !common.IsHexAddress(n.Endpoint) {
		return Config{}, fmt.Errorf("endpoint is not an address: '%s'", n.Endpoint)
	}
	send, err := n.SendLibrary.toConfig()
	if err != nil {
		return Config{}, fmt.Errorf("send-library: %w", err)
	}
	receive, err := n.ReceiveLibrary.toConfig()
	if err != nil {
		return Config{}, fmt.Errorf("receive-library: %w", err)
	}

	return Config{
		Name:            n.Name,
		Class:           class,
		EndpointAddress: common.HexToAddress(n.Endpoint),
		EndpointID:      n.EndpointID,
		ChainID:         n.ChainID,
		Canonical:       n.Canonical,
		RPC:             n.RPC,
		SendLibrary:     send,
		ReceiveLibrary:  receive,
	}, nil
}

func (l *yamlLibrary) toConfig() (*LibraryConfig, error) {
	if l == nil {
		return nil, nil
	}
	if !common.IsHexAddress(l.Address) {
		return nil, fmt.Errorf("address is not an address: '%s'", l.Address)
	}
	required, err := toAddresses(l.RequiredDVNs)
	if err != nil {
		return nil, fmt.Errorf("required-dvns: %w", err)
	}
	optional, err := toAddresses(l.OptionalDVNs)
	if err != nil {
		return nil, fmt.Errorf("optional-dvns: %w", err)
	}

	return &LibraryConfig{
		Address: common.HexToAddress(l.Address),
		Policy: VerificationPolicy{
			Confirmations:        l.Confirmations,
			RequiredDVNCount:     uint8(len(required)),
			OptionalDVNCount:     uint8(len(optional)),
			OptionalDVNThreshold: l.OptionalDVNThreshold,
			RequiredDVNs:         required,
			OptionalDVNs:         optional,
		},
	}, nil
}

func toAddresses(raw []string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(raw))
	for _, s := range raw {
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("not an address: '%s'", s)
		}
		out = append(out, common.HexToAddress(s))
	}
	return out, nil
}

// Validate checks the table invariants: unique endpoint ids per class, exactly one canonical network per class
// at the head of its list, and well-formed verification policies.
func (r *Registry) Validate() error {
	var errs []error

	for class, names := range r.classes {
		eids := make(map[uint32]string)
		canonical := 0
		for i, name := range names {
			cfg := r.byName[name]
			if other, dup := eids[cfg.EndpointID]; dup {
				errs = append(errs, fmt.Errorf("%s: endpoint id %d shared by %s and %s", class, cfg.EndpointID, other, name))
			}
			eids[cfg.EndpointID] = name
			if cfg.Canonical {
				canonical++
				if i != 0 {
					errs = append(errs, fmt.Errorf("%s: canonical network %s must be first in its class", class, name))
				}
			}
			for side, lib := range map[string]*LibraryConfig{"send": cfg.SendLibrary, "receive": cfg.ReceiveLibrary} {
				if lib == nil {
					continue
				}
				if err := lib.Policy.Validate(); err != nil {
					errs = append(errs, fmt.Errorf("%s %s library: %w", name, side, err))
				}
			}
		}
		if canonical != 1 {
			errs = append(errs, fmt.Errorf("%s: expected exactly one canonical network, found %d", class, canonical))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("network registry validation failed: %w", errors.Join(errs...))
	}

	return nil
}

// Validate checks the counts against the lists and that each list is strictly ascending.
func (p VerificationPolicy) Validate() error {
	var errs []error
	if int(p.RequiredDVNCount) != len(p.RequiredDVNs) {
		errs = append(errs, fmt.Errorf("required dvn count %d does not match %d dvns", p.RequiredDVNCount, len(p.RequiredDVNs)))
	}
	if int(p.OptionalDVNCount) != len(p.OptionalDVNs) {
		errs = append(errs, fmt.Errorf("optional dvn count %d does not match %d dvns", p.OptionalDVNCount, len(p.OptionalDVNs)))
	}
	if p.OptionalDVNThreshold > p.OptionalDVNCount {
		errs = append(errs, fmt.Errorf("optional dvn threshold %d exceeds count %d", p.OptionalDVNThreshold, p.OptionalDVNCount))
	}
	if !strictlyAscending(p.RequiredDVNs) {
		errs = append(errs, errors.New("required dvns must be sorted and unique"))
	}
	if !strictlyAscending(p.OptionalDVNs) {
		errs = append(errs, errors.New("optional dvns must be sorted and unique"))
	}
	return errors.Join(errs...)
}

func strictlyAscending(addrs []common.Address) bool {
	for i := 1; i < len(addrs); i++ {
		if bytes.Compare(addrs[i-1].Bytes(), addrs[i].Bytes()) >= 0 {
			return false
		}
	}
	return true
}

// Equal compares two policies field by field, including DVN order.
func (p VerificationPolicy) Equal(o VerificationPolicy) bool {
	return p.Confirmations == o.Confirmations &&
		p.RequiredDVNCount == o.RequiredDVNCount &&
		p.OptionalDVNCount == o.OptionalDVNCount &&
		p.OptionalDVNThreshold == o.OptionalDVNThreshold &&
		slices.Equal(p.RequiredDVNs, o.RequiredDVNs) &&
		slices.Equal(p.OptionalDVNs, o.OptionalDVNs)
}

func (r *Registry) Lookup(name string) (Config, error) {
	cfg, ok := r.byName[name]
	if !ok {
		return Config{}, fmt.Errorf("%w: '%s'", ErrUnsupportedNetwork, name)
	}
	return cfg, nil
}

func (r *Registry) ClassOf(name string) (Class, error) {
	cfg, err := r.Lookup(name)
	if err != nil {
		return "", err
	}
	return cfg.Class, nil
}

// IsCanonicalTokenNetwork reports whether the canonical token, rather than its bridged form, lives on name.
func (r *Registry) IsCanonicalTokenNetwork(name string) bool {
	cfg, ok := r.byName[name]
	return ok && cfg.Canonical
}

func (r *Registry) RequireLibraryConfig(name string) (LibraryConfig, LibraryConfig, error) {
	cfg, err := r.Lookup(name)
	if err != nil {
		return LibraryConfig{}, LibraryConfig{}, err
	}
	if cfg.SendLibrary == nil || cfg.ReceiveLibrary == nil {
		return LibraryConfig{}, LibraryConfig{}, fmt.Errorf("%w: '%s'", ErrIncompleteLibraryConfig, name)
	}
	return *cfg.SendLibrary, *cfg.ReceiveLibrary, nil
}

// Networks returns the networks of a class in declaration order.
func (r *Registry) Networks(class Class) []Config {
	names := r.classes[class]
	out := make([]Config, 0, len(names))
	for _, name := range names {
		out = append(out, r.byName[name])
	}
	return out
}

// Canonical returns the canonical token network of a class.
func (r *Registry) Canonical(class Class) (Config, error) {
	for _, cfg := range r.Networks(class) {
		if cfg.Canonical {
			return cfg, nil
		}
	}
	return Config{}, fmt.Errorf("no canonical network in class %s", class)
}

// Hub returns the first of candidates that belongs to class.
func (r *Registry) Hub(class Class, candidates []string) (Config, error) {
	for _, name := range candidates {
		if cfg, ok := r.byName[name]; ok && cfg.Class == class {
			return cfg, nil
		}
	}
	return Config{}, fmt.Errorf("%w: no hub network in class %s among %v", ErrUnsupportedNetwork, class, candidates)
}

// ClassForEnv maps a deployment environment onto its network class.
func ClassForEnv(env string) (Class, error) {
	switch env {
	case "mainnet":
		return ClassMain, nil
	case "dev", "qa", "staging":
		return ClassTest, nil
	default:
		return "", fmt.Errorf("%w: '%s'", ErrUnsupportedEnv, env)
	}
}

// PeerAddress left-pads a 20-byte address to the 32-byte peer form.
func PeerAddress(addr common.Address) [32]byte {
	var out [32]byte
	copy(out[12:], addr.Bytes())
	return out
}
