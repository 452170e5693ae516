package contracts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/orderly-network/order-token-ops/internal/infra/filesystem"
)

// ProxyContractName is the ERC1967 proxy every upgradeable role is deployed behind.
const ProxyContractName = "ERC1967Proxy"

var ErrArtifactNotFound = errors.New("artifact not found")

type (
	Artifact struct {
		Name     string
		ABI      abi.ABI
		RawABI   string
		Bytecode []byte
	}

	// Artifacts maps a contract name to its compiled form.
	Artifacts map[string]Artifact

	rawArtifact struct {
		ABI      json.RawMessage `json:"abi"`
		Bytecode string          `json:"bytecode"`
	}
)

// LoadArtifacts reads the compiler output written by Compiler.
func LoadArtifacts(reader filesystem.Reader, path string) (Artifacts, error) {
	var raw map[string]rawArtifact
	if err := reader.ReadJSON(path, &raw); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s does not exist, run compile first", ErrArtifactNotFound, path)
		}
		return nil, fmt.Errorf("failed to read artifacts: %w", err)
	}

	return parseArtifacts(raw)
}

// ParseArtifacts parses contracts.json content.
func ParseArtifacts(data []byte) (Artifacts, error) {
	var raw map[string]rawArtifact
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse compiled contracts: %w", err)
	}
	return parseArtifacts(raw)
}

func parseArtifacts(raw map[string]rawArtifact) (Artifacts, error) {
	artifacts := make(Artifacts, len(raw))
	for name, contract := range raw {
		parsedABI, err := abi.JSON(strings.NewReader(string(contract.ABI)))
		if err != nil {
			return nil, fmt.Errorf("failed to parse ABI for %s: %w", name, err)
		}

		bytecodeHex := strings.TrimPrefix(strings.TrimSpace(contract.Bytecode), "0x")
		if bytecodeHex == "" {
			return nil, fmt.Errorf("empty bytecode for %s", name)
		}

		artifacts[name] = Artifact{
			Name:     name,
			ABI:      parsedABI,
			RawABI:   string(contract.ABI),
			Bytecode: common.Hex2Bytes(bytecodeHex),
		}
	}

	return artifacts, nil
}

func (a Artifacts) Get(name string) (Artifact, error) {
	artifact, ok := a[name]
	if !ok {
		return Artifact{}, fmt.Errorf("%w: '%s'", ErrArtifactNotFound, name)
	}
	return artifact, nil
}

// InitCode returns the creation bytecode followed by the ABI-encoded constructor arguments.
func (a Artifact) InitCode(args ...any) ([]byte, error) {
	packed, err := a.ABI.Pack("", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s constructor: %w", a.Name, err)
	}
	code := make([]byte, 0, len(a.Bytecode)+len(packed))
	code = append(code, a.Bytecode...)
	return append(code, packed...), nil
}

// Calldata packs a call to method.
func (a Artifact) Calldata(method string, args ...any) ([]byte, error) {
	packed, err := a.ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s.%s: %w", a.Name, method, err)
	}
	return packed, nil
}
