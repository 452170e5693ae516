package contracts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/orderly-network/order-token-ops/internal/infra/filesystem"
	"github.com/orderly-network/order-token-ops/internal/logger"
)

type (
	// Runner executes an external command in dir and returns its stdout.
	Runner interface {
		Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error)
	}

	// Compiler builds the Solidity sources with forge and writes the artifacts file.
	Compiler struct {
		contractsRootDir string
		outputPath       string
		runner           Runner
		writer           filesystem.Writer
		logger           *slog.Logger
	}

	execRunner struct {
		stderr io.Writer
	}
)

func NewCompiler(contractsRootDir, outputPath string, writer filesystem.Writer) *Compiler {
	return &Compiler{
		contractsRootDir: contractsRootDir,
		outputPath:       outputPath,
		runner:           execRunner{stderr: os.Stderr},
		writer:           writer,
		logger:           logger.Named("contracts_compiler"),
	}
}

// WithRunner replaces the process runner.
func (c *Compiler) WithRunner(runner Runner) *Compiler {
	c.runner = runner
	return c
}

// Compile installs forge dependencies, inspects each contract and persists ABI and bytecode.
func (c *Compiler) Compile(ctx context.Context, contractNames []string) error {
	c.logger.
		With("contracts_dir", c.contractsRootDir).
		With("output", c.outputPath).
		Info("starting contract compilation")

	c.logger.Info("installing forge dependencies")
	if _, err := c.runner.Run(ctx, c.contractsRootDir, "forge", "install"); err != nil {
		return fmt.Errorf("forge install failed: %w", err)
	}

	jsonContracts := make(map[string]rawArtifact, len(contractNames))
	for _, name := range contractNames {
		c.logger.With("name", name).Info("compiling contract")

		abiJSON, bytecodeHex, err := c.compileContractRaw(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to compile %s: %w", name, err)
		}

		jsonContracts[name] = rawArtifact{
			ABI:      json.RawMessage(abiJSON),
			Bytecode: bytecodeHex,
		}
	}

	if err := c.writer.WriteJSON(c.outputPath, jsonContracts); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.outputPath, err)
	}

	c.logger.With("len", len(jsonContracts)).Info("contracts compiled successfully")

	return nil
}

func (c *Compiler) compileContractRaw(ctx context.Context, contractName string) ([]byte, string, error) {
	abiOutput, err := c.runner.Run(ctx, c.contractsRootDir, "forge", "inspect", contractName, "abi", "--json")
	if err != nil {
		return nil, "", fmt.Errorf("failed to get ABI for %s: %w", contractName, err)
	}

	if _, err := abi.JSON(strings.NewReader(string(abiOutput))); err != nil {
		return nil, "", fmt.Errorf("failed to parse ABI for %s: %w", contractName, err)
	}

	bytecodeOutput, err := c.runner.Run(ctx, c.contractsRootDir, "forge", "inspect", contractName, "bytecode")
	if err != nil {
		return nil, "", fmt.Errorf("failed to get bytecode for %s: %w", contractName, err)
	}

	bytecode := strings.TrimSpace(string(bytecodeOutput))
	if !strings.HasPrefix(bytecode, "0x") {
		bytecode = "0x" + bytecode
	}

	return abiOutput, bytecode, nil
}

func (r execRunner) Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stderr = r.stderr
	return cmd.Output()
}
