package contracts

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ArachnidFactoryAddress is the keyless CREATE2 deployer present on most EVM chains.
var ArachnidFactoryAddress = common.HexToAddress("0x4e59b44847b379578588920cA78FbF26c0B4956C")

// Create2Factory deploys init code at salt through a factory that takes salt||initcode as raw calldata.
type Create2Factory struct {
	address  common.Address
	backend  bind.ContractBackend
	contract *bind.BoundContract
}

func (b *Binder) Create2Factory(address common.Address) *Create2Factory {
	return &Create2Factory{
		address:  address,
		backend:  b.backend,
		contract: bind.NewBoundContract(address, abi.ABI{}, b.backend, b.backend, b.backend),
	}
}

func (f *Create2Factory) Address() common.Address {
	return f.address
}

func (f *Create2Factory) CodeAt(ctx context.Context, address common.Address) ([]byte, error) {
	code, err := f.backend.CodeAt(ctx, address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get code at %s: %w", address.Hex(), err)
	}
	return code, nil
}

func (f *Create2Factory) Create2(opts *bind.TransactOpts, salt [32]byte, initCode []byte) (*types.Transaction, error) {
	calldata := make([]byte, 0, len(salt)+len(initCode))
	calldata = append(calldata, salt[:]...)
	calldata = append(calldata, initCode...)
	return f.contract.RawTransact(opts, calldata)
}
