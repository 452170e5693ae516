package contracts

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// Binder attaches the embedded interfaces to addresses on one backend.
type Binder struct {
	backend bind.ContractBackend
}

func NewBinder(backend bind.ContractBackend) *Binder {
	return &Binder{backend: backend}
}

func (b *Binder) OApp(address common.Address) *OApp {
	return &OApp{address: address, contract: b.bind(address, abiOApp)}
}

func (b *Binder) Endpoint(address common.Address) *Endpoint {
	return &Endpoint{address: address, contract: b.bind(address, abiEndpoint)}
}

func (b *Binder) ERC20(address common.Address) *ERC20 {
	return &ERC20{address: address, contract: b.bind(address, abiERC20)}
}

func (b *Binder) Ownable(address common.Address) *Ownable {
	return &Ownable{address: address, contract: b.bind(address, abiOwnable)}
}

func (b *Binder) Relayer(address common.Address) *Relayer {
	return &Relayer{address: address, contract: b.bind(address, abiRelayer)}
}

func (b *Binder) bind(address common.Address, name string) *bind.BoundContract {
	return bind.NewBoundContract(address, mustABI(name), b.backend, b.backend, b.backend)
}

// callOne runs a read with a single return value and converts it to T.
func callOne[T any](contract *bind.BoundContract, opts *bind.CallOpts, method string, args ...any) (T, error) {
	var (
		zero T
		out  []any
	)
	if err := contract.Call(opts, &out, method, args...); err != nil {
		return zero, fmt.Errorf("failed to call %s: %w", method, err)
	}
	if len(out) == 0 {
		return zero, fmt.Errorf("%s returned no values", method)
	}
	converted, ok := abi.ConvertType(out[0], new(T)).(*T)
	if !ok {
		return zero, fmt.Errorf("%s returned unexpected type %T", method, out[0])
	}
	return *converted, nil
}
