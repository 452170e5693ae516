package contracts

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type ERC20 struct {
	address  common.Address
	contract *bind.BoundContract
}

func (t *ERC20) Address() common.Address {
	return t.address
}

func (t *ERC20) Symbol(opts *bind.CallOpts) (string, error) {
	return callOne[string](t.contract, opts, "symbol")
}

func (t *ERC20) Decimals(opts *bind.CallOpts) (uint8, error) {
	return callOne[uint8](t.contract, opts, "decimals")
}

func (t *ERC20) BalanceOf(opts *bind.CallOpts, account common.Address) (*big.Int, error) {
	return callOne[*big.Int](t.contract, opts, "balanceOf", account)
}

func (t *ERC20) Allowance(opts *bind.CallOpts, owner, spender common.Address) (*big.Int, error) {
	return callOne[*big.Int](t.contract, opts, "allowance", owner, spender)
}

func (t *ERC20) Approve(opts *bind.TransactOpts, spender common.Address, value *big.Int) (*types.Transaction, error) {
	return t.contract.Transact(opts, "approve", spender, value)
}

func (t *ERC20) Transfer(opts *bind.TransactOpts, to common.Address, value *big.Int) (*types.Transaction, error) {
	return t.contract.Transact(opts, "transfer", to, value)
}
