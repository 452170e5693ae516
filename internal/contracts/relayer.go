package contracts

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Relayer holds the wiring setters of the relayers and vaults. Each contract implements the subset it needs.
type Relayer struct {
	address  common.Address
	contract *bind.BoundContract
}

func (r *Relayer) Address() common.Address {
	return r.address
}

func (r *Relayer) SetEndpoint(opts *bind.TransactOpts, endpoint common.Address) (*types.Transaction, error) {
	return r.contract.Transact(opts, "setEndpoint", endpoint)
}

func (r *Relayer) SetOft(opts *bind.TransactOpts, oft common.Address) (*types.Transaction, error) {
	return r.contract.Transact(opts, "setOft", oft)
}

func (r *Relayer) SetComposeMsgSender(opts *bind.TransactOpts, sender common.Address, allowed bool) (*types.Transaction, error) {
	return r.contract.Transact(opts, "setComposeMsgSender", sender, allowed)
}

func (r *Relayer) SetEid(opts *bind.TransactOpts, chainID *big.Int, eid uint32) (*types.Transaction, error) {
	return r.contract.Transact(opts, "setEid", chainID, eid)
}

func (r *Relayer) SetOrderChainID(opts *bind.TransactOpts, chainID *big.Int) (*types.Transaction, error) {
	return r.contract.Transact(opts, "setOrderChainId", chainID)
}

func (r *Relayer) SetOrderSafe(opts *bind.TransactOpts, safe common.Address) (*types.Transaction, error) {
	return r.contract.Transact(opts, "setOrderSafe", safe)
}

func (r *Relayer) SetOrderBoxRelayer(opts *bind.TransactOpts, relayer common.Address) (*types.Transaction, error) {
	return r.contract.Transact(opts, "setOrderBoxRelayer", relayer)
}

func (r *Relayer) SetOrderBox(opts *bind.TransactOpts, box common.Address) (*types.Transaction, error) {
	return r.contract.Transact(opts, "setOrderBox", box)
}

func (r *Relayer) SetOrderRelayer(opts *bind.TransactOpts, relayer common.Address) (*types.Transaction, error) {
	return r.contract.Transact(opts, "setOrderRelayer", relayer)
}
