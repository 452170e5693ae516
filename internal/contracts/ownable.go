package contracts

import (
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Ownable is the ownership and UUPS upgrade surface shared by every proxied role.
type Ownable struct {
	address  common.Address
	contract *bind.BoundContract
}

func (o *Ownable) Address() common.Address {
	return o.address
}

func (o *Ownable) Owner(opts *bind.CallOpts) (common.Address, error) {
	return callOne[common.Address](o.contract, opts, "owner")
}

func (o *Ownable) TransferOwnership(opts *bind.TransactOpts, newOwner common.Address) (*types.Transaction, error) {
	return o.contract.Transact(opts, "transferOwnership", newOwner)
}

func (o *Ownable) UpgradeToAndCall(opts *bind.TransactOpts, implementation common.Address, data []byte) (*types.Transaction, error) {
	return o.contract.Transact(opts, "upgradeToAndCall", implementation, data)
}
