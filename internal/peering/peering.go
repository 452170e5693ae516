package peering

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/orderly-network/order-token-ops/internal/contracts"
)

type (
	// OApp is the on-chain surface the peer reconciler reads and writes.
	OApp interface {
		Address() common.Address
		IsPeer(opts *bind.CallOpts, eid uint32, peer [32]byte) (bool, error)
		SetPeers(opts *bind.TransactOpts, eids []uint32, peers [][32]byte) (*types.Transaction, error)
		EnforcedOptions(opts *bind.CallOpts, eid uint32, msgType uint16) ([]byte, error)
		SetEnforcedOptions(opts *bind.TransactOpts, params []contracts.EnforcedOptionParam) (*types.Transaction, error)
		IsTrustedCaller(opts *bind.CallOpts, caller common.Address) (bool, error)
		SetTrustedCaller(opts *bind.TransactOpts, caller common.Address, trusted bool) (*types.Transaction, error)
		OnlyTrustedCaller(opts *bind.CallOpts) (bool, error)
		SetOnlyTrustedCaller(opts *bind.TransactOpts, enabled bool) (*types.Transaction, error)
	}

	// Endpoint is the library selection and configuration surface of the messaging endpoint.
	Endpoint interface {
		GetSendLibrary(opts *bind.CallOpts, sender common.Address, dstEid uint32) (common.Address, error)
		GetReceiveLibrary(opts *bind.CallOpts, receiver common.Address, srcEid uint32) (common.Address, bool, error)
		SetSendLibrary(opts *bind.TransactOpts, oapp common.Address, eid uint32, lib common.Address) (*types.Transaction, error)
		SetReceiveLibrary(opts *bind.TransactOpts, oapp common.Address, eid uint32, lib common.Address, gracePeriod *big.Int) (*types.Transaction, error)
		GetConfig(opts *bind.CallOpts, oapp, lib common.Address, eid, configType uint32) ([]byte, error)
		SetConfig(opts *bind.TransactOpts, oapp, lib common.Address, params []contracts.SetConfigParam) (*types.Transaction, error)
	}

	// OAppBinder attaches the OApp interface to a deployed address.
	OAppBinder func(common.Address) OApp
)
