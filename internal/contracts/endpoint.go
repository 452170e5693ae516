package contracts

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const (
	ConfigTypeExecutor uint32 = 1
	ConfigTypeULN      uint32 = 2
)

type (
	// Endpoint is the messaging endpoint: library selection, library config and recovery entry points.
	Endpoint struct {
		address  common.Address
		contract *bind.BoundContract
	}

	ComposeSent struct {
		From    common.Address
		To      common.Address
		Guid    [32]byte
		Index   uint16
		Message []byte
		Raw     types.Log
	}

	LzComposeAlert struct {
		From      common.Address
		To        common.Address
		Executor  common.Address
		Guid      [32]byte
		Index     uint16
		Gas       *big.Int
		Value     *big.Int
		Message   []byte
		ExtraData []byte
		Reason    []byte
		Raw       types.Log
	}

	LzReceiveAlert struct {
		Receiver  common.Address
		Executor  common.Address
		Origin    Origin
		Guid      [32]byte
		Gas       *big.Int
		Value     *big.Int
		Message   []byte
		ExtraData []byte
		Reason    []byte
		Raw       types.Log
	}
)

func (e *Endpoint) Address() common.Address {
	return e.address
}

func (e *Endpoint) GetSendLibrary(opts *bind.CallOpts, sender common.Address, dstEid uint32) (common.Address, error) {
	return callOne[common.Address](e.contract, opts, "getSendLibrary", sender, dstEid)
}

// GetReceiveLibrary returns the library and whether it is the endpoint default.
func (e *Endpoint) GetReceiveLibrary(opts *bind.CallOpts, receiver common.Address, srcEid uint32) (common.Address, bool, error) {
	var out []any
	if err := e.contract.Call(opts, &out, "getReceiveLibrary", receiver, srcEid); err != nil {
		return common.Address{}, false, fmt.Errorf("failed to call getReceiveLibrary: %w", err)
	}
	if len(out) != 2 {
		return common.Address{}, false, fmt.Errorf("getReceiveLibrary returned %d values", len(out))
	}
	lib, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, false, fmt.Errorf("getReceiveLibrary returned unexpected type %T", out[0])
	}
	isDefault, _ := out[1].(bool)
	return lib, isDefault, nil
}

func (e *Endpoint) SetSendLibrary(opts *bind.TransactOpts, oapp common.Address, eid uint32, lib common.Address) (*types.Transaction, error) {
	return e.contract.Transact(opts, "setSendLibrary", oapp, eid, lib)
}

func (e *Endpoint) SetReceiveLibrary(opts *bind.TransactOpts, oapp common.Address, eid uint32, lib common.Address, gracePeriod *big.Int) (*types.Transaction, error) {
	return e.contract.Transact(opts, "setReceiveLibrary", oapp, eid, lib, gracePeriod)
}

func (e *Endpoint) GetConfig(opts *bind.CallOpts, oapp, lib common.Address, eid, configType uint32) ([]byte, error) {
	return callOne[[]byte](e.contract, opts, "getConfig", oapp, lib, eid, configType)
}

func (e *Endpoint) SetConfig(opts *bind.TransactOpts, oapp, lib common.Address, params []SetConfigParam) (*types.Transaction, error) {
	return e.contract.Transact(opts, "setConfig", oapp, lib, params)
}

// ComposeQueue returns the stored hash for a queued compose message. Zero means never queued, 0x..01 means delivered.
func (e *Endpoint) ComposeQueue(opts *bind.CallOpts, from, to common.Address, guid [32]byte, index uint16) ([32]byte, error) {
	return callOne[[32]byte](e.contract, opts, "composeQueue", from, to, guid, index)
}

func (e *Endpoint) LzCompose(opts *bind.TransactOpts, from, to common.Address, guid [32]byte, index uint16, message, extraData []byte) (*types.Transaction, error) {
	return e.contract.Transact(opts, "lzCompose", from, to, guid, index, message, extraData)
}

func (e *Endpoint) LzReceive(opts *bind.TransactOpts, origin Origin, receiver common.Address, guid [32]byte, message, extraData []byte) (*types.Transaction, error) {
	return e.contract.Transact(opts, "lzReceive", origin, receiver, guid, message, extraData)
}

// ParseComposeSent decodes a ComposeSent log. Logs of other events fail with a signature mismatch.
func (e *Endpoint) ParseComposeSent(log types.Log) (*ComposeSent, error) {
	event := new(ComposeSent)
	if err := e.contract.UnpackLog(event, "ComposeSent", log); err != nil {
		return nil, err
	}
	event.Raw = log
	return event, nil
}

func (e *Endpoint) ParseLzComposeAlert(log types.Log) (*LzComposeAlert, error) {
	event := new(LzComposeAlert)
	if err := e.contract.UnpackLog(event, "LzComposeAlert", log); err != nil {
		return nil, err
	}
	event.Raw = log
	return event, nil
}

func (e *Endpoint) ParseLzReceiveAlert(log types.Log) (*LzReceiveAlert, error) {
	event := new(LzReceiveAlert)
	if err := e.contract.UnpackLog(event, "LzReceiveAlert", log); err != nil {
		return nil, err
	}
	event.Raw = log
	return event, nil
}
