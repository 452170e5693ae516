package peering

import (
	"bytes"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/orderly-network/order-token-ops/internal/chain/chaintest"
	"github.com/orderly-network/order-token-ops/internal/contracts"
)

type fakeOApp struct {
	address     common.Address
	peers       map[uint32][32]byte
	options     map[uint32]map[uint16][]byte
	trusted     map[common.Address]bool
	onlyTrusted bool
	writes      []string
}

func newFakeOApp(address common.Address) *fakeOApp {
	return &fakeOApp{
		address: address,
		peers:   make(map[uint32][32]byte),
		options: make(map[uint32]map[uint16][]byte),
		trusted: make(map[common.Address]bool),
	}
}

func (f *fakeOApp) Address() common.Address {
	return f.address
}

func (f *fakeOApp) IsPeer(_ *bind.CallOpts, eid uint32, peer [32]byte) (bool, error) {
	return f.peers[eid] == peer, nil
}

func (f *fakeOApp) SetPeers(opts *bind.TransactOpts, eids []uint32, peers [][32]byte) (*types.Transaction, error) {
	for i, eid := range eids {
		f.peers[eid] = peers[i]
	}
	f.writes = append(f.writes, "setPeers")
	return chaintest.Tx(opts, f.address, []byte("setPeers")), nil
}

func (f *fakeOApp) EnforcedOptions(_ *bind.CallOpts, eid uint32, msgType uint16) ([]byte, error) {
	return f.options[eid][msgType], nil
}

func (f *fakeOApp) SetEnforcedOptions(opts *bind.TransactOpts, params []contracts.EnforcedOptionParam) (*types.Transaction, error) {
	for _, p := range params {
		if f.options[p.Eid] == nil {
			f.options[p.Eid] = make(map[uint16][]byte)
		}
		f.options[p.Eid][p.MsgType] = bytes.Clone(p.Options)
	}
	f.writes = append(f.writes, "setEnforcedOptions")
	return chaintest.Tx(opts, f.address, []byte("setEnforcedOptions")), nil
}

func (f *fakeOApp) IsTrustedCaller(_ *bind.CallOpts, caller common.Address) (bool, error) {
	return f.trusted[caller], nil
}

func (f *fakeOApp) SetTrustedCaller(opts *bind.TransactOpts, caller common.Address, trusted bool) (*types.Transaction, error) {
	f.trusted[caller] = trusted
	f.writes = append(f.writes, "setTrustedCaller")
	return chaintest.Tx(opts, f.address, []byte("setTrustedCaller")), nil
}

func (f *fakeOApp) OnlyTrustedCaller(_ *bind.CallOpts) (bool, error) {
	return f.onlyTrusted, nil
}

func (f *fakeOApp) SetOnlyTrustedCaller(opts *bind.TransactOpts, enabled bool) (*types.Transaction, error) {
	f.onlyTrusted = enabled
	f.writes = append(f.writes, "setOnlyTrustedCaller")
	return chaintest.Tx(opts, f.address, []byte("setOnlyTrustedCaller")), nil
}

type libraryKey struct {
	eid uint32
	lib common.Address
}

type fakeEndpoint struct {
	address        common.Address
	defaultLib     common.Address
	sendLibrary    map[uint32]common.Address
	receiveLibrary map[uint32]common.Address
	configs        map[libraryKey][]byte
	writes         []string
}

func newFakeEndpoint(defaultLib common.Address) *fakeEndpoint {
	return &fakeEndpoint{
		address:        common.HexToAddress("0x6EDCE65403992e310A62460808c4b910D972f10f"),
		defaultLib:     defaultLib,
		sendLibrary:    make(map[uint32]common.Address),
		receiveLibrary: make(map[uint32]common.Address),
		configs:        make(map[libraryKey][]byte),
	}
}

func (f *fakeEndpoint) GetSendLibrary(_ *bind.CallOpts, _ common.Address, dstEid uint32) (common.Address, error) {
	if lib, ok := f.sendLibrary[dstEid]; ok {
		return lib, nil
	}
	return f.defaultLib, nil
}

func (f *fakeEndpoint) GetReceiveLibrary(_ *bind.CallOpts, _ common.Address, srcEid uint32) (common.Address, bool, error) {
	if lib, ok := f.receiveLibrary[srcEid]; ok {
		return lib, false, nil
	}
	return f.defaultLib, true, nil
}

func (f *fakeEndpoint) SetSendLibrary(opts *bind.TransactOpts, _ common.Address, eid uint32, lib common.Address) (*types.Transaction, error) {
	f.sendLibrary[eid] = lib
	f.writes = append(f.writes, "setSendLibrary")
	return chaintest.Tx(opts, f.address, []byte("setSendLibrary")), nil
}

func (f *fakeEndpoint) SetReceiveLibrary(opts *bind.TransactOpts, _ common.Address, eid uint32, lib common.Address, _ *big.Int) (*types.Transaction, error) {
	f.receiveLibrary[eid] = lib
	f.writes = append(f.writes, "setReceiveLibrary")
	return chaintest.Tx(opts, f.address, []byte("setReceiveLibrary")), nil
}

func (f *fakeEndpoint) GetConfig(_ *bind.CallOpts, _ common.Address, lib common.Address, eid, _ uint32) ([]byte, error) {
	return f.configs[libraryKey{eid: eid, lib: lib}], nil
}

func (f *fakeEndpoint) SetConfig(opts *bind.TransactOpts, _ common.Address, lib common.Address, params []contracts.SetConfigParam) (*types.Transaction, error) {
	for _, p := range params {
		f.configs[libraryKey{eid: p.Eid, lib: lib}] = bytes.Clone(p.Config)
	}
	f.writes = append(f.writes, "setConfig")
	return chaintest.Tx(opts, f.address, append([]byte("setConfig"), lib.Bytes()...)), nil
}
