package contracts

import (
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// OApp covers both the OFT and the adapter: peers, enforced options, trusted callers and the send path.
type OApp struct {
	address  common.Address
	contract *bind.BoundContract
}

func (o *OApp) Address() common.Address {
	return o.address
}

func (o *OApp) IsPeer(opts *bind.CallOpts, eid uint32, peer [32]byte) (bool, error) {
	return callOne[bool](o.contract, opts, "isPeer", eid, peer)
}

func (o *OApp) Peers(opts *bind.CallOpts, eid uint32) ([32]byte, error) {
	return callOne[[32]byte](o.contract, opts, "peers", eid)
}

func (o *OApp) SetPeers(opts *bind.TransactOpts, eids []uint32, peers [][32]byte) (*types.Transaction, error) {
	return o.contract.Transact(opts, "setPeers", eids, peers)
}

func (o *OApp) EnforcedOptions(opts *bind.CallOpts, eid uint32, msgType uint16) ([]byte, error) {
	return callOne[[]byte](o.contract, opts, "enforcedOptions", eid, msgType)
}

func (o *OApp) SetEnforcedOptions(opts *bind.TransactOpts, params []EnforcedOptionParam) (*types.Transaction, error) {
	return o.contract.Transact(opts, "setEnforcedOptions", params)
}

func (o *OApp) IsTrustedCaller(opts *bind.CallOpts, caller common.Address) (bool, error) {
	return callOne[bool](o.contract, opts, "isTrustedCaller", caller)
}

func (o *OApp) SetTrustedCaller(opts *bind.TransactOpts, caller common.Address, trusted bool) (*types.Transaction, error) {
	return o.contract.Transact(opts, "setTrustedCaller", caller, trusted)
}

func (o *OApp) OnlyTrustedCaller(opts *bind.CallOpts) (bool, error) {
	return callOne[bool](o.contract, opts, "onlyTrustedCaller")
}

func (o *OApp) SetOnlyTrustedCaller(opts *bind.TransactOpts, enabled bool) (*types.Transaction, error) {
	return o.contract.Transact(opts, "setOnlyTrustedCaller", enabled)
}

func (o *OApp) ApprovalRequired(opts *bind.CallOpts) (bool, error) {
	return callOne[bool](o.contract, opts, "approvalRequired")
}

func (o *OApp) Token(opts *bind.CallOpts) (common.Address, error) {
	return callOne[common.Address](o.contract, opts, "token")
}

func (o *OApp) SetDelegate(opts *bind.TransactOpts, delegate common.Address) (*types.Transaction, error) {
	return o.contract.Transact(opts, "setDelegate", delegate)
}

func (o *OApp) QuoteSend(opts *bind.CallOpts, param SendParam, payInLzToken bool) (MessagingFee, error) {
	return callOne[MessagingFee](o.contract, opts, "quoteSend", param, payInLzToken)
}

// Send submits a transfer. opts.Value must carry the quoted native fee.
func (o *OApp) Send(opts *bind.TransactOpts, param SendParam, fee MessagingFee, refund common.Address) (*types.Transaction, error) {
	return o.contract.Transact(opts, "send", param, fee, refund)
}
