package messaging

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/orderly-network/order-token-ops/configs"
	"github.com/orderly-network/order-token-ops/internal/chain/chaintest"
	"github.com/orderly-network/order-token-ops/internal/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	endpointAddr = common.HexToAddress("0x6EDCE65403992e310A62460808c4b910D972f10f")
	signer       = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	oft          = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	relayer      = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	executor     = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	sourceTx     = common.HexToHash("0x1234")
)

type composeCall struct {
	guid      [32]byte
	index     uint16
	message   []byte
	extraData []byte
	opts      *bind.TransactOpts
}

type receiveCall struct {
	origin   contracts.Origin
	receiver common.Address
	opts     *bind.TransactOpts
}

// fakeEndpoint decodes logs with the real bindings and records submissions.
type fakeEndpoint struct {
	*contracts.Endpoint
	queue    map[[32]byte][32]byte
	composed []composeCall
	received []receiveCall
}

func newFakeEndpoint() *fakeEndpoint {
	return &fakeEndpoint{
		Endpoint: contracts.NewBinder(nil).Endpoint(endpointAddr),
		queue:    make(map[[32]byte][32]byte),
	}
}

func (f *fakeEndpoint) ComposeQueue(_ *bind.CallOpts, _, _ common.Address, guid [32]byte, _ uint16) ([32]byte, error) {
	return f.queue[guid], nil
}

func (f *fakeEndpoint) LzCompose(opts *bind.TransactOpts, _, to common.Address, guid [32]byte, index uint16, message, extraData []byte) (*types.Transaction, error) {
	f.composed = append(f.composed, composeCall{guid: guid, index: index, message: message, extraData: extraData, opts: opts})
	return chaintest.Tx(opts, to, message), nil
}

func (f *fakeEndpoint) LzReceive(opts *bind.TransactOpts, origin contracts.Origin, receiver common.Address, _ [32]byte, message, _ []byte) (*types.Transaction, error) {
	f.received = append(f.received, receiveCall{origin: origin, receiver: receiver, opts: opts})
	return chaintest.Tx(opts, receiver, message), nil
}

type receipts map[common.Hash]*types.Receipt

func (r receipts) Receipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	receipt, ok := r[hash]
	if !ok {
		return nil, assert.AnError
	}
	return receipt, nil
}

func composeSentLog(t *testing.T, emitter common.Address, guid [32]byte, index uint16, message string) *types.Log {
	t.Helper()
	event := contracts.EndpointABI().Events["ComposeSent"]
	data, err := event.Inputs.NonIndexed().Pack(oft, relayer, guid, index, []byte(message))
	require.NoError(t, err)
	return &types.Log{Address: emitter, Topics: []common.Hash{event.ID}, Data: data}
}

func composeAlertLog(t *testing.T, guid [32]byte, gas, value int64) *types.Log {
	t.Helper()
	event := contracts.EndpointABI().Events["LzComposeAlert"]
	data, err := event.Inputs.NonIndexed().Pack(guid, uint16(0), big.NewInt(gas), big.NewInt(value), []byte("stake"), []byte{0x01}, []byte("out of gas"))
	require.NoError(t, err)
	return &types.Log{
		Address: endpointAddr,
		Topics:  []common.Hash{event.ID, common.BytesToHash(oft.Bytes()), common.BytesToHash(relayer.Bytes()), common.BytesToHash(executor.Bytes())},
		Data:    data,
	}
}

func receiveAlertLog(t *testing.T, guid [32]byte, origin contracts.Origin) *types.Log {
	t.Helper()
	event := contracts.EndpointABI().Events["LzReceiveAlert"]
	data, err := event.Inputs.NonIndexed().Pack(origin, guid, big.NewInt(150000), big.NewInt(7), []byte("credit"), []byte{}, []byte{})
	require.NoError(t, err)
	return &types.Log{
		Address: endpointAddr,
		Topics:  []common.Hash{event.ID, common.BytesToHash(oft.Bytes()), common.BytesToHash(executor.Bytes())},
		Data:    data,
	}
}

func TestExecuteComposed(t *testing.T) {
	queued := [32]byte{31: 0x0a}
	delivered := [32]byte{31: 0x0b}
	missing := [32]byte{31: 0x0c}
	impostor := common.HexToAddress("0x00000000000000000000000000000000000000dd")

	endpoint := newFakeEndpoint()
	endpoint.queue[queued] = common.HexToHash("0xfeed")
	endpoint.queue[delivered] = deliveredHash

	source := receipts{sourceTx: {Logs: []*types.Log{
		composeSentLog(t, endpointAddr, queued, 0, "stake"),
		composeSentLog(t, impostor, queued, 1, "ignored"),
		composeSentLog(t, endpointAddr, delivered, 0, "done"),
		composeSentLog(t, endpointAddr, missing, 0, "gone"),
	}}}
	transactor := chaintest.NewTransactor(signer, 0)

	deliveries, err := NewRecoverer(endpoint, source, transactor, configs.Recovery{GasLimit: 300000}).ExecuteComposed(context.Background(), sourceTx)
	require.NoError(t, err)
	require.Len(t, deliveries, 3, "logs from other emitters are ignored")

	assert.Empty(t, deliveries[0].Skipped)
	assert.Equal(t, "already delivered", deliveries[1].Skipped)
	assert.Equal(t, "not queued", deliveries[2].Skipped)

	require.Len(t, endpoint.composed, 1)
	call := endpoint.composed[0]
	assert.Equal(t, queued, call.guid)
	assert.Equal(t, []byte("stake"), call.message)
	assert.Empty(t, call.extraData)
	assert.Equal(t, uint64(300000), call.opts.GasLimit)
	assert.Equal(t, []common.Hash{deliveries[0].TxHash}, transactor.Waited())
}

func TestRetryComposedUsesLargerGas(t *testing.T) {
	low := [32]byte{31: 0x01}
	high := [32]byte{31: 0x02}

	endpoint := newFakeEndpoint()
	source := receipts{sourceTx: {Logs: []*types.Log{
		composeSentLog(t, endpointAddr, low, 0, "not an alert"),
		composeAlertLog(t, low, 100000, 0),
		composeAlertLog(t, high, 900000, 42),
	}}}

	deliveries, err := NewRecoverer(endpoint, source, chaintest.NewTransactor(signer, 5), configs.Recovery{GasLimit: 500000}).RetryComposed(context.Background(), sourceTx)
	require.NoError(t, err)
	require.Len(t, deliveries, 2)

	require.Len(t, endpoint.composed, 2)
	assert.Equal(t, uint64(500000), endpoint.composed[0].opts.GasLimit)
	assert.Equal(t, uint64(900000), endpoint.composed[1].opts.GasLimit)
	assert.Zero(t, endpoint.composed[1].opts.Value.Cmp(big.NewInt(42)))
	assert.Equal(t, []byte{0x01}, endpoint.composed[1].extraData)
	assert.Equal(t, uint64(6), endpoint.composed[1].opts.Nonce.Uint64())
}

func TestReplayReceive(t *testing.T) {
	guid := [32]byte{31: 0x03}
	origin := contracts.Origin{SrcEid: 40231, Sender: [32]byte{31: 0xaa}, Nonce: 9}

	endpoint := newFakeEndpoint()
	source := receipts{sourceTx: {Logs: []*types.Log{receiveAlertLog(t, guid, origin)}}}

	deliveries, err := NewRecoverer(endpoint, source, chaintest.NewTransactor(signer, 0), configs.Recovery{GasLimit: 100000}).ReplayReceive(context.Background(), sourceTx)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)

	require.Len(t, endpoint.received, 1)
	call := endpoint.received[0]
	assert.Equal(t, origin, call.origin)
	assert.Equal(t, oft, call.receiver)
	assert.Equal(t, uint64(150000), call.opts.GasLimit)
	assert.Zero(t, call.opts.Value.Cmp(big.NewInt(7)))
}

func TestNoRecoverableMessages(t *testing.T) {
	guid := [32]byte{31: 0x04}
	endpoint := newFakeEndpoint()
	source := receipts{sourceTx: {Logs: []*types.Log{composeAlertLog(t, guid, 1, 0)}}}
	recoverer := NewRecoverer(endpoint, source, chaintest.NewTransactor(signer, 0), configs.Recovery{})

	_, err := recoverer.ExecuteComposed(context.Background(), sourceTx)
	assert.ErrorIs(t, err, ErrNoRecoverableMessages)

	_, err = recoverer.ReplayReceive(context.Background(), sourceTx)
	assert.ErrorIs(t, err, ErrNoRecoverableMessages)

	_, err = recoverer.RetryComposed(context.Background(), common.HexToHash("0xdead"))
	assert.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, endpoint.composed)
}
