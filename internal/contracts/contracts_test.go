package contracts

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	fsjson "github.com/orderly-network/order-token-ops/internal/infra/filesystem/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalABI = `[{"type":"constructor","inputs":[{"name":"owner","type":"address"}],"stateMutability":"nonpayable"},{"type":"function","name":"initialize","inputs":[{"name":"owner","type":"address"}],"outputs":[],"stateMutability":"nonpayable"}]`

func TestEmbeddedABIs(t *testing.T) {
	abis, err := loadABIs()
	require.NoError(t, err)

	expected := map[string][]string{
		abiOApp:     {"isPeer", "setPeers", "enforcedOptions", "setEnforcedOptions", "quoteSend", "send", "setDelegate"},
		abiEndpoint: {"getSendLibrary", "getReceiveLibrary", "setConfig", "composeQueue", "lzCompose", "lzReceive"},
		abiERC20:    {"decimals", "allowance", "approve"},
		abiOwnable:  {"owner", "transferOwnership", "upgradeToAndCall"},
		abiRelayer:  {"setEndpoint", "setOrderChainId", "setOrderRelayer"},
	}
	for name, methods := range expected {
		parsedABI, ok := abis[name]
		require.True(t, ok, name)
		for _, method := range methods {
			assert.Contains(t, parsedABI.Methods, method, "%s.%s", name, method)
		}
	}

	for _, event := range []string{"ComposeSent", "LzComposeAlert", "LzReceiveAlert"} {
		assert.Contains(t, EndpointABI().Events, event)
	}
}

func TestPackSendParamTuple(t *testing.T) {
	oappABI := mustABI(abiOApp)

	param := SendParam{
		DstEid:       40231,
		AmountLD:     big.NewInt(1000),
		MinAmountLD:  big.NewInt(1000),
		ExtraOptions: []byte{0x00, 0x03},
		ComposeMsg:   []byte{},
		OftCmd:       []byte{},
	}
	_, err := oappABI.Pack("quoteSend", param, false)
	require.NoError(t, err)

	_, err = oappABI.Pack("setEnforcedOptions", []EnforcedOptionParam{{Eid: 1, MsgType: 1, Options: []byte{0x00, 0x03}}})
	require.NoError(t, err)

	_, err = mustABI(abiEndpoint).Pack("lzReceive", Origin{SrcEid: 1, Nonce: 2}, common.Address{}, [32]byte{}, []byte{}, []byte{})
	require.NoError(t, err)
}

func TestParseEndpointLogs(t *testing.T) {
	endpointABI := EndpointABI()
	endpoint := NewBinder(nil).Endpoint(common.HexToAddress("0x1a44076050125825900e736c501f859c50fE728c"))

	from := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	to := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	executor := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	guid := common.HexToHash("0x01")

	t.Run("compose sent", func(t *testing.T) {
		event := endpointABI.Events["ComposeSent"]
		data, err := event.Inputs.NonIndexed().Pack(from, to, [32]byte(guid), uint16(0), []byte("hello"))
		require.NoError(t, err)

		got, err := endpoint.ParseComposeSent(types.Log{Topics: []common.Hash{event.ID}, Data: data})
		require.NoError(t, err)
		assert.Equal(t, from, got.From)
		assert.Equal(t, to, got.To)
		assert.Equal(t, [32]byte(guid), got.Guid)
		assert.Equal(t, []byte("hello"), got.Message)
	})

	t.Run("compose alert", func(t *testing.T) {
		event := endpointABI.Events["LzComposeAlert"]
		data, err := event.Inputs.NonIndexed().Pack([32]byte(guid), uint16(1), big.NewInt(200000), big.NewInt(0), []byte("m"), []byte{}, []byte("revert"))
		require.NoError(t, err)

		log := types.Log{
			Topics: []common.Hash{event.ID, common.BytesToHash(from.Bytes()), common.BytesToHash(to.Bytes()), common.BytesToHash(executor.Bytes())},
			Data:   data,
		}
		got, err := endpoint.ParseLzComposeAlert(log)
		require.NoError(t, err)
		assert.Equal(t, executor, got.Executor)
		assert.Equal(t, uint16(1), got.Index)
		assert.Zero(t, got.Gas.Cmp(big.NewInt(200000)))
		assert.Equal(t, []byte("revert"), got.Reason)
	})

	t.Run("receive alert", func(t *testing.T) {
		event := endpointABI.Events["LzReceiveAlert"]
		origin := Origin{SrcEid: 40161, Sender: [32]byte{31: 0xaa}, Nonce: 7}
		data, err := event.Inputs.NonIndexed().Pack(origin, [32]byte(guid), big.NewInt(100000), big.NewInt(5), []byte("m"), []byte{}, []byte{})
		require.NoError(t, err)

		log := types.Log{
			Topics: []common.Hash{event.ID, common.BytesToHash(to.Bytes()), common.BytesToHash(executor.Bytes())},
			Data:   data,
		}
		got, err := endpoint.ParseLzReceiveAlert(log)
		require.NoError(t, err)
		assert.Equal(t, to, got.Receiver)
		assert.Equal(t, origin, got.Origin)
		assert.Zero(t, got.Value.Cmp(big.NewInt(5)))
	})

	t.Run("other event", func(t *testing.T) {
		event := endpointABI.Events["ComposeSent"]
		_, err := endpoint.ParseLzComposeAlert(types.Log{Topics: []common.Hash{event.ID}})
		assert.Error(t, err)
	})
}

func TestArtifacts(t *testing.T) {
	doc := map[string]any{
		"OrderSafe": map[string]any{"abi": json.RawMessage(minimalABI), "bytecode": "0x6001"},
	}
	path := filepath.Join(t.TempDir(), "contracts.json")
	require.NoError(t, fsjson.NewWriter().WriteJSON(path, doc))

	artifacts, err := LoadArtifacts(fsjson.NewReader(), path)
	require.NoError(t, err)

	safe, err := artifacts.Get("OrderSafe")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x60, 0x01}, safe.Bytecode)

	owner := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	initCode, err := safe.InitCode(owner)
	require.NoError(t, err)
	assert.Len(t, initCode, 2+32)
	assert.Equal(t, owner.Bytes(), initCode[2+12:])

	calldata, err := safe.Calldata("initialize", owner)
	require.NoError(t, err)
	assert.Len(t, calldata, 4+32)

	_, err = artifacts.Get(ProxyContractName)
	assert.ErrorIs(t, err, ErrArtifactNotFound)

	_, err = LoadArtifacts(fsjson.NewReader(), filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, ErrArtifactNotFound)

	_, err = ParseArtifacts([]byte(`{"X":{"abi":[],"bytecode":""}}`))
	assert.Error(t, err)
}

type fakeRunner struct {
	calls   []string
	outputs map[string]string
	fail    string
}

func (f *fakeRunner) Run(_ context.Context, _ string, name string, args ...string) ([]byte, error) {
	call := strings.Join(append([]string{name}, args...), " ")
	f.calls = append(f.calls, call)
	if call == f.fail {
		return nil, errors.New("exit status 1")
	}
	return []byte(f.outputs[call]), nil
}

func TestCompiler(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{
		"forge inspect OrderSafe abi --json": minimalABI,
		"forge inspect OrderSafe bytecode":   "6001\n",
	}}
	out := filepath.Join(t.TempDir(), "artifacts", "contracts.json")

	compiler := NewCompiler(t.TempDir(), out, fsjson.NewWriter()).WithRunner(runner)
	require.NoError(t, compiler.Compile(context.Background(), []string{"OrderSafe"}))

	assert.Equal(t, []string{
		"forge install",
		"forge inspect OrderSafe abi --json",
		"forge inspect OrderSafe bytecode",
	}, runner.calls)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	artifacts, err := ParseArtifacts(data)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x60, 0x01}, artifacts["OrderSafe"].Bytecode)

	runner.fail = "forge install"
	assert.Error(t, compiler.Compile(context.Background(), []string{"OrderSafe"}))
}
