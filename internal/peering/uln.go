package peering

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/orderly-network/order-token-ops/internal/network"
)

var ulnConfigArguments = mustUlnArguments()

func mustUlnArguments() abi.Arguments {
	ulnType, err := abi.NewType("tuple", "UlnConfig", []abi.ArgumentMarshaling{
		{Name: "confirmations", Type: "uint64"},
		{Name: "requiredDVNCount", Type: "uint8"},
		{Name: "optionalDVNCount", Type: "uint8"},
		{Name: "optionalDVNThreshold", Type: "uint8"},
		{Name: "requiredDVNs", Type: "address[]"},
		{Name: "optionalDVNs", Type: "address[]"},
	})
	if err != nil {
		panic(err)
	}
	return abi.Arguments{{Name: "config", Type: ulnType}}
}

// EncodeUlnConfig produces the bytes the ULN library stores for config type 2.
func EncodeUlnConfig(policy network.VerificationPolicy) ([]byte, error) {
	encoded, err := ulnConfigArguments.Pack(policy)
	if err != nil {
		return nil, fmt.Errorf("failed to encode uln config: %w", err)
	}
	return encoded, nil
}

func DecodeUlnConfig(data []byte) (network.VerificationPolicy, error) {
	out, err := ulnConfigArguments.Unpack(data)
	if err != nil {
		return network.VerificationPolicy{}, fmt.Errorf("failed to decode uln config: %w", err)
	}
	if len(out) != 1 {
		return network.VerificationPolicy{}, fmt.Errorf("failed to decode uln config: %d values", len(out))
	}
	policy := *abi.ConvertType(out[0], new(network.VerificationPolicy)).(*network.VerificationPolicy)
	return policy, nil
}
