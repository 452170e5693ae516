package contracts

import (
	"embed"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

//go:embed abis/*.json
var abisFS embed.FS

const (
	abiOApp     = "oapp"
	abiEndpoint = "endpoint"
	abiERC20    = "erc20"
	abiOwnable  = "ownable"
	abiRelayer  = "relayer"
)

var (
	parsedOnce sync.Once
	parsed     map[string]abi.ABI
	parsedErr  error
)

type (
	// SendParam is the OFT send request tuple.
	SendParam struct {
		DstEid       uint32
		To           [32]byte
		AmountLD     *big.Int
		MinAmountLD  *big.Int
		ExtraOptions []byte
		ComposeMsg   []byte
		OftCmd       []byte
	}

	MessagingFee struct {
		NativeFee  *big.Int
		LzTokenFee *big.Int
	}

	EnforcedOptionParam struct {
		Eid     uint32
		MsgType uint16
		Options []byte
	}

	SetConfigParam struct {
		Eid        uint32
		ConfigType uint32
		Config     []byte
	}

	// Origin identifies an inbound packet by source endpoint, sender and nonce.
	Origin struct {
		SrcEid uint32
		Sender [32]byte
		Nonce  uint64
	}
)

func loadABIs() (map[string]abi.ABI, error) {
	parsedOnce.Do(func() {
		entries, err := abisFS.ReadDir("abis")
		if err != nil {
			parsedErr = fmt.Errorf("failed to read embedded ABIs: %w", err)
			return
		}
		parsed = make(map[string]abi.ABI, len(entries))
		for _, entry := range entries {
			data, err := abisFS.ReadFile("abis/" + entry.Name())
			if err != nil {
				parsedErr = fmt.Errorf("failed to read %s: %w", entry.Name(), err)
				return
			}
			parsedABI, err := abi.JSON(strings.NewReader(string(data)))
			if err != nil {
				parsedErr = fmt.Errorf("failed to parse ABI %s: %w", entry.Name(), err)
				return
			}
			parsed[strings.TrimSuffix(entry.Name(), ".json")] = parsedABI
		}
	})
	return parsed, parsedErr
}

func mustABI(name string) abi.ABI {
	abis, err := loadABIs()
	if err != nil {
		panic(err)
	}
	parsedABI, ok := abis[name]
	if !ok {
		panic(fmt.Sprintf("embedded ABI %s not found", name))
	}
	return parsedABI
}

// EndpointABI exposes the endpoint interface for log decoding.
func EndpointABI() abi.ABI {
	return mustABI(abiEndpoint)
}
