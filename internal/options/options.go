package options

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	TypeV3 uint16 = 3

	WorkerExecutor uint8 = 1

	OptionLzReceive  uint8 = 1
	OptionNativeDrop uint8 = 2
	OptionLzCompose  uint8 = 3
	OptionOrdered    uint8 = 4
)

// Message types understood by the token applications.
const (
	MsgTypeSend        uint16 = 1
	MsgTypeSendAndCall uint16 = 2
)

var ErrMalformedOptions = errors.New("malformed options")

type (
	// Builder assembles type-3 executor options.
	Builder struct {
		buf []byte
	}

	// ExecutorOption is one decoded executor entry.
	ExecutorOption struct {
		Type  uint8
		Index uint16
		Gas   *big.Int
		Value *big.Int
	}
)

func New() *Builder {
	b := &Builder{}
	b.buf = binary.BigEndian.AppendUint16(b.buf, TypeV3)
	return b
}

// AddExecutorLzReceiveOption appends a receive gas allowance. Value is only encoded when positive.
func (b *Builder) AddExecutorLzReceiveOption(gas uint64, value *big.Int) *Builder {
	params := uint128(new(big.Int).SetUint64(gas))
	if value != nil && value.Sign() > 0 {
		params = append(params, uint128(value)...)
	}
	return b.addExecutorOption(OptionLzReceive, params)
}

// AddExecutorComposeOption appends a compose gas allowance for the compose call at index.
func (b *Builder) AddExecutorComposeOption(index uint16, gas uint64, value *big.Int) *Builder {
	params := binary.BigEndian.AppendUint16(nil, index)
	params = append(params, uint128(new(big.Int).SetUint64(gas))...)
	if value != nil && value.Sign() > 0 {
		params = append(params, uint128(value)...)
	}
	return b.addExecutorOption(OptionLzCompose, params)
}

func (b *Builder) AddExecutorOrderedExecutionOption() *Builder {
	return b.addExecutorOption(OptionOrdered, nil)
}

func (b *Builder) addExecutorOption(optionType uint8, params []byte) *Builder {
	b.buf = append(b.buf, WorkerExecutor)
	b.buf = binary.BigEndian.AppendUint16(b.buf, uint16(len(params)+1))
	b.buf = append(b.buf, optionType)
	b.buf = append(b.buf, params...)
	return b
}

func (b *Builder) Bytes() []byte {
	return bytes.Clone(b.buf)
}

func (b *Builder) Hex() string {
	return hexutil.Encode(b.buf)
}

func uint128(v *big.Int) []byte {
	return common.LeftPadBytes(v.Bytes(), 16)
}

// Equal is the exact-byte comparison used to decide whether enforced options need rewriting.
// Two encodings of the same gas and value are different options.
func Equal(a, b []byte) bool {
	return bytes.Equal(a, b)
}

// Decode parses type-3 executor options.
func Decode(raw []byte) ([]ExecutorOption, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if len(raw) < 2 || binary.BigEndian.Uint16(raw) != TypeV3 {
		return nil, fmt.Errorf("%w: not a type 3 options string", ErrMalformedOptions)
	}

	var out []ExecutorOption
	rest := raw[2:]
	for len(rest) > 0 {
		if len(rest) < 4 {
			return nil, fmt.Errorf("%w: truncated option header", ErrMalformedOptions)
		}
		worker := rest[0]
		size := int(binary.BigEndian.Uint16(rest[1:3]))
		if size == 0 || len(rest) < 3+size {
			return nil, fmt.Errorf("%w: option length %d exceeds remaining %d bytes", ErrMalformedOptions, size, len(rest)-3)
		}
		body := rest[3 : 3+size]
		rest = rest[3+size:]
		if worker != WorkerExecutor {
			return nil, fmt.Errorf("%w: unsupported worker %d", ErrMalformedOptions, worker)
		}

		opt, err := decodeExecutorOption(body[0], body[1:])
		if err != nil {
			return nil, err
		}
		out = append(out, opt)
	}
	return out, nil
}

func decodeExecutorOption(optionType uint8, params []byte) (ExecutorOption, error) {
	opt := ExecutorOption{Type: optionType}
	switch optionType {
	case OptionLzReceive:
		if len(params) != 16 && len(params) != 32 {
			return opt, fmt.Errorf("%w: lzReceive params of %d bytes", ErrMalformedOptions, len(params))
		}
		opt.Gas = new(big.Int).SetBytes(params[:16])
		opt.Value = new(big.Int)
		if len(params) == 32 {
			opt.Value.SetBytes(params[16:])
		}
	case OptionLzCompose:
		if len(params) != 18 && len(params) != 34 {
			return opt, fmt.Errorf("%w: lzCompose params of %d bytes", ErrMalformedOptions, len(params))
		}
		opt.Index = binary.BigEndian.Uint16(params[:2])
		opt.Gas = new(big.Int).SetBytes(params[2:18])
		opt.Value = new(big.Int)
		if len(params) == 34 {
			opt.Value.SetBytes(params[18:])
		}
	case OptionOrdered:
		if len(params) != 0 {
			return opt, fmt.Errorf("%w: ordered option carries %d bytes", ErrMalformedOptions, len(params))
		}
	case OptionNativeDrop:
		if len(params) != 48 {
			return opt, fmt.Errorf("%w: native drop params of %d bytes", ErrMalformedOptions, len(params))
		}
		opt.Value = new(big.Int).SetBytes(params[:16])
	default:
		return opt, fmt.Errorf("%w: unknown executor option %d", ErrMalformedOptions, optionType)
	}
	return opt, nil
}

func (o ExecutorOption) String() string {
	switch o.Type {
	case OptionLzReceive:
		return fmt.Sprintf("lzReceive(gas=%s,value=%s)", o.Gas, o.Value)
	case OptionLzCompose:
		return fmt.Sprintf("lzCompose(index=%d,gas=%s,value=%s)", o.Index, o.Gas, o.Value)
	case OptionOrdered:
		return "orderedExecution"
	case OptionNativeDrop:
		return fmt.Sprintf("nativeDrop(amount=%s)", o.Value)
	default:
		return fmt.Sprintf("option(%d)", o.Type)
	}
}
