// Package chaintest provides an in-memory chain.Transactor for tests.
package chaintest

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/orderly-network/order-token-ops/internal/chain"
)

// Transactor hands out sequenced options and records every transaction waited on.
type Transactor struct {
	mu        sync.Mutex
	from      common.Address
	sequencer *chain.Sequencer
	waited    []common.Hash
	// Revert makes Wait fail for these hashes.
	Revert map[common.Hash]bool
}

var _ chain.Transactor = (*Transactor)(nil)

func NewTransactor(from common.Address, nonce uint64) *Transactor {
	return &Transactor{
		from:      from,
		sequencer: chain.NewSequencer(nonce),
		Revert:    make(map[common.Hash]bool),
	}
}

func (t *Transactor) From() common.Address {
	return t.from
}

func (t *Transactor) CallOpts(ctx context.Context) *bind.CallOpts {
	return &bind.CallOpts{Context: ctx, From: t.from}
}

func (t *Transactor) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return &bind.TransactOpts{
		From:    t.from,
		Context: ctx,
		Nonce:   new(big.Int).SetUint64(t.sequencer.Next()),
	}, nil
}

func (t *Transactor) Wait(_ context.Context, tx *types.Transaction) (*types.Receipt, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.waited = append(t.waited, tx.Hash())
	if t.Revert[tx.Hash()] {
		return &types.Receipt{Status: types.ReceiptStatusFailed, TxHash: tx.Hash()}, chain.ErrTransactionReverted
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: tx.Hash()}, nil
}

// Issued counts nonces handed out.
func (t *Transactor) Issued() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sequencer.Issued()
}

func (t *Transactor) Waited() []common.Hash {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]common.Hash(nil), t.waited...)
}

// Tx builds a distinct transaction for the nonce carried by opts.
func Tx(opts *bind.TransactOpts, to common.Address, data []byte) *types.Transaction {
	return types.NewTx(&types.LegacyTx{
		Nonce:    opts.Nonce.Uint64(),
		To:       &to,
		Value:    opts.Value,
		Gas:      opts.GasLimit,
		GasPrice: big.NewInt(0),
		Data:     data,
	})
}
