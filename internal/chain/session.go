package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/orderly-network/order-token-ops/internal/logger"
)

var (
	ErrChainIDMismatch     = errors.New("chain id mismatch")
	ErrTransactionReverted = errors.New("transaction reverted")
)

type (
	// Transactor is the signing surface the operations need: read options, sequenced write options and receipts.
	Transactor interface {
		From() common.Address
		CallOpts(ctx context.Context) *bind.CallOpts
		TransactOpts(ctx context.Context) (*bind.TransactOpts, error)
		Wait(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
	}

	// Backend is what bound contracts and deployments talk to.
	Backend interface {
		bind.ContractBackend
		bind.DeployBackend
	}

	// Session binds one signer to one network for the duration of a task.
	Session struct {
		network    string
		client     *ethclient.Client
		privateKey *ecdsa.PrivateKey
		from       common.Address
		chainID    *big.Int
		sequencer  *Sequencer
		logger     *slog.Logger
	}
)

// Dial connects to rpcURL, checks the node serves expectedChainID and fetches the pending nonce once.
func Dial(ctx context.Context, network, rpcURL string, expectedChainID uint64, privateKey *ecdsa.PrivateKey) (*Session, error) {
	log := logger.Named("chain_session").With("network", network)

	log.With("url", rpcURL).Debug("dialing RPC")
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", network, err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}
	if chainID.Uint64() != expectedChainID {
		client.Close()
		return nil, fmt.Errorf("%w: %s serves %s, expected %d", ErrChainIDMismatch, network, chainID, expectedChainID)
	}

	from, err := AddressOf(privateKey)
	if err != nil {
		client.Close()
		return nil, err
	}

	nonce, err := client.PendingNonceAt(ctx, from)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to get pending nonce: %w", err)
	}

	log.
		With("chain_id", chainID).
		With("from", from.Hex()).
		With("nonce", nonce).
		Info("session opened")

	return &Session{
		network:    network,
		client:     client,
		privateKey: privateKey,
		from:       from,
		chainID:    chainID,
		sequencer:  NewSequencer(nonce),
		logger:     log,
	}, nil
}

func (s *Session) Close() {
	s.client.Close()
}

func (s *Session) Network() string {
	return s.network
}

func (s *Session) Backend() Backend {
	return s.client
}

func (s *Session) Client() *ethclient.Client {
	return s.client
}

func (s *Session) From() common.Address {
	return s.from
}

func (s *Session) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}

func (s *Session) Sequencer() *Sequencer {
	return s.sequencer
}

func (s *Session) CallOpts(ctx context.Context) *bind.CallOpts {
	return &bind.CallOpts{Context: ctx, From: s.from}
}

// TransactOpts returns signing options carrying the next sequenced nonce.
func (s *Session) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(s.privateKey, s.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	opts.Context = ctx
	opts.Nonce = new(big.Int).SetUint64(s.sequencer.Next())
	return opts, nil
}

// Wait blocks until tx is mined and fails if it reverted.
func (s *Session) Wait(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, s.client, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to wait for transaction %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s in block %s", ErrTransactionReverted, tx.Hash().Hex(), receipt.BlockNumber)
	}

	s.logger.
		With("tx_hash", tx.Hash().Hex()).
		With("block_number", receipt.BlockNumber).
		With("gas_used", receipt.GasUsed).
		Debug("transaction mined")

	return receipt, nil
}

// Receipt fetches a receipt by hash.
func (s *Session) Receipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	receipt, err := s.client.TransactionReceipt(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt for %s: %w", hash.Hex(), err)
	}
	return receipt, nil
}

// WaitAll waits for every transaction in order.
func WaitAll(ctx context.Context, t Transactor, txs []*types.Transaction) error {
	for _, tx := range txs {
		if _, err := t.Wait(ctx, tx); err != nil {
			return err
		}
	}
	return nil
}
