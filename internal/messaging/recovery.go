// Package messaging re-drives composed and received messages that the executor did not deliver.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/orderly-network/order-token-ops/configs"
	"github.com/orderly-network/order-token-ops/internal/chain"
	"github.com/orderly-network/order-token-ops/internal/contracts"
	"github.com/orderly-network/order-token-ops/internal/logger"
)

var ErrNoRecoverableMessages = errors.New("no recoverable messages")

var (
	composeSentTopic    = contracts.EndpointABI().Events["ComposeSent"].ID
	lzComposeAlertTopic = contracts.EndpointABI().Events["LzComposeAlert"].ID
	lzReceiveAlertTopic = contracts.EndpointABI().Events["LzReceiveAlert"].ID

	// deliveredHash marks a compose queue slot whose message was already executed.
	deliveredHash = common.BytesToHash([]byte{1})
)

type (
	Endpoint interface {
		Address() common.Address
		ComposeQueue(opts *bind.CallOpts, from, to common.Address, guid [32]byte, index uint16) ([32]byte, error)
		LzCompose(opts *bind.TransactOpts, from, to common.Address, guid [32]byte, index uint16, message, extraData []byte) (*types.Transaction, error)
		LzReceive(opts *bind.TransactOpts, origin contracts.Origin, receiver common.Address, guid [32]byte, message, extraData []byte) (*types.Transaction, error)
		ParseComposeSent(log types.Log) (*contracts.ComposeSent, error)
		ParseLzComposeAlert(log types.Log) (*contracts.LzComposeAlert, error)
		ParseLzReceiveAlert(log types.Log) (*contracts.LzReceiveAlert, error)
	}

	ReceiptSource interface {
		Receipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	}

	Recoverer struct {
		endpoint   Endpoint
		receipts   ReceiptSource
		transactor chain.Transactor
		gasLimit   uint64
		logger     *slog.Logger
	}

	// Delivery reports one message found in the source transaction.
	Delivery struct {
		Guid     string      `json:"guid" yaml:"guid"`
		From     string      `json:"from,omitempty" yaml:"from,omitempty"`
		To       string      `json:"to" yaml:"to"`
		Index    uint16      `json:"index" yaml:"index"`
		Skipped  string      `json:"skipped,omitempty" yaml:"skipped,omitempty"`
		TxHash   common.Hash `json:"tx-hash,omitempty" yaml:"tx-hash,omitempty"`
		GasLimit uint64      `json:"gas-limit,omitempty" yaml:"gas-limit,omitempty"`
	}
)

func NewRecoverer(endpoint Endpoint, receipts ReceiptSource, transactor chain.Transactor, recovery configs.Recovery) *Recoverer {
	return &Recoverer{
		endpoint:   endpoint,
		receipts:   receipts,
		transactor: transactor,
		gasLimit:   recovery.GasLimit,
		logger:     logger.Named("messaging"),
	}
}

// ExecuteComposed delivers every ComposeSent message of txHash that is still queued on the endpoint.
func (r *Recoverer) ExecuteComposed(ctx context.Context, txHash common.Hash) ([]Delivery, error) {
	logs, err := r.endpointLogs(ctx, txHash, composeSentTopic)
	if err != nil {
		return nil, err
	}

	var (
		deliveries []Delivery
		pending    []*types.Transaction
	)
	for _, log := range logs {
		event, err := r.endpoint.ParseComposeSent(log)
		if err != nil {
			return deliveries, fmt.Errorf("failed to parse ComposeSent log %d: %w", log.Index, err)
		}
		delivery := Delivery{
			Guid:  hexutil.Encode(event.Guid[:]),
			From:  event.From.Hex(),
			To:    event.To.Hex(),
			Index: event.Index,
		}

		queued, err := r.endpoint.ComposeQueue(r.transactor.CallOpts(ctx), event.From, event.To, event.Guid, event.Index)
		if err != nil {
			return deliveries, fmt.Errorf("failed to read compose queue: %w", err)
		}
		switch common.Hash(queued) {
		case common.Hash{}:
			delivery.Skipped = "not queued"
		case deliveredHash:
			delivery.Skipped = "already delivered"
		}
		if delivery.Skipped != "" {
			r.logger.With("guid", delivery.Guid).With("index", event.Index).Info("compose message " + delivery.Skipped)
			deliveries = append(deliveries, delivery)
			continue
		}

		opts, err := r.transactor.TransactOpts(ctx)
		if err != nil {
			return deliveries, err
		}
		opts.GasLimit = r.gasLimit
		tx, err := r.endpoint.LzCompose(opts, event.From, event.To, event.Guid, event.Index, event.Message, []byte{})
		if err != nil {
			return deliveries, fmt.Errorf("failed to execute compose message %s: %w", delivery.Guid, err)
		}
		delivery.TxHash = tx.Hash()
		delivery.GasLimit = opts.GasLimit
		deliveries = append(deliveries, delivery)
		pending = append(pending, tx)

		r.logger.
			With("guid", delivery.Guid).
			With("to", delivery.To).
			With("tx_hash", tx.Hash().Hex()).
			Info("compose message submitted")
	}

	return deliveries, chain.WaitAll(ctx, r.transactor, pending)
}

// RetryComposed re-submits every compose message whose delivery raised LzComposeAlert in txHash.
func (r *Recoverer) RetryComposed(ctx context.Context, txHash common.Hash) ([]Delivery, error) {
	logs, err := r.endpointLogs(ctx, txHash, lzComposeAlertTopic)
	if err != nil {
		return nil, err
	}

	var (
		deliveries []Delivery
		pending    []*types.Transaction
	)
	for _, log := range logs {
		alert, err := r.endpoint.ParseLzComposeAlert(log)
		if err != nil {
			return deliveries, fmt.Errorf("failed to parse LzComposeAlert log %d: %w", log.Index, err)
		}

		opts, err := r.transactor.TransactOpts(ctx)
		if err != nil {
			return deliveries, err
		}
		opts.GasLimit = r.alertGas(alert.Gas)
		opts.Value = alert.Value
		tx, err := r.endpoint.LzCompose(opts, alert.From, alert.To, alert.Guid, alert.Index, alert.Message, alert.ExtraData)
		if err != nil {
			return deliveries, fmt.Errorf("failed to retry compose message %s: %w", hexutil.Encode(alert.Guid[:]), err)
		}
		deliveries = append(deliveries, Delivery{
			Guid:     hexutil.Encode(alert.Guid[:]),
			From:     alert.From.Hex(),
			To:       alert.To.Hex(),
			Index:    alert.Index,
			TxHash:   tx.Hash(),
			GasLimit: opts.GasLimit,
		})
		pending = append(pending, tx)

		r.logger.
			With("guid", hexutil.Encode(alert.Guid[:])).
			With("reason", hexutil.Encode(alert.Reason)).
			With("gas_limit", opts.GasLimit).
			With("tx_hash", tx.Hash().Hex()).
			Info("compose message retried")
	}

	return deliveries, chain.WaitAll(ctx, r.transactor, pending)
}

// ReplayReceive re-submits every inbound packet whose lzReceive raised LzReceiveAlert in txHash.
func (r *Recoverer) ReplayReceive(ctx context.Context, txHash common.Hash) ([]Delivery, error) {
	logs, err := r.endpointLogs(ctx, txHash, lzReceiveAlertTopic)
	if err != nil {
		return nil, err
	}

	var (
		deliveries []Delivery
		pending    []*types.Transaction
	)
	for _, log := range logs {
		alert, err := r.endpoint.ParseLzReceiveAlert(log)
		if err != nil {
			return deliveries, fmt.Errorf("failed to parse LzReceiveAlert log %d: %w", log.Index, err)
		}

		opts, err := r.transactor.TransactOpts(ctx)
		if err != nil {
			return deliveries, err
		}
		opts.GasLimit = r.alertGas(alert.Gas)
		opts.Value = alert.Value
		tx, err := r.endpoint.LzReceive(opts, alert.Origin, alert.Receiver, alert.Guid, alert.Message, alert.ExtraData)
		if err != nil {
			return deliveries, fmt.Errorf("failed to replay receive %s: %w", hexutil.Encode(alert.Guid[:]), err)
		}
		deliveries = append(deliveries, Delivery{
			Guid:     hexutil.Encode(alert.Guid[:]),
			To:       alert.Receiver.Hex(),
			TxHash:   tx.Hash(),
			GasLimit: opts.GasLimit,
		})
		pending = append(pending, tx)

		r.logger.
			With("guid", hexutil.Encode(alert.Guid[:])).
			With("src_eid", alert.Origin.SrcEid).
			With("nonce", alert.Origin.Nonce).
			With("tx_hash", tx.Hash().Hex()).
			Info("receive replayed")
	}

	return deliveries, chain.WaitAll(ctx, r.transactor, pending)
}

// endpointLogs returns the logs of txHash emitted by the endpoint for one event.
func (r *Recoverer) endpointLogs(ctx context.Context, txHash common.Hash, topic common.Hash) ([]types.Log, error) {
	receipt, err := r.receipts.Receipt(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch receipt %s: %w", txHash.Hex(), err)
	}

	var out []types.Log
	for _, log := range receipt.Logs {
		if log.Address != r.endpoint.Address() || len(log.Topics) == 0 || log.Topics[0] != topic {
			continue
		}
		out = append(out, *log)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoRecoverableMessages, txHash.Hex())
	}
	return out, nil
}

func (r *Recoverer) alertGas(gas *big.Int) uint64 {
	if gas == nil || !gas.IsUint64() {
		return r.gasLimit
	}
	return max(gas.Uint64(), r.gasLimit)
}
