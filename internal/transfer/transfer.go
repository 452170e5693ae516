package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/orderly-network/order-token-ops/configs"
	"github.com/orderly-network/order-token-ops/internal/chain"
	"github.com/orderly-network/order-token-ops/internal/contracts"
	"github.com/orderly-network/order-token-ops/internal/ledger"
	"github.com/orderly-network/order-token-ops/internal/logger"
	"github.com/orderly-network/order-token-ops/internal/network"
	"github.com/orderly-network/order-token-ops/internal/options"
	"github.com/orderly-network/order-token-ops/internal/roles"
)

var (
	ErrSameNetwork   = errors.New("source and destination network are the same")
	ErrInvalidAmount = errors.New("invalid amount")

	stakeArguments = abi.Arguments{
		{Name: "staker", Type: mustType("address")},
		{Name: "amount", Type: mustType("uint256")},
	}
)

type (
	OApp interface {
		Address() common.Address
		QuoteSend(opts *bind.CallOpts, param contracts.SendParam, payInLzToken bool) (contracts.MessagingFee, error)
		Send(opts *bind.TransactOpts, param contracts.SendParam, fee contracts.MessagingFee, refund common.Address) (*types.Transaction, error)
		ApprovalRequired(opts *bind.CallOpts) (bool, error)
	}

	Token interface {
		Address() common.Address
		Decimals(opts *bind.CallOpts) (uint8, error)
		Allowance(opts *bind.CallOpts, owner, spender common.Address) (*big.Int, error)
		Approve(opts *bind.TransactOpts, spender common.Address, value *big.Int) (*types.Transaction, error)
		Transfer(opts *bind.TransactOpts, to common.Address, value *big.Int) (*types.Transaction, error)
	}

	Bindings struct {
		OApp  func(common.Address) OApp
		Token func(common.Address) Token
	}

	Options struct {
		LzReceiveGas uint64
		ComposeGas   uint64
		SendGasLimit uint64
		HubNetworks  []string
	}

	// Service moves tokens out of the network its transactor is bound to.
	Service struct {
		registry   *network.Registry
		resolver   *roles.Resolver
		store      ledger.AddressBook
		bindings   Bindings
		transactor chain.Transactor
		opts       Options
		logger     *slog.Logger
	}

	Request struct {
		Env      configs.Env
		From     string
		To       string
		Receiver common.Address
		Amount   string
		// ExtraOptions and ComposeMsg override the defaults when non-nil.
		ExtraOptions []byte
		ComposeMsg   []byte
	}

	Quote struct {
		From     string                 `json:"from" yaml:"from"`
		To       string                 `json:"to" yaml:"to"`
		OApp     common.Address         `json:"oapp" yaml:"oapp"`
		Token    common.Address         `json:"token" yaml:"token"`
		Decimals uint8                  `json:"decimals" yaml:"decimals"`
		Param    contracts.SendParam    `json:"-" yaml:"-"`
		Fee      contracts.MessagingFee `json:"-" yaml:"-"`
		// NativeFee and AmountLD mirror Fee and Param for rendering.
		NativeFee string `json:"native-fee" yaml:"native-fee"`
		AmountLD  string `json:"amount-ld" yaml:"amount-ld"`
	}

	Receipt struct {
		Quote    Quote        `json:"quote" yaml:"quote"`
		Approval *common.Hash `json:"approval,omitempty" yaml:"approval,omitempty"`
		TxHash   common.Hash  `json:"tx-hash" yaml:"tx-hash"`
	}
)

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

// BindingsFrom adapts the generated contract wrappers.
func BindingsFrom(binder *contracts.Binder) Bindings {
	return Bindings{
		OApp:  func(addr common.Address) OApp { return binder.OApp(addr) },
		Token: func(addr common.Address) Token { return binder.ERC20(addr) },
	}
}

func NewService(
	registry *network.Registry,
	store ledger.AddressBook,
	bindings Bindings,
	transactor chain.Transactor,
	opts Options,
) *Service {
	return &Service{
		registry:   registry,
		resolver:   roles.NewResolver(registry),
		store:      store,
		bindings:   bindings,
		transactor: transactor,
		opts:       opts,
		logger:     logger.Named("transfer"),
	}
}

// Quote builds the send parameters for req and asks the local OApp for the messaging fee.
func (s *Service) Quote(ctx context.Context, req Request) (Quote, error) {
	from, err := s.registry.Lookup(req.From)
	if err != nil {
		return Quote{}, err
	}
	to, err := s.registry.Lookup(req.To)
	if err != nil {
		return Quote{}, err
	}
	if from.Name == to.Name {
		return Quote{}, fmt.Errorf("%w: %s", ErrSameNetwork, from.Name)
	}
	if from.Class != to.Class {
		return Quote{}, fmt.Errorf("%w: %s and %s are in different classes", network.ErrUnsupportedNetwork, from.Name, to.Name)
	}

	oappAddr, err := s.load(req.Env, from.Name, s.resolver.TransferContractRole(from.Name))
	if err != nil {
		return Quote{}, err
	}
	tokenAddr, err := s.load(req.Env, from.Name, s.resolver.TokenContractRole(from.Name))
	if err != nil {
		return Quote{}, err
	}

	callOpts := s.transactor.CallOpts(ctx)
	decimals, err := s.bindings.Token(tokenAddr).Decimals(callOpts)
	if err != nil {
		return Quote{}, fmt.Errorf("failed to query decimals: %w", err)
	}
	amount, err := ParseUnits(req.Amount, decimals)
	if err != nil {
		return Quote{}, err
	}

	extraOptions := req.ExtraOptions
	if extraOptions == nil {
		extraOptions = []byte{}
		if s.opts.LzReceiveGas > 0 {
			extraOptions = options.New().AddExecutorLzReceiveOption(s.opts.LzReceiveGas, nil).Bytes()
		}
	}
	composeMsg := req.ComposeMsg
	if composeMsg == nil {
		composeMsg = []byte{}
	}

	param := contracts.SendParam{
		DstEid:       to.EndpointID,
		To:           network.PeerAddress(req.Receiver),
		AmountLD:     amount,
		MinAmountLD:  new(big.Int).Set(amount),
		ExtraOptions: extraOptions,
		ComposeMsg:   composeMsg,
		OftCmd:       []byte{},
	}
	fee, err := s.bindings.OApp(oappAddr).QuoteSend(callOpts, param, false)
	if err != nil {
		return Quote{}, fmt.Errorf("failed to quote send: %w", err)
	}

	s.logger.
		With("from", from.Name).
		With("to", to.Name).
		With("amount", amount).
		With("native_fee", fee.NativeFee).
		With("extra_options", hexutil.Encode(extraOptions)).
		Info("send quoted")

	return Quote{
		From:      from.Name,
		To:        to.Name,
		OApp:      oappAddr,
		Token:     tokenAddr,
		Decimals:  decimals,
		Param:     param,
		Fee:       fee,
		NativeFee: fee.NativeFee.String(),
		AmountLD:  amount.String(),
	}, nil
}

// Send quotes, approves the OApp when it pulls tokens and the allowance is short, and submits the bridge transfer.
func (s *Service) Send(ctx context.Context, req Request) (Receipt, error) {
	quote, err := s.Quote(ctx, req)
	if err != nil {
		return Receipt{}, err
	}
	receipt := Receipt{Quote: quote}
	oapp := s.bindings.OApp(quote.OApp)
	callOpts := s.transactor.CallOpts(ctx)

	var pending []*types.Transaction
	approvalRequired, err := oapp.ApprovalRequired(callOpts)
	if err != nil {
		return receipt, fmt.Errorf("failed to query approval requirement: %w", err)
	}
	if approvalRequired {
		token := s.bindings.Token(quote.Token)
		allowance, err := token.Allowance(callOpts, s.transactor.From(), quote.OApp)
		if err != nil {
			return receipt, fmt.Errorf("failed to query allowance: %w", err)
		}
		if allowance.Cmp(quote.Param.AmountLD) < 0 {
			opts, err := s.transactor.TransactOpts(ctx)
			if err != nil {
				return receipt, err
			}
			tx, err := token.Approve(opts, quote.OApp, quote.Param.AmountLD)
			if err != nil {
				return receipt, fmt.Errorf("failed to approve: %w", err)
			}
			hash := tx.Hash()
			receipt.Approval = &hash
			pending = append(pending, tx)
			s.logger.With("spender", quote.OApp.Hex()).With("tx_hash", hash.Hex()).Info("approval submitted")
		}
	}

	opts, err := s.transactor.TransactOpts(ctx)
	if err != nil {
		return receipt, err
	}
	opts.Value = new(big.Int).Set(quote.Fee.NativeFee)
	opts.GasLimit = s.opts.SendGasLimit
	fee := contracts.MessagingFee{NativeFee: quote.Fee.NativeFee, LzTokenFee: big.NewInt(0)}
	tx, err := oapp.Send(opts, quote.Param, fee, s.transactor.From())
	if err != nil {
		return receipt, fmt.Errorf("failed to send: %w", err)
	}
	pending = append(pending, tx)
	receipt.TxHash = tx.Hash()

	if err := chain.WaitAll(ctx, s.transactor, pending); err != nil {
		return receipt, err
	}

	s.logger.
		With("from", quote.From).
		With("to", quote.To).
		With("tx_hash", receipt.TxHash.Hex()).
		Info("tokens sent")

	return receipt, nil
}

// Transfer is a plain token transfer on one network.
func (s *Service) Transfer(ctx context.Context, env configs.Env, net string, receiver common.Address, amount string) (common.Hash, error) {
	if _, err := s.registry.Lookup(net); err != nil {
		return common.Hash{}, err
	}
	tokenAddr, err := s.load(env, net, s.resolver.TokenContractRole(net))
	if err != nil {
		return common.Hash{}, err
	}
	token := s.bindings.Token(tokenAddr)

	decimals, err := token.Decimals(s.transactor.CallOpts(ctx))
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to query decimals: %w", err)
	}
	value, err := ParseUnits(amount, decimals)
	if err != nil {
		return common.Hash{}, err
	}

	opts, err := s.transactor.TransactOpts(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	tx, err := token.Transfer(opts, receiver, value)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to transfer: %w", err)
	}
	if _, err := s.transactor.Wait(ctx, tx); err != nil {
		return tx.Hash(), err
	}

	s.logger.
		With("network", net).
		With("receiver", receiver.Hex()).
		With("amount", value).
		With("tx_hash", tx.Hash().Hex()).
		Info("tokens transferred")

	return tx.Hash(), nil
}

// Stake bridges amount to the hub network's box relayer with a compose message crediting the signer.
func (s *Service) Stake(ctx context.Context, env configs.Env, net, amount string) (Receipt, error) {
	from, err := s.registry.Lookup(net)
	if err != nil {
		return Receipt{}, err
	}
	hub, err := s.registry.Hub(from.Class, s.opts.HubNetworks)
	if err != nil {
		return Receipt{}, err
	}
	if hub.Name == from.Name {
		return Receipt{}, fmt.Errorf("%w: cannot stake from the hub network %s", ErrSameNetwork, hub.Name)
	}
	relayer, err := s.load(env, hub.Name, roles.OrderBoxRelayer)
	if err != nil {
		return Receipt{}, err
	}

	// the compose payload carries the scaled amount
	tokenAddr, err := s.load(env, from.Name, s.resolver.TokenContractRole(from.Name))
	if err != nil {
		return Receipt{}, err
	}
	decimals, err := s.bindings.Token(tokenAddr).Decimals(s.transactor.CallOpts(ctx))
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to query decimals: %w", err)
	}
	value, err := ParseUnits(amount, decimals)
	if err != nil {
		return Receipt{}, err
	}

	composeMsg, err := EncodeStakeMsg(s.transactor.From(), value)
	if err != nil {
		return Receipt{}, err
	}
	extraOptions := options.New().
		AddExecutorLzReceiveOption(s.opts.LzReceiveGas, nil).
		AddExecutorComposeOption(0, s.opts.ComposeGas, nil).
		Bytes()

	return s.Send(ctx, Request{
		Env:          env,
		From:         from.Name,
		To:           hub.Name,
		Receiver:     relayer,
		Amount:       amount,
		ExtraOptions: extraOptions,
		ComposeMsg:   composeMsg,
	})
}

// EncodeStakeMsg is the compose payload the box relayer decodes: (staker, amount).
func EncodeStakeMsg(staker common.Address, amount *big.Int) ([]byte, error) {
	encoded, err := stakeArguments.Pack(staker, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to encode stake message: %w", err)
	}
	return encoded, nil
}

func (s *Service) load(env configs.Env, net string, role roles.Role) (common.Address, error) {
	addr, err := s.store.LoadAddress(string(env), net, role)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to load %s on %s: %w", role, net, err)
	}
	return addr, nil
}
