package settlement

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kaifufi/settlement-exchange-go/chain"
	"github.com/kaifufi/settlement-exchange-go/internal/metrics"
	"github.com/kaifufi/settlement-exchange-go/store"
)

// AssetProxy moves one kind of asset on behalf of the exchange. Transfers
// run inside the exchange's store transaction.
type AssetProxy interface {
	ProxyID() chain.AssetProxyID
	TransferFrom(txn store.Txn, caller common.Address, assetData []byte, from, to common.Address, amount *big.Int) error
}

// SignatureValidator decides Validator-type signatures. It is called with
// the exchange locked and must not call back into the exchange except for
// CurrentContextAddress.
type SignatureValidator interface {
	IsValidSignature(hash common.Hash, signer common.Address, signature []byte) bool
}

// Wallet decides Wallet-type signatures for its own address
type Wallet interface {
	IsValidSignature(hash common.Hash, signature []byte) bool
}

// Exchange settles signed orders. All public operations are serialised and
// each one commits atomically to the store.
type Exchange struct {
	address      common.Address
	domain       *chain.EIP712Domain
	feeAssetData []byte
	store        store.Store
	logger       *zap.Logger
	metrics      *metrics.Metrics
	clock        func() time.Time

	mu           sync.Mutex
	assetProxies map[chain.AssetProxyID]AssetProxy
	validators   map[common.Address]SignatureValidator
	wallets      map[common.Address]Wallet

	contextMu      sync.RWMutex
	currentContext common.Address
}

// callContext carries who submitted a call and on whose behalf it runs.
// Outside a transaction both are the caller.
type callContext struct {
	id      string
	sender  common.Address
	context common.Address
}

// NewExchange creates an exchange from cfg
func NewExchange(cfg *Config) (*Exchange, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	return &Exchange{
		address:      cfg.Address,
		domain:       chain.NewEIP712Domain(cfg.ChainID.BigInt(), cfg.Address),
		feeAssetData: common.CopyBytes(cfg.FeeAssetData),
		store:        cfg.Store,
		logger:       cfg.Logger.Named("exchange"),
		metrics:      cfg.Metrics,
		clock:        cfg.Clock,
		assetProxies: make(map[chain.AssetProxyID]AssetProxy),
		validators:   make(map[common.Address]SignatureValidator),
		wallets:      make(map[common.Address]Wallet),
	}, nil
}

// Address returns the exchange's verifying contract address
func (e *Exchange) Address() common.Address {
	return e.address
}

// Domain returns a copy of the EIP712 domain orders are hashed under
func (e *Exchange) Domain() *chain.EIP712Domain {
	d := *e.domain
	d.ChainID = new(big.Int).Set(e.domain.ChainID)
	return &d
}

// Store returns the store holding the exchange's state
func (e *Exchange) Store() store.Store {
	return e.store
}

// FeeAssetData returns the asset fees are paid in
func (e *Exchange) FeeAssetData() []byte {
	return common.CopyBytes(e.feeAssetData)
}

// CurrentContextAddress returns the signer of the transaction being
// executed, or the zero address outside a transaction.
func (e *Exchange) CurrentContextAddress() common.Address {
	e.contextMu.RLock()
	defer e.contextMu.RUnlock()
	return e.currentContext
}

func (e *Exchange) setContext(addr common.Address) {
	e.contextMu.Lock()
	defer e.contextMu.Unlock()
	e.currentContext = addr
}

// RegisterAssetProxy makes proxy responsible for its asset proxy id. The
// proxy must authorize the exchange address.
func (e *Exchange) RegisterAssetProxy(proxy AssetProxy) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := proxy.ProxyID()
	if _, ok := e.assetProxies[id]; ok {
		return fmt.Errorf("%w: %s", ErrAssetProxyExists, id)
	}
	e.assetProxies[id] = proxy
	e.logger.Info("registered asset proxy", zap.Stringer("proxy_id", id))
	return nil
}

// RegisterSignatureValidator installs a validator at addr
func (e *Exchange) RegisterSignatureValidator(addr common.Address, validator SignatureValidator) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.validators[addr] = validator
}

// RegisterWallet installs a wallet at addr
func (e *Exchange) RegisterWallet(addr common.Address, wallet Wallet) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.wallets[addr] = wallet
}

// GetOrderInfo returns the order's hash, status and filled amount
func (e *Exchange) GetOrderInfo(order *chain.Order) (*OrderInfo, error) {
	var info *OrderInfo
	err := e.store.View(func(txn store.Txn) error {
		var err error
		info, err = e.orderInfo(txn, order)
		return err
	})
	return info, err
}

// FilledAmount returns how much taker asset of the order has been filled
func (e *Exchange) FilledAmount(orderHash common.Hash) (*big.Int, error) {
	var filled *big.Int
	err := e.store.View(func(txn store.Txn) error {
		var err error
		filled, err = getFilled(txn, orderHash)
		return err
	})
	return filled, err
}

// IsCancelled reports whether the order was cancelled individually
func (e *Exchange) IsCancelled(orderHash common.Hash) (bool, error) {
	var cancelled bool
	err := e.store.View(func(txn store.Txn) error {
		var err error
		cancelled, err = isCancelled(txn, orderHash)
		return err
	})
	return cancelled, err
}

// GetMakerEpoch returns the maker's epoch for orders without a sender
// restriction.
func (e *Exchange) GetMakerEpoch(maker common.Address) (*big.Int, error) {
	return e.GetOrderEpoch(maker, common.Address{})
}

// GetOrderEpoch returns the maker's epoch for orders restricted to sender
func (e *Exchange) GetOrderEpoch(maker, sender common.Address) (*big.Int, error) {
	var epoch *big.Int
	err := e.store.View(func(txn store.Txn) error {
		var err error
		epoch, err = getEpoch(txn, maker, sender)
		return err
	})
	return epoch, err
}

// TransactionExecuted reports whether a transaction hash has been executed
func (e *Exchange) TransactionExecuted(txHash common.Hash) (bool, error) {
	var executed bool
	err := e.store.View(func(txn store.Txn) error {
		var err error
		executed, err = isExecuted(txn, txHash)
		return err
	})
	return executed, err
}

// IsValidatorApproved reports whether signer approved validator
func (e *Exchange) IsValidatorApproved(signer, validator common.Address) (bool, error) {
	var approved bool
	err := e.store.View(func(txn store.Txn) error {
		var err error
		approved, err = isValidatorApproved(txn, signer, validator)
		return err
	})
	return approved, err
}

// orderInfo derives the order status; the first matching rule wins
func (e *Exchange) orderInfo(txn store.Txn, order *chain.Order) (*OrderInfo, error) {
	hash := chain.HashOrder(order, e.domain)
	filled, err := getFilled(txn, hash)
	if err != nil {
		return nil, err
	}
	info := &OrderInfo{
		Hash:                   hash,
		TakerAssetFilledAmount: filled,
	}

	if order.Validate() != nil {
		info.Status = OrderStatusInvalid
		return info, nil
	}
	if bigOrZero(order.MakerAssetAmount).Sign() == 0 {
		info.Status = OrderStatusInvalidMakerAssetAmount
		return info, nil
	}
	if bigOrZero(order.TakerAssetAmount).Sign() == 0 {
		info.Status = OrderStatusInvalidTakerAssetAmount
		return info, nil
	}
	if bigOrZero(order.ExpirationTimeSeconds).Cmp(big.NewInt(e.clock().Unix())) <= 0 {
		info.Status = OrderStatusExpired
		return info, nil
	}
	epoch, err := getEpoch(txn, order.MakerAddress, order.SenderAddress)
	if err != nil {
		return nil, err
	}
	if bigOrZero(order.Salt).Cmp(epoch) < 0 {
		info.Status = OrderStatusCancelled
		return info, nil
	}
	cancelled, err := isCancelled(txn, hash)
	if err != nil {
		return nil, err
	}
	if cancelled {
		info.Status = OrderStatusCancelled
		return info, nil
	}
	if filled.Cmp(order.TakerAssetAmount) >= 0 {
		info.Status = OrderStatusFullyFilled
		return info, nil
	}
	info.Status = OrderStatusFillable
	return info, nil
}

func (e *Exchange) newCall(sender common.Address) callContext {
	return callContext{
		id:      uuid.NewString(),
		sender:  sender,
		context: sender,
	}
}

// update runs fn in one store transaction and records its latency
func (e *Exchange) update(operation string, fn func(txn store.Txn) error) error {
	defer e.metrics.ObserveDuration(operation, time.Now())
	return e.store.Update(fn)
}

func (c callContext) fields() []zap.Field {
	return []zap.Field{
		zap.String("call_id", c.id),
		zap.String("sender", c.sender.Hex()),
		zap.String("context", c.context.Hex()),
	}
}
