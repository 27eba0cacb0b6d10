// Package whitelist wraps order filling behind an admission list. The gate
// relays fills as meta-transactions signed on the taker's behalf, so the
// exchange sees the gate as sender and the taker as the filling party.
package whitelist

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	settlement "github.com/kaifufi/settlement-exchange-go"
	"github.com/kaifufi/settlement-exchange-go/chain"
	"github.com/kaifufi/settlement-exchange-go/store"
)

var (
	ErrMakerNotWhitelisted = errors.New("maker not whitelisted")
	ErrTakerNotWhitelisted = errors.New("taker not whitelisted")
	ErrOnlyOwner           = errors.New("only owner")
)

// DefaultTransactionTTL is how long a relayed transaction stays valid
const DefaultTransactionTTL = 5 * time.Minute

// Error names the address that failed the whitelist check
type Error struct {
	Err     error
	Address common.Address
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Address.Hex())
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Options configures a Gate
type Options struct {
	Owner   common.Address
	Address common.Address
	// Store defaults to the exchange's store
	Store  store.Store
	Logger *zap.Logger
	// TransactionTTL defaults to DefaultTransactionTTL
	TransactionTTL time.Duration
	// Clock defaults to time.Now
	Clock func() time.Time
}

// Gate only lets whitelisted makers and takers trade
type Gate struct {
	owner    common.Address
	address  common.Address
	exchange *settlement.Exchange
	store    store.Store
	logger   *zap.Logger
	ttl      time.Duration
	clock    func() time.Time

	pendingMu sync.Mutex
	// pending maps transaction hashes being relayed to their taker
	pending map[common.Hash]common.Address
}

// New creates a gate and registers it with the exchange as a signature
// validator at its address.
func New(exchange *settlement.Exchange, opts Options) *Gate {
	g := &Gate{
		owner:    opts.Owner,
		address:  opts.Address,
		exchange: exchange,
		store:    opts.Store,
		logger:   opts.Logger,
		ttl:      opts.TransactionTTL,
		clock:    opts.Clock,
		pending:  make(map[common.Hash]common.Address),
	}
	if g.store == nil {
		g.store = exchange.Store()
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	g.logger = g.logger.Named("whitelist")
	if g.ttl <= 0 {
		g.ttl = DefaultTransactionTTL
	}
	if g.clock == nil {
		g.clock = time.Now
	}
	exchange.RegisterSignatureValidator(g.address, g)
	return g
}

// Address returns the gate's address
func (g *Gate) Address() common.Address {
	return g.address
}

// Owner returns the address allowed to edit the whitelist
func (g *Gate) Owner() common.Address {
	return g.owner
}

func (g *Gate) whitelistKey(target common.Address) []byte {
	return []byte("whitelist/" + g.address.Hex() + "/" + target.Hex())
}

// UpdateWhitelistStatus adds or removes target. Only the owner may call it.
func (g *Gate) UpdateWhitelistStatus(caller, target common.Address, approved bool) error {
	if caller != g.owner {
		return fmt.Errorf("%w: %s", ErrOnlyOwner, caller.Hex())
	}
	err := g.store.Update(func(txn store.Txn) error {
		if approved {
			return txn.Set(g.whitelistKey(target), []byte{1})
		}
		return txn.Delete(g.whitelistKey(target))
	})
	if err != nil {
		return err
	}
	g.logger.Info("whitelist updated", zap.String("address", target.Hex()), zap.Bool("approved", approved))
	return nil
}

// IsWhitelisted reports whether target may trade through the gate
func (g *Gate) IsWhitelisted(target common.Address) (bool, error) {
	var ok bool
	err := g.store.View(func(txn store.Txn) error {
		_, err := txn.Get(g.whitelistKey(target))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return err
		}
		ok = true
		return nil
	})
	return ok, err
}

// FillOrderIfWhitelisted fills the order for taker when both the taker and
// the order's maker are whitelisted. salt makes the relayed transaction
// unique and is generated when nil. The taker must have approved the gate
// as a signature validator.
func (g *Gate) FillOrderIfWhitelisted(taker common.Address, order *chain.Order, takerAssetFillAmount, salt *big.Int, orderSignature []byte) (*chain.FillResults, error) {
	if err := g.requireWhitelisted(taker, ErrTakerNotWhitelisted); err != nil {
		return nil, err
	}
	if err := g.requireWhitelisted(order.MakerAddress, ErrMakerNotWhitelisted); err != nil {
		return nil, err
	}

	data, err := chain.EncodeFillOrder(order, takerAssetFillAmount, orderSignature)
	if err != nil {
		return nil, err
	}
	if salt == nil {
		if salt, err = chain.GenerateSalt(); err != nil {
			return nil, err
		}
	}
	tx := &chain.Transaction{
		Salt:                  salt,
		ExpirationTimeSeconds: big.NewInt(g.clock().Add(g.ttl).Unix()),
		SignerAddress:         taker,
		Data:                  data,
	}
	txHash := chain.HashTransaction(tx, g.exchange.Domain())

	g.setPending(txHash, taker)
	defer g.clearPending(txHash)

	out, err := g.exchange.ExecuteTransaction(g.address, tx, chain.ValidatorSignature(g.address, nil))
	if err != nil {
		return nil, err
	}
	results, err := chain.DecodeFillResults(out)
	if err != nil {
		return nil, err
	}
	g.logger.Debug("relayed fill",
		zap.String("taker", taker.Hex()),
		zap.String("tx_hash", txHash.Hex()),
		zap.Stringer("taker_filled", results.TakerAssetFilledAmount),
	)
	return results, nil
}

// IsValidSignature accepts only the transaction the gate is currently
// relaying for signer.
func (g *Gate) IsValidSignature(hash common.Hash, signer common.Address, _ []byte) bool {
	g.pendingMu.Lock()
	defer g.pendingMu.Unlock()
	taker, ok := g.pending[hash]
	return ok && taker == signer
}

func (g *Gate) requireWhitelisted(addr common.Address, notListed error) error {
	ok, err := g.IsWhitelisted(addr)
	if err != nil {
		return err
	}
	if !ok {
		return &Error{Err: notListed, Address: addr}
	}
	return nil
}

func (g *Gate) setPending(hash common.Hash, taker common.Address) {
	g.pendingMu.Lock()
	defer g.pendingMu.Unlock()
	g.pending[hash] = taker
}

func (g *Gate) clearPending(hash common.Hash) {
	g.pendingMu.Lock()
	defer g.pendingMu.Unlock()
	delete(g.pending, hash)
}
