// Package token keeps ERC20-style balances and allowances in the exchange
// store and moves them on behalf of the exchange through ERC20Proxy.
package token

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/kaifufi/settlement-exchange-go/store"
)

// Token errors
var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrUnauthorized          = errors.New("caller is not authorized")
	ErrNegativeAmount        = errors.New("amount must not be negative")
)

// MaxAllowance is treated as an unlimited approval
var MaxAllowance = new(big.Int).Set(math.MaxBig256)

const (
	balancePrefix   = "erc20/balance/"
	allowancePrefix = "erc20/allowance/"
)

func balanceKey(token, owner common.Address) []byte {
	return []byte(balancePrefix + token.Hex() + "/" + owner.Hex())
}

func allowanceKey(token, owner, spender common.Address) []byte {
	return []byte(allowancePrefix + token.Hex() + "/" + owner.Hex() + "/" + spender.Hex())
}

// Ledger holds token balances in a store
type Ledger struct {
	store store.Store
}

// NewLedger returns a ledger over the given store
func NewLedger(s store.Store) *Ledger {
	return &Ledger{store: s}
}

// Mint credits amount of token to owner
func (l *Ledger) Mint(token, owner common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	return l.store.Update(func(txn store.Txn) error {
		balance, err := GetBalance(txn, token, owner)
		if err != nil {
			return err
		}
		return setAmount(txn, balanceKey(token, owner), balance.Add(balance, amount))
	})
}

// Approve sets the amount spender may move out of owner's balance
func (l *Ledger) Approve(token, owner, spender common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	return l.store.Update(func(txn store.Txn) error {
		return setAmount(txn, allowanceKey(token, owner, spender), amount)
	})
}

// BalanceOf returns the balance of owner
func (l *Ledger) BalanceOf(token, owner common.Address) (*big.Int, error) {
	var balance *big.Int
	err := l.store.View(func(txn store.Txn) error {
		var err error
		balance, err = GetBalance(txn, token, owner)
		return err
	})
	return balance, err
}

// Allowance returns how much spender may move out of owner's balance
func (l *Ledger) Allowance(token, owner, spender common.Address) (*big.Int, error) {
	var allowance *big.Int
	err := l.store.View(func(txn store.Txn) error {
		var err error
		allowance, err = getAmount(txn, allowanceKey(token, owner, spender))
		return err
	})
	return allowance, err
}

// Balances returns a consistent snapshot of every owner's balance of every
// token, indexed by token then owner.
func (l *Ledger) Balances(tokens, owners []common.Address) (map[common.Address]map[common.Address]*big.Int, error) {
	out := make(map[common.Address]map[common.Address]*big.Int, len(tokens))
	err := l.store.View(func(txn store.Txn) error {
		for _, token := range tokens {
			byOwner := make(map[common.Address]*big.Int, len(owners))
			for _, owner := range owners {
				balance, err := GetBalance(txn, token, owner)
				if err != nil {
					return err
				}
				byOwner[owner] = balance
			}
			out[token] = byOwner
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetBalance reads a balance inside an open transaction
func GetBalance(txn store.Txn, token, owner common.Address) (*big.Int, error) {
	return getAmount(txn, balanceKey(token, owner))
}

// transfer moves amount from one balance to another inside txn
func transfer(txn store.Txn, token, from, to common.Address, amount *big.Int) error {
	fromBalance, err := GetBalance(txn, token, from)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s of %s, needs %s",
			ErrInsufficientBalance, from.Hex(), fromBalance, token.Hex(), amount)
	}
	if err := setAmount(txn, balanceKey(token, from), fromBalance.Sub(fromBalance, amount)); err != nil {
		return err
	}
	toBalance, err := GetBalance(txn, token, to)
	if err != nil {
		return err
	}
	return setAmount(txn, balanceKey(token, to), toBalance.Add(toBalance, amount))
}

// spendAllowance deducts amount from a finite allowance
func spendAllowance(txn store.Txn, token, owner, spender common.Address, amount *big.Int) error {
	key := allowanceKey(token, owner, spender)
	allowance, err := getAmount(txn, key)
	if err != nil {
		return err
	}
	if allowance.Cmp(MaxAllowance) == 0 {
		return nil
	}
	if allowance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s allows %s of %s, needs %s",
			ErrInsufficientAllowance, owner.Hex(), allowance, token.Hex(), amount)
	}
	return setAmount(txn, key, allowance.Sub(allowance, amount))
}

func getAmount(txn store.Txn, key []byte) (*big.Int, error) {
	v, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return new(big.Int), nil
		}
		return nil, err
	}
	return new(big.Int).SetBytes(v), nil
}

func setAmount(txn store.Txn, key []byte, amount *big.Int) error {
	if amount.Sign() == 0 {
		return txn.Delete(key)
	}
	return txn.Set(key, amount.Bytes())
}
