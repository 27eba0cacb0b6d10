package token

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/kaifufi/settlement-exchange-go/chain"
	"github.com/kaifufi/settlement-exchange-go/store"
)

// ERC20Proxy moves ERC20 balances for authorized callers. Owners grant it
// an allowance under its own address, the same way they would approve the
// proxy contract on chain.
type ERC20Proxy struct {
	address common.Address

	mu         sync.RWMutex
	authorized map[common.Address]bool
}

// NewERC20Proxy creates a proxy living at address
func NewERC20Proxy(address common.Address) *ERC20Proxy {
	return &ERC20Proxy{
		address:    address,
		authorized: make(map[common.Address]bool),
	}
}

// Address is the spender owners approve
func (p *ERC20Proxy) Address() common.Address {
	return p.address
}

// ProxyID returns the asset proxy id this proxy serves
func (p *ERC20Proxy) ProxyID() chain.AssetProxyID {
	return chain.ERC20ProxyID
}

// AddAuthorizedAddress allows caller to request transfers
func (p *ERC20Proxy) AddAuthorizedAddress(caller common.Address) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.authorized[caller] = true
}

// RemoveAuthorizedAddress revokes a caller
func (p *ERC20Proxy) RemoveAuthorizedAddress(caller common.Address) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.authorized, caller)
}

// IsAuthorized reports whether caller may request transfers
func (p *ERC20Proxy) IsAuthorized(caller common.Address) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.authorized[caller]
}

// TransferFrom moves amount of the token named by assetData from one owner
// to another inside txn, spending the owner's allowance to the proxy.
func (p *ERC20Proxy) TransferFrom(txn store.Txn, caller common.Address, assetData []byte, from, to common.Address, amount *big.Int) error {
	if !p.IsAuthorized(caller) {
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller.Hex())
	}
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	token, err := chain.DecodeERC20AssetData(assetData)
	if err != nil {
		return err
	}
	if err := spendAllowance(txn, token, from, p.address, amount); err != nil {
		return err
	}
	return transfer(txn, token, from, to, amount)
}
