package chain

import (
	"crypto/ecdsa"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Builder errors
var (
	ErrMissingAmount    = errors.New("asset amount is required")
	ErrMissingAsset     = errors.New("asset data is required")
	ErrMissingSignerKey = errors.New("signer key is required")
)

// DefaultOrderTTL is used when OrderData carries no expiration
const DefaultOrderTTL = 24 * time.Hour

// saltLimit bounds generated salts to 2^128
var saltLimit = new(big.Int).Lsh(big.NewInt(1), 128)

// OrderData holds the inputs for building an order. Zero addresses leave
// the taker or sender unrestricted.
type OrderData struct {
	TakerAddress        common.Address
	FeeRecipientAddress common.Address
	SenderAddress       common.Address
	MakerAssetAmount    *big.Int
	TakerAssetAmount    *big.Int
	MakerFee            *big.Int
	TakerFee            *big.Int
	MakerAssetData      []byte
	TakerAssetData      []byte
	// Expiration overrides DefaultOrderTTL when non-zero
	Expiration time.Time
	// Salt is generated when nil
	Salt *big.Int
}

// OrderBuilder builds and signs orders and transactions for one signer
type OrderBuilder struct {
	domain *EIP712Domain
	signer *ecdsa.PrivateKey
	now    func() time.Time
}

// NewOrderBuilder creates a new OrderBuilder signing under the given domain
func NewOrderBuilder(domain *EIP712Domain, signer *ecdsa.PrivateKey) (*OrderBuilder, error) {
	if signer == nil {
		return nil, ErrMissingSignerKey
	}
	return &OrderBuilder{
		domain: domain,
		signer: signer,
		now:    time.Now,
	}, nil
}

// WithClock replaces the clock used for default expirations
func (ob *OrderBuilder) WithClock(now func() time.Time) *OrderBuilder {
	ob.now = now
	return ob
}

// Address returns the signer address
func (ob *OrderBuilder) Address() common.Address {
	return crypto.PubkeyToAddress(ob.signer.PublicKey)
}

// BuildOrder builds an order from OrderData with the signer as maker
func (ob *OrderBuilder) BuildOrder(data *OrderData) (*Order, error) {
	if err := ob.validateInputs(data); err != nil {
		return nil, err
	}

	salt := data.Salt
	if salt == nil {
		var err error
		if salt, err = GenerateSalt(); err != nil {
			return nil, err
		}
	}

	expiration := data.Expiration
	if expiration.IsZero() {
		expiration = ob.now().Add(DefaultOrderTTL)
	}

	order := &Order{
		MakerAddress:          ob.Address(),
		TakerAddress:          data.TakerAddress,
		FeeRecipientAddress:   data.FeeRecipientAddress,
		SenderAddress:         data.SenderAddress,
		MakerAssetAmount:      new(big.Int).Set(data.MakerAssetAmount),
		TakerAssetAmount:      new(big.Int).Set(data.TakerAssetAmount),
		MakerFee:              new(big.Int).Set(bigOrZero(data.MakerFee)),
		TakerFee:              new(big.Int).Set(bigOrZero(data.TakerFee)),
		ExpirationTimeSeconds: big.NewInt(expiration.Unix()),
		Salt:                  new(big.Int).Set(salt),
		MakerAssetData:        common.CopyBytes(data.MakerAssetData),
		TakerAssetData:        common.CopyBytes(data.TakerAssetData),
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}
	return order, nil
}

// BuildSignedOrder builds and signs an order
func (ob *OrderBuilder) BuildSignedOrder(data *OrderData, sigType SignatureType) (*SignedOrder, error) {
	order, err := ob.BuildOrder(data)
	if err != nil {
		return nil, err
	}

	signature, err := ob.SignOrder(order, sigType)
	if err != nil {
		return nil, err
	}

	return &SignedOrder{
		Order:     *order,
		Signature: signature,
	}, nil
}

// SignOrder signs the EIP712 hash of an order
func (ob *OrderBuilder) SignOrder(order *Order, sigType SignatureType) ([]byte, error) {
	signature, err := SignHash(HashOrder(order, ob.domain), ob.signer, sigType)
	if err != nil {
		return nil, fmt.Errorf("failed to sign order: %w", err)
	}
	return signature, nil
}

// BuildSignedTransaction wraps calldata in a transaction signed by the
// builder's key. A zero expiration defaults to DefaultOrderTTL from now.
func (ob *OrderBuilder) BuildSignedTransaction(data []byte, expiration time.Time, sigType SignatureType) (*SignedTransaction, error) {
	salt, err := GenerateSalt()
	if err != nil {
		return nil, err
	}
	if expiration.IsZero() {
		expiration = ob.now().Add(DefaultOrderTTL)
	}

	tx := Transaction{
		Salt:                  new(big.Int).Set(salt),
		ExpirationTimeSeconds: big.NewInt(expiration.Unix()),
		SignerAddress:         ob.Address(),
		Data:                  common.CopyBytes(data),
	}
	signature, err := SignHash(HashTransaction(&tx, ob.domain), ob.signer, sigType)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return &SignedTransaction{
		Transaction: tx,
		Signature:   signature,
	}, nil
}

func (ob *OrderBuilder) validateInputs(data *OrderData) error {
	if data.MakerAssetAmount == nil || data.TakerAssetAmount == nil {
		return ErrMissingAmount
	}
	if len(data.MakerAssetData) == 0 || len(data.TakerAssetData) == 0 {
		return ErrMissingAsset
	}
	return nil
}

// GenerateSalt returns a random 128-bit salt
func GenerateSalt() (*big.Int, error) {
	salt, err := rand.Int(rand.Reader, saltLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}
