package settlement

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/kaifufi/settlement-exchange-go/chain"
)

var (
	// ErrInvalidSender means the order restricts who may submit it
	ErrInvalidSender = errors.New("invalid sender")

	// ErrInvalidTaker means the order restricts who may fill it
	ErrInvalidTaker = errors.New("invalid taker")

	// ErrInvalidMaker means someone other than the maker tried to cancel
	ErrInvalidMaker = errors.New("invalid maker")

	// ErrOrderStatus means the order is not fillable
	ErrOrderStatus = errors.New("order is not fillable")

	// ErrBadSignature means a signature failed verification
	ErrBadSignature = errors.New("bad signature")

	// ErrInvalidTakerAmount means a fill requested zero taker asset
	ErrInvalidTakerAmount = errors.New("invalid taker asset fill amount")

	// ErrRoundingError means a partial amount lost more than 0.1% to rounding
	ErrRoundingError = errors.New("rounding error too large")

	// ErrOrderOverfill means a fill would exceed the order's taker amount
	ErrOrderOverfill = errors.New("order overfill")

	// ErrIncompleteFill means fillOrKillOrder could not fill the full amount
	ErrIncompleteFill = errors.New("incomplete fill")

	// ErrTransaction means a meta-transaction was rejected before dispatch
	ErrTransaction = errors.New("transaction rejected")

	// ErrTransactionExecution means the call inside a meta-transaction failed
	ErrTransactionExecution = errors.New("transaction execution failed")

	// ErrEpochNotIncreasing means cancelOrdersUpTo did not raise the epoch
	ErrEpochNotIncreasing = errors.New("order epoch must increase")

	// ErrReentrancy means a transaction was executed inside another one
	ErrReentrancy = errors.New("reentrancy not allowed")

	// ErrUnsupportedCall means a transaction wraps a call the exchange does
	// not dispatch
	ErrUnsupportedCall = errors.New("unsupported call")

	// ErrAssetProxyNotFound means no proxy is registered for an asset
	ErrAssetProxyNotFound = errors.New("asset proxy not found")

	// ErrAssetProxyExists means a proxy id is already registered
	ErrAssetProxyExists = errors.New("asset proxy already registered")

	// ErrUnsupportedChain means no deployment is known for the chain id
	ErrUnsupportedChain = errors.New("unsupported chain id")

	// ErrValueOutOfRange means an amount, expiry, salt or epoch is negative
	// or does not fit a uint256
	ErrValueOutOfRange = chain.ErrValueOutOfRange
)

// InvalidSenderError is returned when the caller is not the order's sender
type InvalidSenderError struct {
	OrderHash common.Hash
	Sender    common.Address
}

func (e *InvalidSenderError) Error() string {
	return fmt.Sprintf("invalid sender %s for order %s", e.Sender.Hex(), e.OrderHash.Hex())
}

func (e *InvalidSenderError) Is(target error) bool {
	return target == ErrInvalidSender
}

// InvalidTakerError is returned when the filler is not the order's taker
type InvalidTakerError struct {
	OrderHash common.Hash
	Taker     common.Address
}

func (e *InvalidTakerError) Error() string {
	return fmt.Sprintf("invalid taker %s for order %s", e.Taker.Hex(), e.OrderHash.Hex())
}

func (e *InvalidTakerError) Is(target error) bool {
	return target == ErrInvalidTaker
}

// InvalidMakerError is returned when a cancel does not come from the maker
type InvalidMakerError struct {
	OrderHash common.Hash
	Maker     common.Address
}

func (e *InvalidMakerError) Error() string {
	return fmt.Sprintf("invalid maker %s for order %s", e.Maker.Hex(), e.OrderHash.Hex())
}

func (e *InvalidMakerError) Is(target error) bool {
	return target == ErrInvalidMaker
}

// OrderStatusError is returned when filling an order that is not fillable
type OrderStatusError struct {
	OrderHash common.Hash
	Status    OrderStatus
}

func (e *OrderStatusError) Error() string {
	return fmt.Sprintf("order %s is %s", e.OrderHash.Hex(), e.Status)
}

func (e *OrderStatusError) Is(target error) bool {
	return target == ErrOrderStatus
}

// SignatureError reports why a signature was rejected
type SignatureError struct {
	Code      SignatureErrorCode
	Hash      common.Hash
	Signer    common.Address
	Signature []byte
	Err       error
}

func (e *SignatureError) Error() string {
	msg := fmt.Sprintf("signature error %s for %s signed by %s", e.Code, e.Hash.Hex(), e.Signer.Hex())
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SignatureError) Is(target error) bool {
	return target == ErrBadSignature
}

func (e *SignatureError) Unwrap() error {
	return e.Err
}

// RoundingError reports a partial amount that cannot be computed exactly
// enough.
type RoundingError struct {
	Numerator   string
	Denominator string
	Target      string
}

func (e *RoundingError) Error() string {
	return fmt.Sprintf("rounding error computing %s * %s / %s", e.Target, e.Numerator, e.Denominator)
}

func (e *RoundingError) Is(target error) bool {
	return target == ErrRoundingError
}

// OrderOverfillError is returned when a fill exceeds the order size
type OrderOverfillError struct {
	OrderHash   common.Hash
	Filled      string
	FillAmount  string
	OrderAmount string
}

func (e *OrderOverfillError) Error() string {
	return fmt.Sprintf("order %s overfilled: %s filled + %s exceeds %s",
		e.OrderHash.Hex(), e.Filled, e.FillAmount, e.OrderAmount)
}

func (e *OrderOverfillError) Is(target error) bool {
	return target == ErrOrderOverfill
}

// IncompleteFillError is returned by FillOrKillOrder when the full amount
// could not be filled.
type IncompleteFillError struct {
	OrderHash common.Hash
	Expected  string
	Actual    string
}

func (e *IncompleteFillError) Error() string {
	return fmt.Sprintf("incomplete fill of order %s: expected %s, filled %s", e.OrderHash.Hex(), e.Expected, e.Actual)
}

func (e *IncompleteFillError) Is(target error) bool {
	return target == ErrIncompleteFill
}

// TransactionError is returned when a transaction is rejected before its
// inner call runs.
type TransactionError struct {
	Code            TransactionErrorCode
	TransactionHash common.Hash
	Err             error
}

func (e *TransactionError) Error() string {
	msg := fmt.Sprintf("transaction %s rejected: %s", e.TransactionHash.Hex(), e.Code)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransactionError) Is(target error) bool {
	return target == ErrTransaction
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

// TransactionExecutionError wraps the failure of a transaction's inner call
type TransactionExecutionError struct {
	TransactionHash common.Hash
	Err             error
}

func (e *TransactionExecutionError) Error() string {
	return fmt.Sprintf("transaction %s failed: %v", e.TransactionHash.Hex(), e.Err)
}

func (e *TransactionExecutionError) Is(target error) bool {
	return target == ErrTransactionExecution
}

func (e *TransactionExecutionError) Unwrap() error {
	return e.Err
}

// EpochError is returned when cancelOrdersUpTo does not raise the epoch
type EpochError struct {
	Maker        common.Address
	Sender       common.Address
	CurrentEpoch string
	TargetEpoch  string
}

func (e *EpochError) Error() string {
	return fmt.Sprintf("epoch for maker %s and sender %s must exceed %s, got %s",
		e.Maker.Hex(), e.Sender.Hex(), e.CurrentEpoch, e.TargetEpoch)
}

func (e *EpochError) Is(target error) bool {
	return target == ErrEpochNotIncreasing
}
