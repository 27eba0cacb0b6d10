package settlement

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// OrderStatus represents the fillability of an order
type OrderStatus int

const (
	OrderStatusInvalid OrderStatus = iota
	OrderStatusInvalidMakerAssetAmount
	OrderStatusInvalidTakerAssetAmount
	OrderStatusFillable
	OrderStatusExpired
	OrderStatusFullyFilled
	OrderStatusCancelled
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusInvalid:
		return "Invalid"
	case OrderStatusInvalidMakerAssetAmount:
		return "InvalidMakerAssetAmount"
	case OrderStatusInvalidTakerAssetAmount:
		return "InvalidTakerAssetAmount"
	case OrderStatusFillable:
		return "Fillable"
	case OrderStatusExpired:
		return "Expired"
	case OrderStatusFullyFilled:
		return "FullyFilled"
	case OrderStatusCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// IsInvalid reports whether the order can never be filled because of its
// own parameters.
func (s OrderStatus) IsInvalid() bool {
	return s == OrderStatusInvalid ||
		s == OrderStatusInvalidMakerAssetAmount ||
		s == OrderStatusInvalidTakerAssetAmount
}

// OrderInfo is the result of an order status query
type OrderInfo struct {
	Status                 OrderStatus
	Hash                   common.Hash
	TakerAssetFilledAmount *big.Int
}

// TransactionErrorCode explains why a transaction was rejected
type TransactionErrorCode int

const (
	TransactionErrorAlreadyExecuted TransactionErrorCode = iota
	TransactionErrorExpired
	TransactionErrorInvalidValue
)

func (c TransactionErrorCode) String() string {
	switch c {
	case TransactionErrorAlreadyExecuted:
		return "AlreadyExecuted"
	case TransactionErrorExpired:
		return "Expired"
	case TransactionErrorInvalidValue:
		return "InvalidValue"
	default:
		return "Unknown"
	}
}

// SignatureErrorCode explains why a signature was rejected
type SignatureErrorCode int

const (
	SignatureErrorBadSignature SignatureErrorCode = iota
	SignatureErrorInvalidLength
	SignatureErrorUnsupported
	SignatureErrorIllegal
	SignatureErrorInvalidSigner
	SignatureErrorValidatorNotApproved
	SignatureErrorValidatorNotRegistered
	SignatureErrorWalletNotRegistered
)

func (c SignatureErrorCode) String() string {
	switch c {
	case SignatureErrorBadSignature:
		return "BadSignature"
	case SignatureErrorInvalidLength:
		return "InvalidLength"
	case SignatureErrorUnsupported:
		return "Unsupported"
	case SignatureErrorIllegal:
		return "Illegal"
	case SignatureErrorInvalidSigner:
		return "InvalidSigner"
	case SignatureErrorValidatorNotApproved:
		return "ValidatorNotApproved"
	case SignatureErrorValidatorNotRegistered:
		return "ValidatorNotRegistered"
	case SignatureErrorWalletNotRegistered:
		return "WalletNotRegistered"
	default:
		return "Unknown"
	}
}
