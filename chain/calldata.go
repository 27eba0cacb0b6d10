package chain

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Exchange methods that can be wrapped in a transaction
const (
	MethodFillOrder                     = "fillOrder"
	MethodFillOrKillOrder               = "fillOrKillOrder"
	MethodCancelOrder                   = "cancelOrder"
	MethodCancelOrdersUpTo              = "cancelOrdersUpTo"
	MethodSetSignatureValidatorApproval = "setSignatureValidatorApproval"
	MethodPreSign                       = "preSign"
)

// Calldata errors
var (
	ErrCalldataTooShort = errors.New("calldata too short")
	ErrUnknownMethod    = errors.New("unknown method selector")
)

// Call is a decoded exchange call. Only the fields used by Method are set.
type Call struct {
	Method               string
	Order                *Order
	TakerAssetFillAmount *big.Int
	Signature            []byte
	TargetOrderEpoch     *big.Int
	ValidatorAddress     common.Address
	Approval             bool
	Hash                 common.Hash
	SignerAddress        common.Address
}

// orderTuple mirrors the order tuple components for ABI packing
type orderTuple struct {
	MakerAddress          common.Address
	TakerAddress          common.Address
	FeeRecipientAddress   common.Address
	SenderAddress         common.Address
	MakerAssetAmount      *big.Int
	TakerAssetAmount      *big.Int
	MakerFee              *big.Int
	TakerFee              *big.Int
	ExpirationTimeSeconds *big.Int
	Salt                  *big.Int
	MakerAssetData        []byte
	TakerAssetData        []byte
}

type fillResultsTuple struct {
	MakerAssetFilledAmount *big.Int
	TakerAssetFilledAmount *big.Int
	MakerFeePaid           *big.Int
	TakerFeePaid           *big.Int
}

func newOrderTuple(o *Order) orderTuple {
	return orderTuple{
		MakerAddress:          o.MakerAddress,
		TakerAddress:          o.TakerAddress,
		FeeRecipientAddress:   o.FeeRecipientAddress,
		SenderAddress:         o.SenderAddress,
		MakerAssetAmount:      bigOrZero(o.MakerAssetAmount),
		TakerAssetAmount:      bigOrZero(o.TakerAssetAmount),
		MakerFee:              bigOrZero(o.MakerFee),
		TakerFee:              bigOrZero(o.TakerFee),
		ExpirationTimeSeconds: bigOrZero(o.ExpirationTimeSeconds),
		Salt:                  bigOrZero(o.Salt),
		MakerAssetData:        o.MakerAssetData,
		TakerAssetData:        o.TakerAssetData,
	}
}

func (t orderTuple) toOrder() *Order {
	return &Order{
		MakerAddress:          t.MakerAddress,
		TakerAddress:          t.TakerAddress,
		FeeRecipientAddress:   t.FeeRecipientAddress,
		SenderAddress:         t.SenderAddress,
		MakerAssetAmount:      t.MakerAssetAmount,
		TakerAssetAmount:      t.TakerAssetAmount,
		MakerFee:              t.MakerFee,
		TakerFee:              t.TakerFee,
		ExpirationTimeSeconds: t.ExpirationTimeSeconds,
		Salt:                  t.Salt,
		MakerAssetData:        t.MakerAssetData,
		TakerAssetData:        t.TakerAssetData,
	}
}

// EncodeFillOrder builds fillOrder calldata
func EncodeFillOrder(order *Order, takerAssetFillAmount *big.Int, signature []byte) ([]byte, error) {
	return pack(MethodFillOrder, newOrderTuple(order), bigOrZero(takerAssetFillAmount), signature)
}

// EncodeFillOrKillOrder builds fillOrKillOrder calldata
func EncodeFillOrKillOrder(order *Order, takerAssetFillAmount *big.Int, signature []byte) ([]byte, error) {
	return pack(MethodFillOrKillOrder, newOrderTuple(order), bigOrZero(takerAssetFillAmount), signature)
}

// EncodeCancelOrder builds cancelOrder calldata
func EncodeCancelOrder(order *Order) ([]byte, error) {
	return pack(MethodCancelOrder, newOrderTuple(order))
}

// EncodeCancelOrdersUpTo builds cancelOrdersUpTo calldata
func EncodeCancelOrdersUpTo(targetOrderEpoch *big.Int) ([]byte, error) {
	return pack(MethodCancelOrdersUpTo, bigOrZero(targetOrderEpoch))
}

// EncodeSetSignatureValidatorApproval builds setSignatureValidatorApproval calldata
func EncodeSetSignatureValidatorApproval(validator common.Address, approval bool) ([]byte, error) {
	return pack(MethodSetSignatureValidatorApproval, validator, approval)
}

// EncodePreSign builds preSign calldata
func EncodePreSign(hash common.Hash, signer common.Address, signature []byte) ([]byte, error) {
	return pack(MethodPreSign, hash, signer, signature)
}

func pack(method string, args ...interface{}) ([]byte, error) {
	data, err := exchangeABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	return data, nil
}

// DecodeCall decodes exchange calldata
func DecodeCall(data []byte) (*Call, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: %d bytes", ErrCalldataTooShort, len(data))
	}
	method, err := exchangeABI.MethodById(data[:4])
	if err != nil {
		return nil, fmt.Errorf("%w: 0x%x", ErrUnknownMethod, data[:4])
	}
	values, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method.Name, err)
	}

	call := &Call{Method: method.Name}
	switch method.Name {
	case MethodFillOrder, MethodFillOrKillOrder:
		var args struct {
			Order                orderTuple
			TakerAssetFillAmount *big.Int
			Signature            []byte
		}
		if err := method.Inputs.Copy(&args, values); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", method.Name, err)
		}
		call.Order = args.Order.toOrder()
		call.TakerAssetFillAmount = args.TakerAssetFillAmount
		call.Signature = args.Signature
	case MethodCancelOrder:
		var args struct {
			Order orderTuple
		}
		if err := method.Inputs.Copy(&args, values); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", method.Name, err)
		}
		call.Order = args.Order.toOrder()
	case MethodCancelOrdersUpTo:
		var args struct {
			TargetOrderEpoch *big.Int
		}
		if err := method.Inputs.Copy(&args, values); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", method.Name, err)
		}
		call.TargetOrderEpoch = args.TargetOrderEpoch
	case MethodSetSignatureValidatorApproval:
		var args struct {
			ValidatorAddress common.Address
			Approval         bool
		}
		if err := method.Inputs.Copy(&args, values); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", method.Name, err)
		}
		call.ValidatorAddress = args.ValidatorAddress
		call.Approval = args.Approval
	case MethodPreSign:
		var args struct {
			Hash          [32]byte
			SignerAddress common.Address
			Signature     []byte
		}
		if err := method.Inputs.Copy(&args, values); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", method.Name, err)
		}
		call.Hash = common.Hash(args.Hash)
		call.SignerAddress = args.SignerAddress
		call.Signature = args.Signature
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method.Name)
	}
	return call, nil
}

// EncodeFillResults ABI-encodes fill results as returned by fillOrder
func EncodeFillResults(results *FillResults) ([]byte, error) {
	data, err := exchangeABI.Methods[MethodFillOrder].Outputs.Pack(fillResultsTuple{
		MakerAssetFilledAmount: bigOrZero(results.MakerAssetFilledAmount),
		TakerAssetFilledAmount: bigOrZero(results.TakerAssetFilledAmount),
		MakerFeePaid:           bigOrZero(results.MakerFeePaid),
		TakerFeePaid:           bigOrZero(results.TakerFeePaid),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to pack fill results: %w", err)
	}
	return data, nil
}

// DecodeFillResults decodes the return data of fillOrder
func DecodeFillResults(data []byte) (*FillResults, error) {
	outputs := exchangeABI.Methods[MethodFillOrder].Outputs
	values, err := outputs.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack fill results: %w", err)
	}
	var out struct {
		FillResults fillResultsTuple
	}
	if err := outputs.Copy(&out, values); err != nil {
		return nil, fmt.Errorf("failed to decode fill results: %w", err)
	}
	return &FillResults{
		MakerAssetFilledAmount: out.FillResults.MakerAssetFilledAmount,
		TakerAssetFilledAmount: out.FillResults.TakerAssetFilledAmount,
		MakerFeePaid:           out.FillResults.MakerFeePaid,
		TakerFeePaid:           out.FillResults.TakerFeePaid,
	}, nil
}
