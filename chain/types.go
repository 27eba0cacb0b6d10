package chain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// SignatureType is the trailing byte of every signature blob
type SignatureType uint8

const (
	SignatureTypeIllegal SignatureType = iota
	SignatureTypeInvalid
	SignatureTypeEIP712
	SignatureTypeEthSign
	SignatureTypeWallet
	SignatureTypeValidator
	SignatureTypePreSigned
	// NSignatureTypes must stay last
	NSignatureTypes
)

func (t SignatureType) String() string {
	switch t {
	case SignatureTypeIllegal:
		return "Illegal"
	case SignatureTypeInvalid:
		return "Invalid"
	case SignatureTypeEIP712:
		return "EIP712"
	case SignatureTypeEthSign:
		return "EthSign"
	case SignatureTypeWallet:
		return "Wallet"
	case SignatureTypeValidator:
		return "Validator"
	case SignatureTypePreSigned:
		return "PreSigned"
	default:
		return "Unknown"
	}
}

// Order represents an order without its signing domain. The domain is
// supplied by whoever hashes it.
type Order struct {
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

// SignedOrder represents an order with its signature
type SignedOrder struct {
	Order
	Signature []byte
}

// Transaction is a meta-transaction: calldata for an exchange function that
// SignerAddress authorizes someone else to submit.
type Transaction struct {
	Salt                  *big.Int
	ExpirationTimeSeconds *big.Int
	SignerAddress         common.Address
	Data                  []byte
}

// SignedTransaction represents a transaction with its signature
type SignedTransaction struct {
	Transaction
	Signature []byte
}

// FillResults holds the amounts moved by a single fill
type FillResults struct {
	MakerAssetFilledAmount *big.Int
	TakerAssetFilledAmount *big.Int
	MakerFeePaid           *big.Int
	TakerFeePaid           *big.Int
}

const orderTupleJSON = `{"name": "order", "type": "tuple", "components": [
	{"name": "makerAddress", "type": "address"},
	{"name": "takerAddress", "type": "address"},
	{"name": "feeRecipientAddress", "type": "address"},
	{"name": "senderAddress", "type": "address"},
	{"name": "makerAssetAmount", "type": "uint256"},
	{"name": "takerAssetAmount", "type": "uint256"},
	{"name": "makerFee", "type": "uint256"},
	{"name": "takerFee", "type": "uint256"},
	{"name": "expirationTimeSeconds", "type": "uint256"},
	{"name": "salt", "type": "uint256"},
	{"name": "makerAssetData", "type": "bytes"},
	{"name": "takerAssetData", "type": "bytes"}
]}`

const fillResultsTupleJSON = `{"name": "fillResults", "type": "tuple", "components": [
	{"name": "makerAssetFilledAmount", "type": "uint256"},
	{"name": "takerAssetFilledAmount", "type": "uint256"},
	{"name": "makerFeePaid", "type": "uint256"},
	{"name": "takerFeePaid", "type": "uint256"}
]}`

// Exchange ABI JSON for the functions that may be wrapped in a transaction
const exchangeABIJSON = `[
	{
		"constant": false,
		"inputs": [
			` + orderTupleJSON + `,
			{"name": "takerAssetFillAmount", "type": "uint256"},
			{"name": "signature", "type": "bytes"}
		],
		"name": "fillOrder",
		"outputs": [` + fillResultsTupleJSON + `],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			` + orderTupleJSON + `,
			{"name": "takerAssetFillAmount", "type": "uint256"},
			{"name": "signature", "type": "bytes"}
		],
		"name": "fillOrKillOrder",
		"outputs": [` + fillResultsTupleJSON + `],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [` + orderTupleJSON + `],
		"name": "cancelOrder",
		"outputs": [],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "targetOrderEpoch", "type": "uint256"}
		],
		"name": "cancelOrdersUpTo",
		"outputs": [],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "validatorAddress", "type": "address"},
			{"name": "approval", "type": "bool"}
		],
		"name": "setSignatureValidatorApproval",
		"outputs": [],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "hash", "type": "bytes32"},
			{"name": "signerAddress", "type": "address"},
			{"name": "signature", "type": "bytes"}
		],
		"name": "preSign",
		"outputs": [],
		"type": "function"
	}
]`

// Asset proxy ABI JSON. Only used to derive the asset data layout.
const assetProxyABIJSON = `[
	{
		"constant": true,
		"inputs": [
			{"name": "tokenAddress", "type": "address"}
		],
		"name": "ERC20Token",
		"outputs": [],
		"type": "function"
	}
]`

var (
	exchangeABI   = mustParseABI(exchangeABIJSON, "Exchange")
	assetProxyABI = mustParseABI(assetProxyABIJSON, "asset proxy")
)

// GetExchangeABI returns the parsed Exchange ABI
func GetExchangeABI() abi.ABI {
	return exchangeABI
}

// GetAssetProxyABI returns the parsed asset proxy ABI
func GetAssetProxyABI() abi.ABI {
	return assetProxyABI
}

func mustParseABI(raw, name string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("failed to parse " + name + " ABI: " + err.Error())
	}
	return parsed
}
