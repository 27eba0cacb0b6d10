package chain

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrValueOutOfRange means a numeric field does not fit a uint256. Such
// values would be truncated when hashed, so two different structs would
// share one hash.
var ErrValueOutOfRange = errors.New("value out of uint256 range")

// EIP712 Domain constants
const (
	EIP712DomainName    = "0x Protocol"
	EIP712DomainVersion = "3.0.0"
)

// Pre-computed type hashes using keccak256
var (
	// EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)
	EIP712DomainTypeHash = crypto.Keccak256Hash([]byte(
		"EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)",
	))

	OrderTypeHash = crypto.Keccak256Hash([]byte(
		"Order(" +
			"address makerAddress," +
			"address takerAddress," +
			"address feeRecipientAddress," +
			"address senderAddress," +
			"uint256 makerAssetAmount," +
			"uint256 takerAssetAmount," +
			"uint256 makerFee," +
			"uint256 takerFee," +
			"uint256 expirationTimeSeconds," +
			"uint256 salt," +
			"bytes makerAssetData," +
			"bytes takerAssetData" +
			")",
	))

	TransactionTypeHash = crypto.Keccak256Hash([]byte(
		"ZeroExTransaction(uint256 salt,uint256 expirationTimeSeconds,address signerAddress,bytes data)",
	))
)

var (
	bytes32Type, _ = abi.NewType("bytes32", "", nil)
	uint256Type, _ = abi.NewType("uint256", "", nil)
	addressType, _ = abi.NewType("address", "", nil)
)

// EIP712Domain represents the EIP712 domain separator data
type EIP712Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

// NewEIP712Domain creates a new EIP712Domain with the standard values
func NewEIP712Domain(chainID *big.Int, verifyingContract common.Address) *EIP712Domain {
	return &EIP712Domain{
		Name:              EIP712DomainName,
		Version:           EIP712DomainVersion,
		ChainID:           chainID,
		VerifyingContract: verifyingContract,
	}
}

// Hash computes the EIP712 domain separator hash
func (d *EIP712Domain) Hash() common.Hash {
	arguments := abi.Arguments{
		{Type: bytes32Type}, // typeHash
		{Type: bytes32Type}, // nameHash
		{Type: bytes32Type}, // versionHash
		{Type: uint256Type}, // chainId
		{Type: addressType}, // verifyingContract
	}

	encoded, err := arguments.Pack(
		EIP712DomainTypeHash,
		crypto.Keccak256Hash([]byte(d.Name)),
		crypto.Keccak256Hash([]byte(d.Version)),
		bigOrZero(d.ChainID),
		d.VerifyingContract,
	)
	if err != nil {
		panic("failed to encode domain separator: " + err.Error())
	}

	return crypto.Keccak256Hash(encoded)
}

// Validate checks that every numeric field of the order hashes to itself
func (o *Order) Validate() error {
	return checkUint256(
		namedValue{"makerAssetAmount", o.MakerAssetAmount},
		namedValue{"takerAssetAmount", o.TakerAssetAmount},
		namedValue{"makerFee", o.MakerFee},
		namedValue{"takerFee", o.TakerFee},
		namedValue{"expirationTimeSeconds", o.ExpirationTimeSeconds},
		namedValue{"salt", o.Salt},
	)
}

// Validate checks that the transaction's salt and expiry fit a uint256
func (t *Transaction) Validate() error {
	return checkUint256(
		namedValue{"salt", t.Salt},
		namedValue{"expirationTimeSeconds", t.ExpirationTimeSeconds},
	)
}

// StructHash computes the EIP712 struct hash for the order
func (o *Order) StructHash() common.Hash {
	arguments := abi.Arguments{
		{Type: bytes32Type}, // typeHash
		{Type: addressType}, // makerAddress
		{Type: addressType}, // takerAddress
		{Type: addressType}, // feeRecipientAddress
		{Type: addressType}, // senderAddress
		{Type: uint256Type}, // makerAssetAmount
		{Type: uint256Type}, // takerAssetAmount
		{Type: uint256Type}, // makerFee
		{Type: uint256Type}, // takerFee
		{Type: uint256Type}, // expirationTimeSeconds
		{Type: uint256Type}, // salt
		{Type: bytes32Type}, // keccak256(makerAssetData)
		{Type: bytes32Type}, // keccak256(takerAssetData)
	}

	encoded, err := arguments.Pack(
		OrderTypeHash,
		o.MakerAddress,
		o.TakerAddress,
		o.FeeRecipientAddress,
		o.SenderAddress,
		bigOrZero(o.MakerAssetAmount),
		bigOrZero(o.TakerAssetAmount),
		bigOrZero(o.MakerFee),
		bigOrZero(o.TakerFee),
		bigOrZero(o.ExpirationTimeSeconds),
		bigOrZero(o.Salt),
		crypto.Keccak256Hash(o.MakerAssetData),
		crypto.Keccak256Hash(o.TakerAssetData),
	)
	if err != nil {
		panic("failed to encode order struct: " + err.Error())
	}

	return crypto.Keccak256Hash(encoded)
}

// StructHash computes the EIP712 struct hash for the transaction
func (t *Transaction) StructHash() common.Hash {
	arguments := abi.Arguments{
		{Type: bytes32Type}, // typeHash
		{Type: uint256Type}, // salt
		{Type: uint256Type}, // expirationTimeSeconds
		{Type: addressType}, // signerAddress
		{Type: bytes32Type}, // keccak256(data)
	}

	encoded, err := arguments.Pack(
		TransactionTypeHash,
		bigOrZero(t.Salt),
		bigOrZero(t.ExpirationTimeSeconds),
		t.SignerAddress,
		crypto.Keccak256Hash(t.Data),
	)
	if err != nil {
		panic("failed to encode transaction struct: " + err.Error())
	}

	return crypto.Keccak256Hash(encoded)
}

// HashTypedData creates the final EIP712 hash to be signed
// keccak256("\x19\x01" ++ domainSeparator ++ structHash)
func HashTypedData(domain *EIP712Domain, structHash common.Hash) common.Hash {
	domainSeparator := domain.Hash()

	data := make([]byte, 0, 2+32+32)
	data = append(data, 0x19, 0x01)
	data = append(data, domainSeparator.Bytes()...)
	data = append(data, structHash.Bytes()...)

	return crypto.Keccak256Hash(data)
}

// HashOrder returns the order hash under the given domain
func HashOrder(order *Order, domain *EIP712Domain) common.Hash {
	return HashTypedData(domain, order.StructHash())
}

// HashTransaction returns the transaction hash under the given domain
func HashTransaction(tx *Transaction, domain *EIP712Domain) common.Hash {
	return HashTypedData(domain, tx.StructHash())
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

type namedValue struct {
	name  string
	value *big.Int
}

// checkUint256 accepts nil as zero
func checkUint256(values ...namedValue) error {
	for _, v := range values {
		if v.value == nil {
			continue
		}
		if v.value.Sign() < 0 || v.value.Cmp(math.MaxBig256) > 0 {
			return fmt.Errorf("%w: %s = %s", ErrValueOutOfRange, v.name, v.value)
		}
	}
	return nil
}

// CheckUint256 reports whether v fits a uint256
func CheckUint256(name string, v *big.Int) error {
	return checkUint256(namedValue{name, v})
}
