package chain

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signature parsing errors
var (
	ErrEmptySignature       = errors.New("signature is empty")
	ErrInvalidSignatureLen  = errors.New("invalid signature length")
	ErrUnsupportedSignature = errors.New("unsupported signature type")
	ErrIllegalSignature     = errors.New("illegal signature type")
	ErrInvalidRecoveryID    = errors.New("invalid signature recovery id")
)

// ECDSASignatureLength is v (1) + r (32) + s (32) + type (1)
const ECDSASignatureLength = 66

// SplitSignature separates the trailing type byte from the signature body
func SplitSignature(signature []byte) (SignatureType, []byte, error) {
	if len(signature) == 0 {
		return SignatureTypeIllegal, nil, ErrEmptySignature
	}
	sigType := SignatureType(signature[len(signature)-1])
	if sigType >= NSignatureTypes {
		return sigType, nil, fmt.Errorf("%w: %d", ErrUnsupportedSignature, sigType)
	}
	if sigType == SignatureTypeIllegal {
		return sigType, nil, ErrIllegalSignature
	}
	return sigType, signature[:len(signature)-1], nil
}

// SignHash signs a 32-byte hash and returns the signature in the exchange
// layout: v ++ r ++ s ++ type.
func SignHash(hash common.Hash, key *ecdsa.PrivateKey, sigType SignatureType) ([]byte, error) {
	var digest []byte
	switch sigType {
	case SignatureTypeEIP712:
		digest = hash.Bytes()
	case SignatureTypeEthSign:
		digest = accounts.TextHash(hash.Bytes())
	default:
		return nil, fmt.Errorf("%w: cannot sign with %s", ErrUnsupportedSignature, sigType)
	}

	rsv, err := crypto.Sign(digest, key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign hash: %w", err)
	}

	// Add recovery ID
	signature := make([]byte, 0, ECDSASignatureLength)
	signature = append(signature, rsv[64]+27)
	signature = append(signature, rsv[:64]...)
	signature = append(signature, byte(sigType))
	return signature, nil
}

// RecoverSigner recovers the address that produced an EIP712 or EthSign
// signature over hash.
func RecoverSigner(hash common.Hash, signature []byte) (common.Address, error) {
	sigType, body, err := SplitSignature(signature)
	if err != nil {
		return common.Address{}, err
	}
	if len(body) != ECDSASignatureLength-1 {
		return common.Address{}, fmt.Errorf("%w: %d", ErrInvalidSignatureLen, len(signature))
	}

	var digest []byte
	switch sigType {
	case SignatureTypeEIP712:
		digest = hash.Bytes()
	case SignatureTypeEthSign:
		digest = accounts.TextHash(hash.Bytes())
	default:
		return common.Address{}, fmt.Errorf("%w: %s is not an ECDSA type", ErrUnsupportedSignature, sigType)
	}

	v := body[0]
	if v != 27 && v != 28 {
		return common.Address{}, fmt.Errorf("%w: %d", ErrInvalidRecoveryID, v)
	}
	rsv := make([]byte, 65)
	copy(rsv, body[1:65])
	rsv[64] = v - 27

	pub, err := crypto.SigToPub(digest, rsv)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// ValidatorSignature builds a Validator signature: sig ++ validator ++ type
func ValidatorSignature(validator common.Address, inner []byte) []byte {
	signature := make([]byte, 0, len(inner)+common.AddressLength+1)
	signature = append(signature, inner...)
	signature = append(signature, validator.Bytes()...)
	return append(signature, byte(SignatureTypeValidator))
}

// SplitValidatorSignature extracts the validator address and the inner
// signature from a Validator signature body.
func SplitValidatorSignature(body []byte) (common.Address, []byte, error) {
	if len(body) < common.AddressLength {
		return common.Address{}, nil, fmt.Errorf("%w: validator signature needs %d bytes, got %d",
			ErrInvalidSignatureLen, common.AddressLength+1, len(body)+1)
	}
	split := len(body) - common.AddressLength
	return common.BytesToAddress(body[split:]), body[:split], nil
}

// WalletSignature builds a Wallet signature: sig ++ type
func WalletSignature(inner []byte) []byte {
	signature := make([]byte, 0, len(inner)+1)
	signature = append(signature, inner...)
	return append(signature, byte(SignatureTypeWallet))
}

// PreSignedSignature is the one-byte signature used for pre-signed hashes
func PreSignedSignature() []byte {
	return []byte{byte(SignatureTypePreSigned)}
}
