package settlement

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/kaifufi/settlement-exchange-go/store"
)

// Store key layout. Absent keys read as zero or false.
const (
	filledPrefix    = "order/filled/"
	cancelledPrefix = "order/cancelled/"
	epochPrefix     = "epoch/"
	executedPrefix  = "tx/executed/"
	validatorPrefix = "sig/validator/"
	preSignedPrefix = "sig/presigned/"
)

var flagSet = []byte{1}

func filledKey(orderHash common.Hash) []byte {
	return []byte(filledPrefix + orderHash.Hex())
}

func cancelledKey(orderHash common.Hash) []byte {
	return []byte(cancelledPrefix + orderHash.Hex())
}

func epochKey(maker, sender common.Address) []byte {
	return []byte(epochPrefix + maker.Hex() + "/" + sender.Hex())
}

func executedKey(txHash common.Hash) []byte {
	return []byte(executedPrefix + txHash.Hex())
}

func validatorKey(signer, validator common.Address) []byte {
	return []byte(validatorPrefix + signer.Hex() + "/" + validator.Hex())
}

func preSignedKey(hash common.Hash, signer common.Address) []byte {
	return []byte(preSignedPrefix + hash.Hex() + "/" + signer.Hex())
}

func getBig(txn store.Txn, key []byte) (*big.Int, error) {
	v, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return new(big.Int), nil
		}
		return nil, err
	}
	return new(big.Int).SetBytes(v), nil
}

func setBig(txn store.Txn, key []byte, v *big.Int) error {
	return txn.Set(key, v.Bytes())
}

func getFlag(txn store.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func setFlag(txn store.Txn, key []byte, value bool) error {
	if !value {
		return txn.Delete(key)
	}
	return txn.Set(key, flagSet)
}

func getFilled(txn store.Txn, orderHash common.Hash) (*big.Int, error) {
	return getBig(txn, filledKey(orderHash))
}

func isCancelled(txn store.Txn, orderHash common.Hash) (bool, error) {
	return getFlag(txn, cancelledKey(orderHash))
}

func getEpoch(txn store.Txn, maker, sender common.Address) (*big.Int, error) {
	return getBig(txn, epochKey(maker, sender))
}

func isExecuted(txn store.Txn, txHash common.Hash) (bool, error) {
	return getFlag(txn, executedKey(txHash))
}

func isValidatorApproved(txn store.Txn, signer, validator common.Address) (bool, error) {
	return getFlag(txn, validatorKey(signer, validator))
}

func isPreSigned(txn store.Txn, hash common.Hash, signer common.Address) (bool, error) {
	return getFlag(txn, preSignedKey(hash, signer))
}
