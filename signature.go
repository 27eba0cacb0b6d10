package settlement

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/kaifufi/settlement-exchange-go/chain"
	"github.com/kaifufi/settlement-exchange-go/store"
)

// IsValidSignature reports whether signature proves signer approved hash.
// Malformed signatures return a *SignatureError.
func (e *Exchange) IsValidSignature(hash common.Hash, signer common.Address, signature []byte) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var valid bool
	err := e.store.View(func(txn store.Txn) error {
		var err error
		valid, err = e.isValidSignature(txn, hash, signer, signature)
		return err
	})
	return valid, err
}

// SetSignatureValidatorApproval lets the caller's context approve or revoke
// a validator for its Validator-type signatures.
func (e *Exchange) SetSignatureValidatorApproval(sender, validator common.Address, approval bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	call := e.newCall(sender)
	return e.update("set_validator_approval", func(txn store.Txn) error {
		return e.setSignatureValidatorApproval(txn, call, validator, approval)
	})
}

// PreSign records that signer approves hash. When the caller is not the
// signer, signature must prove the approval.
func (e *Exchange) PreSign(sender common.Address, hash common.Hash, signer common.Address, signature []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	call := e.newCall(sender)
	return e.update("pre_sign", func(txn store.Txn) error {
		return e.preSign(txn, call, hash, signer, signature)
	})
}

func (e *Exchange) setSignatureValidatorApproval(txn store.Txn, call callContext, validator common.Address, approval bool) error {
	if err := setFlag(txn, validatorKey(call.context, validator), approval); err != nil {
		return err
	}
	e.logger.Debug("signature validator approval",
		append(call.fields(), zap.String("validator", validator.Hex()), zap.Bool("approval", approval))...)
	return nil
}

func (e *Exchange) preSign(txn store.Txn, call callContext, hash common.Hash, signer common.Address, signature []byte) error {
	if signer != call.context {
		if err := e.requireValidSignature(txn, hash, signer, signature); err != nil {
			return err
		}
	}
	if err := setFlag(txn, preSignedKey(hash, signer), true); err != nil {
		return err
	}
	e.logger.Debug("pre-signed hash",
		append(call.fields(), zap.String("hash", hash.Hex()), zap.String("signer", signer.Hex()))...)
	return nil
}

// requireValidSignature turns an invalid signature into a SignatureError
func (e *Exchange) requireValidSignature(txn store.Txn, hash common.Hash, signer common.Address, signature []byte) error {
	valid, err := e.isValidSignature(txn, hash, signer, signature)
	if err != nil {
		return err
	}
	if !valid {
		return &SignatureError{
			Code:      SignatureErrorBadSignature,
			Hash:      hash,
			Signer:    signer,
			Signature: common.CopyBytes(signature),
		}
	}
	return nil
}

// isValidSignature fails closed: anything it cannot positively verify is
// invalid.
func (e *Exchange) isValidSignature(txn store.Txn, hash common.Hash, signer common.Address, signature []byte) (bool, error) {
	sigErr := func(code SignatureErrorCode, err error) error {
		return &SignatureError{
			Code:      code,
			Hash:      hash,
			Signer:    signer,
			Signature: common.CopyBytes(signature),
			Err:       err,
		}
	}

	if signer == (common.Address{}) {
		return false, sigErr(SignatureErrorInvalidSigner, nil)
	}

	sigType, body, err := chain.SplitSignature(signature)
	if err != nil {
		switch {
		case errors.Is(err, chain.ErrIllegalSignature):
			return false, sigErr(SignatureErrorIllegal, err)
		case errors.Is(err, chain.ErrUnsupportedSignature):
			return false, sigErr(SignatureErrorUnsupported, err)
		default:
			return false, sigErr(SignatureErrorInvalidLength, err)
		}
	}

	switch sigType {
	case chain.SignatureTypeInvalid:
		if len(body) != 0 {
			return false, sigErr(SignatureErrorInvalidLength, nil)
		}
		return false, nil

	case chain.SignatureTypeEIP712, chain.SignatureTypeEthSign:
		if len(body) != chain.ECDSASignatureLength-1 {
			return false, sigErr(SignatureErrorInvalidLength,
				fmt.Errorf("%w: %d", chain.ErrInvalidSignatureLen, len(signature)))
		}
		recovered, err := chain.RecoverSigner(hash, signature)
		if err != nil {
			return false, nil
		}
		return recovered == signer, nil

	case chain.SignatureTypeWallet:
		wallet, ok := e.wallets[signer]
		if !ok {
			return false, sigErr(SignatureErrorWalletNotRegistered, nil)
		}
		return wallet.IsValidSignature(hash, body), nil

	case chain.SignatureTypeValidator:
		validatorAddr, inner, err := chain.SplitValidatorSignature(body)
		if err != nil {
			return false, sigErr(SignatureErrorInvalidLength, err)
		}
		approved, err := isValidatorApproved(txn, signer, validatorAddr)
		if err != nil {
			return false, err
		}
		if !approved {
			return false, sigErr(SignatureErrorValidatorNotApproved, nil)
		}
		validator, ok := e.validators[validatorAddr]
		if !ok {
			return false, sigErr(SignatureErrorValidatorNotRegistered, nil)
		}
		return validator.IsValidSignature(hash, signer, inner), nil

	case chain.SignatureTypePreSigned:
		return isPreSigned(txn, hash, signer)
	}

	return false, sigErr(SignatureErrorUnsupported, nil)
}
