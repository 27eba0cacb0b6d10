package settlement

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/kaifufi/settlement-exchange-go/chain"
	"github.com/kaifufi/settlement-exchange-go/store"
)

// ExecuteTransaction runs the call encoded in tx.Data on behalf of
// tx.SignerAddress, submitted by sender. A transaction executes at most
// once. Fill calls return their ABI-encoded FillResults.
func (e *Exchange) ExecuteTransaction(sender common.Address, tx *chain.Transaction, signature []byte) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	call := e.newCall(sender)

	var out []byte
	err := e.update("execute_transaction", func(txn store.Txn) error {
		var err error
		out, err = e.executeTransaction(txn, call, tx, signature)
		return err
	})
	e.metrics.ObserveTransaction(err)
	if err != nil {
		e.logger.Debug("transaction failed", append(call.fields(), zap.Error(err))...)
		return nil, err
	}
	return out, nil
}

func (e *Exchange) executeTransaction(txn store.Txn, call callContext, tx *chain.Transaction, signature []byte) ([]byte, error) {
	hash := chain.HashTransaction(tx, e.domain)

	if err := tx.Validate(); err != nil {
		return nil, &TransactionError{Code: TransactionErrorInvalidValue, TransactionHash: hash, Err: err}
	}
	if tx.SignerAddress == (common.Address{}) {
		return nil, &SignatureError{Code: SignatureErrorInvalidSigner, Hash: hash}
	}
	if bigOrZero(tx.ExpirationTimeSeconds).Cmp(big.NewInt(e.clock().Unix())) <= 0 {
		return nil, &TransactionError{Code: TransactionErrorExpired, TransactionHash: hash}
	}
	executed, err := isExecuted(txn, hash)
	if err != nil {
		return nil, err
	}
	if executed {
		return nil, &TransactionError{Code: TransactionErrorAlreadyExecuted, TransactionHash: hash}
	}
	if tx.SignerAddress != call.sender {
		if err := e.requireValidSignature(txn, hash, tx.SignerAddress, signature); err != nil {
			return nil, err
		}
	}

	if e.CurrentContextAddress() != (common.Address{}) {
		return nil, ErrReentrancy
	}
	e.setContext(tx.SignerAddress)
	defer e.setContext(common.Address{})

	if err := setFlag(txn, executedKey(hash), true); err != nil {
		return nil, err
	}

	inner := callContext{id: call.id, sender: call.sender, context: tx.SignerAddress}
	out, err := e.dispatch(txn, inner, tx.Data)
	if err != nil {
		return nil, &TransactionExecutionError{TransactionHash: hash, Err: err}
	}
	e.logger.Debug("transaction executed", append(inner.fields(), zap.String("tx_hash", hash.Hex()))...)
	return out, nil
}

// dispatch decodes and runs an inner call. executeTransaction is not a
// dispatchable method, so transactions cannot nest.
func (e *Exchange) dispatch(txn store.Txn, call callContext, data []byte) ([]byte, error) {
	c, err := chain.DecodeCall(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedCall, err)
	}

	switch c.Method {
	case chain.MethodFillOrder:
		results, err := e.fillOrder(txn, call, c.Order, c.TakerAssetFillAmount, c.Signature)
		if err != nil {
			return nil, err
		}
		return chain.EncodeFillResults(results)
	case chain.MethodFillOrKillOrder:
		results, err := e.fillOrKillOrder(txn, call, c.Order, c.TakerAssetFillAmount, c.Signature)
		if err != nil {
			return nil, err
		}
		return chain.EncodeFillResults(results)
	case chain.MethodCancelOrder:
		return nil, e.cancelOrder(txn, call, c.Order)
	case chain.MethodCancelOrdersUpTo:
		return nil, e.cancelOrdersUpTo(txn, call, c.TargetOrderEpoch)
	case chain.MethodSetSignatureValidatorApproval:
		return nil, e.setSignatureValidatorApproval(txn, call, c.ValidatorAddress, c.Approval)
	case chain.MethodPreSign:
		return nil, e.preSign(txn, call, c.Hash, c.SignerAddress, c.Signature)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCall, c.Method)
	}
}
