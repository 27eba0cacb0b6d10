package settlement

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/kaifufi/settlement-exchange-go/chain"
	"github.com/kaifufi/settlement-exchange-go/store"
)

// FillOrder fills up to takerAssetFillAmount of the order for sender. The
// filled amount is capped at what remains of the order.
func (e *Exchange) FillOrder(sender common.Address, order *chain.Order, takerAssetFillAmount *big.Int, signature []byte) (*chain.FillResults, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	call := e.newCall(sender)

	var results *chain.FillResults
	err := e.update("fill", func(txn store.Txn) error {
		var err error
		results, err = e.fillOrder(txn, call, order, takerAssetFillAmount, signature)
		return err
	})
	e.metrics.ObserveFill(err)
	if err != nil {
		e.logger.Debug("fill failed", append(call.fields(), zap.Error(err))...)
		return nil, err
	}
	return results, nil
}

// FillOrKillOrder fills exactly takerAssetFillAmount of the order or
// nothing at all.
func (e *Exchange) FillOrKillOrder(sender common.Address, order *chain.Order, takerAssetFillAmount *big.Int, signature []byte) (*chain.FillResults, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	call := e.newCall(sender)

	var results *chain.FillResults
	err := e.update("fill_or_kill", func(txn store.Txn) error {
		var err error
		results, err = e.fillOrKillOrder(txn, call, order, takerAssetFillAmount, signature)
		return err
	})
	e.metrics.ObserveFill(err)
	if err != nil {
		e.logger.Debug("fill or kill failed", append(call.fields(), zap.Error(err))...)
		return nil, err
	}
	return results, nil
}

func (e *Exchange) fillOrKillOrder(txn store.Txn, call callContext, order *chain.Order, takerAssetFillAmount *big.Int, signature []byte) (*chain.FillResults, error) {
	results, err := e.fillOrder(txn, call, order, takerAssetFillAmount, signature)
	if err != nil {
		return nil, err
	}
	if results.TakerAssetFilledAmount.Cmp(takerAssetFillAmount) != 0 {
		return nil, &IncompleteFillError{
			OrderHash: chain.HashOrder(order, e.domain),
			Expected:  takerAssetFillAmount.String(),
			Actual:    results.TakerAssetFilledAmount.String(),
		}
	}
	return results, nil
}

func (e *Exchange) fillOrder(txn store.Txn, call callContext, order *chain.Order, takerAssetFillAmount *big.Int, signature []byte) (*chain.FillResults, error) {
	info, err := e.orderInfo(txn, order)
	if err != nil {
		return nil, err
	}

	if order.SenderAddress != (common.Address{}) && order.SenderAddress != call.sender {
		return nil, &InvalidSenderError{OrderHash: info.Hash, Sender: call.sender}
	}
	if order.TakerAddress != (common.Address{}) && order.TakerAddress != call.context {
		return nil, &InvalidTakerError{OrderHash: info.Hash, Taker: call.context}
	}
	if info.Status != OrderStatusFillable {
		return nil, &OrderStatusError{OrderHash: info.Hash, Status: info.Status}
	}
	if err := e.requireValidSignature(txn, info.Hash, order.MakerAddress, signature); err != nil {
		return nil, err
	}
	if takerAssetFillAmount == nil || takerAssetFillAmount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTakerAmount, takerAssetFillAmount)
	}

	remaining := new(big.Int).Sub(order.TakerAssetAmount, info.TakerAssetFilledAmount)
	takerAssetFilledAmount := minBig(takerAssetFillAmount, remaining)
	results, err := CalculateFillResults(order, takerAssetFilledAmount)
	if err != nil {
		return nil, err
	}

	if err := e.recordFill(txn, info, order, results.TakerAssetFilledAmount); err != nil {
		return nil, err
	}
	if err := e.settle(txn, call.context, order, results); err != nil {
		return nil, err
	}

	e.logger.Debug("order filled", append(call.fields(),
		zap.String("order_hash", info.Hash.Hex()),
		zap.Stringer("taker_filled", results.TakerAssetFilledAmount),
		zap.Stringer("maker_filled", results.MakerAssetFilledAmount),
		zap.Stringer("maker_fee", results.MakerFeePaid),
		zap.Stringer("taker_fee", results.TakerFeePaid),
	)...)
	return results, nil
}

// recordFill adds amount to the order's filled total
func (e *Exchange) recordFill(txn store.Txn, info *OrderInfo, order *chain.Order, amount *big.Int) error {
	filled := new(big.Int).Add(info.TakerAssetFilledAmount, amount)
	if filled.Cmp(order.TakerAssetAmount) > 0 {
		return &OrderOverfillError{
			OrderHash:   info.Hash,
			Filled:      info.TakerAssetFilledAmount.String(),
			FillAmount:  amount.String(),
			OrderAmount: order.TakerAssetAmount.String(),
		}
	}
	return setBig(txn, filledKey(info.Hash), filled)
}

// settle moves assets and fees between maker, taker and fee recipient
func (e *Exchange) settle(txn store.Txn, taker common.Address, order *chain.Order, results *chain.FillResults) error {
	transfers := []struct {
		assetData []byte
		from      common.Address
		to        common.Address
		amount    *big.Int
	}{
		{order.TakerAssetData, taker, order.MakerAddress, results.TakerAssetFilledAmount},
		{order.MakerAssetData, order.MakerAddress, taker, results.MakerAssetFilledAmount},
		{e.feeAssetData, order.MakerAddress, order.FeeRecipientAddress, results.MakerFeePaid},
		{e.feeAssetData, taker, order.FeeRecipientAddress, results.TakerFeePaid},
	}
	for _, t := range transfers {
		if err := e.dispatchTransfer(txn, t.assetData, t.from, t.to, t.amount); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exchange) dispatchTransfer(txn store.Txn, assetData []byte, from, to common.Address, amount *big.Int) error {
	if amount.Sign() == 0 || from == to {
		return nil
	}
	id, err := chain.GetAssetProxyID(assetData)
	if err != nil {
		return err
	}
	proxy, ok := e.assetProxies[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAssetProxyNotFound, id)
	}
	if err := proxy.TransferFrom(txn, e.address, assetData, from, to, amount); err != nil {
		return fmt.Errorf("failed to transfer %s from %s to %s: %w", amount, from.Hex(), to.Hex(), err)
	}
	return nil
}
