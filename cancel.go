package settlement

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/kaifufi/settlement-exchange-go/chain"
	"github.com/kaifufi/settlement-exchange-go/store"
)

// CancelOrder cancels a single order. Only the maker may cancel, through
// the order's sender if it names one. Cancelling an order that is no
// longer fillable does nothing.
func (e *Exchange) CancelOrder(sender common.Address, order *chain.Order) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	call := e.newCall(sender)

	err := e.update("cancel_order", func(txn store.Txn) error {
		return e.cancelOrder(txn, call, order)
	})
	e.metrics.ObserveCancel("order", err)
	if err != nil {
		e.logger.Debug("cancel failed", append(call.fields(), zap.Error(err))...)
	}
	return err
}

// CancelOrdersUpTo cancels every order of the caller with a salt below
// targetOrderEpoch. When called through a relayer only orders restricted
// to that relayer are affected.
func (e *Exchange) CancelOrdersUpTo(sender common.Address, targetOrderEpoch *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	call := e.newCall(sender)

	err := e.update("cancel_orders_up_to", func(txn store.Txn) error {
		return e.cancelOrdersUpTo(txn, call, targetOrderEpoch)
	})
	e.metrics.ObserveCancel("epoch", err)
	if err != nil {
		e.logger.Debug("cancel up to failed", append(call.fields(), zap.Error(err))...)
	}
	return err
}

func (e *Exchange) cancelOrder(txn store.Txn, call callContext, order *chain.Order) error {
	info, err := e.orderInfo(txn, order)
	if err != nil {
		return err
	}

	if order.SenderAddress != (common.Address{}) && order.SenderAddress != call.sender {
		return &InvalidSenderError{OrderHash: info.Hash, Sender: call.sender}
	}
	if order.MakerAddress != call.context {
		return &InvalidMakerError{OrderHash: info.Hash, Maker: call.context}
	}
	if info.Status != OrderStatusFillable {
		return nil
	}

	if err := setFlag(txn, cancelledKey(info.Hash), true); err != nil {
		return err
	}
	e.logger.Debug("order cancelled", append(call.fields(), zap.String("order_hash", info.Hash.Hex()))...)
	return nil
}

func (e *Exchange) cancelOrdersUpTo(txn store.Txn, call callContext, targetOrderEpoch *big.Int) error {
	maker := call.context
	var sender common.Address
	if maker != call.sender {
		sender = call.sender
	}

	if err := chain.CheckUint256("targetOrderEpoch", targetOrderEpoch); err != nil {
		return err
	}
	current, err := getEpoch(txn, maker, sender)
	if err != nil {
		return err
	}
	target := bigOrZero(targetOrderEpoch)
	if target.Cmp(current) <= 0 {
		return &EpochError{
			Maker:        maker,
			Sender:       sender,
			CurrentEpoch: current.String(),
			TargetEpoch:  target.String(),
		}
	}

	if err := setBig(txn, epochKey(maker, sender), target); err != nil {
		return err
	}
	e.logger.Debug("order epoch raised", append(call.fields(),
		zap.String("maker", maker.Hex()),
		zap.String("epoch_sender", sender.Hex()),
		zap.Stringer("epoch", target),
	)...)
	return nil
}
