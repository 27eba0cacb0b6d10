package settlement

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaifufi/settlement-exchange-go/chain"
	"github.com/kaifufi/settlement-exchange-go/token"
)

func TestFillOrderPartial(t *testing.T) {
	env := newTestEnv(t)
	order := env.order(t, nil)
	maker, taker := env.maker.Address(), env.taker.Address()

	results, err := env.exchange.FillOrder(taker, &order.Order, big.NewInt(100), order.Signature)
	require.NoError(t, err)
	assert.Equal(t, int64(50), results.MakerAssetFilledAmount.Int64())
	assert.Equal(t, int64(100), results.TakerAssetFilledAmount.Int64())
	assert.Equal(t, int64(5), results.MakerFeePaid.Int64())
	assert.Equal(t, int64(5), results.TakerFeePaid.Int64())

	assert.Equal(t, int64(950), env.balance(t, makerToken, maker))
	assert.Equal(t, int64(1100), env.balance(t, takerToken, maker))
	assert.Equal(t, int64(995), env.balance(t, feeToken, maker))
	assert.Equal(t, int64(1050), env.balance(t, makerToken, taker))
	assert.Equal(t, int64(900), env.balance(t, takerToken, taker))
	assert.Equal(t, int64(995), env.balance(t, feeToken, taker))
	assert.Equal(t, int64(10), env.balance(t, feeToken, testFeeRecipient))

	assert.Equal(t, int64(100), env.filled(t, &order.Order))
	assert.Equal(t, OrderStatusFillable, env.status(t, &order.Order))
}

func TestFillOrderCapsAtRemaining(t *testing.T) {
	env := newTestEnv(t)
	order := env.order(t, nil)
	taker := env.taker.Address()

	_, err := env.exchange.FillOrder(taker, &order.Order, big.NewInt(100), order.Signature)
	require.NoError(t, err)

	results, err := env.exchange.FillOrder(taker, &order.Order, big.NewInt(500), order.Signature)
	require.NoError(t, err)
	assert.Equal(t, int64(100), results.TakerAssetFilledAmount.Int64())
	assert.Equal(t, int64(50), results.MakerAssetFilledAmount.Int64())

	assert.Equal(t, int64(200), env.filled(t, &order.Order))
	assert.Equal(t, OrderStatusFullyFilled, env.status(t, &order.Order))

	_, err = env.exchange.FillOrder(taker, &order.Order, big.NewInt(1), order.Signature)
	var statusErr *OrderStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, OrderStatusFullyFilled, statusErr.Status)
}

func TestFillOrderConservesBalances(t *testing.T) {
	env := newTestEnv(t)
	order := env.order(t, nil)
	before := env.snapshot(t)

	for _, amount := range []int64{20, 40, 60, 200} {
		_, err := env.exchange.FillOrder(env.taker.Address(), &order.Order, big.NewInt(amount), order.Signature)
		require.NoError(t, err)
	}

	after := env.snapshot(t)
	for tok, owners := range before {
		total := new(big.Int)
		for _, b := range owners {
			total.Add(total, b)
		}
		newTotal := new(big.Int)
		for _, b := range after[tok] {
			newTotal.Add(newTotal, b)
		}
		assert.Equal(t, 0, total.Cmp(newTotal), "token %s", tok.Hex())
	}
}

func TestFillOrderFilledAmountIsMonotonic(t *testing.T) {
	env := newTestEnv(t)
	order := env.order(t, nil)

	last := int64(0)
	for _, amount := range []int64{20, 0, 60, 1000, 20} {
		_, _ = env.exchange.FillOrder(env.taker.Address(), &order.Order, big.NewInt(amount), order.Signature)
		filled := env.filled(t, &order.Order)
		assert.GreaterOrEqual(t, filled, last)
		assert.LessOrEqual(t, filled, int64(200))
		last = filled
	}
}

func TestFillOrderRejections(t *testing.T) {
	otherKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	someone := common.HexToAddress("0x00000000000000000000000000000000000000cc")

	tests := []struct {
		name    string
		mutate  func(d *chain.OrderData)
		amount  int64
		resign  bool
		wantErr error
	}{
		{
			name:    "sender restricted",
			mutate:  func(d *chain.OrderData) { d.SenderAddress = someone },
			amount:  100,
			wantErr: ErrInvalidSender,
		},
		{
			name:    "taker restricted",
			mutate:  func(d *chain.OrderData) { d.TakerAddress = someone },
			amount:  100,
			wantErr: ErrInvalidTaker,
		},
		{
			name:    "expired",
			mutate:  func(d *chain.OrderData) { d.Expiration = testNow },
			amount:  100,
			wantErr: ErrOrderStatus,
		},
		{
			name:    "zero maker amount",
			mutate:  func(d *chain.OrderData) { d.MakerAssetAmount = new(big.Int) },
			amount:  100,
			wantErr: ErrOrderStatus,
		},
		{
			name:    "bad signature",
			amount:  100,
			resign:  true,
			wantErr: ErrBadSignature,
		},
		{
			name:    "zero fill amount",
			amount:  0,
			wantErr: ErrInvalidTakerAmount,
		},
		{
			name: "rounding error",
			mutate: func(d *chain.OrderData) {
				d.MakerAssetAmount = big.NewInt(1001)
				d.TakerAssetAmount = big.NewInt(3)
				d.MakerFee = new(big.Int)
				d.TakerFee = new(big.Int)
			},
			amount:  1,
			wantErr: ErrRoundingError,
		},
		{
			name: "insufficient balance",
			mutate: func(d *chain.OrderData) {
				d.MakerAssetAmount = big.NewInt(5000)
				d.TakerAssetAmount = big.NewInt(10)
			},
			amount:  10,
			wantErr: token.ErrInsufficientBalance,
		},
		{
			name: "no asset proxy",
			mutate: func(d *chain.OrderData) {
				d.TakerAssetData = []byte{0xde, 0xad, 0xbe, 0xef}
			},
			amount:  100,
			wantErr: ErrAssetProxyNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			order := env.order(t, tt.mutate)
			if tt.resign {
				sig, err := chain.SignHash(chain.HashOrder(&order.Order, env.exchange.Domain()), otherKey, chain.SignatureTypeEIP712)
				require.NoError(t, err)
				order.Signature = sig
			}
			before := env.snapshot(t)

			_, err := env.exchange.FillOrder(env.taker.Address(), &order.Order, big.NewInt(tt.amount), order.Signature)
			assert.ErrorIs(t, err, tt.wantErr)

			assert.Equal(t, before, env.snapshot(t))
			assert.Equal(t, int64(0), env.filled(t, &order.Order))
		})
	}
}

func TestFillOrderCheckOrder(t *testing.T) {
	env := newTestEnv(t)
	someone := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	// Every check fails; the sender restriction is reported first
	order := env.order(t, func(d *chain.OrderData) {
		d.SenderAddress = someone
		d.TakerAddress = someone
		d.Expiration = testNow.Add(-time.Hour)
	})
	order.Signature = chain.PreSignedSignature()

	_, err := env.exchange.FillOrder(env.taker.Address(), &order.Order, new(big.Int), order.Signature)
	assert.ErrorIs(t, err, ErrInvalidSender)

	_, err = env.exchange.FillOrder(someone, &order.Order, new(big.Int), order.Signature)
	var statusErr *OrderStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, OrderStatusExpired, statusErr.Status)
}

func TestFillOrKillOrder(t *testing.T) {
	env := newTestEnv(t)
	order := env.order(t, nil)
	taker := env.taker.Address()

	results, err := env.exchange.FillOrKillOrder(taker, &order.Order, big.NewInt(100), order.Signature)
	require.NoError(t, err)
	assert.Equal(t, int64(100), results.TakerAssetFilledAmount.Int64())

	before := env.snapshot(t)
	_, err = env.exchange.FillOrKillOrder(taker, &order.Order, big.NewInt(150), order.Signature)
	var incomplete *IncompleteFillError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, "150", incomplete.Expected)
	assert.Equal(t, "100", incomplete.Actual)
	assert.True(t, errors.Is(err, ErrIncompleteFill))

	assert.Equal(t, before, env.snapshot(t))
	assert.Equal(t, int64(100), env.filled(t, &order.Order))
}

func TestFillOrderSkipsZeroFees(t *testing.T) {
	env := newTestEnv(t)
	order := env.order(t, func(d *chain.OrderData) {
		d.MakerFee = nil
		d.TakerFee = nil
	})

	results, err := env.exchange.FillOrder(env.taker.Address(), &order.Order, big.NewInt(200), order.Signature)
	require.NoError(t, err)
	assert.Equal(t, int64(0), results.MakerFeePaid.Int64())
	assert.Equal(t, int64(0), env.balance(t, feeToken, testFeeRecipient))
}

func TestRegisterAssetProxyTwice(t *testing.T) {
	env := newTestEnv(t)
	err := env.exchange.RegisterAssetProxy(env.proxy)
	assert.ErrorIs(t, err, ErrAssetProxyExists)
}

func TestOrderStatusIsInvalid(t *testing.T) {
	env := newTestEnv(t)
	noMaker := env.order(t, func(d *chain.OrderData) { d.MakerAssetAmount = new(big.Int) })
	assert.Equal(t, OrderStatusInvalidMakerAssetAmount, env.status(t, &noMaker.Order))
	assert.True(t, env.status(t, &noMaker.Order).IsInvalid())

	expired := env.order(t, func(d *chain.OrderData) { d.Expiration = testNow })
	assert.Equal(t, OrderStatusExpired, env.status(t, &expired.Order))
	assert.False(t, OrderStatusExpired.IsInvalid())
	assert.False(t, OrderStatusFillable.IsInvalid())
}

func TestFillOrderLiteralScenario(t *testing.T) {
	env := newTestEnv(t)
	order := env.order(t, func(d *chain.OrderData) {
		d.MakerAssetAmount = big.NewInt(200)
		d.TakerAssetAmount = big.NewInt(100)
	})
	maker, taker := env.maker.Address(), env.taker.Address()

	results, err := env.exchange.FillOrder(taker, &order.Order, big.NewInt(50), order.Signature)
	require.NoError(t, err)
	assert.Equal(t, int64(100), results.MakerAssetFilledAmount.Int64())
	assert.Equal(t, int64(50), results.TakerAssetFilledAmount.Int64())
	assert.Equal(t, int64(5), results.MakerFeePaid.Int64())
	assert.Equal(t, int64(5), results.TakerFeePaid.Int64())

	assert.Equal(t, int64(900), env.balance(t, makerToken, maker))
	assert.Equal(t, int64(1050), env.balance(t, takerToken, maker))
	assert.Equal(t, int64(1100), env.balance(t, makerToken, taker))
	assert.Equal(t, int64(950), env.balance(t, takerToken, taker))
	assert.Equal(t, int64(10), env.balance(t, feeToken, testFeeRecipient))
}

func TestFillOrderRejectsOutOfRangeFields(t *testing.T) {
	mutations := map[string]func(o *chain.Order){
		"maker amount": func(o *chain.Order) { o.MakerAssetAmount = wrapUint256(o.MakerAssetAmount) },
		"taker amount": func(o *chain.Order) { o.TakerAssetAmount = wrapUint256(o.TakerAssetAmount) },
		"maker fee":    func(o *chain.Order) { o.MakerFee = wrapUint256(o.MakerFee) },
		"taker fee":    func(o *chain.Order) { o.TakerFee = wrapUint256(o.TakerFee) },
		"expiration":   func(o *chain.Order) { o.ExpirationTimeSeconds = wrapUint256(o.ExpirationTimeSeconds) },
		"salt":         func(o *chain.Order) { o.Salt = wrapUint256(o.Salt) },
		"negative fee": func(o *chain.Order) { o.TakerFee = big.NewInt(-10) },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t)
			order := env.order(t, nil)
			before := env.snapshot(t)

			tampered := order.Order
			mutate(&tampered)
			assert.Equal(t, OrderStatusInvalid, env.status(t, &tampered))

			_, err := env.exchange.FillOrder(env.taker.Address(), &tampered, big.NewInt(100), order.Signature)
			var statusErr *OrderStatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, OrderStatusInvalid, statusErr.Status)
			assert.Equal(t, before, env.snapshot(t))
		})
	}
}

func TestFillExpiredOrderWithWrappedExpiry(t *testing.T) {
	env := newTestEnv(t)
	order := env.order(t, func(d *chain.OrderData) { d.Expiration = testNow.Add(-time.Hour) })
	assert.Equal(t, OrderStatusExpired, env.status(t, &order.Order))

	tampered := order.Order
	tampered.ExpirationTimeSeconds = wrapUint256(order.ExpirationTimeSeconds)
	info, err := env.exchange.GetOrderInfo(&tampered)
	require.NoError(t, err)
	original, err := env.exchange.GetOrderInfo(&order.Order)
	require.NoError(t, err)
	assert.Equal(t, original.Hash, info.Hash)
	assert.Equal(t, OrderStatusInvalid, info.Status)

	_, err = env.exchange.FillOrder(env.taker.Address(), &tampered, big.NewInt(100), order.Signature)
	assert.ErrorIs(t, err, ErrOrderStatus)
	assert.Equal(t, int64(0), env.filled(t, &order.Order))
}
