package settlement

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/kaifufi/settlement-exchange-go/chain"
	"github.com/kaifufi/settlement-exchange-go/store"
	"github.com/kaifufi/settlement-exchange-go/token"
)

var (
	testNow          = time.Unix(1700000000, 0)
	makerToken       = common.HexToAddress("0x1dc4c1cefef38a777b15aa20260a54e584b16c48")
	takerToken       = common.HexToAddress("0x1d7022f5b17d2f8b695918fb48fa1089c9f85401")
	feeToken         = common.HexToAddress("0x871dd7c2b4b25e1aa18728e9d5f2af4c4e431f5c")
	testFeeRecipient = common.HexToAddress("0x00000000000000000000000000000000000000fe")
	testRelayer      = common.HexToAddress("0x00000000000000000000000000000000000000ee")
	initialBalance   = big.NewInt(1000)
)

type testEnv struct {
	exchange *Exchange
	store    store.Store
	ledger   *token.Ledger
	proxy    *token.ERC20Proxy
	maker    *chain.OrderBuilder
	taker    *chain.OrderBuilder
}

func newBuilder(t *testing.T, domain *chain.EIP712Domain) *chain.OrderBuilder {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	ob, err := chain.NewOrderBuilder(domain, key)
	require.NoError(t, err)
	return ob.WithClock(func() time.Time { return testNow })
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s := store.NewMemory()
	ex, err := NewExchange(&Config{
		ChainID:      ChainIDGanache,
		FeeAssetData: chain.EncodeERC20AssetData(feeToken),
		Store:        s,
		Clock:        func() time.Time { return testNow },
	})
	require.NoError(t, err)

	proxy := token.NewERC20Proxy(DefaultContractAddresses[ChainIDGanache].ERC20Proxy)
	proxy.AddAuthorizedAddress(ex.Address())
	require.NoError(t, ex.RegisterAssetProxy(proxy))

	env := &testEnv{
		exchange: ex,
		store:    s,
		ledger:   token.NewLedger(s),
		proxy:    proxy,
		maker:    newBuilder(t, ex.Domain()),
		taker:    newBuilder(t, ex.Domain()),
	}
	for _, owner := range []common.Address{env.maker.Address(), env.taker.Address()} {
		env.fund(t, owner)
	}
	return env
}

// fund mints every test token to owner and approves the proxy
func (env *testEnv) fund(t *testing.T, owner common.Address) {
	t.Helper()
	for _, tok := range []common.Address{makerToken, takerToken, feeToken} {
		require.NoError(t, env.ledger.Mint(tok, owner, initialBalance))
		require.NoError(t, env.ledger.Approve(tok, owner, env.proxy.Address(), token.MaxAllowance))
	}
}

// order builds an order signed by the maker: 100 maker token for 200 taker
// token with fees of 10 each.
func (env *testEnv) order(t *testing.T, mutate func(d *chain.OrderData)) *chain.SignedOrder {
	t.Helper()
	data := &chain.OrderData{
		FeeRecipientAddress: testFeeRecipient,
		MakerAssetAmount:    big.NewInt(100),
		TakerAssetAmount:    big.NewInt(200),
		MakerFee:            big.NewInt(10),
		TakerFee:            big.NewInt(10),
		MakerAssetData:      chain.EncodeERC20AssetData(makerToken),
		TakerAssetData:      chain.EncodeERC20AssetData(takerToken),
		Expiration:          testNow.Add(time.Hour),
	}
	if mutate != nil {
		mutate(data)
	}
	signed, err := env.maker.BuildSignedOrder(data, chain.SignatureTypeEIP712)
	require.NoError(t, err)
	return signed
}

func (env *testEnv) balance(t *testing.T, tok, owner common.Address) int64 {
	t.Helper()
	b, err := env.ledger.BalanceOf(tok, owner)
	require.NoError(t, err)
	return b.Int64()
}

// snapshot returns all balances of the parties involved in tests
func (env *testEnv) snapshot(t *testing.T) map[common.Address]map[common.Address]*big.Int {
	t.Helper()
	balances, err := env.ledger.Balances(
		[]common.Address{makerToken, takerToken, feeToken},
		[]common.Address{env.maker.Address(), env.taker.Address(), testFeeRecipient, testRelayer},
	)
	require.NoError(t, err)
	return balances
}

func (env *testEnv) status(t *testing.T, order *chain.Order) OrderStatus {
	t.Helper()
	info, err := env.exchange.GetOrderInfo(order)
	require.NoError(t, err)
	return info.Status
}

func (env *testEnv) filled(t *testing.T, order *chain.Order) int64 {
	t.Helper()
	info, err := env.exchange.GetOrderInfo(order)
	require.NoError(t, err)
	return info.TakerAssetFilledAmount.Int64()
}

// takerTx wraps calldata in a transaction signed by the taker
func (env *testEnv) takerTx(t *testing.T, data []byte) *chain.SignedTransaction {
	t.Helper()
	tx, err := env.taker.BuildSignedTransaction(data, testNow.Add(time.Hour), chain.SignatureTypeEIP712)
	require.NoError(t, err)
	return tx
}

func fillCalldata(t *testing.T, order *chain.SignedOrder, amount int64) []byte {
	t.Helper()
	data, err := chain.EncodeFillOrder(&order.Order, big.NewInt(amount), order.Signature)
	require.NoError(t, err)
	return data
}

// wrapUint256 returns v + 2^256, which hashes like v
func wrapUint256(v *big.Int) *big.Int {
	return new(big.Int).Add(v, new(big.Int).Lsh(big.NewInt(1), 256))
}
