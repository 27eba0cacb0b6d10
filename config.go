package settlement

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/kaifufi/settlement-exchange-go/chain"
	"github.com/kaifufi/settlement-exchange-go/internal/metrics"
	"github.com/kaifufi/settlement-exchange-go/store"
)

// ChainID represents a blockchain chain ID
type ChainID int64

const (
	ChainIDMainnet ChainID = 1    // Ethereum mainnet
	ChainIDGanache ChainID = 1337 // local development chain
)

// SupportedChainIDs lists all supported chain IDs
var SupportedChainIDs = []ChainID{ChainIDMainnet, ChainIDGanache}

// ContractAddresses holds contract addresses for each chain
type ContractAddresses struct {
	Exchange   common.Address
	ERC20Proxy common.Address
	ZRXToken   common.Address
}

// DefaultContractAddresses maps chain IDs to their contract addresses
var DefaultContractAddresses = map[ChainID]ContractAddresses{
	ChainIDMainnet: {
		Exchange:   common.HexToAddress("0x080bf510fcbf18b91105470639e9561022937712"),
		ERC20Proxy: common.HexToAddress("0x95e6f48254609a6ee006f7d493c8e5fb97094cef"),
		ZRXToken:   common.HexToAddress("0xe41d2489571d322189246dafa5ebde1f4699f498"),
	},
	ChainIDGanache: {
		Exchange:   common.HexToAddress("0x48bacb9266a570d521063ef5dd96e61686dbe788"),
		ERC20Proxy: common.HexToAddress("0x1dc4c1cefef38a777b15aa20260a54e584b16c48"),
		ZRXToken:   common.HexToAddress("0x871dd7c2b4b25e1aa18728e9d5f2af4c4e431f5c"),
	},
}

// BigInt returns the chain id as used in the EIP712 domain
func (c ChainID) BigInt() *big.Int {
	return big.NewInt(int64(c))
}

// Config configures an Exchange
type Config struct {
	ChainID ChainID
	// Address is the exchange's verifying contract. Defaults to the
	// deployment for ChainID.
	Address common.Address
	// FeeAssetData names the asset fees are paid in. Defaults to ZRX on
	// ChainID.
	FeeAssetData []byte
	// Store holds all exchange state. Defaults to an in-memory store.
	Store   store.Store
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// Clock defaults to time.Now
	Clock func() time.Time
}

func (c *Config) withDefaults() (*Config, error) {
	out := *c
	deployment, ok := DefaultContractAddresses[c.ChainID]
	if !ok && (out.Address == (common.Address{}) || len(out.FeeAssetData) == 0) {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedChain, c.ChainID)
	}
	if out.Address == (common.Address{}) {
		out.Address = deployment.Exchange
	}
	if len(out.FeeAssetData) == 0 {
		out.FeeAssetData = chain.EncodeERC20AssetData(deployment.ZRXToken)
	}
	if out.Store == nil {
		out.Store = store.NewMemory()
	}
	if out.Logger == nil {
		out.Logger = zap.NewNop()
	}
	if out.Clock == nil {
		out.Clock = time.Now
	}
	return &out, nil
}
