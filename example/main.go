// Example settlement run: a whitelisted taker fills a maker's signed order
// through the whitelist gate against a local store.
package main

import (
	"crypto/ecdsa"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"

	settlement "github.com/kaifufi/settlement-exchange-go"
	"github.com/kaifufi/settlement-exchange-go/chain"
	"github.com/kaifufi/settlement-exchange-go/internal/config"
	"github.com/kaifufi/settlement-exchange-go/internal/logging"
	"github.com/kaifufi/settlement-exchange-go/internal/metrics"
	"github.com/kaifufi/settlement-exchange-go/store"
	"github.com/kaifufi/settlement-exchange-go/token"
	"github.com/kaifufi/settlement-exchange-go/whitelist"
)

const (
	programName = "settlement-example"
)

var cmdlineFlags struct {
	configFile string
	makerKey   string
	takerKey   string
	fillAmount string
}

func main() {
	flag.StringVar(&cmdlineFlags.configFile, "config", "", "path to config file to load")
	flag.StringVar(&cmdlineFlags.makerKey, "maker-key", "", "hex private key of the maker (random if empty)")
	flag.StringVar(&cmdlineFlags.takerKey, "taker-key", "", "hex private key of the taker (random if empty)")
	flag.StringVar(&cmdlineFlags.fillAmount, "fill", "50", "taker token amount to fill, in whole tokens")
	flag.Parse()

	// Load config
	cfg, err := config.Load(cmdlineFlags.configFile)
	if err != nil {
		fmt.Printf("Failed to load config: %s\n", err)
		os.Exit(1)
	}

	// Configure logging
	if err := logging.Configure(cfg.Logging.Level); err != nil {
		fmt.Printf("Failed to configure logging: %s\n", err)
		os.Exit(1)
	}
	logger := logging.GetLogger()
	// Sync logger on exit
	defer func() {
		if err := logger.Sync(); err != nil {
			return
		}
	}()

	if _, err := maxprocs.Set(maxprocs.Logger(logging.GetSugaredLogger().Infof)); err != nil {
		logger.Warn("failed to set GOMAXPROCS", zap.Error(err))
	}

	// Start debug listener
	if cfg.Debug.ListenPort > 0 {
		addr := fmt.Sprintf("%s:%d", cfg.Debug.ListenAddress, cfg.Debug.ListenPort)
		logger.Info("starting debug listener", zap.String("address", addr))
		http.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(addr, nil); err != nil {
				logger.Fatal("failed to start debug listener", zap.Error(err))
			}
		}()
	}

	if err := run(cfg, logger); err != nil {
		logger.Error(programName+" failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	db, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	chainID := settlement.ChainID(cfg.Exchange.ChainID)
	exCfg := &settlement.Config{
		ChainID: chainID,
		Store:   db,
		Logger:  logger,
		Metrics: metrics.New(prometheus.DefaultRegisterer),
	}
	if cfg.Exchange.Address != "" {
		exCfg.Address = common.HexToAddress(cfg.Exchange.Address)
	}
	feeToken := settlement.DefaultContractAddresses[chainID].ZRXToken
	if cfg.Exchange.FeeToken != "" {
		feeToken = common.HexToAddress(cfg.Exchange.FeeToken)
	}
	exCfg.FeeAssetData = chain.EncodeERC20AssetData(feeToken)

	ex, err := settlement.NewExchange(exCfg)
	if err != nil {
		return err
	}

	proxy := token.NewERC20Proxy(settlement.DefaultContractAddresses[chainID].ERC20Proxy)
	proxy.AddAuthorizedAddress(ex.Address())
	if err := ex.RegisterAssetProxy(proxy); err != nil {
		return err
	}

	makerKey, err := loadKey(cmdlineFlags.makerKey)
	if err != nil {
		return fmt.Errorf("maker key: %w", err)
	}
	takerKey, err := loadKey(cmdlineFlags.takerKey)
	if err != nil {
		return fmt.Errorf("taker key: %w", err)
	}
	maker, err := chain.NewOrderBuilder(ex.Domain(), makerKey)
	if err != nil {
		return err
	}
	taker := crypto.PubkeyToAddress(takerKey.PublicKey)

	// Two demo tokens plus the fee token
	baseToken := common.HexToAddress("0x00000000000000000000000000000000000b45e0")
	quoteToken := common.HexToAddress("0x00000000000000000000000000000000000a0073")
	ledger := token.NewLedger(db)
	for _, party := range []common.Address{maker.Address(), taker} {
		for _, tok := range []common.Address{baseToken, quoteToken, feeToken} {
			amount, err := token.ParseAmount("1000", token.MaxDecimals)
			if err != nil {
				return err
			}
			if err := ledger.Mint(tok, party, amount); err != nil {
				return err
			}
			if err := ledger.Approve(tok, party, proxy.Address(), token.MaxAllowance); err != nil {
				return err
			}
		}
	}

	owner := crypto.PubkeyToAddress(makerKey.PublicKey)
	gate := whitelist.New(ex, whitelist.Options{
		Owner:          owner,
		Address:        crypto.CreateAddress(owner, 0),
		Store:          db,
		Logger:         logger,
		TransactionTTL: cfg.Whitelist.TransactionTTL,
	})
	for _, party := range []common.Address{maker.Address(), taker} {
		if err := gate.UpdateWhitelistStatus(owner, party, true); err != nil {
			return err
		}
	}
	if err := ex.SetSignatureValidatorApproval(taker, gate.Address(), true); err != nil {
		return err
	}

	makerAmount, err := token.ParseAmount("100", token.MaxDecimals)
	if err != nil {
		return err
	}
	takerAmount, err := token.ParseAmount("200", token.MaxDecimals)
	if err != nil {
		return err
	}
	fee, err := token.ParseAmount("1", token.MaxDecimals)
	if err != nil {
		return err
	}
	order, err := maker.BuildSignedOrder(&chain.OrderData{
		FeeRecipientAddress: owner,
		MakerAssetAmount:    makerAmount,
		TakerAssetAmount:    takerAmount,
		MakerFee:            fee,
		TakerFee:            fee,
		MakerAssetData:      chain.EncodeERC20AssetData(baseToken),
		TakerAssetData:      chain.EncodeERC20AssetData(quoteToken),
	}, chain.SignatureTypeEIP712)
	if err != nil {
		return err
	}

	fillAmount, err := token.ParseAmount(cmdlineFlags.fillAmount, token.MaxDecimals)
	if err != nil {
		return fmt.Errorf("fill amount: %w", err)
	}
	results, err := gate.FillOrderIfWhitelisted(taker, &order.Order, fillAmount, nil, order.Signature)
	if err != nil {
		return err
	}
	logger.Info("order filled",
		zap.String("maker_filled", token.FormatAmount(results.MakerAssetFilledAmount, token.MaxDecimals)),
		zap.String("taker_filled", token.FormatAmount(results.TakerAssetFilledAmount, token.MaxDecimals)),
		zap.String("maker_fee", token.FormatAmount(results.MakerFeePaid, token.MaxDecimals)),
		zap.String("taker_fee", token.FormatAmount(results.TakerFeePaid, token.MaxDecimals)),
	)

	info, err := ex.GetOrderInfo(&order.Order)
	if err != nil {
		return err
	}
	logger.Info("order status",
		zap.String("order_hash", info.Hash.Hex()),
		zap.Stringer("status", info.Status),
		zap.String("filled", token.FormatAmount(info.TakerAssetFilledAmount, token.MaxDecimals)),
	)

	balances, err := ledger.Balances(
		[]common.Address{baseToken, quoteToken, feeToken},
		[]common.Address{maker.Address(), taker},
	)
	if err != nil {
		return err
	}
	for tok, owners := range balances {
		for party, amount := range owners {
			logger.Info("balance",
				zap.String("token", tok.Hex()),
				zap.String("owner", party.Hex()),
				zap.String("amount", token.FormatAmount(amount, token.MaxDecimals)),
			)
		}
	}
	return nil
}

func openStore(cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	if cfg.Storage.InMemory && cfg.Storage.Directory == "" {
		return store.NewMemory(), nil
	}
	return store.OpenBadger(store.BadgerOptions{
		Directory: cfg.Storage.Directory,
		InMemory:  cfg.Storage.InMemory,
		Logger:    logger,
	})
}

func loadKey(hexKey string) (*ecdsa.PrivateKey, error) {
	if hexKey == "" {
		return crypto.GenerateKey()
	}
	return crypto.HexToECDSA(common.Bytes2Hex(common.FromHex(hexKey)))
}
