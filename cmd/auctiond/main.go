package main

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/joho/godotenv"

	"github.com/mooveapp/auctiond/internal/chain"
	"github.com/mooveapp/auctiond/internal/metadata"
	"github.com/mooveapp/auctiond/internal/server"
	"github.com/mooveapp/auctiond/internal/services"
	"github.com/mooveapp/auctiond/internal/subgraph"
	"github.com/mooveapp/auctiond/pkg/config"
	"github.com/mooveapp/auctiond/pkg/logger"
	"github.com/mooveapp/auctiond/pkg/secretstore"
	"github.com/mooveapp/auctiond/pkg/shutdown"
	"github.com/mooveapp/auctiond/pkg/syncgroup"
)

func main() {
	// Load .env (best-effort). If missing, fall back to real env vars.
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", os.Getenv("AUCTIOND_CONFIG"), "YAML config file path")
		listenAddr = flag.String("listen", "", "HTTP listen address (overrides config)")
	)
	flag.Parse()

	cfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	if *listenAddr != "" {
		cfg.Server.Listen = *listenAddr
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		OutputFile: cfg.Log.OutputFile,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}

	privateKey, err := loadOperatorKey(cfg)
	if err != nil {
		logger.Errorf("加载运营方私钥失败: %v", err)
		os.Exit(1)
	}
	if privateKey == nil {
		logger.Infof("未配置运营方私钥，以只读模式启动（不支持提交交易）")
	}

	chainClient, err := chain.NewClient(
		cfg.Chain.RPCURL, cfg.Chain.ChainID,
		cfg.Chain.AuctionContract, cfg.Chain.NFTContract,
		privateKey,
	)
	if err != nil {
		logger.Errorf("创建链上客户端失败: %v", err)
		os.Exit(1)
	}
	defer chainClient.Close()
	if chainClient.CanSubmit() {
		logger.Infof("运营方地址: %s", strings.ToLower(chainClient.OperatorAddress().Hex()))
	}

	indexer := subgraph.NewClient(cfg.Subgraph.AuctionURL, cfg.Subgraph.NFTURL)
	resolver := metadata.NewResolver(metadata.Options{
		GatewayHost:      cfg.Metadata.GatewayHost,
		PlaceholderImage: cfg.Metadata.PlaceholderImage,
		CacheTTL:         cfg.MetadataCacheTTL(),
	})
	defer resolver.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var priceFeed *services.PriceFeed
	if !cfg.PriceFeed.DisablePriceFeed {
		priceFeed = services.NewPriceFeed(cfg.PriceFeed.URL, cfg.PriceRefreshInterval())
		priceFeed.Start(ctx)
	}

	auctions := services.NewAuctionService(chainClient, indexer, priceFeed, cfg.PollInterval())
	auctions.Start(ctx)
	wallets := services.NewWalletService(chainClient, chainClient, indexer, resolver, cfg.PollInterval()*2)

	srv := server.New(server.Deps{
		Auctions:  auctions,
		Wallets:   wallets,
		Bids:      services.NewBidService(auctions, wallets, chainClient),
		Withdraws: services.NewWithdrawService(wallets, chainClient),
		Buys:      services.NewBuyService(chainClient, wallets, chainClient),
		Admin:     services.NewAdminService(chainClient, auctions),
	})

	group := syncgroup.New()
	group.Go(func() {
		srv.Hub().Run(ctx, time.Second)
	})

	httpSrv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	group.Go(func() {
		logger.Infof("auctiond 监听 %s", cfg.Server.Listen)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("HTTP服务异常: %v", err)
		}
	})

	manager := shutdown.NewManager()
	manager.OnShutdown(func(ctx context.Context) {
		_ = httpSrv.Shutdown(ctx)
	})
	manager.OnShutdown(func(ctx context.Context) {
		cancel()
		auctions.Stop()
		wallets.Close()
		if priceFeed != nil {
			priceFeed.Stop()
		}
	})

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	<-stopCh

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	manager.Shutdown(shutdownCtx)
	group.Wait()
	logger.Info("auctiond 已停止")
}

// loadOperatorKey 私钥优先级：环境变量/配置中的hex > secretstore > 无（只读模式）
func loadOperatorKey(cfg *config.Config) (*ecdsa.PrivateKey, error) {
	if hexKey := strings.TrimSpace(cfg.Wallet.PrivateKey); hexKey != "" {
		return parseKeyHex(hexKey)
	}

	if cfg.Wallet.SecretStorePath == "" {
		return nil, nil
	}
	var encKey []byte
	if cfg.Wallet.SecretStoreKeyHex != "" {
		var err error
		encKey, err = hex.DecodeString(strings.TrimPrefix(cfg.Wallet.SecretStoreKeyHex, "0x"))
		if err != nil {
			return nil, fmt.Errorf("解析secretstore加密密钥失败: %w", err)
		}
	}

	store, err := secretstore.Open(secretstore.OpenOptions{
		Path:          cfg.Wallet.SecretStorePath,
		EncryptionKey: encKey,
		ReadOnly:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("打开secretstore失败: %w", err)
	}
	defer store.Close()

	hexKey, ok, err := store.GetString(secretstore.KeyOperatorPrivateKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return parseKeyHex(hexKey)
}

func parseKeyHex(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := ethcrypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("解析私钥失败: %w", err)
	}
	return key, nil
}
