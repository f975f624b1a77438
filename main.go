package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"presale_api/api"
	"presale_api/internal/config"
	"presale_api/internal/presale"
)

func main() {
	configPath := flag.String("config", "presale.yaml", "path to the presale config file")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Errorf("error loading config: %v", err))
	}
	params, err := presale.ParamsFromConfig(cfg)
	if err != nil {
		panic(fmt.Errorf("error building presale params: %v", err))
	}

	var storage presale.Storage
	if cfg.DatabasePath != "" {
		sqlite, err := presale.NewSQLiteStorage(cfg.DatabasePath)
		if err != nil {
			panic(fmt.Errorf("error opening transaction log: %v", err))
		}
		defer sqlite.Close()
		storage = sqlite
	} else {
		storage = presale.NewLocalStorage()
	}

	chain := presale.NewRPCChainClient(cfg.ChainRPCURL)
	defer chain.Close()
	oracle := presale.NewHTTPRateOracle(cfg.OracleURL, cfg.AssetID, cfg.FiatCurrency)
	defer oracle.Close()

	var counter presale.SoldCounter
	if cfg.LedgerURL != "" {
		httpCounter := presale.NewHTTPSoldCounter(cfg.LedgerURL)
		defer httpCounter.Close()
		counter = httpCounter
	}
	var provider presale.WalletProvider
	if cfg.WalletURL != "" {
		remote := presale.NewRemoteWalletProvider(cfg.WalletURL)
		defer remote.Close()
		provider = remote
	}

	service, err := presale.NewService(params, storage, chain, oracle, counter, provider, presale.SystemClock(), logger)
	if err != nil {
		panic(fmt.Errorf("error creating presale service: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go service.PollRate(ctx, cfg.RatePollInterval.Std())
	if counter != nil {
		go service.PollSoldCount(ctx, cfg.SoldPollInterval.Std())
	}

	r := gin.Default()
	api.InitRoutes(r, service, logger)

	if err := r.Run(cfg.Listen); err != nil {
		panic(fmt.Errorf("error trying to start server: %v", err))
	}
}
