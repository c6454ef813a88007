package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"crypto-market-pipeline/internal/aggregator"
	"crypto-market-pipeline/internal/arbitrage"
	"crypto-market-pipeline/internal/database"
	"crypto-market-pipeline/internal/domain"
	"crypto-market-pipeline/internal/exchange/binance"
	"crypto-market-pipeline/internal/exchange/coinbase"
	"crypto-market-pipeline/internal/exchange/coingecko"
	"crypto-market-pipeline/internal/exchange/kraken"
	"crypto-market-pipeline/internal/exchange/mock"
	"crypto-market-pipeline/internal/orderbook"
	"crypto-market-pipeline/internal/platform/config"
	"crypto-market-pipeline/internal/platform/logger"
	"crypto-market-pipeline/internal/server"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logFile := ""
	if cfg.Log.Dir != "" {
		logFile = cfg.Log.Dir + "/pipeline.log"
	}
	log, err := logger.New(logger.Config{
		Filename: logFile,
		Level:    cfg.Log.Level,
		Console:  cfg.Log.Console,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := aggregator.New(cfg.Aggregator.Capacity, log)

	var wg sync.WaitGroup
	runConnector := func(connector domain.Connector) {
		in := hub.CreateInputChannel(cfg.Aggregator.Capacity)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer close(in)
			if err := connector.Run(ctx, in); err != nil && ctx.Err() == nil {
				log.Error(connector.Venue().String() + " connector exited: " + err.Error())
			}
		}()
	}

	for name, venueCfg := range cfg.Venues {
		if !venueCfg.Enabled {
			continue
		}
		venue, err := domain.ParseVenue(name)
		if err != nil {
			log.Error("skipping venue " + name + ": " + err.Error())
			continue
		}
		switch venue {
		case domain.Binance:
			runConnector(binance.NewConnector(venueCfg.Pairs, log))
		case domain.Coinbase:
			runConnector(coinbase.NewConnector(venueCfg.Pairs, log))
		case domain.Kraken:
			runConnector(kraken.NewConnector(venueCfg.Pairs, log))
		case domain.CoinGecko:
			interval := time.Duration(venueCfg.PollIntervalMs) * time.Millisecond
			runConnector(coingecko.NewConnector(venueCfg.Pairs, interval, log))
		case domain.Mock:
			runConnector(mock.NewConnector(venueCfg.Pairs, log))
		}
	}

	books := orderbook.NewRegistry()
	runBookStream := func(keeper *orderbook.Keeper, run func(context.Context) error) {
		books.Register(keeper)
		wg.Add(2)
		go func() {
			defer wg.Done()
			keeper.Run(ctx)
		}()
		go func() {
			defer wg.Done()
			if err := run(ctx); err != nil && ctx.Err() == nil {
				log.Error("book stream exited for " + keeper.Venue().String() + " " + keeper.Pair() + ": " + err.Error())
			}
		}()
	}

	for _, feed := range cfg.BookFeeds {
		venue, err := domain.ParseVenue(feed.Venue)
		if err != nil {
			log.Error("skipping book feed: " + err.Error())
			continue
		}
		keeper := orderbook.NewKeeper(venue, feed.Pair, log)
		switch venue {
		case domain.Binance:
			runBookStream(keeper, binance.NewBookStream(feed.Pair, feed.Depth, keeper, log).Run)
		case domain.Coinbase:
			runBookStream(keeper, coinbase.NewBookStream(feed.Pair, keeper, log).Run)
		case domain.Kraken:
			runBookStream(keeper, kraken.NewBookStream(feed.Pair, feed.Depth, keeper, log).Run)
		case domain.Mock:
			runBookStream(keeper, mock.NewBookStream(feed.Pair, keeper, log).Run)
		default:
			log.Error("no book feed support for venue " + venue.String())
		}
	}

	fees := make(map[domain.Venue]float64, len(cfg.Venues))
	for name, venueCfg := range cfg.Venues {
		if venue, err := domain.ParseVenue(name); err == nil {
			fees[venue] = venueCfg.TakerFee
		}
	}

	var sinks []arbitrage.Sink
	var db *database.Service
	if cfg.Database.Path != "" {
		db, err = database.Open(cfg.Database.Path, log)
		if err != nil {
			log.Error("database disabled: " + err.Error())
		} else {
			defer db.Close()
			sinks = append(sinks, db)
		}
	}
	webhookUrl := cfg.Discord.WebhookUrl
	if fromEnv := os.Getenv("DISCORD_WEBHOOK_URL"); fromEnv != "" {
		webhookUrl = fromEnv
	}
	if webhookUrl != "" {
		alerter, err := arbitrage.NewAlerter(webhookUrl, log)
		if err != nil {
			log.Error("discord alerts disabled: " + err.Error())
		} else {
			defer alerter.Close(context.Background())
			sinks = append(sinks, alerter)
		}
	}

	analyzer := arbitrage.NewAnalyzer(fees, cfg.Arbitrage.MinNetEdge)
	watcher := arbitrage.NewWatcher(hub, analyzer, sinks, log)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("watcher exited: " + err.Error())
		}
	}()

	fiberServer := server.New(hub, watcher, books, db, log)
	fiberServer.RegisterFiberRoutes()

	port := cfg.Server.Port
	if fromEnv, err := strconv.Atoi(os.Getenv("PORT")); err == nil && fromEnv > 0 {
		port = fromEnv
	}
	go func() {
		log.Info("http server listening on :" + strconv.Itoa(port))
		if err := fiberServer.Listen(fmt.Sprintf(":%d", port)); err != nil {
			log.Error("http server error: " + err.Error())
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fiberServer.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("server forced to shutdown: " + err.Error())
	}

	wg.Wait()
	log.Info("shutdown complete")
}
