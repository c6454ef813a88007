package server

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"crypto-market-pipeline/internal/aggregator"
	"crypto-market-pipeline/internal/arbitrage"
	"crypto-market-pipeline/internal/database"
	"crypto-market-pipeline/internal/orderbook"
)

// FiberServer exposes the pipeline over HTTP: health, latest quotes, book
// snapshots, persisted signals and a live tick stream.
type FiberServer struct {
	*fiber.App

	hub     *aggregator.Hub
	watcher *arbitrage.Watcher
	books   *orderbook.Registry
	db      *database.Service // nil when persistence is disabled
	log     *zap.Logger
}

func New(hub *aggregator.Hub, watcher *arbitrage.Watcher, books *orderbook.Registry, db *database.Service, log *zap.Logger) *FiberServer {
	server := &FiberServer{
		App: fiber.New(fiber.Config{
			ServerHeader: "crypto-market-pipeline",
			AppName:      "crypto-market-pipeline",
		}),

		hub:     hub,
		watcher: watcher,
		books:   books,
		db:      db,
		log:     log,
	}

	return server
}
