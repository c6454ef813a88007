package server

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"crypto-market-pipeline/internal/aggregator"
	"crypto-market-pipeline/internal/domain"
)

func (s *FiberServer) RegisterFiberRoutes() {
	s.App.Get("/health", s.healthHandler)
	s.App.Get("/api/quotes/:pair", s.quotesHandler)
	s.App.Get("/api/book/:venue/:pair", s.bookHandler)
	s.App.Get("/api/opportunities/:pair", s.opportunitiesHandler)

	s.App.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.App.Get("/ws/ticks", websocket.New(s.ticksHandler))
}

func (s *FiberServer) healthHandler(c *fiber.Ctx) error {
	health := fiber.Map{"status": "ok"}
	if s.db != nil {
		if err := s.db.Health(c.Context()); err != nil {
			health["status"] = "degraded"
			health["database"] = err.Error()
			return c.Status(fiber.StatusServiceUnavailable).JSON(health)
		}
		health["database"] = "ok"
	}
	return c.JSON(health)
}

func (s *FiberServer) quotesHandler(c *fiber.Ctx) error {
	pair := c.Params("pair")
	quotes := s.watcher.Quotes(pair)
	if quotes == nil {
		return fiber.NewError(fiber.StatusNotFound, "no quotes for pair "+pair)
	}
	return c.JSON(fiber.Map{"pair": pair, "quotes": quotes})
}

func (s *FiberServer) bookHandler(c *fiber.Ctx) error {
	venue, err := domain.ParseVenue(c.Params("venue"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	pair := c.Params("pair")
	keeper, ok := s.books.Lookup(venue, pair)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "no book for "+venue.String()+" "+pair)
	}

	snapshot, err := keeper.Snapshot(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}
	quote, err := keeper.Quote(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(fiber.Map{"quote": quote, "book": snapshot})
}

func (s *FiberServer) opportunitiesHandler(c *fiber.Ctx) error {
	if s.db == nil {
		return fiber.NewError(fiber.StatusNotFound, "persistence disabled")
	}
	limit := c.QueryInt("limit", 50)
	opportunities, err := s.db.Recent(c.Context(), c.Params("pair"), limit)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"opportunities": opportunities})
}

// ticksHandler streams the aggregated feed to one websocket client. Each
// client holds its own subscription, so a slow client skips forward instead
// of stalling anyone else.
func (s *FiberServer) ticksHandler(conn *websocket.Conn) {
	sub := s.hub.Subscribe()
	defer sub.Close()
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Reads only detect disconnects; clients send nothing meaningful.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		tick, err := sub.Next(ctx)
		if err != nil {
			var lagged *aggregator.LaggedError
			if errors.As(err, &lagged) {
				s.log.Warn("ws client lagged, skipped " + strconv.FormatUint(lagged.Skipped, 10) + " ticks")
				continue
			}
			return
		}
		if err := conn.WriteJSON(tick); err != nil {
			return
		}
	}
}
