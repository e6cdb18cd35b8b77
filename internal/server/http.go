// Package server exposes the read-only query API the game website and
// admin tooling consume. Writes never come through here; every state
// change enters the engine as an event.
package server

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"DiamondLedger/internal/observability"
	"DiamondLedger/internal/projection"
	"DiamondLedger/internal/query"
)

type QueryServer struct {
	app     *fiber.App
	service *query.Service
	feed    *projection.UnlockHistory
	health  *observability.HealthChecker
	logger  zerolog.Logger
}

func NewQueryServer(service *query.Service, feed *projection.UnlockHistory, health *observability.HealthChecker) *QueryServer {
	s := &QueryServer{
		app: fiber.New(fiber.Config{
			DisableStartupMessage: true,
			ReadBufferSize:        16 * 1024,
		}),
		service: service,
		feed:    feed,
		health:  health,
		logger:  observability.NewLogger("query-server"),
	}
	s.routes()
	return s
}

func (s *QueryServer) routes() {
	s.app.Get("/healthz", s.handleLiveness)
	s.app.Get("/readyz", s.handleReadiness)

	v1 := s.app.Group("/v1")
	v1.Get("/earnings/:account", s.handleEarnings)
	v1.Get("/payouts/:account", s.handlePayouts)
	v1.Get("/unlocks", s.handleUnlocks)
	v1.Get("/unlocks/recent", s.handleRecentUnlocks)
	v1.Get("/admin/integrity", s.handleIntegrity)
}

// Listen blocks serving the API until Shutdown is called.
func (s *QueryServer) Listen(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("query API listening")
	return s.app.Listen(addr)
}

func (s *QueryServer) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *QueryServer) handleLiveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "alive"})
}

func (s *QueryServer) handleReadiness(c *fiber.Ctx) error {
	if s.health != nil && !s.health.IsReady() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "not_ready"})
	}
	return c.JSON(fiber.Map{"status": "ready"})
}

func (s *QueryServer) handleEarnings(c *fiber.Ctx) error {
	account := c.Params("account")
	earnings, err := s.service.GetEarnings(c.Context(), account)
	if err != nil {
		s.logger.Error().Err(err).Str("account", account).Msg("earnings query failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "query failed"})
	}
	return c.JSON(fiber.Map{"earnings": earnings})
}

func (s *QueryServer) handlePayouts(c *fiber.Ctx) error {
	account := c.Params("account")
	limit := clampLimit(c.QueryInt("limit", 50))

	var after *int64
	if v := c.Query("after"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "after must be an integer"})
		}
		after = &n
	}

	payouts, err := s.service.GetPayoutHistory(c.Context(), account, limit, after)
	if err != nil {
		s.logger.Error().Err(err).Str("account", account).Msg("payout query failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "query failed"})
	}
	return c.JSON(fiber.Map{"payouts": payouts})
}

func (s *QueryServer) handleUnlocks(c *fiber.Ctx) error {
	account := c.Query("account")
	limit := clampLimit(c.QueryInt("limit", 50))

	var checkpointKey uint64
	if v := c.Query("checkpoint"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "checkpoint must be an integer"})
		}
		checkpointKey = n
	}

	var before *uint64
	if v := c.Query("before"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "before must be an integer"})
		}
		before = &n
	}

	unlocks, err := s.service.GetUnlockHistory(c.Context(), account, checkpointKey, limit, before)
	if err != nil {
		s.logger.Error().Err(err).Msg("unlock query failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "query failed"})
	}
	return c.JSON(fiber.Map{"unlocks": unlocks})
}

// handleRecentUnlocks serves the live activity feed from memory, no DB
// round trip. It lags the durable history by at most the projection
// channel depth.
func (s *QueryServer) handleRecentUnlocks(c *fiber.Ctx) error {
	limit := clampLimit(c.QueryInt("limit", 20))
	if s.feed == nil {
		return c.JSON(fiber.Map{"unlocks": []projection.UnlockEntry{}})
	}
	return c.JSON(fiber.Map{"unlocks": s.feed.Recent(limit)})
}

func (s *QueryServer) handleIntegrity(c *fiber.Ctx) error {
	report, err := s.service.VerifyIntegrity(c.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("integrity check failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "query failed"})
	}
	return c.JSON(report)
}

func clampLimit(n int) int {
	if n < 1 {
		return 1
	}
	if n > 200 {
		return 200
	}
	return n
}
