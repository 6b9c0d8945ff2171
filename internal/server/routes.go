package server

import (
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"parlor/internal/core"
)

// RegisterFiberRoutes wires the admin/health surface, read-only ledger and
// envelope endpoints, and the /ws spectator feed. Everything that mutates
// state goes through the chat command dispatch table (cmd/server), not
// through this HTTP surface.
func (s *FiberServer) RegisterFiberRoutes() {
	s.App.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders:     "Accept,Authorization,Content-Type",
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s.App.Get("/health", s.healthHandler)

	api := s.App.Group("/api/v1")

	api.Get("/ledger/:userId/balance", s.getBalanceHandler)
	api.Get("/ledger/:userId/stats", s.getStatsHandler)
	api.Get("/ledger/top", s.getTopUsersHandler)

	api.Get("/envelopes/:channelId", s.getActiveEnvelopesHandler)

	s.App.Get("/ws", websocket.New(s.spectatorHandler))
}

func (s *FiberServer) healthHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"database": s.db.Health(),
		"ws": fiber.Map{
			"status":            "running",
			"connected_clients": s.hub.ClientCount(),
		},
	})
}

func (s *FiberServer) getBalanceHandler(c *fiber.Ctx) error {
	userID := c.Params("userId")
	u, err := s.ledger.GetUser(c.Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"user_id": u.UserID,
		"balance": u.Balance,
		"level":   u.Level,
	})
}

func (s *FiberServer) getStatsHandler(c *fiber.Ctx) error {
	userID := c.Params("userId")
	stats, err := s.ledger.GetUserStats(c.Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(stats)
}

func (s *FiberServer) getTopUsersHandler(c *fiber.Ctx) error {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	users, err := s.ledger.GetTopUsers(c.Context(), limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(users)
}

func (s *FiberServer) getActiveEnvelopesHandler(c *fiber.Ctx) error {
	channelID := c.Params("channelId")
	envelopes, err := s.envelopes.GetActiveEnvelopes(c.Context(), channelID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(envelopes)
}

// spectatorHandler streams spectator Events (game settlements, envelope
// claims, mail dispatch) to a read-only websocket client. It never reads
// client messages back; the connection is purely a broadcast sink.
func (s *FiberServer) spectatorHandler(conn *websocket.Conn) {
	s.hub.connect(conn)
	log.Printf("[WS] spectator session started for %s", conn.Query("channel_id", "any"))
	defer s.hub.unregisterConn(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeError(c *fiber.Ctx, err error) error {
	kind := core.KindOf(err)
	status := fiber.StatusInternalServerError
	switch kind {
	case core.KindNotFound:
		status = fiber.StatusNotFound
	case core.KindInvalidArgument, core.KindInvalidAmount, core.KindInsufficientBalance:
		status = fiber.StatusBadRequest
	case core.KindInternal:
		status = fiber.StatusInternalServerError
	default:
		status = fiber.StatusBadRequest
	}
	var coreErr *core.Error
	message := err.Error()
	if errors.As(err, &coreErr) {
		message = coreErr.Message
	}
	return c.Status(status).JSON(fiber.Map{"error": message, "kind": kind})
}
