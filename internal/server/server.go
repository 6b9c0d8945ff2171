package server

import (
	"github.com/gofiber/fiber/v2"

	"parlor/internal/blackjack"
	"parlor/internal/channels"
	"parlor/internal/correlator"
	"parlor/internal/database"
	"parlor/internal/ledger"
	"parlor/internal/mail"
	"parlor/internal/mines"
	"parlor/internal/onestroke"
	"parlor/internal/redenvelope"
)

// FiberServer is the process's small admin/observability surface: a
// health check, read-only ledger/envelope endpoints, and a /ws spectator
// feed. The chat-transport adapter drives every mutating operation
// through the command dispatch table (see cmd/server); this HTTP surface
// never itself debits or credits a user.
type FiberServer struct {
	*fiber.App

	db         database.Service
	ledger     *ledger.Service
	correlator *correlator.Correlator
	blackjack  *blackjack.Service
	mines      *mines.Service
	onestroke  *onestroke.Service
	envelopes  *redenvelope.Service
	mail       *mail.Service
	channels   *channels.Service
	hub        *Hub
}

// Services bundles every subsystem FiberServer reports on or spectates.
type Services struct {
	DB         database.Service
	Ledger     *ledger.Service
	Correlator *correlator.Correlator
	Blackjack  *blackjack.Service
	Mines      *mines.Service
	OneStroke  *onestroke.Service
	Envelopes  *redenvelope.Service
	Mail       *mail.Service
	Channels   *channels.Service
}

// New builds the Fiber app and registers routes. The returned server's
// Hub must be run (via Hub().Run in its own goroutine) by the caller
// alongside the app.
func New(svc Services) *FiberServer {
	s := &FiberServer{
		App: fiber.New(fiber.Config{
			ServerHeader: "parlor",
			AppName:      "parlor",
		}),
		db:         svc.DB,
		ledger:     svc.Ledger,
		correlator: svc.Correlator,
		blackjack:  svc.Blackjack,
		mines:      svc.Mines,
		onestroke:  svc.OneStroke,
		envelopes:  svc.Envelopes,
		mail:       svc.Mail,
		channels:   svc.Channels,
		hub:        NewHub(),
	}
	s.RegisterFiberRoutes()
	return s
}

// Hub exposes the spectator broadcast hub so background jobs and command
// handlers elsewhere in the process can push events to it.
func (s *FiberServer) Hub() *Hub {
	return s.hub
}
