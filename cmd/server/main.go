// Command server is the process entrypoint: it wires every subsystem
// service to the command dispatch table, starts the admin/spectator HTTP
// surface, and runs the periodic background jobs (envelope expiry sweep,
// scheduled-mail dispatch, mail cleanup, passive-correlator sweep)
// alongside it, shutting down gracefully by refunding every live session.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"

	"parlor/internal/blackjack"
	"parlor/internal/cache"
	"parlor/internal/chat"
	"parlor/internal/channels"
	"parlor/internal/commands"
	"parlor/internal/config"
	"parlor/internal/correlator"
	"parlor/internal/database"
	"parlor/internal/ledger"
	"parlor/internal/mail"
	"parlor/internal/mines"
	"parlor/internal/nickname"
	"parlor/internal/onestroke"
	"parlor/internal/redenvelope"
	"parlor/internal/server"
)

// hubBroadcaster adapts server.Hub's Event-shaped Broadcast to the narrow
// (kind, payload) signature internal/commands depends on, so commands
// never imports the HTTP/WS package directly.
type hubBroadcaster struct{ hub *server.Hub }

func (b hubBroadcaster) Broadcast(kind string, payload any) {
	b.hub.Broadcast(server.Event{Kind: kind, Payload: payload})
}

func main() {
	cfg := config.Load()
	db := database.New()
	defer db.Close()

	if err := database.RunMigrations(db.DB(), envOr("MIGRATIONS_PATH", "./migrations")); err != nil {
		log.Fatalf("[SERVER] migrations failed: %v", err)
	}

	ledgerSvc := ledger.New(db)
	nicknameSvc := nickname.New(db, ledgerSvc, int64(cfg.NicknameCost), cfg.NicknameMaxLen)
	blackjackSvc := blackjack.New(db, ledgerSvc)
	minesSvc := mines.New(db, ledgerSvc)
	onestrokeSvc := onestroke.New(db, ledgerSvc)
	envelopeSvc := redenvelope.New(db, ledgerSvc)
	mailSvc := mail.New(db, ledgerSvc)
	channelsSvc := channels.New(db)
	corr := correlator.New()

	// cache.New returns a nil Service when Redis is unreachable; the mirror
	// degrades to a no-op in that case rather than blocking startup on it.
	var mirror *correlator.RedisMirror
	if cacheSvc := cache.New(); cacheSvc != nil {
		defer cacheSvc.Close()
		mirror = correlator.NewRedisMirror(cacheSvc.GetClient())
	}

	fiberServer := server.New(server.Services{
		DB:         db,
		Ledger:     ledgerSvc,
		Correlator: corr,
		Blackjack:  blackjackSvc,
		Mines:      minesSvc,
		OneStroke:  onestrokeSvc,
		Envelopes:  envelopeSvc,
		Mail:       mailSvc,
		Channels:   channelsSvc,
	})
	go fiberServer.Hub().Run()

	dispatcher := commands.New(commands.Options{
		Config:      cfg,
		Transport:   chat.LogTransport{},
		Correlator:  corr,
		Mirror:      mirror,
		Broadcaster: hubBroadcaster{hub: fiberServer.Hub()},
		Superusers:  cfg.SuperuserIDs,
		Ledger:      ledgerSvc,
		Nickname:    nicknameSvc,
		Blackjack:   blackjackSvc,
		Mines:       minesSvc,
		OneStroke:   onestrokeSvc,
		Envelopes:   envelopeSvc,
		Mail:        mailSvc,
		Channels:    channelsSvc,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return runHTTP(gctx, fiberServer, envOr("PORT", "8080")) })
	g.Go(func() error { return runEvery(gctx, 5*time.Minute, func() { sweepEnvelopes(gctx, envelopeSvc) }) })
	g.Go(func() error { return runEvery(gctx, 5*time.Second, func() { processDueMail(gctx, mailSvc) }) })
	g.Go(func() error { return runDailyAt(gctx, 3, 0, func() { cleanupMail(gctx, mailSvc) }) })
	g.Go(func() error { return runEvery(gctx, time.Minute, corr.Sweep) })

	// The real chat-transport adapter is out of scope (spec.md's
	// Non-goals); this endpoint lets any adapter (or a manual curl)
	// feed inbound events into the dispatch table over plain HTTP.
	fiberServer.App.Post("/api/v1/inbound", inboundHandler(dispatcher))

	<-gctx.Done()
	log.Println("[SERVER] shutting down, refunding active sessions...")
	refundAll(context.Background(), blackjackSvc, minesSvc, onestrokeSvc)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("[SERVER] shutdown error: %v", err)
	}
}

// inboundHandler decodes a chat.InboundEvent from the request body and
// routes it through the dispatcher, stamping Timestamp with the receive
// time when the caller omits it.
func inboundHandler(d *commands.Dispatcher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var ev chat.InboundEvent
		if err := c.BodyParser(&ev); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid inbound event"})
		}
		if ev.Timestamp.IsZero() {
			ev.Timestamp = time.Now()
		}
		d.Handle(c.Context(), ev)
		return c.SendStatus(fiber.StatusAccepted)
	}
}

func runHTTP(ctx context.Context, s *server.FiberServer, port string) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Listen(":" + port) }()

	select {
	case <-ctx.Done():
		return s.ShutdownWithTimeout(5 * time.Second)
	case err := <-errCh:
		return err
	}
}

func runEvery(ctx context.Context, interval time.Duration, fn func()) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			fn()
		}
	}
}

// runDailyAt fires fn once per day at the given local hour:minute,
// per spec.md §4.8's "every day at 03:00 local" mail cleanup schedule.
func runDailyAt(ctx context.Context, hour, minute int, fn func()) error {
	for {
		now := time.Now()
		next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.Local)
		if !next.After(now) {
			next = next.Add(24 * time.Hour)
		}
		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			fn()
		}
	}
}

func sweepEnvelopes(ctx context.Context, svc *redenvelope.Service) {
	n, err := svc.SweepExpired(ctx)
	if err != nil {
		log.Printf("[JOBS] envelope sweep: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[JOBS] expired %d envelope(s)", n)
	}
}

func processDueMail(ctx context.Context, svc *mail.Service) {
	n, err := svc.ProcessDueMails(ctx)
	if err != nil {
		log.Printf("[JOBS] process due mail: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[JOBS] dispatched %d scheduled mail(s)", n)
	}
}

func cleanupMail(ctx context.Context, svc *mail.Service) {
	n, err := svc.CleanupExpired(ctx)
	if err != nil {
		log.Printf("[JOBS] cleanup expired mail: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[JOBS] deleted %d expired mail template(s)", n)
	}
}

// refundAll restores every live session's stake across all three games,
// per spec.md §4.3/§5's shutdown-ordering guarantee.
func refundAll(ctx context.Context, bj *blackjack.Service, mn *mines.Service, ost *onestroke.Service) {
	for _, userID := range bj.Sessions.ActiveUserIDs() {
		if err := bj.Refund(ctx, userID); err != nil {
			log.Printf("[SERVER] refund blackjack %s: %v", userID, err)
		}
	}
	for _, userID := range mn.Sessions.ActiveUserIDs() {
		if err := mn.Refund(ctx, userID); err != nil {
			log.Printf("[SERVER] refund mines %s: %v", userID, err)
		}
	}
	for _, userID := range ost.Sessions.ActiveUserIDs() {
		ost.Abandon(userID)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
