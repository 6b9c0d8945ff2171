package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"parlor/internal/chat"
	"parlor/internal/core"
)

// gamesCtx detaches a long-running Play loop from the inbound handler's
// request-scoped context, which may be cancelled (e.g. an HTTP request
// context) well before the game session itself is done.
func gamesCtx() context.Context { return context.Background() }

func parseBet(args string) (int64, string, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return 0, "", core.New(core.KindInvalidAmount, "how much do you want to bet?")
	}
	bet, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || bet <= 0 {
		return 0, "", core.New(core.KindInvalidAmount, "bet must be a positive integer")
	}
	rest := ""
	if len(fields) > 1 {
		rest = strings.Join(fields[1:], " ")
	}
	return bet, rest, nil
}

func handleBlackjack(ctx context.Context, d *Dispatcher, ev chat.InboundEvent, args string) error {
	bet, _, err := parseBet(args)
	if err != nil {
		return err
	}

	engine, outcome, reshuffled, err := d.Blackjack.StartGame(ctx, ev.UserID, ev.ChannelID, bet)
	if err != nil {
		return err
	}
	if reshuffled {
		d.reply(ctx, ev.ChannelID, "the shoe ran low and has been reshuffled")
	}
	if outcome != nil {
		d.reply(ctx, ev.ChannelID, fmt.Sprintf("settled %s, winnings %d", outcome.Outcome, outcome.Winnings))
		return nil
	}

	d.reply(ctx, ev.ChannelID, fmt.Sprintf("bet %d placed, dealing...", bet))
	go d.Blackjack.Play(gamesCtx(), engine, d.sendFunc)
	return nil
}

func handleMines(ctx context.Context, d *Dispatcher, ev chat.InboundEvent, args string) error {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return core.New(core.KindInvalidAmount, "how much do you want to bet?")
	}
	bet, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || bet <= 0 {
		return core.New(core.KindInvalidAmount, "bet must be a positive integer")
	}
	mineCount := 0
	if len(fields) > 1 {
		mineCount, err = strconv.Atoi(fields[1])
		if err != nil {
			return core.New(core.KindInvalidArgument, "mines must be an integer between 1 and 24")
		}
	}

	engine, err := d.Mines.StartGame(ctx, ev.UserID, ev.ChannelID, bet, mineCount)
	if err != nil {
		return err
	}
	d.reply(ctx, ev.ChannelID, fmt.Sprintf("bet %d placed, field ready", bet))
	go d.Mines.Play(gamesCtx(), engine, d.sendFunc)
	return nil
}

func handleOneStroke(ctx context.Context, d *Dispatcher, ev chat.InboundEvent, args string) error {
	difficulty := strings.TrimSpace(args)
	if difficulty == "" {
		difficulty = "normal"
	}

	engine, err := d.OneStroke.StartGame(ctx, ev.UserID, ev.ChannelID, difficulty)
	if err != nil {
		return err
	}
	d.reply(ctx, ev.ChannelID, fmt.Sprintf("%s puzzle ready, draw with WASD", difficulty))
	go d.OneStroke.Play(gamesCtx(), engine, d.sendFunc)
	return nil
}

func handleOneStrokeRank(ctx context.Context, d *Dispatcher, ev chat.InboundEvent, args string) error {
	difficulty := strings.TrimSpace(args)
	if difficulty == "" {
		difficulty = "normal"
	}

	entries, err := d.OneStroke.Leaderboard(ctx, difficulty, 10)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		d.reply(ctx, ev.ChannelID, fmt.Sprintf("no completions recorded yet for %s", difficulty))
		return nil
	}

	var lines []string
	for i, e := range entries {
		display := e.UserID
		if nick, ok, _ := d.Nickname.Get(ctx, e.UserID); ok {
			display = nick
		}
		lines = append(lines, fmt.Sprintf("%d. %s — %.1fs (+%d)", i+1, display, e.ElapsedSeconds, e.Reward))
	}
	d.reply(ctx, ev.ChannelID, strings.Join(lines, "\n"))
	return nil
}
