package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"parlor/internal/chat"
	"parlor/internal/core"
	"parlor/internal/redenvelope"
)

func handleRedEnvelope(ctx context.Context, d *Dispatcher, ev chat.InboundEvent, args string) error {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return core.New(core.KindInvalidArgument, "格式：发红包 [标题] <金额> <个数>")
	}

	count, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil || count <= 0 {
		return core.New(core.KindInvalidArgument, "个数必须是正整数")
	}
	amount, err := strconv.ParseInt(fields[len(fields)-2], 10, 64)
	if err != nil || amount <= 0 {
		return core.New(core.KindInvalidAmount, "金额必须是正整数")
	}
	title := strings.Join(fields[:len(fields)-2], " ")

	envelope, err := d.Envelopes.Create(ctx, ev.UserID, ev.ChannelID, title, amount, count)
	if err != nil {
		return err
	}
	d.reply(ctx, ev.ChannelID, fmt.Sprintf("红包 #%d「%s」已发出，共 %d 个星之碎片，%d 个名额",
		envelope.ChannelIndex, envelope.Title, envelope.TotalAmount, envelope.TotalCount))
	return nil
}

func handleClaim(ctx context.Context, d *Dispatcher, ev chat.InboundEvent, args string) error {
	var index *int
	if text := strings.TrimSpace(args); text != "" {
		n, err := strconv.Atoi(text)
		if err != nil {
			return core.New(core.KindInvalidArgument, "红包编号必须是整数")
		}
		index = &n
	}

	status, amount, completion, err := d.Envelopes.Claim(ctx, ev.UserID, ev.ChannelID, index)
	if err != nil {
		return err
	}

	switch status {
	case redenvelope.ClaimSuccess:
		d.reply(ctx, ev.ChannelID, fmt.Sprintf("抢到了 %d 个星之碎片！", amount))
		if completion != nil {
			d.reply(ctx, ev.ChannelID, fmt.Sprintf(
				"红包已被抢光！手气最佳是%s，抢到了 %d 个星之碎片，耗时 %s",
				completion.LuckyUserID, completion.LuckyAmount, completion.DrainedAfter.Round(time.Second)))
		}
	case redenvelope.ClaimNoActive, redenvelope.ClaimNotFound:
		d.reply(ctx, ev.ChannelID, "没有找到这个红包")
	case redenvelope.ClaimExpired:
		d.reply(ctx, ev.ChannelID, "红包已经过期啦")
	case redenvelope.ClaimEmpty:
		d.reply(ctx, ev.ChannelID, "红包已经被抢光了")
	case redenvelope.ClaimAlready:
		d.reply(ctx, ev.ChannelID, "你已经抢过这个红包了")
	}
	return nil
}

func handleEnvelopes(ctx context.Context, d *Dispatcher, ev chat.InboundEvent, args string) error {
	envelopes, err := d.Envelopes.GetActiveEnvelopes(ctx, ev.ChannelID)
	if err != nil {
		return err
	}
	if len(envelopes) == 0 {
		d.reply(ctx, ev.ChannelID, "当前没有活跃的红包")
		return nil
	}

	var lines []string
	for _, e := range envelopes {
		lines = append(lines, fmt.Sprintf("#%d「%s」剩 %d/%d 个，共 %d 个星之碎片",
			e.ChannelIndex, e.Title, e.RemainingCount, e.TotalCount, e.RemainingAmount))
	}
	d.reply(ctx, ev.ChannelID, strings.Join(lines, "\n"))
	return nil
}
