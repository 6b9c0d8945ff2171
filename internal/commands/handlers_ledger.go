package commands

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"

	"parlor/internal/chat"
	"parlor/internal/core"
)

func handleBalance(ctx context.Context, d *Dispatcher, ev chat.InboundEvent, args string) error {
	u, err := d.Ledger.GetUser(ctx, ev.UserID)
	if err != nil {
		return err
	}
	d.reply(ctx, ev.ChannelID, fmt.Sprintf("你有 %d 个星星 和 %d 个星之碎片", u.Level, u.Balance))
	return nil
}

// dailyAmount draws 1..10 shards from a Gaussian(mu=5.5, sigma=2) clamped
// to [1,10], per spec.md §6/§9's fixed (non-randint) variant. This is a
// cosmetic daily-bonus draw, not a stake-bearing one, so it uses math/rand
// rather than internal/fairness's HMAC stream — same justification as
// internal/channels.RandomOtherMember's stdlib random use.
func dailyAmount() int {
	v := int(math.Round(rand.NormFloat64()*2 + 5.5))
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}

func handleDaily(ctx context.Context, d *Dispatcher, ev chat.InboundEvent, args string) error {
	advanced, err := d.Ledger.Daily(ctx, ev.UserID)
	if err != nil {
		return err
	}
	if !advanced {
		d.reply(ctx, ev.ChannelID, "今天已经签到过了")
		return nil
	}
	amount := dailyAmount()
	if err := d.Ledger.Add(ctx, ev.UserID, int64(amount), "daily"); err != nil {
		return err
	}
	d.reply(ctx, ev.ChannelID, fmt.Sprintf("签到成功，获得 %d 个星之碎片", amount))
	return nil
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func handleTransfer(ctx context.Context, d *Dispatcher, ev chat.InboundEvent, args string) error {
	parts := strings.Fields(args)
	if len(parts) != 2 {
		return core.New(core.KindInvalidArgument, "转账格式错误！示例：转账 <昵称> 10")
	}

	var nick, amountStr string
	if isNumber(parts[0]) {
		amountStr, nick = parts[0], parts[1]
	} else {
		nick, amountStr = parts[0], parts[1]
	}

	amount, err := strconv.ParseInt(amountStr, 10, 64)
	if err != nil {
		return core.New(core.KindInvalidArgument, "转账格式错误！示例：转账 <昵称> 10")
	}

	toUserID, found, err := d.Nickname.GetID(ctx, nick)
	if err != nil {
		return err
	}
	if !found {
		return core.New(core.KindNotFound, fmt.Sprintf("Kasumi 不认识%s呢...", nick))
	}

	if err := d.Ledger.Transfer(ctx, ev.UserID, toUserID, amount, "transfer_by_command"); err != nil {
		return err
	}
	d.reply(ctx, ev.ChannelID, fmt.Sprintf("转账成功，已转账 %d 个星之碎片给%s", amount, nick))
	return nil
}

// upgradeCost is the piecewise "摘星" cost curve for reaching level, per
// spec.md §6 / original_source/plugins/daily/utils.py:get_amount_for_level.
func upgradeCost(level int) int64 {
	switch {
	case level <= 20:
		return int64(3 + level)
	case level <= 60:
		return int64(25 + math.Pow(float64(level-20), 1.3))
	default:
		return int64(150 * math.Pow(1.05, float64(level-60)))
	}
}

func handleUpgrade(ctx context.Context, d *Dispatcher, ev chat.InboundEvent, args string) error {
	u, err := d.Ledger.GetUser(ctx, ev.UserID)
	if err != nil {
		return err
	}
	cost := upgradeCost(u.Level + 1)
	if u.Balance < cost {
		d.reply(ctx, ev.ChannelID, fmt.Sprintf("余额不足，摘星需要 %d 个星之碎片", cost))
		return nil
	}
	if err := d.Ledger.Cost(ctx, ev.UserID, cost, fmt.Sprintf("upgrade_%d", u.Level+1)); err != nil {
		return err
	}
	if err := d.Ledger.IncreaseLevel(ctx, ev.UserID, 1); err != nil {
		return err
	}
	d.reply(ctx, ev.ChannelID, fmt.Sprintf(
		"摘星成功，消耗了 %d 个星之碎片。你现在有 %d 颗星星 和 %d 个星之碎片哦~",
		cost, u.Level+1, u.Balance-cost))
	return nil
}

func handleRank(ctx context.Context, d *Dispatcher, ev chat.InboundEvent, args string) error {
	top, err := d.Ledger.GetTopUsers(ctx, 10)
	if err != nil {
		return err
	}
	rank, err := d.Ledger.GetUserRank(ctx, ev.UserID)
	if err != nil {
		return err
	}

	var lines []string
	for i, u := range top {
		display := u.UserID
		if nick, ok, _ := d.Nickname.Get(ctx, u.UserID); ok {
			display = nick
		}
		lines = append(lines, fmt.Sprintf("%d. %s: %d 星 %d 碎片", i+1, display, u.Level, u.Balance))
	}

	rankMsg := fmt.Sprintf("\n你当前的排名是第 %d 名", rank.Rank)
	if rank.Rank != 1 {
		var distances []string
		if rank.DistanceToNextLevel > 0 {
			distances = append(distances, fmt.Sprintf("%d 个星星", rank.DistanceToNextLevel))
		}
		if rank.DistanceToNextRank > 0 {
			distances = append(distances, fmt.Sprintf("%d 个星之碎片", rank.DistanceToNextRank))
		}
		switch len(distances) {
		case 0:
			rankMsg += "，与上一名相同"
		case 1:
			rankMsg += "，离上一名还差 " + distances[0]
		default:
			rankMsg += "，离上一名还差 " + strings.Join(distances, " 和 ")
		}
	}

	d.reply(ctx, ev.ChannelID, strings.Join(lines, "\n")+rankMsg)
	return nil
}

func handleSetNick(ctx context.Context, d *Dispatcher, ev chat.InboundEvent, args string) error {
	text := strings.TrimSpace(args)
	if text == "" || strings.ContainsAny(text, "\n\r") {
		return core.New(core.KindInvalidArgument, "格式错误！正确使用方法：/设置昵称 <昵称>")
	}

	current, has, err := d.Nickname.Get(ctx, ev.UserID)
	if err != nil {
		return err
	}
	if has && current == text {
		d.reply(ctx, ev.ChannelID, fmt.Sprintf("你一直是%s啊，我知道的，不用修改啦", text))
		return nil
	}

	changed, err := d.Nickname.Set(ctx, ev.UserID, text)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	if !has {
		d.reply(ctx, ev.ChannelID, fmt.Sprintf("设置成功！以后 Kasumi 就会叫你%s啦~", text))
		d.reply(ctx, ev.ChannelID, "首次设置昵称免费，下次修改需要 30 个星之碎片哦")
	} else {
		d.reply(ctx, ev.ChannelID, fmt.Sprintf("修改成功！以后 Kasumi 就会叫你%s啦~", text))
	}
	return nil
}

func handleGetNick(ctx context.Context, d *Dispatcher, ev chat.InboundEvent, args string) error {
	nick, ok, err := d.Nickname.Get(ctx, ev.UserID)
	if err != nil {
		return err
	}
	if !ok {
		d.reply(ctx, ev.ChannelID, "你还没有设置昵称哦！")
		return nil
	}
	d.reply(ctx, ev.ChannelID, fmt.Sprintf("你的昵称是%s~", nick))
	return nil
}
