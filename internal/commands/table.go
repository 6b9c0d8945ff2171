package commands

// buildTable registers every command name and alias from spec.md §6's
// table against its handler. Aliases are registered verbatim so
// normalizeText's full-width folding is the only transformation applied.
func (d *Dispatcher) buildTable() map[string]handlerFunc {
	t := map[string]handlerFunc{}

	reg := func(h handlerFunc, names ...string) {
		for _, n := range names {
			t[n] = h
		}
	}

	reg(handleBalance, "balance", "余额")
	reg(handleDaily, "daily", "签到")
	reg(handleTransfer, "transfer", "转账")
	reg(handleUpgrade, "upgrade", "摘星")
	reg(handleRank, "rank", "排行榜")
	reg(handleSetNick, "setnick", "叫我", "设置昵称")
	reg(handleGetNick, "getnick", "我的昵称")

	reg(handleBlackjack, "blackjack", "黑香澄")
	reg(handleMines, "mines", "探险")
	reg(handleOneStroke, "onestroke", "一笔画")
	reg(handleOneStrokeRank, "onestroke_rank")

	reg(handleMail, "mail", "邮箱")
	reg(handleScheduleMail, "schedulemail")

	reg(handleRedEnvelope, "redenvelope", "发红包")
	reg(handleClaim, "claim", "抢红包")
	reg(handleEnvelopes, "envelopes", "红包列表")

	return t
}
