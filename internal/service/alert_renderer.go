package service

import (
	"fmt"
	"strings"

	"github.com/dushixiang/vigil/internal/models"
)

// AlertRenderer 把结构化事件渲染成 Telegram Markdown 文本。
// 渲染与判定分离：引擎只产出事件，这里决定最终的消息样式。
type AlertRenderer struct{}

func NewAlertRenderer() *AlertRenderer {
	return &AlertRenderer{}
}

func (r *AlertRenderer) Render(ev models.AlertEvent) string {
	trade := ev.Trade

	switch ev.Kind {
	case models.AlertEntryZone:
		return fmt.Sprintf("🎯 *%s entered the entry zone!*\n\n"+
			"💰 Price: $%v\n📊 Zone: $%v - $%v\n\n"+
			"🥇 TP1: $%v\n🥈 TP2: $%v\n🥉 TP3: $%v\n🛡 SL: $%v\n\n"+
			"✅ Open the trade now!",
			trade.Pair, ev.Price, trade.EntryMin, trade.EntryMax,
			targetPrice(trade, 1), targetPrice(trade, 2), targetPrice(trade, 3), trade.StopLoss)

	case models.AlertTP1Approach, models.AlertTP2Approach, models.AlertTP3Approach:
		return fmt.Sprintf("🎯 *%s approaching TP%d!*\n\n"+
			"💰 Price: $%v\n🎯 TP%d: $%v\n📊 Progress: %.1f%%\n\n"+
			"Get ready to take partial profit.",
			trade.Pair, ev.Level, ev.Price, ev.Level, targetPrice(trade, ev.Level), ev.Progress)

	case models.AlertTP1Hit, models.AlertTP2Hit, models.AlertTP3Hit:
		return r.renderTPHit(ev)

	case models.AlertTP2Missed, models.AlertTP3Missed:
		return fmt.Sprintf("😢 *%s TP%d missed!*\n\n"+
			"💰 Current: $%v\n🎯 TP%d was: $%v\n📉 Price pulled back past the target\n\n"+
			"Options: wait for a retest, close the rest at market, or lean on the trailed SL.",
			trade.Pair, ev.Level, ev.Price, ev.Level, targetPrice(trade, ev.Level))

	case models.AlertSLHit:
		return r.renderSLHit(ev)

	case models.AlertCritical25:
		return fmt.Sprintf("🚨🚨🚨 *CRITICAL DANGER: %s*\n\n"+
			"💰 Current: $%v\n🛡 SL: $%v\n📊 Only %.1f%% of risk distance left!\n\n"+
			"⚡ Consider closing immediately.",
			trade.Pair, ev.Price, trade.CurrentSL, ev.PctToSL)

	case models.AlertDanger50:
		return fmt.Sprintf("🚨 *DANGER: %s*\n\n"+
			"💰 Current: $%v\n🛡 SL: $%v\n📊 %.1f%% of risk distance left\n\n"+
			"👁 Watch the screen, next stop is CRITICAL at 25%%.",
			trade.Pair, ev.Price, trade.CurrentSL, ev.PctToSL)

	case models.AlertWarning1Pct:
		return fmt.Sprintf("⚠️ *WARNING: %s*\n\n"+
			"💰 Current: $%v\n📉 Moving against entry: %.2f%%\n🎯 Entry was: $%.4f\n\n"+
			"Trade is going the wrong way, tighten up monitoring.",
			trade.Pair, ev.Price, ev.AgainstPct, trade.EntryAvg())

	case models.AlertNearBE:
		return fmt.Sprintf("⚪ *%s near breakeven*\n\n"+
			"💰 Current: $%v\n⚪ BE: $%.4f\n\n"+
			"Up from here → TP1, down → check your SL.",
			trade.Pair, ev.Price, trade.BreakevenPrice)

	case models.AlertLiquidation:
		return fmt.Sprintf("💀💀💀 *LIQUIDATION RISK: %s*\n\n"+
			"💰 Current: $%v\n🛡 SL: $%v\n📊 Only %.1f%% left!\n\n"+
			"🔥 High leverage + this distance = danger. Close now if leveraged.",
			trade.Pair, ev.Price, trade.CurrentSL, ev.PctToSL)

	case models.AlertBEReject:
		return fmt.Sprintf("💔 *%s breakeven rejection!*\n\n"+
			"💰 Current: $%v\n⚪ BE: $%.4f\n📉 Direction: against the position\n\n"+
			"SL sits at breakeven ($%v) — worst case is a scratch, not a loss.",
			trade.Pair, ev.Price, trade.BreakevenPrice, trade.CurrentSL)

	case models.AlertRapidMove:
		arrow := "🚀"
		if trade.Direction == models.DirectionShort {
			arrow = "💥"
		}
		return fmt.Sprintf("%s *RAPID MOVE: %s*\n\n"+
			"💰 Current: $%v\n⚡ Large move within the last 5 minutes\n📊 Abnormal volatility\n\n"+
			"👁 Stay at the screen, a bigger move may follow.",
			arrow, trade.Pair, ev.Price)

	case models.AlertTime30Min:
		minutes := int(ev.TimeLeft.Minutes())
		return fmt.Sprintf("⏰ *TIME WARNING: %s*\n\n"+
			"⏳ %d minutes until the signal expires\n\n"+
			"Status: TP1 %s | TP2 %s | TP3 %s\n\n"+
			"Take the entry now or wait for the next signal.",
			trade.Pair, minutes,
			hitMark(trade, 1), hitMark(trade, 2), hitMark(trade, 3))

	case models.AlertExpired:
		return fmt.Sprintf("⏰ *%s signal expired!*\n\n"+
			"The validity window passed without an entry.\n"+
			"🗑 Ignore this signal and wait for the next one.",
			trade.Pair)

	case models.AlertBEMove:
		return fmt.Sprintf("⚪ *STOP LOSS MOVED TO BREAKEVEN!*\n\n"+
			"🛡 Old SL: $%v\n✅ New SL: $%v\n🎯 Entry: $%.4f\n\n"+
			"🎉 Risk-free trade from here.",
			ev.OldSL, ev.NewSL, trade.BreakevenPrice)

	case models.AlertTrailingSLTP1, models.AlertTrailingSLTP2:
		level := 1
		if ev.Kind == models.AlertTrailingSLTP2 {
			level = 2
		}
		return fmt.Sprintf("🔒 *TRAILING SL UPDATED!*\n\n"+
			"🛡 Old SL: $%v\n✅ New SL: $%v (TP%d)\n\n"+
			"TP%d profit is locked even if price falls back.",
			ev.OldSL, ev.NewSL, level, level)

	case models.AlertAfterTP1Strategy:
		return fmt.Sprintf("📋 *Plan after TP1:*\n\n"+
			"🥇 TP1: done (%.0f%% closed)\n🛡 SL: at BE ($%.4f)\n"+
			"🥈 TP2: $%v\n🥉 TP3: $%v\n\n"+
			"TP2 hit → close %.0f%% more, trail SL to TP1.\nSL hit → breakeven, no loss.",
			targetClosed(trade, 1), trade.BreakevenPrice,
			targetPrice(trade, 2), targetPrice(trade, 3), closePercentFor(trade, 2))

	case models.AlertAfterTP2Strategy:
		return fmt.Sprintf("📋 *Plan after TP2:*\n\n"+
			"🥇 TP1: ✅ %.0f%% @ $%v\n🥈 TP2: ✅ %.0f%% @ $%v\n"+
			"🛡 SL: at TP1 ($%v) 🔒\n🥉 TP3: $%v (remaining %.0f%%)\n\n"+
			"TP3 hit → close the rest, full trade complete.",
			targetClosed(trade, 1), targetPrice(trade, 1),
			targetClosed(trade, 2), targetPrice(trade, 2),
			targetPrice(trade, 1), targetPrice(trade, 3), trade.RemainingPercent())

	case models.AlertTradeComplete:
		return fmt.Sprintf("🎊🎊🎊 *TRADE COMPLETE: %s*\n\n"+
			"Pair: %s\nDirection: %s\nEntry: $%.4f\nStatus: ✅ ALL TP HIT\n\n"+
			"🥇 TP1 ($%v): %.0f%% closed\n🥈 TP2 ($%v): %.0f%% closed\n🥉 TP3 ($%v): %.0f%% closed\n\n"+
			"🎉 Ready for the next trade!",
			trade.Pair, trade.Pair, trade.Direction, trade.EntryAvg(),
			targetPrice(trade, 1), targetClosed(trade, 1),
			targetPrice(trade, 2), targetClosed(trade, 2),
			targetPrice(trade, 3), targetClosed(trade, 3))
	}

	// 未知类型兜底，不应该出现
	return fmt.Sprintf("ℹ️ %s: %s @ $%v", trade.Pair, ev.Kind, ev.Price)
}

func (r *AlertRenderer) renderTPHit(ev models.AlertEvent) string {
	trade := ev.Trade
	target := targetPrice(trade, ev.Level)
	profit := profitPercent(trade, target)

	medal := [...]string{"🥇", "🥈", "🥉"}[ev.Level-1]
	header := fmt.Sprintf("%s%s%s *%s TP%d HIT!* %s%s%s",
		medal, medal, medal, trade.Pair, ev.Level, medal, medal, medal)

	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString(fmt.Sprintf("\n\n💰 Price: $%v\n🎯 TP%d: $%v\n💵 Profit: +%.2f%%\n",
		ev.Price, ev.Level, target, profit))

	switch ev.Level {
	case 1:
		sb.WriteString(fmt.Sprintf("\n1️⃣ Close %.0f%% of the position\n2️⃣ Book the profit\n3️⃣ Move SL → BE 🛡", closePercentFor(trade, 1)))
	case 2:
		sb.WriteString(fmt.Sprintf("\n1️⃣ Close another %.0f%%\n2️⃣ Trail SL → TP1 🔒", closePercentFor(trade, 2)))
	case 3:
		sb.WriteString("\n🏆 FINAL TARGET REACHED!\n1️⃣ Close the remaining position\n2️⃣ Full position closed! 🎉")
	}
	return sb.String()
}

func (r *AlertRenderer) renderSLHit(ev models.AlertEvent) string {
	trade := ev.Trade

	// 结果描述取决于之前锁定了多少利润
	var result, slType string
	switch {
	case targetHit(trade, 2):
		result = "💰💰 In profit (TP1+TP2 locked)!"
		slType = "Trailing (TP2 locked)"
	case targetHit(trade, 1):
		result = "⚪ Breakeven (TP1 profit kept)!"
		slType = "BE (TP1 locked)"
	default:
		result = "❌ Loss"
		slType = "Initial SL"
	}

	return fmt.Sprintf("🛑 *%s STOP LOSS HIT!*\n\n"+
		"💰 Price: $%v\n🛡 SL: $%v\n📊 Type: %s\n\n"+
		"Result: %s\n\n"+
		"Closed: TP1 %.0f%% | TP2 %.0f%% | TP3 %.0f%%\n\n"+
		"Ready for the next trade! 💪",
		trade.Pair, ev.Price, trade.CurrentSL, slType, result,
		targetClosed(trade, 1), targetClosed(trade, 2), targetClosed(trade, 3))
}

func targetPrice(trade *models.Trade, level int) float64 {
	if tp := trade.Target(level); tp != nil {
		return tp.Price
	}
	return 0
}

func targetClosed(trade *models.Trade, level int) float64 {
	if tp := trade.Target(level); tp != nil {
		return tp.ClosedPercent
	}
	return 0
}

func targetHit(trade *models.Trade, level int) bool {
	if tp := trade.Target(level); tp != nil {
		return tp.Hit
	}
	return false
}

// closePercentFor 档位计划平仓比例，未触发时也能展示
func closePercentFor(trade *models.Trade, level int) float64 {
	if tp := trade.Target(level); tp != nil && tp.ClosedPercent > 0 {
		return tp.ClosedPercent
	}
	switch level {
	case 3:
		return 40
	default:
		return 30
	}
}

// profitPercent 目标价相对入场均价的收益百分比
func profitPercent(trade *models.Trade, target float64) float64 {
	entry := trade.EntryAvg()
	if entry == 0 {
		return 0
	}
	if trade.Direction == models.DirectionLong {
		return (target - entry) / entry * 100
	}
	return (entry - target) / entry * 100
}

func hitMark(trade *models.Trade, level int) string {
	if targetHit(trade, level) {
		return "✅"
	}
	return "❌"
}
