package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dushixiang/vigil/internal/models"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

const handlerTimeout = 15 * time.Second

// Monitor 命令处理器依赖的监控能力，由 service.MonitorService 实现
type Monitor interface {
	SubmitSignal(ctx context.Context, text string) (*models.Trade, error)
	CloseByPair(ctx context.Context, pair string) (int64, error)
	ActiveTrades(ctx context.Context) ([]models.Trade, error)
	FinishedTrades(ctx context.Context, limit int) ([]models.Trade, error)
}

// Loop 监控循环的运行状态
type Loop interface {
	IsRunning() bool
	GetStatus() map[string]interface{}
}

// RegisterHandlers 注册机器人命令，在依赖装配完成后调用一次
func (r *Telegram) RegisterHandlers(monitor Monitor, loop Loop) {
	r.client.Handle("/start", func(c tele.Context) error {
		return c.Send("👋 *Signal monitor online*\n\n" +
			"Paste a trade signal and I will watch it tick by tick.\n" +
			"Use /help to see the full command list.")
	})

	r.client.Handle("/help", func(c tele.Context) error {
		return c.Send("📖 *Commands*\n\n" +
			"/status — monitor loop state\n" +
			"/active — trades being watched\n" +
			"/history — recently finished trades\n" +
			"/close PAIR — stop watching a pair\n\n" +
			"Send any signal message to start monitoring it.")
	})

	r.client.Handle("/status", func(c tele.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()

		status := loop.GetStatus()
		state := "🔴 stopped"
		if loop.IsRunning() {
			state = "🟢 running"
		}

		active := 0
		if trades, err := monitor.ActiveTrades(ctx); err == nil {
			active = len(trades)
		}

		return c.Send(fmt.Sprintf("*Monitor status*\n\n"+
			"State: %s\n"+
			"Check interval: %vs\n"+
			"Ticks: %v\n"+
			"Active trades: %d",
			state, status["check_interval_seconds"], status["tick_count"], active))
	})

	r.client.Handle("/active", func(c tele.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()

		trades, err := monitor.ActiveTrades(ctx)
		if err != nil {
			r.logger.Error("failed to list active trades", zap.Error(err))
			return c.Send("⚠️ Failed to load active trades.")
		}
		if len(trades) == 0 {
			return c.Send("No trades under monitoring.")
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("📡 *Monitoring %d trade(s)*\n", len(trades)))
		for i := range trades {
			t := &trades[i]
			sb.WriteString(fmt.Sprintf("\n• *%s* %s — %s (remaining %.0f%%)",
				t.Pair, t.Direction, t.Status, t.RemainingPercent()))
		}
		return c.Send(sb.String())
	})

	r.client.Handle("/history", func(c tele.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()

		trades, err := monitor.FinishedTrades(ctx, 10)
		if err != nil {
			r.logger.Error("failed to list finished trades", zap.Error(err))
			return c.Send("⚠️ Failed to load trade history.")
		}
		if len(trades) == 0 {
			return c.Send("No finished trades yet.")
		}

		var sb strings.Builder
		sb.WriteString("📜 *Recent trades*\n")
		for i := range trades {
			t := &trades[i]
			sb.WriteString(fmt.Sprintf("\n• *%s* %s — %s", t.Pair, t.Direction, t.Status))
		}
		return c.Send(sb.String())
	})

	r.client.Handle("/close", func(c tele.Context) error {
		pair := strings.ToUpper(strings.TrimSpace(c.Message().Payload))
		if pair == "" {
			return c.Send("Usage: /close PAIR, e.g. /close BTC")
		}

		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()

		count, err := monitor.CloseByPair(ctx, pair)
		if err != nil {
			return c.Send(fmt.Sprintf("⚠️ %v", err))
		}
		return c.Send(fmt.Sprintf("✅ Closed %d trade(s) for *%s*.", count, pair))
	})

	// 非命令文本按信号解析，不像信号的消息直接忽略
	r.client.Handle(tele.OnText, func(c tele.Context) error {
		text := c.Text()
		if !looksLikeSignal(text) {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()

		trade, err := monitor.SubmitSignal(ctx, text)
		if err != nil {
			r.logger.Warn("signal rejected", zap.Error(err))
			return c.Send(fmt.Sprintf("⚠️ %v", err))
		}

		r.logger.Info("signal accepted via telegram",
			zap.String("pair", trade.Pair),
			zap.String("direction", trade.Direction))
		return nil
	})
}

func looksLikeSignal(text string) bool {
	upper := strings.ToUpper(text)
	return strings.Contains(upper, "LONG") || strings.Contains(upper, "SHORT")
}
