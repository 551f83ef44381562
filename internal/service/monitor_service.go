package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dushixiang/vigil/internal/config"
	"github.com/dushixiang/vigil/internal/models"
	"github.com/dushixiang/vigil/internal/repo"
	"github.com/dushixiang/vigil/internal/telegram"
	"github.com/dushixiang/vigil/internal/xe"
	"github.com/dushixiang/vigil/pkg/exchange"
	"github.com/go-orz/orz"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MonitorService 每个 tick 的编排：取价、评估、通知、落库。
// 引擎产生的状态变更无论是否有提醒都会持久化。
type MonitorService struct {
	logger *zap.Logger

	*orz.Service
	tradeRepo *repo.TradeRepo
	alertRepo *repo.AlertRepo

	engine   *AlertEngine
	renderer *AlertRenderer
	signals  *SignalService

	prices exchange.PriceSource
	tg     *telegram.Telegram
	conf   *config.Config
}

func NewMonitorService(
	db *gorm.DB,
	conf *config.Config,
	engine *AlertEngine,
	renderer *AlertRenderer,
	signals *SignalService,
	prices exchange.PriceSource,
	tg *telegram.Telegram,
	logger *zap.Logger,
) *MonitorService {
	return &MonitorService{
		logger:    logger,
		Service:   orz.NewService(db),
		tradeRepo: repo.NewTradeRepo(db),
		alertRepo: repo.NewAlertRepo(db),
		engine:    engine,
		renderer:  renderer,
		signals:   signals,
		prices:    prices,
		tg:        tg,
		conf:      conf,
	}
}

// Tick 对所有活跃信号执行一轮评估
func (s *MonitorService) Tick(ctx context.Context) error {
	trades, err := s.tradeRepo.FindActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active trades: %w", err)
	}

	if len(trades) == 0 {
		return nil
	}

	for i := range trades {
		trade := &trades[i]
		s.evaluateTrade(ctx, trade)
	}

	return nil
}

// evaluateTrade 单个信号的一次评估。取价失败或价格为 0 时跳过本轮，
// 不视为错误；通知失败只记录日志；状态变更始终落库。
func (s *MonitorService) evaluateTrade(ctx context.Context, trade *models.Trade) {
	price, err := s.prices.GetPrice(ctx, trade.Pair)
	if err != nil {
		s.logger.Warn("price fetch failed, skipping trade this tick",
			zap.String("pair", trade.Pair),
			zap.Error(err))
		return
	}
	if price == 0 {
		s.logger.Warn("price unavailable, skipping trade this tick",
			zap.String("pair", trade.Pair))
		return
	}

	events := s.engine.Evaluate(trade, price, time.Now())

	for _, ev := range events {
		msg := s.renderer.Render(ev)

		if err := s.Notify(msg); err != nil {
			s.logger.Error("alert notify failed",
				zap.String("pair", trade.Pair),
				zap.String("kind", ev.Kind),
				zap.Error(err))
		}

		record := &models.AlertRecord{
			ID:      ulid.Make().String(),
			TradeID: trade.ID,
			Pair:    trade.Pair,
			Kind:    ev.Kind,
			Price:   ev.Price,
			Message: msg,
		}
		if err := s.alertRepo.Create(ctx, record); err != nil {
			s.logger.Error("failed to save alert record", zap.Error(err))
		}

		s.logger.Info("alert fired",
			zap.String("pair", trade.Pair),
			zap.String("kind", ev.Kind),
			zap.Float64("price", ev.Price),
			zap.String("status", trade.Status))
	}

	// 即使没有提醒，价格历史等变更也要持久化
	if err := s.tradeRepo.Save(ctx, trade); err != nil {
		s.logger.Error("failed to persist trade",
			zap.String("trade_id", trade.ID),
			zap.Error(err))
	}
}

// SubmitSignal 解析信号文本并开始监控。同一交易对已有活跃信号时拒绝。
func (s *MonitorService) SubmitSignal(ctx context.Context, text string) (*models.Trade, error) {
	trade, err := s.signals.Parse(text)
	if err != nil {
		return nil, err
	}

	if _, err := s.tradeRepo.FindActiveByPair(ctx, trade.Pair); err == nil {
		return nil, xe.ErrPairAlreadyMonitored
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := s.tradeRepo.Create(ctx, trade); err != nil {
		return nil, fmt.Errorf("failed to save trade: %w", err)
	}

	s.logger.Info("trade monitoring started",
		zap.String("trade_id", trade.ID),
		zap.String("pair", trade.Pair),
		zap.String("direction", trade.Direction))

	if err := s.Notify(s.signals.Summary(trade)); err != nil {
		s.logger.Warn("failed to send signal summary", zap.Error(err))
	}

	return trade, nil
}

// CloseByPair 手动终结某个交易对的所有活跃信号
func (s *MonitorService) CloseByPair(ctx context.Context, pair string) (int64, error) {
	count, err := s.tradeRepo.CloseAllByPair(ctx, pair)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, xe.ErrTradeNotFound
	}
	s.logger.Info("trades closed manually",
		zap.String("pair", pair),
		zap.Int64("count", count))
	return count, nil
}

// ActiveTrades 当前监控中的信号
func (s *MonitorService) ActiveTrades(ctx context.Context) ([]models.Trade, error) {
	return s.tradeRepo.FindActive(ctx)
}

// FinishedTrades 最近终结的信号
func (s *MonitorService) FinishedTrades(ctx context.Context, limit int) ([]models.Trade, error) {
	return s.tradeRepo.FindFinished(ctx, limit)
}

// GetTrade 按 ID 查询信号
func (s *MonitorService) GetTrade(ctx context.Context, id string) (models.Trade, error) {
	return s.tradeRepo.FindById(ctx, id)
}

// TradeAlerts 某个信号的提醒记录
func (s *MonitorService) TradeAlerts(ctx context.Context, tradeID string) ([]models.AlertRecord, error) {
	return s.alertRepo.FindByTradeId(ctx, tradeID)
}

// RecentAlerts 最近的提醒记录
func (s *MonitorService) RecentAlerts(ctx context.Context, limit int) ([]models.AlertRecord, error) {
	return s.alertRepo.FindRecent(ctx, limit)
}

// DailyDigest 汇总过去24小时终结的信号
func (s *MonitorService) DailyDigest(ctx context.Context) (string, error) {
	since := time.Now().Add(-24 * time.Hour)
	finished, err := s.tradeRepo.FindFinishedSince(ctx, since)
	if err != nil {
		return "", err
	}
	if len(finished) == 0 {
		return "", nil
	}

	var closed, expired, completed int
	for i := range finished {
		switch {
		case finished[i].Status == models.StatusExpired:
			expired++
		case finished[i].Target(3) != nil && finished[i].Target(3).Hit:
			completed++
		default:
			closed++
		}
	}

	digest := fmt.Sprintf("📊 *Daily digest*\n\n"+
		"Finished trades: %d\n"+
		"🎊 All targets hit: %d\n"+
		"🛑 Stopped out / closed: %d\n"+
		"⏰ Expired without entry: %d",
		len(finished), completed, closed, expired)
	return digest, nil
}

// Notify 发送消息到配置的聊天，未启用 Telegram 时静默跳过
func (s *MonitorService) Notify(msg string) error {
	if s.tg == nil || msg == "" {
		return nil
	}
	return s.tg.Notify(s.conf.Telegram.ChatID, msg)
}
