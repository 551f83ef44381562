package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dushixiang/vigil/internal/config"
	"github.com/dushixiang/vigil/internal/models"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// 信号文本模板是固定格式，直接用正则抽取
var (
	rePairDirection = regexp.MustCompile(`(?m)([A-Z0-9]{2,20})\s*\|\s*(LONG|SHORT)`)
	reStrength      = regexp.MustCompile(`(\d+)/100`)
	reEntryZone     = regexp.MustCompile(`\$(\d+\.\d+)\s*-\s*\$(\d+\.\d+)`)
	rePrice         = regexp.MustCompile(`\$(\d+\.\d+)`)
	reRisk          = regexp.MustCompile(`Risk:\s*(\d+\.?\d*)%`)
	reLeverage      = regexp.MustCompile(`Leverage:\s*([\d\-]+)x`)
	reValid         = regexp.MustCompile(`Valid:\s*(\d+)h`)
)

// SignalService 从信号文本构建待监控的交易
type SignalService struct {
	logger   *zap.Logger
	strategy config.StrategyConf
}

func NewSignalService(conf *config.Config, logger *zap.Logger) *SignalService {
	return &SignalService{
		logger:   logger,
		strategy: conf.Strategy,
	}
}

// Parse 解析信号文本。交易对、入场区间、止损、TP1 缺一不可，
// 其余字段缺失时使用默认值；TP2/TP3 缺失时按入场→TP1 距离的 0.6 倍递推。
func (s *SignalService) Parse(text string) (*models.Trade, error) {
	m := rePairDirection.FindStringSubmatch(text)
	if m == nil {
		return nil, fmt.Errorf("signal text missing pair/direction")
	}
	pair, direction := m[1], m[2]

	strength := 50
	if m := reStrength.FindStringSubmatch(text); m != nil {
		strength, _ = strconv.Atoi(m[1])
	}

	em := reEntryZone.FindStringSubmatch(text)
	if em == nil {
		return nil, fmt.Errorf("signal text missing entry zone")
	}
	entryMin, _ := strconv.ParseFloat(em[1], 64)
	entryMax, _ := strconv.ParseFloat(em[2], 64)

	// 价格按出现顺序排列：entry_min, entry_max, SL, TP1, TP2, TP3
	var prices []float64
	for _, pm := range rePrice.FindAllStringSubmatch(text, -1) {
		v, _ := strconv.ParseFloat(pm[1], 64)
		prices = append(prices, v)
	}
	if len(prices) < 4 {
		return nil, fmt.Errorf("signal text missing stop loss / take profit prices")
	}

	stopLoss := prices[2]
	tp1 := prices[3]
	var tp2, tp3 float64
	if len(prices) > 4 {
		tp2 = prices[4]
	}
	if len(prices) > 5 {
		tp3 = prices[5]
	}

	// 缺失的止盈档位按固定步长递推
	if tp2 == 0 && tp1 > 0 {
		if direction == models.DirectionLong {
			step := (tp1 - entryMin) * 0.6
			tp2 = tp1 + step
			tp3 = tp2 + step
		} else {
			step := (entryMax - tp1) * 0.6
			tp2 = tp1 - step
			tp3 = tp2 - step
		}
	}

	risk := 1.0
	if m := reRisk.FindStringSubmatch(text); m != nil {
		risk, _ = strconv.ParseFloat(m[1], 64)
	}

	leverage := "1-2"
	if m := reLeverage.FindStringSubmatch(text); m != nil {
		leverage = m[1]
	}

	validHours := 4
	if m := reValid.FindStringSubmatch(text); m != nil {
		validHours, _ = strconv.Atoi(m[1])
	}

	entryAvg := (entryMin + entryMax) / 2

	trade := &models.Trade{
		ID:        ulid.Make().String(),
		Pair:      pair,
		Direction: direction,
		Status:    models.StatusPending,
		EntryMin:  entryMin,
		EntryMax:  entryMax,
		StopLoss:  stopLoss,
		Targets: datatypes.JSONSlice[models.TakeProfit]{
			{Price: tp1},
			{Price: tp2},
			{Price: tp3},
		},
		RiskPercent:    risk,
		Leverage:       leverage,
		ValidHours:     validHours,
		Strength:       strength,
		BreakevenPrice: entryAvg,
		CurrentSL:      stopLoss,
		CreatedAt:      time.Now(),
	}

	s.logger.Info("signal parsed",
		zap.String("pair", pair),
		zap.String("direction", direction),
		zap.Float64("entry_min", entryMin),
		zap.Float64("entry_max", entryMax),
		zap.Float64("stop_loss", stopLoss),
		zap.Int("strength", strength))

	return trade, nil
}

// Summary 监控开始时的信号概要
func (s *SignalService) Summary(trade *models.Trade) string {
	icon := "🟢"
	if trade.Direction == models.DirectionShort {
		icon = "🔴"
	}

	entry := trade.EntryAvg()
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s *%s %s* monitoring started!\n\n", icon, trade.Pair, trade.Direction))
	sb.WriteString(fmt.Sprintf("📊 Strength: %d/100\n", trade.Strength))
	sb.WriteString(fmt.Sprintf("🎯 Entry: $%v - $%v\n\n", trade.EntryMin, trade.EntryMax))

	medals := [...]string{"🥇", "🥈", "🥉"}
	splits := [...]float64{s.strategy.TP1Percent, s.strategy.TP2Percent, s.strategy.TP3Percent}
	for i := range trade.Targets {
		tp := trade.Targets[i].Price
		sb.WriteString(fmt.Sprintf("%s TP%d: $%v (R:R %.1f) → %.0f%% close\n",
			medals[i], i+1, tp, riskReward(trade, entry, tp), splits[i]))
	}

	sb.WriteString(fmt.Sprintf("\n🛡 Initial SL: $%v\n", trade.StopLoss))
	sb.WriteString(fmt.Sprintf("⚪ BE price: $%.4f\n\n", trade.BreakevenPrice))
	sb.WriteString("✅ TP1 hit → partial close + SL → BE\n")
	sb.WriteString("✅ TP2 hit → partial close + SL → TP1\n")
	sb.WriteString("✅ TP3 hit → full close\n")
	sb.WriteString("🛑 SL hit → emergency close\n\n")
	sb.WriteString(fmt.Sprintf("⏳ Valid for %dh. Monitoring every tick...", trade.ValidHours))
	return sb.String()
}

// riskReward 以入场均价和初始止损计算盈亏比
func riskReward(trade *models.Trade, entry, tp float64) float64 {
	if entry == trade.StopLoss {
		return 0
	}
	if trade.Direction == models.DirectionLong {
		return (tp - entry) / (entry - trade.StopLoss)
	}
	return (entry - tp) / (trade.StopLoss - entry)
}
