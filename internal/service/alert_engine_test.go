package service

import (
	"testing"
	"time"

	"github.com/dushixiang/vigil/internal/config"
	"github.com/dushixiang/vigil/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func newTestConfig() *config.Config {
	conf := &config.Config{}
	conf.Normalize()
	return conf
}

func newTestEngine() *AlertEngine {
	return NewAlertEngine(newTestConfig())
}

// 多单：入场 100-102（均价 101），SL 95，TP 105/110/115
func newLongTrade(now time.Time) *models.Trade {
	return &models.Trade{
		ID:        "01TRADE000000000000000TEST",
		Pair:      "BTC",
		Direction: models.DirectionLong,
		Status:    models.StatusActive,
		EntryMin:  100,
		EntryMax:  102,
		StopLoss:  95,
		Targets: datatypes.JSONSlice[models.TakeProfit]{
			{Price: 105},
			{Price: 110},
			{Price: 115},
		},
		ValidHours:     4,
		BreakevenPrice: 101,
		CurrentSL:      95,
		CreatedAt:      now,
	}
}

// 空单：入场 100-102（均价 101），SL 107，TP 97/93/89
func newShortTrade(now time.Time) *models.Trade {
	return &models.Trade{
		ID:        "01TRADE00000000000000SHORT",
		Pair:      "ETH",
		Direction: models.DirectionShort,
		Status:    models.StatusActive,
		EntryMin:  100,
		EntryMax:  102,
		StopLoss:  107,
		Targets: datatypes.JSONSlice[models.TakeProfit]{
			{Price: 97},
			{Price: 93},
			{Price: 89},
		},
		ValidHours:     4,
		BreakevenPrice: 101,
		CurrentSL:      107,
		CreatedAt:      now,
	}
}

func kinds(events []models.AlertEvent) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Kind)
	}
	return out
}

func findEvent(t *testing.T, events []models.AlertEvent, kind string) models.AlertEvent {
	t.Helper()
	for _, ev := range events {
		if ev.Kind == kind {
			return ev
		}
	}
	t.Fatalf("event %s not found in %v", kind, kinds(events))
	return models.AlertEvent{}
}

func TestEvaluate_EntryZone(t *testing.T) {
	now := time.Now()
	engine := newTestEngine()
	trade := newLongTrade(now)
	trade.Status = models.StatusPending

	events := engine.Evaluate(trade, 101.5, now)

	require.Equal(t, []string{models.AlertEntryZone}, kinds(events))
	assert.Equal(t, models.StatusActive, trade.Status)
	assert.Equal(t, 101.5, trade.EntryPrice)

	// 重复进入区间不再提醒
	events = engine.Evaluate(trade, 101.5, now.Add(10*time.Second))
	assert.Empty(t, events)
}

func TestEvaluate_EntryAtAveragePrice(t *testing.T) {
	now := time.Now()
	engine := newTestEngine()
	trade := newLongTrade(now)
	trade.Status = models.StatusPending

	// 恰好在入场均价进入：同一次评估里入场激活后立即落入保本容差
	events := engine.Evaluate(trade, 101, now)

	assert.Contains(t, kinds(events), models.AlertEntryZone)
	assert.Contains(t, kinds(events), models.AlertNearBE)
	assert.Equal(t, models.StatusActive, trade.Status)
	assert.Equal(t, 101.0, trade.EntryPrice)
}

func TestEvaluate_EntryZoneBoundsInclusive(t *testing.T) {
	now := time.Now()
	engine := newTestEngine()

	trade := newLongTrade(now)
	trade.Status = models.StatusPending
	events := engine.Evaluate(trade, 100, now)
	assert.Contains(t, kinds(events), models.AlertEntryZone)

	trade = newLongTrade(now)
	trade.Status = models.StatusPending
	events = engine.Evaluate(trade, 102, now)
	assert.Contains(t, kinds(events), models.AlertEntryZone)

	trade = newLongTrade(now)
	trade.Status = models.StatusPending
	events = engine.Evaluate(trade, 99.99, now)
	assert.Empty(t, events)
}

func TestEvaluate_TPApproach(t *testing.T) {
	now := time.Now()
	engine := newTestEngine()
	trade := newLongTrade(now)

	// 进度 (104.5-101)/(105-101) = 87.5%
	events := engine.Evaluate(trade, 104.5, now)

	require.Equal(t, []string{models.AlertTP1Approach}, kinds(events))
	ev := findEvent(t, events, models.AlertTP1Approach)
	assert.Equal(t, 1, ev.Level)
	assert.InDelta(t, 87.5, ev.Progress, 0.01)

	// 同一档位不重复
	events = engine.Evaluate(trade, 104.6, now.Add(10*time.Second))
	assert.Empty(t, events)
}

func TestEvaluate_TPApproachBelowThreshold(t *testing.T) {
	now := time.Now()
	engine := newTestEngine()
	trade := newLongTrade(now)

	// 进度 (104-101)/4 = 75% < 80%
	events := engine.Evaluate(trade, 104, now)
	assert.Empty(t, events)
}

func TestEvaluate_TP1Hit_MovesStopToBreakeven(t *testing.T) {
	now := time.Now()
	engine := newTestEngine()
	trade := newLongTrade(now)

	events := engine.Evaluate(trade, 105, now)

	assert.Equal(t, []string{
		models.AlertTP1Hit,
		models.AlertBEMove,
		models.AlertAfterTP1Strategy,
	}, kinds(events))

	assert.Equal(t, models.StatusTP1, trade.Status)
	assert.True(t, trade.Target(1).Hit)
	assert.Equal(t, 30.0, trade.Target(1).ClosedPercent)
	assert.Equal(t, 101.0, trade.CurrentSL)

	be := findEvent(t, events, models.AlertBEMove)
	assert.Equal(t, 95.0, be.OldSL)
	assert.Equal(t, 101.0, be.NewSL)

	// 同一价格再评估不重复触发
	events = engine.Evaluate(trade, 105, now.Add(10*time.Second))
	assert.Empty(t, events)
}

func TestEvaluate_SameTickCascadeThroughTP2(t *testing.T) {
	now := time.Now()
	engine := newTestEngine()
	trade := newLongTrade(now)

	// 单次采样直接越过 TP1 和 TP2：两档按顺序级联
	events := engine.Evaluate(trade, 110, now)

	assert.Equal(t, []string{
		models.AlertTP1Hit,
		models.AlertBEMove,
		models.AlertAfterTP1Strategy,
		models.AlertTP2Hit,
		models.AlertTrailingSLTP1,
		models.AlertAfterTP2Strategy,
	}, kinds(events))

	assert.Equal(t, models.StatusTP2, trade.Status)
	assert.True(t, trade.Target(1).Hit)
	assert.True(t, trade.Target(2).Hit)
	assert.Equal(t, 105.0, trade.CurrentSL)
	assert.Equal(t, 40.0, trade.RemainingPercent())
}

func TestEvaluate_TP3Complete(t *testing.T) {
	now := time.Now()
	engine := newTestEngine()
	trade := newLongTrade(now)
	trade.Status = models.StatusTP2
	trade.Target(1).Hit = true
	trade.Target(1).ClosedPercent = 30
	trade.Target(2).Hit = true
	trade.Target(2).ClosedPercent = 30
	trade.CurrentSL = 105
	trade.MarkAlert(models.AlertTP1Hit)
	trade.MarkAlert(models.AlertTP2Hit)

	events := engine.Evaluate(trade, 115, now)

	assert.Equal(t, []string{
		models.AlertTP3Hit,
		models.AlertTrailingSLTP2,
		models.AlertTradeComplete,
	}, kinds(events))

	assert.Equal(t, models.StatusTP3, trade.Status)
	assert.Equal(t, 110.0, trade.CurrentSL)
	assert.Equal(t, 0.0, trade.RemainingPercent())
}

func TestEvaluate_ShortDirection(t *testing.T) {
	now := time.Now()
	engine := newTestEngine()
	trade := newShortTrade(now)

	events := engine.Evaluate(trade, 97, now)

	assert.Contains(t, kinds(events), models.AlertTP1Hit)
	assert.Contains(t, kinds(events), models.AlertBEMove)
	// 空单保本移动是向下收紧
	assert.Equal(t, 101.0, trade.CurrentSL)
}

func TestEvaluate_StopLossHit(t *testing.T) {
	now := time.Now()
	engine := newTestEngine()
	trade := newLongTrade(now)

	events := engine.Evaluate(trade, 95, now)

	require.Equal(t, []string{models.AlertSLHit}, kinds(events))
	assert.Equal(t, models.StatusClosed, trade.Status)

	// 终结后不再产生任何提醒
	events = engine.Evaluate(trade, 90, now.Add(10*time.Second))
	assert.Empty(t, events)
}

func TestEvaluate_BreakevenStopOut(t *testing.T) {
	now := time.Now()
	engine := newTestEngine()
	trade := newLongTrade(now)
	trade.Status = models.StatusTP1
	trade.Target(1).Hit = true
	trade.Target(1).ClosedPercent = 30
	trade.CurrentSL = 101
	trade.MarkAlert(models.AlertTP1Hit)

	// 保本位被打掉：不亏损离场
	events := engine.Evaluate(trade, 100.9, now)

	require.Equal(t, []string{models.AlertSLHit}, kinds(events))
	assert.Equal(t, models.StatusClosed, trade.Status)
	assert.Equal(t, 70.0, trade.RemainingPercent())
}

func TestEvaluate_StopLossHitShort(t *testing.T) {
	now := time.Now()
	engine := newTestEngine()
	trade := newShortTrade(now)

	events := engine.Evaluate(trade, 107.5, now)

	require.Equal(t, []string{models.AlertSLHit}, kinds(events))
	assert.Equal(t, models.StatusClosed, trade.Status)
}

func TestEvaluate_StopNeverLoosens(t *testing.T) {
	now := time.Now()
	engine := newTestEngine()
	trade := newLongTrade(now)
	// 保本价低于当前止损：移动会放大风险，必须拒绝
	trade.BreakevenPrice = 90
	trade.CurrentSL = 95

	events := engine.Evaluate(trade, 105, now)

	assert.NotContains(t, kinds(events), models.AlertBEMove)
	assert.Contains(t, kinds(events), models.AlertAfterTP1Strategy)
	assert.Equal(t, 95.0, trade.CurrentSL)
}

func TestEvaluate_DangerLevels(t *testing.T) {
	now := time.Now()
	engine := newTestEngine()
	trade := newLongTrade(now)

	// 距止损 45% 剩余：DANGER，同时逆向波动超过 1%：WARNING
	events := engine.Evaluate(trade, 97.7, now)

	assert.Contains(t, kinds(events), models.AlertDanger50)
	assert.Contains(t, kinds(events), models.AlertWarning1Pct)
	assert.NotContains(t, kinds(events), models.AlertCritical25)

	ev := findEvent(t, events, models.AlertDanger50)
	assert.InDelta(t, 45.0, ev.PctToSL, 0.01)
}

func TestEvaluate_CriticalSupersedesDanger(t *testing.T) {
	now := time.Now()
	engine := newTestEngine()
	trade := newLongTrade(now)

	// 距止损 25% 剩余：CRITICAL 优先，DANGER 不发
	events := engine.Evaluate(trade, 96.5, now)

	assert.Contains(t, kinds(events), models.AlertCritical25)
	assert.NotContains(t, kinds(events), models.AlertDanger50)
}

func TestEvaluate_LiquidationWarning(t *testing.T) {
	now := time.Now()
	engine := newTestEngine()
	trade := newLongTrade(now)

	// 距止损 5% 剩余：CRITICAL 和 LIQUIDATION 同时触发
	events := engine.Evaluate(trade, 95.3, now)

	assert.Contains(t, kinds(events), models.AlertCritical25)
	assert.Contains(t, kinds(events), models.AlertLiquidation)
}

func TestEvaluate_DangerAtMostOnce(t *testing.T) {
	now := time.Now()
	engine := newTestEngine()
	trade := newLongTrade(now)

	events := engine.Evaluate(trade, 97.7, now)
	assert.Contains(t, kinds(events), models.AlertDanger50)

	// 冷却期之后也不再重复：一次性集合优先于冷却
	events = engine.Evaluate(trade, 97.7, now.Add(10*time.Minute))
	assert.Empty(t, events)
}

func TestEvaluate_TPMissed(t *testing.T) {
	now := time.Now()
	engine := newTestEngine()
	trade := newLongTrade(now)
	trade.Status = models.StatusTP1
	trade.Target(1).Hit = true
	trade.CurrentSL = 101
	trade.MarkAlert(models.AlertTP1Hit)

	// 最近窗口内曾接近 TP2(110)：109.6 ≥ 110*0.995
	base := now.Add(-time.Minute)
	for i, p := range []float64{109.0, 109.3, 109.6, 109.2, 108.8} {
		trade.AppendPrice(base.Add(time.Duration(i)*10*time.Second), p, 100)
	}

	// 当前已回撤过界：108 < 110*0.99
	events := engine.Evaluate(trade, 108, now)

	require.Equal(t, []string{models.AlertTP2Missed}, kinds(events))

	// 不重复
	events = engine.Evaluate(trade, 107.5, now.Add(10*time.Second))
	assert.NotContains(t, kinds(events), models.AlertTP2Missed)
}

func TestEvaluate_TPMissedNeedsHistory(t *testing.T) {
	now := time.Now()
	engine := newTestEngine()
	trade := newLongTrade(now)
	trade.Status = models.StatusTP1
	trade.Target(1).Hit = true
	trade.CurrentSL = 101
	trade.MarkAlert(models.AlertTP1Hit)

	// 样本不足 5 个时不判定
	trade.AppendPrice(now.Add(-30*time.Second), 109.6, 100)
	trade.AppendPrice(now.Add(-20*time.Second), 109, 100)

	events := engine.Evaluate(trade, 108, now)
	assert.NotContains(t, kinds(events), models.AlertTP2Missed)
}

func TestEvaluate_BreakevenReject(t *testing.T) {
	now := time.Now()
	engine := newTestEngine()
	trade := newLongTrade(now)
	trade.Status = models.StatusTP1
	trade.Target(1).Hit = true
	trade.CurrentSL = 101
	trade.MarkAlert(models.AlertTP1Hit)

	trade.AppendPrice(now.Add(-20*time.Second), 102, 100)
	trade.AppendPrice(now.Add(-10*time.Second), 101.3, 100)

	// 在保本价容差内且相对上一采样逆向移动
	events := engine.Evaluate(trade, 101.1, now)

	assert.Contains(t, kinds(events), models.AlertBEReject)
}

func TestEvaluate_BreakevenRejectRequiresDownMove(t *testing.T) {
	now := time.Now()
	engine := newTestEngine()
	trade := newLongTrade(now)
	trade.Status = models.StatusTP1
	trade.Target(1).Hit = true
	trade.CurrentSL = 101
	trade.MarkAlert(models.AlertTP1Hit)

	trade.AppendPrice(now.Add(-20*time.Second), 100.5, 100)
	trade.AppendPrice(now.Add(-10*time.Second), 100.9, 100)

	// 逆向条件不成立（价格在回升）
	events := engine.Evaluate(trade, 101.1, now)

	assert.NotContains(t, kinds(events), models.AlertBEReject)
}

func TestEvaluate_RapidMove(t *testing.T) {
	now := time.Now()
	engine := newTestEngine()
	trade := newLongTrade(now)

	// 5 分钟窗口内首尾变化 1.5% ≥ 1%
	trade.AppendPrice(now.Add(-3*time.Minute), 100, 100)
	trade.AppendPrice(now.Add(-2*time.Minute), 100.5, 100)
	trade.AppendPrice(now.Add(-30*time.Second), 101.5, 100)

	events := engine.Evaluate(trade, 101.5, now)

	assert.Contains(t, kinds(events), models.AlertRapidMove)
}

func TestEvaluate_RapidMoveIgnoresOldSamples(t *testing.T) {
	now := time.Now()
	engine := newTestEngine()
	trade := newLongTrade(now)

	// 大幅变化发生在窗口之外
	trade.AppendPrice(now.Add(-20*time.Minute), 100, 100)
	trade.AppendPrice(now.Add(-2*time.Minute), 101.4, 100)
	trade.AppendPrice(now.Add(-30*time.Second), 101.5, 100)

	events := engine.Evaluate(trade, 101.5, now)

	assert.NotContains(t, kinds(events), models.AlertRapidMove)
}

func TestEvaluate_ExpiryWarning(t *testing.T) {
	now := time.Now()
	engine := newTestEngine()
	trade := newLongTrade(now.Add(-3*time.Hour - 40*time.Minute))
	trade.Status = models.StatusPending

	events := engine.Evaluate(trade, 103, now)

	require.Equal(t, []string{models.AlertTime30Min}, kinds(events))
	ev := findEvent(t, events, models.AlertTime30Min)
	assert.Equal(t, 20*time.Minute, ev.TimeLeft)
}

func TestEvaluate_Expired(t *testing.T) {
	now := time.Now()
	engine := newTestEngine()
	trade := newLongTrade(now.Add(-5 * time.Hour))
	trade.Status = models.StatusPending

	events := engine.Evaluate(trade, 103, now)

	require.Equal(t, []string{models.AlertExpired}, kinds(events))
	assert.Equal(t, models.StatusExpired, trade.Status)

	// 过期是终态
	events = engine.Evaluate(trade, 101, now.Add(10*time.Second))
	assert.Empty(t, events)
}

func TestEvaluate_ActiveTradeDoesNotExpire(t *testing.T) {
	now := time.Now()
	engine := newTestEngine()
	trade := newLongTrade(now.Add(-5 * time.Hour))
	trade.Status = models.StatusActive

	events := engine.Evaluate(trade, 103, now)

	assert.NotContains(t, kinds(events), models.AlertExpired)
	assert.Equal(t, models.StatusActive, trade.Status)
}

func TestEvaluate_PriceHistoryWindow(t *testing.T) {
	now := time.Now()
	conf := newTestConfig()
	conf.Monitor.PriceHistoryLimit = 100
	engine := NewAlertEngine(conf)
	trade := newLongTrade(now)
	trade.Status = models.StatusPending
	trade.ValidHours = 1000

	for i := 0; i < 120; i++ {
		engine.Evaluate(trade, 99, now.Add(time.Duration(i)*10*time.Second))
	}

	require.Len(t, trade.PriceHistory, 100)
	// 保留的是最新的 100 个采样
	assert.Equal(t, now.Add(20*10*time.Second).Unix(), trade.PriceHistory[0].Time.Unix())
	assert.Equal(t, now.Add(119*10*time.Second).Unix(), trade.PriceHistory[99].Time.Unix())
}

func TestEvaluate_HistoryRecordedEvenWithoutAlerts(t *testing.T) {
	now := time.Now()
	engine := newTestEngine()
	trade := newLongTrade(now)

	events := engine.Evaluate(trade, 102.5, now)

	assert.Empty(t, events)
	require.Len(t, trade.PriceHistory, 1)
	assert.Equal(t, 102.5, trade.PriceHistory[0].Price)
}

func TestCooldownGate(t *testing.T) {
	gate := NewCooldownGate()
	now := time.Now()

	assert.True(t, gate.Allow("t1", "RAPID_MOVE", now, time.Minute))
	assert.False(t, gate.Allow("t1", "RAPID_MOVE", now.Add(30*time.Second), time.Minute))
	assert.True(t, gate.Allow("t1", "RAPID_MOVE", now.Add(time.Minute), time.Minute))
	// 放行时刷新时间戳
	assert.False(t, gate.Allow("t1", "RAPID_MOVE", now.Add(90*time.Second), time.Minute))

	// 不同信号或不同类型互不影响
	assert.True(t, gate.Allow("t2", "RAPID_MOVE", now, time.Minute))
	assert.True(t, gate.Allow("t1", "NEAR_BE", now, time.Minute))
}
