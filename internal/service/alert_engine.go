package service

import (
	"math"
	"time"

	"github.com/dushixiang/vigil/internal/config"
	"github.com/dushixiang/vigil/internal/models"
)

// AlertEngine 报警引擎。
//
// 每个价格采样调用一次 Evaluate，按固定顺序执行规则，原地修改信号状态
// 并返回本次触发的事件列表。规则之间存在有意的级联：前面的规则修改的
// 状态会被同一次调用中后面的规则观察到（例如 TP1 触发会解锁保本移动
// 提醒）。引擎本身不做任何 I/O，也从不失败，遇到退化数据时只是不产生
// 对应的提醒。
//
// 单写者模型：同一个 Trade 只允许一个顺序循环调用 Evaluate。
type AlertEngine struct {
	strategy     config.StrategyConf
	threshold    config.ThresholdConf
	historyLimit int

	defaultCooldown time.Duration
	rapidCooldown   time.Duration
	cooldowns       *CooldownGate
}

func NewAlertEngine(conf *config.Config) *AlertEngine {
	return &AlertEngine{
		strategy:        conf.Strategy,
		threshold:       conf.Threshold,
		historyLimit:    conf.Monitor.PriceHistoryLimit,
		defaultCooldown: time.Duration(conf.Cooldown.DefaultSeconds) * time.Second,
		rapidCooldown:   time.Duration(conf.Cooldown.RapidSeconds) * time.Second,
		cooldowns:       NewCooldownGate(),
	}
}

// Evaluate 用新的价格采样评估信号，返回本次应发出的事件。
// now 必须对同一信号单调不减，否则冷却判断会失真。
func (e *AlertEngine) Evaluate(trade *models.Trade, price float64, now time.Time) []models.AlertEvent {
	var events []models.AlertEvent

	emit := func(ev models.AlertEvent) {
		ev.Trade = trade
		ev.Price = price
		ev.OccurredAt = now
		events = append(events, ev)
	}

	// 1. 入场区间
	if trade.Status == models.StatusPending &&
		trade.EntryMin <= price && price <= trade.EntryMax &&
		!trade.HasAlert(models.AlertEntryZone) {
		emit(models.AlertEvent{Kind: models.AlertEntryZone})
		trade.MarkAlert(models.AlertEntryZone)
		trade.Status = models.StatusActive
		trade.EntryPrice = price
	}

	// 2. 接近止盈：只针对下一个未触发的档位
	e.checkApproach(trade, price, emit)

	// 3. 止盈触发，按档位顺序级联
	e.checkTPHits(trade, price, emit)

	// 4. 止盈踏空（只有 TP2/TP3 有意义）
	e.checkTPMissed(trade, price, emit)

	// 5. 止损触发
	if e.isStopHit(trade, price) && !trade.HasAlert(models.AlertSLHit) {
		emit(models.AlertEvent{Kind: models.AlertSLHit})
		trade.MarkAlert(models.AlertSLHit)
		trade.Status = models.StatusClosed
	}

	// 6. 风险提醒
	e.checkDanger(trade, price, now, emit)

	// 7. 保本位被拒
	e.checkBreakevenReject(trade, price, now, emit)

	// 8. 急速波动
	e.checkRapidMove(trade, price, now, emit)

	// 9. 过期前30分钟预警
	if left := trade.ExpiryTime().Sub(now); 0 < left && left < 30*time.Minute &&
		!trade.HasAlert(models.AlertTime30Min) {
		emit(models.AlertEvent{Kind: models.AlertTime30Min, TimeLeft: left})
		trade.MarkAlert(models.AlertTime30Min)
	}

	// 10. 过期
	if trade.Status == models.StatusPending && trade.IsExpired(now) &&
		!trade.HasAlert(models.AlertExpired) {
		emit(models.AlertEvent{Kind: models.AlertExpired})
		trade.MarkAlert(models.AlertExpired)
		trade.Status = models.StatusExpired
	}

	// 11. 无条件记录价格历史
	trade.AppendPrice(now, price, e.historyLimit)

	return events
}

// checkApproach 接近止盈提醒。
// 只有当信号恰好处于该档位的前一状态时才检查。
func (e *AlertEngine) checkApproach(trade *models.Trade, price float64, emit func(models.AlertEvent)) {
	checks := []struct {
		status string
		level  int
		kind   string
	}{
		{models.StatusActive, 1, models.AlertTP1Approach},
		{models.StatusTP1, 2, models.AlertTP2Approach},
		{models.StatusTP2, 3, models.AlertTP3Approach},
	}

	for _, c := range checks {
		tp := trade.Target(c.level)
		if tp == nil || trade.Status != c.status || tp.Hit {
			continue
		}
		progress, ok := e.progressToTP(trade, price, tp.Price)
		if !ok {
			continue
		}
		if progress >= e.threshold.TPApproach && progress < 1.0 && !trade.HasAlert(c.kind) {
			emit(models.AlertEvent{Kind: c.kind, Level: c.level, Progress: progress * 100})
			trade.MarkAlert(c.kind)
		}
	}
}

// checkTPHits 止盈触发及其附带的止损移动/策略提醒
func (e *AlertEngine) checkTPHits(trade *models.Trade, price float64, emit func(models.AlertEvent)) {
	tp1, tp2, tp3 := trade.Target(1), trade.Target(2), trade.Target(3)
	if tp1 == nil || tp2 == nil || tp3 == nil {
		return
	}

	if !tp1.Hit && e.isTargetHit(trade, price, tp1.Price) && !trade.HasAlert(models.AlertTP1Hit) {
		emit(models.AlertEvent{Kind: models.AlertTP1Hit, Level: 1})
		trade.MarkAlert(models.AlertTP1Hit)
		tp1.Hit = true
		trade.Status = models.StatusTP1
		tp1.ClosedPercent = e.strategy.TP1Percent

		if e.strategy.TP1MoveSLToBE {
			if oldSL, moved := e.moveStop(trade, trade.BreakevenPrice); moved {
				emit(models.AlertEvent{Kind: models.AlertBEMove, OldSL: oldSL, NewSL: trade.CurrentSL})
			}
			emit(models.AlertEvent{Kind: models.AlertAfterTP1Strategy})
		}
	}

	if tp1.Hit && !tp2.Hit && e.isTargetHit(trade, price, tp2.Price) && !trade.HasAlert(models.AlertTP2Hit) {
		emit(models.AlertEvent{Kind: models.AlertTP2Hit, Level: 2})
		trade.MarkAlert(models.AlertTP2Hit)
		tp2.Hit = true
		trade.Status = models.StatusTP2
		tp2.ClosedPercent = e.strategy.TP2Percent

		if e.strategy.TP2MoveSLToTP1 {
			if oldSL, moved := e.moveStop(trade, tp1.Price); moved {
				emit(models.AlertEvent{Kind: models.AlertTrailingSLTP1, OldSL: oldSL, NewSL: trade.CurrentSL})
			}
			emit(models.AlertEvent{Kind: models.AlertAfterTP2Strategy})
		}
	}

	if tp2.Hit && !tp3.Hit && e.isTargetHit(trade, price, tp3.Price) && !trade.HasAlert(models.AlertTP3Hit) {
		emit(models.AlertEvent{Kind: models.AlertTP3Hit, Level: 3})
		trade.MarkAlert(models.AlertTP3Hit)
		tp3.Hit = true
		trade.Status = models.StatusTP3
		tp3.ClosedPercent = e.strategy.TP3Percent

		if e.strategy.TP3MoveSLToTP2 {
			if oldSL, moved := e.moveStop(trade, tp2.Price); moved {
				emit(models.AlertEvent{Kind: models.AlertTrailingSLTP2, OldSL: oldSL, NewSL: trade.CurrentSL})
			}
			emit(models.AlertEvent{Kind: models.AlertTradeComplete})
		}
	}
}

// checkTPMissed 曾接近止盈又回撤的一次性通知，不改变状态
func (e *AlertEngine) checkTPMissed(trade *models.Trade, price float64, emit func(models.AlertEvent)) {
	checks := []struct {
		prior int
		level int
		kind  string
	}{
		{1, 2, models.AlertTP2Missed},
		{2, 3, models.AlertTP3Missed},
	}

	for _, c := range checks {
		prior, tp := trade.Target(c.prior), trade.Target(c.level)
		if prior == nil || tp == nil || !prior.Hit || tp.Hit {
			continue
		}
		if e.isTargetMissed(trade, price, tp.Price) && !trade.HasAlert(c.kind) {
			emit(models.AlertEvent{Kind: c.kind, Level: c.level})
			trade.MarkAlert(c.kind)
		}
	}
}

// checkDanger 距止损的风险提醒。
// CRITICAL 与 DANGER 互斥（CRITICAL 优先），其余相互独立。
// 每种都叠加冷却检查；由于同时受一次性集合约束，冷却实际只影响
// 首次登记，保留它是为了与可重复类提醒保持一致的判定路径。
func (e *AlertEngine) checkDanger(trade *models.Trade, price float64, now time.Time, emit func(models.AlertEvent)) {
	tp3 := trade.Target(3)
	watching := trade.Status == models.StatusActive ||
		trade.Status == models.StatusTP1 ||
		trade.Status == models.StatusTP2
	if !watching || tp3 == nil || tp3.Hit {
		return
	}

	pctToSL, againstPct := e.riskMetrics(trade, price)

	if pctToSL <= e.threshold.Critical*100 && !trade.HasAlert(models.AlertCritical25) {
		if e.cooldowns.Allow(trade.ID, models.AlertCritical25, now, e.defaultCooldown) {
			emit(models.AlertEvent{Kind: models.AlertCritical25, PctToSL: pctToSL})
			trade.MarkAlert(models.AlertCritical25)
		}
	} else if pctToSL <= e.threshold.Danger*100 && !trade.HasAlert(models.AlertDanger50) {
		if e.cooldowns.Allow(trade.ID, models.AlertDanger50, now, e.defaultCooldown) {
			emit(models.AlertEvent{Kind: models.AlertDanger50, PctToSL: pctToSL})
			trade.MarkAlert(models.AlertDanger50)
		}
	}

	if againstPct >= e.threshold.Warning*100 && !trade.HasAlert(models.AlertWarning1Pct) {
		if e.cooldowns.Allow(trade.ID, models.AlertWarning1Pct, now, e.defaultCooldown) {
			emit(models.AlertEvent{Kind: models.AlertWarning1Pct, AgainstPct: againstPct})
			trade.MarkAlert(models.AlertWarning1Pct)
		}
	}

	if e.isNearBreakeven(trade, price) && !trade.HasAlert(models.AlertNearBE) {
		if e.cooldowns.Allow(trade.ID, models.AlertNearBE, now, e.defaultCooldown) {
			emit(models.AlertEvent{Kind: models.AlertNearBE})
			trade.MarkAlert(models.AlertNearBE)
		}
	}

	if pctToSL <= e.threshold.Liquidation*100 && !trade.HasAlert(models.AlertLiquidation) {
		if e.cooldowns.Allow(trade.ID, models.AlertLiquidation, now, e.defaultCooldown) {
			emit(models.AlertEvent{Kind: models.AlertLiquidation, PctToSL: pctToSL})
			trade.MarkAlert(models.AlertLiquidation)
		}
	}
}

// checkBreakevenReject 保本位附近出现逆向走势
func (e *AlertEngine) checkBreakevenReject(trade *models.Trade, price float64, now time.Time, emit func(models.AlertEvent)) {
	if trade.Status != models.StatusTP1 {
		return
	}
	if !e.isNearBreakeven(trade, price) || !e.isMovingAgainst(trade, price) {
		return
	}
	if trade.HasAlert(models.AlertBEReject) {
		return
	}
	if e.cooldowns.Allow(trade.ID, models.AlertBEReject, now, e.defaultCooldown) {
		emit(models.AlertEvent{Kind: models.AlertBEReject, NewSL: trade.CurrentSL})
		trade.MarkAlert(models.AlertBEReject)
	}
}

// checkRapidMove 最近5分钟窗口内的急速波动
func (e *AlertEngine) checkRapidMove(trade *models.Trade, price float64, now time.Time, emit func(models.AlertEvent)) {
	if !e.detectRapidMove(trade, now) {
		return
	}
	if trade.HasAlert(models.AlertRapidMove) {
		return
	}
	if e.cooldowns.Allow(trade.ID, models.AlertRapidMove, now, e.rapidCooldown) {
		emit(models.AlertEvent{Kind: models.AlertRapidMove})
		trade.MarkAlert(models.AlertRapidMove)
	}
}

// moveStop 止损只朝减小风险的方向移动，返回旧值与是否实际移动
func (e *AlertEngine) moveStop(trade *models.Trade, newSL float64) (oldSL float64, moved bool) {
	oldSL = trade.CurrentSL
	if trade.Direction == models.DirectionLong {
		if newSL <= oldSL {
			return oldSL, false
		}
	} else {
		if newSL >= oldSL {
			return oldSL, false
		}
	}
	trade.CurrentSL = newSL
	return oldSL, true
}

// isTargetHit 方向相关的触发判断
func (e *AlertEngine) isTargetHit(trade *models.Trade, price, target float64) bool {
	if trade.Direction == models.DirectionLong {
		return price >= target
	}
	return price <= target
}

// isStopHit 当前止损是否被触发
func (e *AlertEngine) isStopHit(trade *models.Trade, price float64) bool {
	if trade.Direction == models.DirectionLong {
		return price <= trade.CurrentSL
	}
	return price >= trade.CurrentSL
}

// progressToTP 从入场均价到目标价的进度（0..1之外也会原样返回）。
// 总距离非正时视为退化配置，返回 ok=false。
func (e *AlertEngine) progressToTP(trade *models.Trade, price, target float64) (float64, bool) {
	entry := trade.EntryAvg()

	var total, current float64
	if trade.Direction == models.DirectionLong {
		total = target - entry
		current = price - entry
	} else {
		total = entry - target
		current = entry - price
	}

	if total <= 0 {
		return 0, false
	}
	return current / total, true
}

// isTargetMissed 最近窗口内曾接近目标价、当前又已回撤过界
func (e *AlertEngine) isTargetMissed(trade *models.Trade, price, target float64) bool {
	history := trade.PriceHistory
	if len(history) < 5 {
		return false
	}

	recent := history
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}

	nearTP := false
	if trade.Direction == models.DirectionLong {
		for _, p := range recent {
			if p.Price >= target*(1-e.threshold.TPMissNear) {
				nearTP = true
				break
			}
		}
		return nearTP && price < target*(1-e.threshold.TPMissRetreat)
	}

	for _, p := range recent {
		if p.Price <= target*(1+e.threshold.TPMissNear) {
			nearTP = true
			break
		}
	}
	return nearTP && price > target*(1+e.threshold.TPMissRetreat)
}

// isNearBreakeven 当前价格是否在保本价的相对容差内
func (e *AlertEngine) isNearBreakeven(trade *models.Trade, price float64) bool {
	be := trade.BreakevenPrice
	if be == 0 {
		return false
	}
	return math.Abs(price-be)/be < e.threshold.NearBE
}

// isMovingAgainst 相对上一个采样是否逆向移动
func (e *AlertEngine) isMovingAgainst(trade *models.Trade, price float64) bool {
	history := trade.PriceHistory
	if len(history) < 2 {
		return false
	}
	prev := history[len(history)-1].Price
	if trade.Direction == models.DirectionLong {
		return price < prev
	}
	return price > prev
}

// riskMetrics 计算距止损的剩余风险百分比与相对入场的逆向波动百分比，
// 两者都向下取 0；风险总距离退化时视为 100%（远离止损）。
func (e *AlertEngine) riskMetrics(trade *models.Trade, price float64) (pctToSL, againstPct float64) {
	entry := trade.EntryAvg()
	sl := trade.CurrentSL

	if trade.Direction == models.DirectionLong {
		distToSL := price - sl
		totalRisk := entry - sl
		if totalRisk > 0 {
			pctToSL = distToSL / totalRisk * 100
		} else {
			pctToSL = 100
		}
		if price < entry && entry != 0 {
			againstPct = (entry - price) / entry * 100
		}
	} else {
		distToSL := sl - price
		totalRisk := sl - entry
		if totalRisk > 0 {
			pctToSL = distToSL / totalRisk * 100
		} else {
			pctToSL = 100
		}
		if price > entry && entry != 0 {
			againstPct = (price - entry) / entry * 100
		}
	}

	if pctToSL < 0 {
		pctToSL = 0
	}
	if againstPct < 0 {
		againstPct = 0
	}
	return pctToSL, againstPct
}

// detectRapidMove 5分钟窗口内首尾采样的相对变化是否超过阈值
func (e *AlertEngine) detectRapidMove(trade *models.Trade, now time.Time) bool {
	history := trade.PriceHistory
	if len(history) < 3 {
		return false
	}

	windowStart := now.Add(-5 * time.Minute)
	var recent []models.PricePoint
	for _, p := range history {
		if p.Time.After(windowStart) {
			recent = append(recent, p)
		}
	}

	if len(recent) < 2 {
		return false
	}

	first, last := recent[0].Price, recent[len(recent)-1].Price
	if first == 0 {
		return false
	}
	change := math.Abs(last-first) / first
	return change >= e.threshold.RapidMove
}
