package service

import (
	"testing"
	"time"

	"github.com/dushixiang/vigil/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestRender_CoversAllKinds(t *testing.T) {
	renderer := NewAlertRenderer()
	trade := newLongTrade(time.Now())

	allKinds := []string{
		models.AlertEntryZone,
		models.AlertTP1Approach, models.AlertTP2Approach, models.AlertTP3Approach,
		models.AlertTP1Hit, models.AlertTP2Hit, models.AlertTP3Hit,
		models.AlertTP2Missed, models.AlertTP3Missed,
		models.AlertSLHit,
		models.AlertDanger50, models.AlertCritical25, models.AlertWarning1Pct,
		models.AlertNearBE, models.AlertLiquidation, models.AlertBEReject,
		models.AlertRapidMove,
		models.AlertTime30Min, models.AlertExpired,
		models.AlertBEMove, models.AlertTrailingSLTP1, models.AlertTrailingSLTP2,
		models.AlertAfterTP1Strategy, models.AlertAfterTP2Strategy,
		models.AlertTradeComplete,
	}

	for _, kind := range allKinds {
		msg := renderer.Render(models.AlertEvent{
			Kind:  kind,
			Trade: trade,
			Price: 104.5,
			Level: 1,
		})
		assert.NotEmpty(t, msg, "kind %s", kind)
	}
}

func TestRender_TPHit(t *testing.T) {
	renderer := NewAlertRenderer()
	trade := newLongTrade(time.Now())
	trade.Target(1).Hit = true
	trade.Target(1).ClosedPercent = 30

	msg := renderer.Render(models.AlertEvent{
		Kind:  models.AlertTP1Hit,
		Trade: trade,
		Price: 105,
		Level: 1,
	})

	assert.Contains(t, msg, "BTC TP1 HIT")
	assert.Contains(t, msg, "Move SL → BE")
	// 利润相对入场均价 101
	assert.Contains(t, msg, "+3.96%")
}

func TestRender_SLHitVariants(t *testing.T) {
	renderer := NewAlertRenderer()

	// 初始止损直接打掉是亏损
	trade := newLongTrade(time.Now())
	msg := renderer.Render(models.AlertEvent{Kind: models.AlertSLHit, Trade: trade, Price: 95})
	assert.Contains(t, msg, "Loss")

	// TP1 已触发：保本
	trade = newLongTrade(time.Now())
	trade.Target(1).Hit = true
	msg = renderer.Render(models.AlertEvent{Kind: models.AlertSLHit, Trade: trade, Price: 101})
	assert.Contains(t, msg, "Breakeven")

	// TP2 已触发：带利润离场
	trade = newLongTrade(time.Now())
	trade.Target(1).Hit = true
	trade.Target(2).Hit = true
	msg = renderer.Render(models.AlertEvent{Kind: models.AlertSLHit, Trade: trade, Price: 105})
	assert.Contains(t, msg, "In profit")
}
