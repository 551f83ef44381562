package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func newTrade() *Trade {
	return &Trade{
		ID:        "01TRADE000000000000000TEST",
		Pair:      "BTC",
		Direction: DirectionLong,
		Status:    StatusActive,
		EntryMin:  100,
		EntryMax:  102,
		StopLoss:  95,
		Targets: datatypes.JSONSlice[TakeProfit]{
			{Price: 105},
			{Price: 110},
			{Price: 115},
		},
		ValidHours: 4,
		CreatedAt:  time.Now(),
	}
}

func TestTrade_EntryAvg(t *testing.T) {
	trade := newTrade()
	assert.Equal(t, 101.0, trade.EntryAvg())
}

func TestTrade_Expiry(t *testing.T) {
	trade := newTrade()

	assert.False(t, trade.IsExpired(trade.CreatedAt.Add(3*time.Hour)))
	assert.True(t, trade.IsExpired(trade.CreatedAt.Add(4*time.Hour+time.Second)))
	assert.Equal(t, trade.CreatedAt.Add(4*time.Hour), trade.ExpiryTime())
}

func TestTrade_Target(t *testing.T) {
	trade := newTrade()

	require.NotNil(t, trade.Target(1))
	assert.Equal(t, 105.0, trade.Target(1).Price)
	assert.Equal(t, 115.0, trade.Target(3).Price)
	assert.Nil(t, trade.Target(0))
	assert.Nil(t, trade.Target(4))

	// 返回的是指针，修改会反映到信号上
	trade.Target(2).Hit = true
	assert.True(t, trade.Targets[1].Hit)
}

func TestTrade_CurrentTP(t *testing.T) {
	trade := newTrade()
	assert.Equal(t, 1, trade.CurrentTP())

	trade.Target(1).Hit = true
	assert.Equal(t, 2, trade.CurrentTP())

	trade.Target(2).Hit = true
	trade.Target(3).Hit = true
	assert.Equal(t, 0, trade.CurrentTP())
}

func TestTrade_RemainingPercent(t *testing.T) {
	trade := newTrade()
	assert.Equal(t, 100.0, trade.RemainingPercent())

	trade.Target(1).Hit = true
	trade.Target(1).ClosedPercent = 30
	assert.Equal(t, 70.0, trade.RemainingPercent())

	trade.Target(2).Hit = true
	trade.Target(2).ClosedPercent = 30
	trade.Target(3).Hit = true
	trade.Target(3).ClosedPercent = 40
	assert.Equal(t, 0.0, trade.RemainingPercent())
}

func TestTrade_AlertDedup(t *testing.T) {
	trade := newTrade()

	assert.False(t, trade.HasAlert(AlertTP1Hit))
	trade.MarkAlert(AlertTP1Hit)
	assert.True(t, trade.HasAlert(AlertTP1Hit))

	// 重复标记不产生重复条目
	trade.MarkAlert(AlertTP1Hit)
	assert.Len(t, trade.AlertsSent, 1)
}

func TestTrade_AppendPrice(t *testing.T) {
	trade := newTrade()
	now := time.Now()

	for i := 0; i < 10; i++ {
		trade.AppendPrice(now.Add(time.Duration(i)*time.Second), float64(100+i), 5)
	}

	require.Len(t, trade.PriceHistory, 5)
	// 裁剪后保留最新的采样且顺序不变
	assert.Equal(t, 105.0, trade.PriceHistory[0].Price)
	assert.Equal(t, 109.0, trade.PriceHistory[4].Price)
}

func TestTrade_IsFinished(t *testing.T) {
	trade := newTrade()
	assert.False(t, trade.IsFinished())

	trade.Status = StatusClosed
	assert.True(t, trade.IsFinished())

	trade.Status = StatusExpired
	assert.True(t, trade.IsFinished())
}
