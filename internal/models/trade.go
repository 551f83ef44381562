package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Direction 交易方向
const (
	DirectionLong  = "LONG"
	DirectionShort = "SHORT"
)

// Status 信号状态，只允许单向推进：
// PENDING → ACTIVE → TP1 → TP2 → TP3 → CLOSED，或 PENDING → EXPIRED
const (
	StatusPending = "PENDING"
	StatusActive  = "ACTIVE"
	StatusTP1     = "TP1"
	StatusTP2     = "TP2"
	StatusTP3     = "TP3"
	StatusClosed  = "CLOSED"
	StatusExpired = "EXPIRED"
)

// TakeProfit 单个止盈档位，按顺序排列（索引0..2 对应 TP1..TP3）
type TakeProfit struct {
	Price         float64 `json:"price"`          // 目标价格
	Hit           bool    `json:"hit"`            // 是否已触发，单向 false→true
	ClosedPercent float64 `json:"closed_percent"` // 触发后平仓的仓位百分比
}

// PricePoint 价格历史采样点
type PricePoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

// Trade 被监控的交易信号
type Trade struct {
	ID        string `gorm:"primaryKey;type:varchar(26)" json:"id"`
	Pair      string `gorm:"type:varchar(20);not null;index" json:"pair"`    // 交易对，如 BTCUSDT
	Direction string `gorm:"type:varchar(10);not null" json:"direction"`     // LONG/SHORT
	Status    string `gorm:"type:varchar(10);not null;index" json:"status"`  // 当前状态

	// 入场区间与初始止损（创建后不再修改）
	EntryMin    float64 `gorm:"not null" json:"entry_min"`
	EntryMax    float64 `gorm:"not null" json:"entry_max"`
	StopLoss    float64 `gorm:"not null" json:"stop_loss"`    // 初始止损价
	RiskPercent float64 `json:"risk_percent"`                 // 单笔风险百分比
	Leverage    string  `gorm:"type:varchar(10)" json:"leverage"` // 建议杠杆，如 "5-10"
	ValidHours  int     `gorm:"not null" json:"valid_hours"`  // 信号有效期（小时）
	Strength    int     `json:"strength"`                     // 信号强度 0-100

	// 止盈阶梯，固定三档
	Targets datatypes.JSONSlice[TakeProfit] `json:"targets"`

	// 运行时状态
	BreakevenPrice float64 `json:"breakeven_price"` // 保本价，默认为入场均价
	CurrentSL      float64 `json:"current_sl"`      // 当前止损价，只会朝有利方向移动
	EntryPrice     float64 `json:"entry_price"`     // 实际触发入场时的价格

	AlertsSent   datatypes.JSONSlice[string]     `json:"alerts_sent"`   // 已发送的提醒类型，保证每种最多一次
	PriceHistory datatypes.JSONSlice[PricePoint] `json:"price_history"` // 滑动窗口价格历史

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (Trade) TableName() string {
	return "trades"
}

// EntryAvg 入场均价
func (t *Trade) EntryAvg() float64 {
	return (t.EntryMin + t.EntryMax) / 2
}

// ExpiryTime 信号过期时间
func (t *Trade) ExpiryTime() time.Time {
	return t.CreatedAt.Add(time.Duration(t.ValidHours) * time.Hour)
}

// IsExpired 是否已过期
func (t *Trade) IsExpired(now time.Time) bool {
	return now.After(t.ExpiryTime())
}

// IsFinished 是否已终结（不再需要监控）
func (t *Trade) IsFinished() bool {
	return t.Status == StatusClosed || t.Status == StatusExpired
}

// Target 按档位取止盈目标（level 为 1..3），越界返回 nil
func (t *Trade) Target(level int) *TakeProfit {
	if level < 1 || level > len(t.Targets) {
		return nil
	}
	return &t.Targets[level-1]
}

// CurrentTP 返回第一个未触发的止盈档位，全部触发时返回 0
func (t *Trade) CurrentTP() (level int) {
	for i := range t.Targets {
		if !t.Targets[i].Hit {
			return i + 1
		}
	}
	return 0
}

// RemainingPercent 剩余仓位百分比
func (t *Trade) RemainingPercent() float64 {
	remaining := 100.0
	for i := range t.Targets {
		if t.Targets[i].Hit {
			remaining -= t.Targets[i].ClosedPercent
		}
	}
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// HasAlert 判断某种提醒是否已发送过
func (t *Trade) HasAlert(kind string) bool {
	for _, sent := range t.AlertsSent {
		if sent == kind {
			return true
		}
	}
	return false
}

// MarkAlert 记录提醒已发送
func (t *Trade) MarkAlert(kind string) {
	if !t.HasAlert(kind) {
		t.AlertsSent = append(t.AlertsSent, kind)
	}
}

// AppendPrice 追加价格采样并裁剪到窗口上限，保持插入顺序
func (t *Trade) AppendPrice(now time.Time, price float64, limit int) {
	t.PriceHistory = append(t.PriceHistory, PricePoint{Time: now, Price: price})
	if limit > 0 && len(t.PriceHistory) > limit {
		t.PriceHistory = t.PriceHistory[len(t.PriceHistory)-limit:]
	}
}
