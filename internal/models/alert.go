package models

import "time"

// 提醒类型。除特殊说明外均为一次性提醒：
// 同一信号的同一类型在整个生命周期内最多发送一次。
const (
	AlertEntryZone = "ENTRY_ZONE"

	AlertTP1Approach = "TP1_APPROACH"
	AlertTP2Approach = "TP2_APPROACH"
	AlertTP3Approach = "TP3_APPROACH"

	AlertTP1Hit = "TP1_HIT"
	AlertTP2Hit = "TP2_HIT"
	AlertTP3Hit = "TP3_HIT"

	AlertTP2Missed = "TP2_MISSED"
	AlertTP3Missed = "TP3_MISSED"

	AlertSLHit = "SL_HIT"

	// 风险提醒，额外受冷却时间限制
	AlertDanger50    = "DANGER_50"
	AlertCritical25  = "CRITICAL_25"
	AlertWarning1Pct = "WARNING_1PCT"
	AlertNearBE      = "NEAR_BE"
	AlertLiquidation = "LIQUIDATION"
	AlertBEReject    = "BE_REJECT"
	AlertRapidMove   = "RAPID_MOVE"

	AlertTime30Min = "TIME_30MIN"
	AlertExpired   = "EXPIRED"

	// 止盈触发时附带的说明性提醒
	AlertBEMove           = "BE_MOVE"
	AlertTrailingSLTP1    = "TRAILING_SL_TP1"
	AlertTrailingSLTP2    = "TRAILING_SL_TP2"
	AlertAfterTP1Strategy = "AFTER_TP1_STRATEGY"
	AlertAfterTP2Strategy = "AFTER_TP2_STRATEGY"
	AlertTradeComplete    = "TRADE_COMPLETE"
)

// AlertEvent 报警引擎产出的结构化事件。
// 只携带决策结果与渲染所需的数据，消息文本由渲染器单独生成。
type AlertEvent struct {
	Kind  string `json:"kind"`
	Trade *Trade `json:"-"`

	Price       float64       `json:"price"`                  // 触发时的价格
	Level       int           `json:"level,omitempty"`        // 止盈档位 1..3
	Progress    float64       `json:"progress,omitempty"`     // 入场→TP 的进度百分比
	OldSL       float64       `json:"old_sl,omitempty"`       // 止损移动前的价格
	NewSL       float64       `json:"new_sl,omitempty"`       // 止损移动后的价格
	PctToSL     float64       `json:"pct_to_sl,omitempty"`    // 距止损剩余的风险百分比
	AgainstPct  float64       `json:"against_pct,omitempty"`  // 相对入场的逆向波动百分比
	TimeLeft    time.Duration `json:"time_left,omitempty"`    // 距过期的剩余时间
	OccurredAt  time.Time     `json:"occurred_at"`
}

// AlertRecord 已发出提醒的持久化记录，供 /history 与 API 查询
type AlertRecord struct {
	ID        string    `gorm:"primaryKey;type:varchar(26)" json:"id"`
	TradeID   string    `gorm:"type:varchar(26);not null;index" json:"trade_id"`
	Pair      string    `gorm:"type:varchar(20);not null;index" json:"pair"`
	Kind      string    `gorm:"type:varchar(32);not null" json:"kind"`
	Price     float64   `json:"price"`
	Message   string    `json:"message"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName 指定表名
func (AlertRecord) TableName() string {
	return "alert_records"
}
