package config

type Config struct {
	Telegram  TelegramConf  `json:"telegram"`
	Binance   BinanceConf   `json:"binance"`
	Monitor   MonitorConf   `json:"monitor"`
	Strategy  StrategyConf  `json:"strategy"`
	Threshold ThresholdConf `json:"threshold"`
	Cooldown  CooldownConf  `json:"cooldown"`
}

type TelegramConf struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	ChatID  string `json:"chat_id"`
}

type BinanceConf struct {
	APIKey   string `json:"api_key"`
	Secret   string `json:"secret"`
	ProxyURL string `json:"proxy_url"` // 代理地址，例如: http://127.0.0.1:7890
	Testnet  bool   `json:"testnet"`   // 是否使用测试网
}

type MonitorConf struct {
	CheckIntervalSeconds int `json:"check_interval_seconds"` // 价格轮询间隔（秒），默认10
	PriceHistoryLimit    int `json:"price_history_limit"`    // 价格历史滑动窗口长度，默认100
}

// StrategyConf 分批止盈策略
type StrategyConf struct {
	TP1Percent float64 `json:"tp1_percent"` // TP1 平仓比例，默认30
	TP2Percent float64 `json:"tp2_percent"` // TP2 平仓比例，默认30
	TP3Percent float64 `json:"tp3_percent"` // TP3 平仓比例，默认40

	TP1MoveSLToBE  bool `json:"tp1_move_sl_to_be"`  // TP1 触发后止损移到保本价
	TP2MoveSLToTP1 bool `json:"tp2_move_sl_to_tp1"` // TP2 触发后止损移到 TP1
	TP3MoveSLToTP2 bool `json:"tp3_move_sl_to_tp2"` // TP3 触发后止损移到 TP2
}

// ThresholdConf 各类提醒的触发阈值
type ThresholdConf struct {
	TPApproach    float64 `json:"tp_approach"`     // 接近止盈的进度比例，默认0.80
	Warning       float64 `json:"warning"`         // 逆向波动警告，默认0.01（1%）
	Danger        float64 `json:"danger"`          // 距止损50%以内
	Critical      float64 `json:"critical"`        // 距止损25%以内
	Liquidation   float64 `json:"liquidation"`     // 距止损10%以内
	NearBE        float64 `json:"near_be"`         // 接近保本价的相对容差，默认0.002
	RapidMove     float64 `json:"rapid_move"`      // 5分钟内的急速波动比例，默认0.01
	TPMissNear    float64 `json:"tp_miss_near"`    // 判定"曾接近TP"的相对距离，默认0.005
	TPMissRetreat float64 `json:"tp_miss_retreat"` // 判定"已回撤过TP"的相对距离，默认0.01
}

// CooldownConf 提醒冷却时间（秒）
type CooldownConf struct {
	DefaultSeconds int `json:"default_seconds"` // 默认冷却，默认60
	RapidSeconds   int `json:"rapid_seconds"`   // 急速波动提醒冷却，默认300
}

// Normalize 填充未配置项的默认值，取值与原始策略保持一致
func (c *Config) Normalize() {
	if c.Monitor.CheckIntervalSeconds <= 0 {
		c.Monitor.CheckIntervalSeconds = 10
	}
	if c.Monitor.PriceHistoryLimit <= 0 {
		c.Monitor.PriceHistoryLimit = 100
	}

	if c.Strategy.TP1Percent <= 0 && c.Strategy.TP2Percent <= 0 && c.Strategy.TP3Percent <= 0 {
		c.Strategy = StrategyConf{
			TP1Percent:     30,
			TP2Percent:     30,
			TP3Percent:     40,
			TP1MoveSLToBE:  true,
			TP2MoveSLToTP1: true,
			TP3MoveSLToTP2: true,
		}
	}

	if c.Threshold.TPApproach <= 0 {
		c.Threshold.TPApproach = 0.80
	}
	if c.Threshold.Warning <= 0 {
		c.Threshold.Warning = 0.01
	}
	if c.Threshold.Danger <= 0 {
		c.Threshold.Danger = 0.50
	}
	if c.Threshold.Critical <= 0 {
		c.Threshold.Critical = 0.25
	}
	if c.Threshold.Liquidation <= 0 {
		c.Threshold.Liquidation = 0.10
	}
	if c.Threshold.NearBE <= 0 {
		c.Threshold.NearBE = 0.002
	}
	if c.Threshold.RapidMove <= 0 {
		c.Threshold.RapidMove = 0.01
	}
	if c.Threshold.TPMissNear <= 0 {
		c.Threshold.TPMissNear = 0.005
	}
	if c.Threshold.TPMissRetreat <= 0 {
		c.Threshold.TPMissRetreat = 0.01
	}

	if c.Cooldown.DefaultSeconds <= 0 {
		c.Cooldown.DefaultSeconds = 60
	}
	if c.Cooldown.RapidSeconds <= 0 {
		c.Cooldown.RapidSeconds = 300
	}
}
