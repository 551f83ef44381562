package service

import "time"

// cooldownKey 组合键，避免字符串拼接
type cooldownKey struct {
	tradeID string
	kind    string
}

// CooldownGate 提醒频率限制器。
// 与一次性提醒集合相互独立，引擎对风险类提醒同时使用两者。
type CooldownGate struct {
	lastFired map[cooldownKey]time.Time
}

func NewCooldownGate() *CooldownGate {
	return &CooldownGate{
		lastFired: make(map[cooldownKey]time.Time),
	}
}

// Allow 对同一 (tradeID, kind) 首次调用总是放行并记录时间；
// 之后仅当距上次放行已超过冷却时间才再次放行，放行时刷新记录。
func (g *CooldownGate) Allow(tradeID, kind string, now time.Time, cooldown time.Duration) bool {
	key := cooldownKey{tradeID: tradeID, kind: kind}
	last, ok := g.lastFired[key]
	if !ok {
		g.lastFired[key] = now
		return true
	}
	if now.Sub(last) >= cooldown {
		g.lastFired[key] = now
		return true
	}
	return false
}
