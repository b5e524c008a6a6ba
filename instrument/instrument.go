// Package instrument 定义链上合约的静态描述，创建后不可变。
package instrument

import (
	"sort"
	"time"

	"options-mm-go/analytics"
)

// Kind 合约类型。
type Kind string

const (
	KindOption Kind = "option"
	KindFuture Kind = "future"
)

// Instrument 单个合约的身份信息；Name 为唯一键。
type Instrument struct {
	Name       string
	Kind       Kind
	Strike     float64              // 仅期权
	OptionType analytics.OptionType // 仅期权
	Expiry     time.Time
	Rate       float64 // 无风险利率
}

// IsOption 返回是否期权合约。
func (i Instrument) IsOption() bool { return i.Kind == KindOption }

// TimeToExpiry 距到期的年化剩余期限；已到期返回 0。
func (i Instrument) TimeToExpiry(now time.Time) float64 {
	const yearSeconds = 365 * 24 * 60 * 60
	sec := i.Expiry.Sub(now).Seconds()
	if sec <= 0 {
		return 0
	}
	return sec / yearSeconds
}

// SortChain 期货在前，期权按行权价升序，便于每轮先刷新标的报价。
func SortChain(ins []Instrument) {
	sort.SliceStable(ins, func(a, b int) bool {
		if ins[a].Kind != ins[b].Kind {
			return ins[a].Kind == KindFuture
		}
		if ins[a].Strike != ins[b].Strike {
			return ins[a].Strike < ins[b].Strike
		}
		return ins[a].Name < ins[b].Name
	})
}
