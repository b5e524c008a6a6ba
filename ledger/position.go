package ledger

import (
	"math"

	"options-mm-go/analytics"
)

// Quote 某一合约的最新买卖报价，整体替换、不留历史。
type Quote struct {
	Bid float64
	Ask float64
}

// Mid 公允价：买卖中点。
func (q Quote) Mid() float64 { return (q.Bid + q.Ask) / 2 }

// Position 单合约持仓账目。
// 不存已实现盈亏，按 min(买量, 卖量) 与两侧均价随取随算。
type Position struct {
	Quantity float64

	TotalBuys    float64
	BuyNotional  float64
	TotalSells   float64
	SellNotional float64

	IV           float64
	Greeks       analytics.Greeks
	TimeToExpiry float64
}

// ApplyFill 按符号记账；不变式 Quantity == TotalBuys - TotalSells。
func (p *Position) ApplyFill(qty, price float64) {
	if qty > 0 {
		p.TotalBuys += qty
		p.BuyNotional += qty * price
	} else {
		p.TotalSells += -qty
		p.SellNotional += -qty * price
	}
	p.Quantity += qty
}

// AvgBuyPrice 成交量加权平均买价；无买入时为 0。
func (p *Position) AvgBuyPrice() float64 {
	if p.TotalBuys == 0 {
		return 0
	}
	return p.BuyNotional / p.TotalBuys
}

// AvgSellPrice 成交量加权平均卖价；无卖出时为 0。
func (p *Position) AvgSellPrice() float64 {
	if p.TotalSells == 0 {
		return 0
	}
	return p.SellNotional / p.TotalSells
}

// RealizedPnL 已平仓部分的盈亏。
func (p *Position) RealizedPnL() float64 {
	matched := math.Min(p.TotalBuys, p.TotalSells)
	if matched == 0 {
		return 0
	}
	return matched * (p.AvgSellPrice() - p.AvgBuyPrice())
}

// UnrealizedPnL 以公允价对净持仓估值。
func (p *Position) UnrealizedPnL(fair float64) float64 {
	if p.Quantity > 0 {
		return p.Quantity * (fair - p.AvgBuyPrice())
	}
	if p.Quantity < 0 {
		return -p.Quantity * (p.AvgSellPrice() - fair)
	}
	return 0
}
