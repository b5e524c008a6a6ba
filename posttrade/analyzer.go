// Package posttrade 离线成交分析：把 runner 的结构化日志回放成
// 每个合约的持仓与盈亏汇总，口径与账本完全一致。
package posttrade

import (
	"sort"
	"sync"

	"options-mm-go/ledger"
)

// InstrumentReport 单合约汇总。
type InstrumentReport struct {
	Instrument string
	Fills      int
	Position   ledger.Position
	Mark       float64 // 估值价；0 表示未知，未实现盈亏按 0 计
}

// RealizedPnL 已实现盈亏。
func (r InstrumentReport) RealizedPnL() float64 { return r.Position.RealizedPnL() }

// UnrealizedPnL 按 Mark 估值的未实现盈亏；无估值价时为 0。
func (r InstrumentReport) UnrealizedPnL() float64 {
	if r.Mark <= 0 {
		return 0
	}
	return r.Position.UnrealizedPnL(r.Mark)
}

// Report 全组合汇总，合约按名称排序。
type Report struct {
	Instruments []InstrumentReport
	TotalFills  int
}

// RealizedPnL 组合已实现盈亏合计。
func (r Report) RealizedPnL() float64 {
	var sum float64
	for _, ir := range r.Instruments {
		sum += ir.RealizedPnL()
	}
	return sum
}

// UnrealizedPnL 组合未实现盈亏合计；只计有估值价的合约。
func (r Report) UnrealizedPnL() float64 {
	var sum float64
	for _, ir := range r.Instruments {
		sum += ir.UnrealizedPnL()
	}
	return sum
}

// Analyzer 累积成交与估值价，生成报表。
type Analyzer struct {
	mu    sync.Mutex
	pos   map[string]*ledger.Position
	fills map[string]int
	marks map[string]float64
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{
		pos:   make(map[string]*ledger.Position),
		fills: make(map[string]int),
		marks: make(map[string]float64),
	}
}

// OnFill 记一笔成交；qty 取绝对量，方向由 side 决定。
func (a *Analyzer) OnFill(inst, side string, qty, price float64) {
	if inst == "" || qty <= 0 || price <= 0 {
		return
	}
	signed := qty
	if side == "sell" {
		signed = -qty
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.pos[inst]
	if !ok {
		p = &ledger.Position{}
		a.pos[inst] = p
	}
	p.ApplyFill(signed, price)
	a.fills[inst]++
}

// SetMark 设置合约估值价，用于未实现盈亏。
func (a *Analyzer) SetMark(inst string, fair float64) {
	a.mu.Lock()
	a.marks[inst] = fair
	a.mu.Unlock()
}

// Report 生成当前快照。
func (a *Analyzer) Report() Report {
	a.mu.Lock()
	defer a.mu.Unlock()

	names := make([]string, 0, len(a.pos))
	for name := range a.pos {
		names = append(names, name)
	}
	sort.Strings(names)

	rep := Report{Instruments: make([]InstrumentReport, 0, len(names))}
	for _, name := range names {
		rep.Instruments = append(rep.Instruments, InstrumentReport{
			Instrument: name,
			Fills:      a.fills[name],
			Position:   *a.pos[name],
			Mark:       a.marks[name],
		})
		rep.TotalFills += a.fills[name]
	}
	return rep
}
