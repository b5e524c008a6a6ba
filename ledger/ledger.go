// Package ledger 维护每个合约的持仓账目与最新报价，并把风险贡献
// 的增量推给组合层聚合器。合约集在启动时建立，之后不再增减。
package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"options-mm-go/analytics"
	"options-mm-go/instrument"
	"options-mm-go/risk"
)

var (
	ErrUnknownInstrument = errors.New("unknown instrument")
)

type entry struct {
	mu       sync.Mutex
	inst     instrument.Instrument
	pos      Position
	quote    Quote
	hasQuote bool
}

// Ledger 持仓账本。map 在初始化后只读；每个合约由自身的互斥锁保护，
// 跨合约操作可以完全并行。
type Ledger struct {
	agg *risk.Aggregator
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]*entry
	names   []string // 链序：期货在前

	umu        sync.RWMutex
	underlying string
	uQuote     Quote
	uHas       bool
}

func New(agg *risk.Aggregator) *Ledger {
	return &Ledger{
		agg:     agg,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

// Init 为合约建立零持仓账目；按名幂等，重复调用不会重置已有持仓。
func (l *Ledger) Init(inst instrument.Instrument) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[inst.Name]; ok {
		return
	}
	l.entries[inst.Name] = &entry{inst: inst}
	l.names = append(l.names, inst.Name)
	if inst.Kind == instrument.KindFuture {
		l.umu.Lock()
		// 链序排列后第一张期货即标的
		if l.underlying == "" {
			l.underlying = inst.Name
		}
		l.umu.Unlock()
	}
}

func (l *Ledger) lookup(name string) (*entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[name]
	return e, ok
}

// Names 按链序返回全部合约名。
func (l *Ledger) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, len(l.names))
	copy(out, l.names)
	return out
}

// UnderlyingName 标的期货合约名；未发现时为空串。
func (l *Ledger) UnderlyingName() string {
	l.umu.RLock()
	defer l.umu.RUnlock()
	return l.underlying
}

// UnderlyingFair 标的公允价（买卖中点）。
func (l *Ledger) UnderlyingFair() (float64, bool) {
	l.umu.RLock()
	defer l.umu.RUnlock()
	if !l.uHas {
		return 0, false
	}
	return l.uQuote.Mid(), true
}

// UpdateQuote 存入最新报价。期权会用当前标的公允价重算希腊值，并把
// 新旧风险贡献的差推给聚合器；反解失败时该合约按零贡献处理，错误
// 返回给调用方计数，绝不中断流程。
func (l *Ledger) UpdateQuote(name string, bid, ask float64) error {
	e, ok := l.lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownInstrument, name)
	}

	if e.inst.Kind == instrument.KindFuture {
		e.mu.Lock()
		e.quote = Quote{Bid: bid, Ask: ask}
		e.hasQuote = true
		e.mu.Unlock()
		l.umu.Lock()
		if name == l.underlying {
			l.uQuote = Quote{Bid: bid, Ask: ask}
			l.uHas = true
		}
		l.umu.Unlock()
		return nil
	}

	fair, haveFair := l.UnderlyingFair()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.quote = Quote{Bid: bid, Ask: ask}
	e.hasQuote = true
	if !haveFair || fair <= 0 {
		// 标的价未知时希腊值保持未定义（零），等下一轮
		return nil
	}

	oldG, oldQty := e.pos.Greeks, e.pos.Quantity
	tte := e.inst.TimeToExpiry(l.now())
	e.pos.TimeToExpiry = tte

	res, err := analytics.Evaluate(e.inst.OptionType, e.quote.Mid(), fair, e.inst.Strike, tte, e.inst.Rate)
	if err != nil {
		e.pos.IV = 0
		e.pos.Greeks = analytics.Greeks{}
		l.agg.Apply(oldG, oldQty, analytics.Greeks{}, oldQty)
		return fmt.Errorf("evaluate %s: %w", name, err)
	}
	e.pos.IV = res.IV
	e.pos.Greeks = res.Greeks
	l.agg.Apply(oldG, oldQty, res.Greeks, oldQty)
	return nil
}

// ApplyFill 统一的成交入口，期权与标的期货都从这里记账，保证盈亏
// 与数量口径一致。qty 正买负卖。
func (l *Ledger) ApplyFill(name string, qty, price float64) error {
	e, ok := l.lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownInstrument, name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	oldQty := e.pos.Quantity
	e.pos.ApplyFill(qty, price)

	if e.inst.Kind == instrument.KindFuture {
		// 期货本身不带期权希腊值，每单位 delta 恒为 1
		l.agg.Apply(analytics.Greeks{Delta: 1}, oldQty, analytics.Greeks{Delta: 1}, e.pos.Quantity)
		return nil
	}
	l.agg.Apply(e.pos.Greeks, oldQty, e.pos.Greeks, e.pos.Quantity)
	return nil
}

// Position 返回持仓快照（拷贝）。
func (l *Ledger) Position(name string) (Position, bool) {
	e, ok := l.lookup(name)
	if !ok {
		return Position{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pos, true
}

// Quote 返回最新报价；false 表示尚无报价。
func (l *Ledger) Quote(name string) (Quote, bool) {
	e, ok := l.lookup(name)
	if !ok {
		return Quote{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.quote, e.hasQuote
}

// Instrument 返回合约静态信息。
func (l *Ledger) Instrument(name string) (instrument.Instrument, bool) {
	e, ok := l.lookup(name)
	if !ok {
		return instrument.Instrument{}, false
	}
	return e.inst, true
}

// InstrumentRisk 即时希腊值与持仓量，供风控闸门取数。
func (l *Ledger) InstrumentRisk(name string) (analytics.Greeks, float64, bool) {
	e, ok := l.lookup(name)
	if !ok {
		return analytics.Greeks{}, 0, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pos.Greeks, e.pos.Quantity, true
}

// RealizedPnL 全账本已实现盈亏合计。
func (l *Ledger) RealizedPnL() float64 {
	var sum float64
	for _, name := range l.Names() {
		e, _ := l.lookup(name)
		e.mu.Lock()
		sum += e.pos.RealizedPnL()
		e.mu.Unlock()
	}
	return sum
}

// UnrealizedPnL 全账本未实现盈亏合计；没有报价的合约贡献为零。
func (l *Ledger) UnrealizedPnL() float64 {
	var sum float64
	for _, name := range l.Names() {
		e, _ := l.lookup(name)
		e.mu.Lock()
		if e.hasQuote {
			sum += e.pos.UnrealizedPnL(e.quote.Mid())
		}
		e.mu.Unlock()
	}
	return sum
}

// Contributions 当前全部合约的风险贡献，供聚合器对账。
// 期货按每单位 delta 为 1 计入。
func (l *Ledger) Contributions() []risk.Contribution {
	names := l.Names()
	out := make([]risk.Contribution, 0, len(names))
	for _, name := range names {
		e, _ := l.lookup(name)
		e.mu.Lock()
		if e.inst.Kind == instrument.KindFuture {
			out = append(out, risk.Contribution{Greeks: analytics.Greeks{Delta: 1}, Qty: e.pos.Quantity})
		} else {
			out = append(out, risk.Contribution{Greeks: e.pos.Greeks, Qty: e.pos.Quantity})
		}
		e.mu.Unlock()
	}
	return out
}
