package ledger

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"options-mm-go/analytics"
	"options-mm-go/instrument"
	"options-mm-go/risk"
)

func futureInst(name string) instrument.Instrument {
	return instrument.Instrument{
		Name:   name,
		Kind:   instrument.KindFuture,
		Expiry: time.Now().Add(90 * 24 * time.Hour),
	}
}

func callInst(name string, strike float64) instrument.Instrument {
	return instrument.Instrument{
		Name:       name,
		Kind:       instrument.KindOption,
		Strike:     strike,
		OptionType: analytics.Call,
		Expiry:     time.Now().Add(90 * 24 * time.Hour),
	}
}

func newTestLedger() (*Ledger, *risk.Aggregator) {
	agg := risk.NewAggregator(risk.Limits{})
	return New(agg), agg
}

func TestRealizedPnL(t *testing.T) {
	l, _ := newTestLedger()
	l.Init(callInst("ETH-C-2000", 2000))

	// 买 5 @ 均价 100，卖 3 @ 均价 110 -> 已实现 3 x 10 = 30
	if err := l.ApplyFill("ETH-C-2000", 5, 100); err != nil {
		t.Fatalf("fill: %v", err)
	}
	if err := l.ApplyFill("ETH-C-2000", -3, 110); err != nil {
		t.Fatalf("fill: %v", err)
	}
	if got := l.RealizedPnL(); math.Abs(got-30) > 1e-12 {
		t.Fatalf("realized pnl %v want 30", got)
	}
	pos, _ := l.Position("ETH-C-2000")
	if pos.Quantity != 2 || pos.TotalBuys != 5 || pos.TotalSells != 3 {
		t.Fatalf("bad position: %+v", pos)
	}
}

func TestUnrealizedPnL(t *testing.T) {
	l, _ := newTestLedger()
	l.Init(futureInst("ETH-FUT"))
	l.Init(callInst("ETH-C-2000", 2000))

	if err := l.ApplyFill("ETH-C-2000", 2, 100); err != nil {
		t.Fatalf("fill: %v", err)
	}
	// 无报价 -> 贡献为零，不报错
	if got := l.UnrealizedPnL(); got != 0 {
		t.Fatalf("no-quote unrealized %v want 0", got)
	}
	// mid 105 -> 2 x (105 - 100) = 10
	if err := l.UpdateQuote("ETH-C-2000", 104, 106); err != nil {
		t.Fatalf("quote: %v", err)
	}
	if got := l.UnrealizedPnL(); math.Abs(got-10) > 1e-12 {
		t.Fatalf("unrealized pnl %v want 10", got)
	}
}

func TestInitIdempotent(t *testing.T) {
	l, _ := newTestLedger()
	inst := callInst("ETH-C-2000", 2000)
	l.Init(inst)
	if err := l.ApplyFill("ETH-C-2000", 3, 50); err != nil {
		t.Fatalf("fill: %v", err)
	}
	// 重复初始化不得清掉已有持仓
	l.Init(inst)
	pos, ok := l.Position("ETH-C-2000")
	if !ok || pos.Quantity != 3 {
		t.Fatalf("position reset by re-init: %+v", pos)
	}
	if len(l.Names()) != 1 {
		t.Fatalf("duplicate entry created")
	}
}

func TestQuoteUpdateFeedsAggregator(t *testing.T) {
	l, agg := newTestLedger()
	l.Init(futureInst("ETH-FUT"))
	l.Init(callInst("ETH-C-2000", 2000))

	if err := l.ApplyFill("ETH-C-2000", 2, 100); err != nil {
		t.Fatalf("fill: %v", err)
	}
	if err := l.UpdateQuote("ETH-FUT", 1999, 2001); err != nil {
		t.Fatalf("future quote: %v", err)
	}
	// 用理论价喂报价，保证反解收敛
	fair := 2000.0
	tte := callInst("x", 0).TimeToExpiry(time.Now())
	price := analytics.Price(analytics.Call, fair, 2000, tte, 0, 0.6)
	if err := l.UpdateQuote("ETH-C-2000", price-0.01, price+0.01); err != nil {
		t.Fatalf("option quote: %v", err)
	}

	pos, _ := l.Position("ETH-C-2000")
	if pos.IV <= 0 || pos.Greeks.Delta <= 0 {
		t.Fatalf("greeks not computed: %+v", pos)
	}
	d, _, _ := agg.Totals()
	if math.Abs(d-pos.Greeks.Delta*2) > 1e-9 {
		t.Fatalf("portfolio delta %v want %v", d, pos.Greeks.Delta*2)
	}
	if err := agg.Reconcile(l.Contributions()); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
}

func TestQuoteUpdateUnavailableGreeksZeroed(t *testing.T) {
	l, agg := newTestLedger()
	l.Init(futureInst("ETH-FUT"))
	l.Init(callInst("ETH-C-2000", 2000))

	if err := l.UpdateQuote("ETH-FUT", 1999, 2001); err != nil {
		t.Fatalf("future quote: %v", err)
	}
	if err := l.ApplyFill("ETH-C-2000", 1, 100); err != nil {
		t.Fatalf("fill: %v", err)
	}
	// 先给一个有效报价
	tte := callInst("x", 0).TimeToExpiry(time.Now())
	price := analytics.Price(analytics.Call, 2000, 2000, tte, 0, 0.6)
	if err := l.UpdateQuote("ETH-C-2000", price, price); err != nil {
		t.Fatalf("option quote: %v", err)
	}
	d, _, _ := agg.Totals()
	if d == 0 {
		t.Fatalf("expected nonzero delta after valid quote")
	}
	// 再给一个越界价格：贡献应清零而非保留陈旧值
	if err := l.UpdateQuote("ETH-C-2000", 5000, 5002); !errors.Is(err, analytics.ErrNoSolution) {
		t.Fatalf("expected ErrNoSolution, got %v", err)
	}
	d, g, v := agg.Totals()
	if math.Abs(d) > 1e-12 || math.Abs(g) > 1e-12 || math.Abs(v) > 1e-12 {
		t.Fatalf("contribution not zeroed: %v %v %v", d, g, v)
	}
}

func TestFutureFillMovesPortfolioDelta(t *testing.T) {
	l, agg := newTestLedger()
	l.Init(futureInst("ETH-FUT"))

	if err := l.ApplyFill("ETH-FUT", 3, 2000); err != nil {
		t.Fatalf("fill: %v", err)
	}
	if err := l.ApplyFill("ETH-FUT", -5, 2010); err != nil {
		t.Fatalf("fill: %v", err)
	}
	d, _, _ := agg.Totals()
	if math.Abs(d-(-2)) > 1e-12 {
		t.Fatalf("portfolio delta %v want -2", d)
	}
	if err := agg.Reconcile(l.Contributions()); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
}

func TestApplyFillUnknownInstrument(t *testing.T) {
	l, _ := newTestLedger()
	if err := l.ApplyFill("NOPE", 1, 1); !errors.Is(err, ErrUnknownInstrument) {
		t.Fatalf("expected ErrUnknownInstrument, got %v", err)
	}
	if err := l.UpdateQuote("NOPE", 1, 2); !errors.Is(err, ErrUnknownInstrument) {
		t.Fatalf("expected ErrUnknownInstrument, got %v", err)
	}
}

// TestLedger_ConcurrentQuotesAndFills 并发报价与成交下总量必须可对账。
func TestLedger_ConcurrentQuotesAndFills(t *testing.T) {
	l, agg := newTestLedger()
	l.Init(futureInst("ETH-FUT"))
	names := []string{"ETH-C-1900", "ETH-C-2000", "ETH-C-2100"}
	for i, n := range names {
		l.Init(callInst(n, 1900+float64(i)*100))
	}
	if err := l.UpdateQuote("ETH-FUT", 1999, 2001); err != nil {
		t.Fatalf("future quote: %v", err)
	}

	tte := callInst("x", 0).TimeToExpiry(time.Now())
	var wg sync.WaitGroup
	for _, n := range names {
		name := n
		inst, _ := l.Instrument(name)
		price := analytics.Price(analytics.Call, 2000, inst.Strike, tte, 0, 0.6)
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = l.UpdateQuote(name, price-0.01, price+0.01)
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if i%2 == 0 {
					_ = l.ApplyFill(name, 1, price)
				} else {
					_ = l.ApplyFill(name, -1, price)
				}
			}
		}()
	}
	wg.Wait()

	if err := agg.Reconcile(l.Contributions()); err != nil {
		t.Fatalf("totals drifted under concurrency: %v", err)
	}
}
