package risk

import (
	"errors"
	"math/rand"
	"testing"

	"options-mm-go/analytics"
)

func TestApplyMatchesScratchSum(t *testing.T) {
	agg := NewAggregator(Limits{})
	rng := rand.New(rand.NewSource(42))

	// 随机一串报价刷新与成交，运行总量必须始终能对回从头累加。
	type state struct {
		g analytics.Greeks
		q float64
	}
	instruments := make([]state, 8)
	for step := 0; step < 500; step++ {
		i := rng.Intn(len(instruments))
		old := instruments[i]
		next := old
		if rng.Intn(2) == 0 {
			// 报价刷新：只改希腊值
			next.g = analytics.Greeks{
				Delta: rng.Float64()*2 - 1,
				Gamma: rng.Float64() * 0.01,
				Vega:  rng.Float64() * 100,
			}
		} else {
			next.q = old.q + float64(rng.Intn(5)-2)
		}
		agg.Apply(old.g, old.q, next.g, next.q)
		instruments[i] = next
	}

	contribs := make([]Contribution, 0, len(instruments))
	for _, s := range instruments {
		contribs = append(contribs, Contribution{Greeks: s.g, Qty: s.q})
	}
	if err := agg.Reconcile(contribs); err != nil {
		t.Fatalf("drift detected: %v", err)
	}
}

func TestReconcileDetectsDrift(t *testing.T) {
	agg := NewAggregator(Limits{})
	agg.Apply(analytics.Greeks{}, 0, analytics.Greeks{Delta: 0.5}, 2)
	if err := agg.Reconcile(nil); !errors.Is(err, ErrDrift) {
		t.Fatalf("expected ErrDrift, got %v", err)
	}
}

func TestPreOrderSameSignExemption(t *testing.T) {
	agg := NewAggregator(Limits{Delta: 100000})
	// 组合 delta 拉到 90000
	agg.Apply(analytics.Greeks{}, 0, analytics.Greeks{Delta: 0.9}, 100000)

	g := analytics.Greeks{Delta: 1}
	// 反方向的委托在接近阈值时必须放行
	if err := agg.PreOrder("ETH-CALL", g, 0, -50000); err != nil {
		t.Fatalf("reducing candidate must pass: %v", err)
	}
	// 同方向且越过阈值的委托必须拦截
	if err := agg.PreOrder("ETH-CALL", g, 0, 10001); !errors.Is(err, ErrDeltaLimit) {
		t.Fatalf("expected ErrDeltaLimit, got %v", err)
	}
	// 同方向但未越阈值则放行
	if err := agg.PreOrder("ETH-CALL", g, 0, 9999); err != nil {
		t.Fatalf("within limit must pass: %v", err)
	}
}

func TestPreOrderGammaVega(t *testing.T) {
	agg := NewAggregator(Limits{Gamma: 10, Vega: 1000})
	agg.Apply(analytics.Greeks{}, 0, analytics.Greeks{Gamma: 0.9, Vega: 90}, 10)

	g := analytics.Greeks{Gamma: 0.5, Vega: 10}
	if err := agg.PreOrder("X", g, 0, 10); !errors.Is(err, ErrGammaLimit) {
		t.Fatalf("expected ErrGammaLimit, got %v", err)
	}
	g = analytics.Greeks{Vega: 50}
	if err := agg.PreOrder("X", g, 0, 10); !errors.Is(err, ErrVegaLimit) {
		t.Fatalf("expected ErrVegaLimit, got %v", err)
	}
}

func TestPreOrderOpenPositionLimit(t *testing.T) {
	agg := NewAggregator(Limits{OpenPosition: 4})
	g := analytics.Greeks{Delta: 0.5}

	if err := agg.PreOrder("X", g, 4, 1); !errors.Is(err, ErrPositionLimit) {
		t.Fatalf("expected ErrPositionLimit, got %v", err)
	}
	if err := agg.PreOrder("X", g, 4, -1); err != nil {
		t.Fatalf("reducing position must pass: %v", err)
	}
	if err := agg.PreOrder("X", g, -4, -1); !errors.Is(err, ErrPositionLimit) {
		t.Fatalf("short side limited too, got %v", err)
	}
}

func TestSetLimitsHotReload(t *testing.T) {
	agg := NewAggregator(Limits{Delta: 10})
	agg.Apply(analytics.Greeks{}, 0, analytics.Greeks{Delta: 1}, 9)
	g := analytics.Greeks{Delta: 1}
	if err := agg.PreOrder("X", g, 0, 5); err == nil {
		t.Fatalf("expected block before reload")
	}
	agg.SetLimits(Limits{Delta: 100})
	if err := agg.PreOrder("X", g, 0, 5); err != nil {
		t.Fatalf("expected pass after reload: %v", err)
	}
}
