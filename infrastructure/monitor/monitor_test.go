package monitor

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerExposesMetrics(t *testing.T) {
	m := New(DefaultConfig())
	m.OrdersPlaced.Inc()
	m.PortfolioDelta.Set(1.5)
	m.RiskRejects.WithLabelValues("delta").Inc()
	m.LoopCycles.WithLabelValues("quoting").Inc()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape failed: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	out := string(body)
	for _, want := range []string{
		"omm_engine_orders_placed_total 1",
		"omm_engine_portfolio_delta 1.5",
		`omm_engine_risk_rejects_total{reason="delta"} 1`,
		`omm_engine_loop_cycles_total{loop="quoting"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

// 私有 registry：多个实例各自独立，不会出现重复注册 panic。
func TestIndependentRegistries(t *testing.T) {
	a := New(DefaultConfig())
	b := New(DefaultConfig())
	a.OrdersFilled.Inc()
	b.OrdersFilled.Inc()
	b.OrdersFilled.Inc()
}
