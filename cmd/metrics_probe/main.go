package main

import (
	"flag"
	"fmt"
	"time"

	"options-mm-go/infrastructure/monitor"
)

// 指标探针：把引擎的全套指标挂到 /metrics 并周期性写入仿真值，
// 用于验证 Prometheus 抓取与 Grafana 面板。
func main() {
	addr := flag.String("metricsAddr", ":9100", "Prometheus 指标监听地址")
	delta := flag.Float64("delta", 12.5, "模拟组合 delta")
	vega := flag.Float64("vega", 340.0, "模拟组合 vega")
	pnl := flag.Float64("pnl", 0.0, "模拟已实现盈亏")
	flag.Parse()

	mon := monitor.New(monitor.DefaultConfig())
	mon.Serve(*addr)
	fmt.Printf("metrics_probe started at %s\n", *addr)

	mon.PortfolioDelta.Set(*delta)
	mon.PortfolioVega.Set(*vega)
	mon.RealizedPnL.Set(*pnl)
	mon.RiskRejects.WithLabelValues("delta").Inc()

	// 周期性微调，观察值变化
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	drift := 0.0
	for range ticker.C {
		drift += 0.01
		mon.PortfolioDelta.Set(*delta + drift)
		mon.RealizedPnL.Set(*pnl + drift*10)
		mon.LoopCycles.WithLabelValues("quoting").Inc()
		mon.OrdersPlaced.Inc()
	}
}
