package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"options-mm-go/engine"
	"options-mm-go/infrastructure/logger"
	"options-mm-go/infrastructure/monitor"
	"options-mm-go/ledger"
	"options-mm-go/order"
	"options-mm-go/risk"
	"options-mm-go/sim"
)

// 仿真跑批：完整引擎对着仿真交易所跑一段时间，结束后打出持仓与盈亏。
func main() {
	duration := flag.Duration("duration", 30*time.Second, "仿真时长")
	spot := flag.Float64("spot", 2000, "初始标的价")
	vol := flag.Float64("vol", 0.8, "仿真年化波动率")
	orderSize := flag.Float64("orderSize", 1, "每张委托数量")
	deltaLimit := flag.Float64("deltaLimit", 50, "组合 delta 限额")
	seed := flag.Int64("seed", 0, "随机种子（0 取当前时间）")
	flag.Parse()

	exch := sim.New(sim.Config{Spot: *spot, Vol: *vol, Seed: *seed})

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	chain, err := exch.ChainInstruments(ctx, "", time.Time{})
	if err != nil {
		log.Fatalf("链发现失败: %v", err)
	}
	agg := risk.NewAggregator(risk.Limits{Delta: *deltaLimit, Gamma: 100, Vega: 1e5, OpenPosition: 50})
	led := ledger.New(agg)
	for _, inst := range chain {
		led.Init(inst)
	}

	lg, err := logger.New(logger.DefaultConfig())
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer lg.Close()

	eng, err := engine.New(engine.Config{
		OrderSize:          *orderSize,
		MarketDataInterval: 100 * time.Millisecond,
		FillsInterval:      100 * time.Millisecond,
		QuotingInterval:    200 * time.Millisecond,
	}, engine.Components{
		Gateway: exch,
		Ledger:  led,
		Risk:    agg,
		Book:    order.NewBook(),
		Logger:  lg,
		Monitor: monitor.New(monitor.DefaultConfig()),
	})
	if err != nil {
		log.Fatalf("初始化引擎失败: %v", err)
	}
	if err := eng.Start(ctx); err != nil {
		log.Fatalf("启动引擎失败: %v", err)
	}

	// 市场演化循环：每步推进一小时的仿真时间
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for done := false; !done; {
		select {
		case <-ctx.Done():
			done = true
		case <-ticker.C:
			exch.Step(time.Hour)
		}
	}
	eng.Stop()

	stats := eng.Stats()
	realized, unrealized, total := eng.PnL()
	d, g, v := agg.Totals()

	fmt.Printf("\n仿真结束 spot=%.2f\n", exch.Spot())
	fmt.Printf("循环: data=%d quote=%d fill=%d  委托=%d 成交=%d\n",
		stats.DataCycles, stats.QuoteCycles, stats.FillCycles, stats.TotalOrders, stats.TotalFills)
	fmt.Printf("组合风险: delta=%.4f gamma=%.6f vega=%.4f\n", d, g, v)
	for _, name := range led.Names() {
		pos, ok := led.Position(name)
		if !ok || (pos.TotalBuys == 0 && pos.TotalSells == 0) {
			continue
		}
		fmt.Printf("  %s qty=%.2f 买 %.2f@%.4f 卖 %.2f@%.4f 已实现=%.4f\n",
			name, pos.Quantity, pos.TotalBuys, pos.AvgBuyPrice(), pos.TotalSells, pos.AvgSellPrice(), pos.RealizedPnL())
	}
	fmt.Printf("盈亏: 已实现=%.4f 未实现=%.4f 合计=%.4f\n", realized, unrealized, total)
}
