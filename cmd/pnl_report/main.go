package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"options-mm-go/posttrade"
)

// 成交盈亏报表：回放 runner 日志里的 fill 事件，按合约汇总。
func main() {
	logPath := flag.String("log", "logs/runner.log", "runner 日志路径")
	instrument := flag.String("instrument", "", "仅统计指定合约（默认全量）")
	sinceStr := flag.String("since", "", "仅统计此时间之后的记录（RFC3339）")
	flag.Parse()

	var since time.Time
	var err error
	if *sinceStr != "" {
		since, err = time.Parse(time.RFC3339Nano, *sinceStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "解析 since 参数失败: %v\n", err)
			os.Exit(1)
		}
	}

	f, err := os.Open(*logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法读取日志: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	analyzer := posttrade.NewAnalyzer()
	replayed, err := posttrade.Replay(f, since, analyzer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取日志出错: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("统计文件: %s\n", *logPath)
	if !since.IsZero() {
		fmt.Printf("起始时间: %s\n", since.Format(time.RFC3339))
	}
	fmt.Printf("回放成交: %d 笔\n\n", replayed)

	rep := analyzer.Report()
	var realized float64
	for _, ir := range rep.Instruments {
		if *instrument != "" && ir.Instrument != *instrument {
			continue
		}
		pos := ir.Position
		fmt.Printf("%s\n", ir.Instrument)
		fmt.Printf("  成交笔数: %d\n", ir.Fills)
		fmt.Printf("  净持仓: %.4f (买 %.4f @ %.4f / 卖 %.4f @ %.4f)\n",
			pos.Quantity, pos.TotalBuys, pos.AvgBuyPrice(), pos.TotalSells, pos.AvgSellPrice())
		fmt.Printf("  已实现盈亏: %.6f\n", ir.RealizedPnL())
		realized += ir.RealizedPnL()
	}
	fmt.Printf("\n组合已实现盈亏: %.6f\n", realized)
}
