package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"options-mm-go/config"
	"options-mm-go/gateway"
	"options-mm-go/order"
)

// 应急清场：撤掉全部在途委托，并按对手价平掉所有持仓。
// 只在引擎失控或需要立即离场时手工执行。
func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	flatten := flag.Bool("flatten", false, "撤单后按对手价平掉全部持仓")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	client := &gateway.DeribitREST{
		BaseURL:    cfg.Gateway.BaseURL,
		APIKey:     cfg.Gateway.APIKey,
		Secret:     cfg.Gateway.APISecret,
		HTTPClient: gateway.NewDefaultHTTPClient(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	fmt.Println("撤销全部在途委托...")
	if err := client.CancelAll(ctx); err != nil {
		log.Fatalf("撤单失败: %v", err)
	}
	fmt.Println("全部委托已撤销")

	positions, err := client.Positions(ctx)
	if err != nil {
		log.Fatalf("查询持仓失败: %v", err)
	}
	if len(positions) == 0 {
		fmt.Println("没有持仓，无需平仓")
		return
	}
	for _, p := range positions {
		fmt.Printf("持仓 %s size=%.4f avg=%.4f\n", p.Instrument, p.Size, p.AvgPrice)
	}
	if !*flatten {
		fmt.Println("未指定 -flatten，保留持仓退出")
		return
	}

	exitCode := 0
	for _, p := range positions {
		q, ok, err := client.Quote(ctx, p.Instrument)
		if err != nil || !ok {
			fmt.Fprintf(os.Stderr, "%s 无法获取对手价，跳过: %v\n", p.Instrument, err)
			exitCode = 1
			continue
		}
		// 多仓按买一卖出，空仓按卖一买回
		side, price, qty := order.SideSell, q.Bid, p.Size
		if p.Size < 0 {
			side, price, qty = order.SideBuy, q.Ask, -p.Size
		}
		id, err := client.PlaceOrder(ctx, p.Instrument, side, qty, price)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s 平仓下单失败: %v\n", p.Instrument, err)
			exitCode = 1
			continue
		}
		fmt.Printf("%s 平仓委托已提交 side=%s qty=%.4f price=%.4f id=%s\n", p.Instrument, side, qty, price, id)
	}
	os.Exit(exitCode)
}
