package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"options-mm-go/config"
	"options-mm-go/gateway"
	"options-mm-go/instrument"
)

// 链发现探针：打印指定标的与到期日可交易的期货/期权，并抽查一条报价。
func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	underlying := flag.String("underlying", "", "标的（留空取配置里的 strategy.underlying）")
	expiry := flag.String("expiry", "", "到期日 RFC3339（留空取配置里的 strategy.expiry）")
	withQuotes := flag.Bool("quotes", false, "同时拉取每个合约的报价")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if *underlying == "" {
		*underlying = cfg.Strategy.Underlying
	}
	exp := cfg.Strategy.Expiry
	if *expiry != "" {
		exp, err = time.Parse(time.RFC3339, *expiry)
		if err != nil {
			log.Fatalf("解析到期日失败: %v", err)
		}
	}

	client := &gateway.DeribitREST{
		BaseURL:    cfg.Gateway.BaseURL,
		APIKey:     cfg.Gateway.APIKey,
		Secret:     cfg.Gateway.APISecret,
		Rate:       cfg.Strategy.RiskFreeRate,
		HTTPClient: gateway.NewDefaultHTTPClient(),
		Limiter:    gateway.NewTokenBucketLimiter(cfg.Gateway.RestRate, cfg.Gateway.RestBurst),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	chain, err := client.ChainInstruments(ctx, *underlying, exp)
	if err != nil {
		log.Fatalf("链发现失败: %v", err)
	}
	if len(chain) == 0 {
		fmt.Printf("未找到 %s @ %s 的可交易合约\n", *underlying, exp.Format("2006-01-02"))
		return
	}

	fmt.Printf("%s @ %s 共 %d 个合约\n", *underlying, exp.Format("2006-01-02"), len(chain))
	for _, inst := range chain {
		switch inst.Kind {
		case instrument.KindFuture:
			fmt.Printf("  [future] %s\n", inst.Name)
		default:
			fmt.Printf("  [option] %s 行权价=%.2f 类型=%s 到期=%s\n",
				inst.Name, inst.Strike, inst.OptionType, inst.Expiry.Format("2006-01-02"))
		}
		if !*withQuotes {
			continue
		}
		q, ok, err := client.Quote(ctx, inst.Name)
		switch {
		case err != nil:
			fmt.Printf("           报价获取失败: %v\n", err)
		case !ok:
			fmt.Printf("           暂无报价\n")
		default:
			fmt.Printf("           bid=%.4f ask=%.4f mid=%.4f\n", q.Bid, q.Ask, q.Mid())
		}
	}
}
