package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"go.uber.org/zap"

	"options-mm-go/config"
	"options-mm-go/engine"
	"options-mm-go/gateway"
	"options-mm-go/infrastructure/alert"
	"options-mm-go/infrastructure/logger"
	"options-mm-go/infrastructure/monitor"
	"options-mm-go/ledger"
	"options-mm-go/order"
	"options-mm-go/risk"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	metricsAddr := flag.String("metricsAddr", ":9100", "Prometheus metrics 监听地址，留空则关闭")
	watchConfig := flag.Bool("watchConfig", true, "监听配置文件变更并热更新风控阈值")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	lg, err := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Outputs:    cfg.Logging.Outputs,
		OutputFile: cfg.Logging.OutputFile,
	})
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer lg.Close()

	mon := monitor.New(monitor.DefaultConfig())
	mon.Serve(*metricsAddr)

	rest := &gateway.DeribitREST{
		BaseURL:    cfg.Gateway.BaseURL,
		APIKey:     cfg.Gateway.APIKey,
		Secret:     cfg.Gateway.APISecret,
		Rate:       cfg.Strategy.RiskFreeRate,
		HTTPClient: gateway.NewDefaultHTTPClient(),
		Limiter:    gateway.NewTokenBucketLimiter(cfg.Gateway.RestRate, cfg.Gateway.RestBurst),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 链发现：一张标的期货 + 指定到期日的全部期权
	chain, err := rest.ChainInstruments(ctx, cfg.Strategy.Underlying, cfg.Strategy.Expiry)
	if err != nil {
		log.Fatalf("链发现失败: %v", err)
	}
	if len(chain) == 0 {
		log.Fatalf("链为空: underlying=%s expiry=%s", cfg.Strategy.Underlying, cfg.Strategy.Expiry)
	}

	agg := risk.NewAggregator(risk.Limits{
		Delta:        cfg.Limits.Delta,
		Gamma:        cfg.Limits.Gamma,
		Vega:         cfg.Limits.Vega,
		OpenPosition: cfg.Limits.OpenPosition,
	})
	led := ledger.New(agg)
	for _, inst := range chain {
		led.Init(inst)
	}
	lg.Info("chain discovered",
		zap.String("underlying", led.UnderlyingName()),
		zap.Int("instruments", len(chain)))

	// WS 行情可选：配置了 wsURL 就走缓存优先的报价源
	var exch gateway.Exchange = rest
	if cfg.Gateway.WSURL != "" {
		cache := gateway.NewQuoteCache()
		ws := gateway.NewDeribitWS(cache)
		ws.Endpoint = cfg.Gateway.WSURL
		for _, inst := range chain {
			if err := ws.SubscribeTicker(inst.Name); err != nil {
				log.Fatalf("订阅 ticker 失败: %v", err)
			}
		}
		go func() {
			for ctx.Err() == nil {
				if err := ws.Run(ctx); err != nil {
					lg.LogError(err, map[string]interface{}{"component": "ws"})
				}
				select {
				case <-ctx.Done():
					return
				case <-time.After(5 * time.Second):
				}
			}
		}()
		exch = &gateway.CachedQuoter{Exchange: rest, Cache: cache}
	}

	eng, err := engine.New(engine.Config{
		OrderSize:          cfg.Strategy.OrderSize,
		MarketDataInterval: time.Duration(cfg.Loops.MarketDataMs) * time.Millisecond,
		FillsInterval:      time.Duration(cfg.Loops.FillsMs) * time.Millisecond,
		QuotingInterval:    time.Duration(cfg.Loops.QuotingMs) * time.Millisecond,
	}, engine.Components{
		Gateway: exch,
		Ledger:  led,
		Risk:    agg,
		Book:    order.NewBook(),
		Logger:  lg,
		Monitor: mon,
		Alerts:  alert.NewManager([]alert.Channel{alert.NewLogChannel("log", lg)}, 5*time.Minute),
	})
	if err != nil {
		log.Fatalf("初始化引擎失败: %v", err)
	}

	if *watchConfig {
		w := config.Watcher{Path: *cfgPath}
		go func() {
			err := w.Start(ctx, func(next config.AppConfig) {
				agg.SetLimits(risk.Limits{
					Delta:        next.Limits.Delta,
					Gamma:        next.Limits.Gamma,
					Vega:         next.Limits.Vega,
					OpenPosition: next.Limits.OpenPosition,
				})
				lg.LogRisk("limits_reloaded", map[string]interface{}{
					"delta": next.Limits.Delta,
					"gamma": next.Limits.Gamma,
					"vega":  next.Limits.Vega,
				})
			})
			if err != nil {
				lg.LogError(err, map[string]interface{}{"component": "config_watcher"})
			}
		}()
	}

	if err := eng.Start(ctx); err != nil {
		log.Fatalf("启动引擎失败: %v", err)
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	go watchdogLoop(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	eng.Stop()
	realized, unrealized, total := eng.PnL()
	lg.Info("runner exit",
		zap.Float64("realized_pnl", realized),
		zap.Float64("unrealized_pnl", unrealized),
		zap.Float64("total_pnl", total))
}

// watchdogLoop 在 systemd 启用 WatchdogSec 时按半周期喂狗。
func watchdogLoop(ctx context.Context) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		}
	}
}
