// Package engine 把账本、风控、订单簿和网关接成三条控制循环：
// 行情刷新、成交对账、风控驱动的报价。所有依赖显式注入。
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"options-mm-go/gateway"
	"options-mm-go/infrastructure/alert"
	"options-mm-go/infrastructure/logger"
	"options-mm-go/infrastructure/monitor"
	"options-mm-go/ledger"
	"options-mm-go/order"
	"options-mm-go/risk"
)

// State 引擎状态
type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

// String 返回状态名称
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Config 引擎配置
type Config struct {
	OrderSize          float64
	MarketDataInterval time.Duration
	FillsInterval      time.Duration
	QuotingInterval    time.Duration
	StatsInterval      time.Duration
	Retry              gateway.RetryPolicy
}

// Components 引擎依赖组件；全部显式传入，不走全局状态。
type Components struct {
	Gateway gateway.Exchange
	Ledger  *ledger.Ledger
	Risk    *risk.Aggregator
	Book    *order.Book
	Logger  *logger.Logger
	Monitor *monitor.Monitor
	Alerts  *alert.Manager // 可选：不变式/漂移告警
	Hedger  Hedger         // 可选：期货对冲扩展点
}

// Engine 核心引擎。
type Engine struct {
	cfg Config

	gw     gateway.Exchange
	led    *ledger.Ledger
	agg    *risk.Aggregator
	book   *order.Book
	log    *logger.Logger
	mon    *monitor.Monitor
	alerts *alert.Manager
	hedge  Hedger

	locks *keyedMutex

	orderRetry gateway.RetryPolicy

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	wg     sync.WaitGroup

	stats Statistics
}

// Statistics 引擎运行统计。
type Statistics struct {
	mu          sync.Mutex
	StartTime   time.Time
	QuoteCycles int64
	FillCycles  int64
	DataCycles  int64
	TotalOrders int64
	TotalFills  int64
	TotalErrors int64
}

// Snapshot 返回统计拷贝。
func (s *Statistics) Snapshot() Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Statistics{
		StartTime:   s.StartTime,
		QuoteCycles: s.QuoteCycles,
		FillCycles:  s.FillCycles,
		DataCycles:  s.DataCycles,
		TotalOrders: s.TotalOrders,
		TotalFills:  s.TotalFills,
		TotalErrors: s.TotalErrors,
	}
}

func (s *Statistics) add(field *int64, n int64) {
	s.mu.Lock()
	*field += n
	s.mu.Unlock()
}

// New 创建引擎并校验依赖。
func New(cfg Config, c Components) (*Engine, error) {
	if c.Gateway == nil || c.Ledger == nil || c.Risk == nil || c.Book == nil {
		return nil, errors.New("gateway/ledger/risk/book are required")
	}
	if cfg.OrderSize <= 0 {
		return nil, fmt.Errorf("order size must be > 0, got %v", cfg.OrderSize)
	}
	if cfg.MarketDataInterval <= 0 {
		cfg.MarketDataInterval = 500 * time.Millisecond
	}
	if cfg.FillsInterval <= 0 {
		cfg.FillsInterval = 500 * time.Millisecond
	}
	if cfg.QuotingInterval <= 0 {
		cfg.QuotingInterval = time.Second
	}
	if cfg.StatsInterval <= 0 {
		cfg.StatsInterval = 5 * time.Second
	}
	if cfg.Retry.Attempts == 0 {
		cfg.Retry = gateway.DefaultRetry()
	}
	// 委托动作在合约锁内进行，上限收紧到一次补试
	orderRetry := cfg.Retry
	if orderRetry.Attempts > 2 {
		orderRetry.Attempts = 2
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}
	if c.Monitor == nil {
		c.Monitor = monitor.New(monitor.DefaultConfig())
	}

	return &Engine{
		cfg:    cfg,
		gw:     c.Gateway,
		led:    c.Ledger,
		agg:    c.Risk,
		book:   c.Book,
		log:    c.Logger,
		mon:    c.Monitor,
		alerts: c.Alerts,
		hedge:  c.Hedger,
		locks:  newKeyedMutex(c.Ledger.Names()),

		orderRetry: orderRetry,
	}, nil
}

// Start 启动三条控制循环（以及可选的对冲循环）。只能从 Idle 启动一次。
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateIdle {
		return fmt.Errorf("engine is %s, cannot start", e.state)
	}
	ctx, e.cancel = context.WithCancel(ctx)
	e.state = StateRunning
	e.stats.StartTime = time.Now()

	run := func(interval time.Duration, cycle func(context.Context)) {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					cycle(ctx)
				}
			}
		}()
	}

	run(e.cfg.MarketDataInterval, e.marketDataCycle)
	run(e.cfg.FillsInterval, e.fillCycle)
	run(e.cfg.QuotingInterval, e.quoteCycle)
	run(e.cfg.StatsInterval, e.statsCycle)
	if e.hedge != nil {
		run(e.cfg.QuotingInterval, func(ctx context.Context) {
			if err := e.hedge.HedgeCycle(ctx); err != nil {
				e.log.LogError(err, map[string]interface{}{"loop": "hedge"})
			}
		})
	}

	e.log.Info("engine started")
	return nil
}

// Stop 取消所有循环并等待退出。
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.state != StateRunning {
		e.mu.Unlock()
		return
	}
	e.state = StateStopped
	cancel := e.cancel
	e.mu.Unlock()

	cancel()
	e.wg.Wait()
	e.log.Info("engine stopped")
}

// State 当前引擎状态。
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Stats 运行统计快照。
func (e *Engine) Stats() Statistics {
	return e.stats.Snapshot()
}

// PnL 返回 (已实现, 未实现, 合计)。
func (e *Engine) PnL() (realized, unrealized, total float64) {
	realized = e.led.RealizedPnL()
	unrealized = e.led.UnrealizedPnL()
	return realized, unrealized, realized + unrealized
}

// statsCycle 刷新组合指标并做总量对账；漂移计数并告警，不中断交易。
func (e *Engine) statsCycle(ctx context.Context) {
	d, g, v := e.agg.Totals()
	e.mon.PortfolioDelta.Set(d)
	e.mon.PortfolioGamma.Set(g)
	e.mon.PortfolioVega.Set(v)

	realized, unrealized, _ := e.PnL()
	e.mon.RealizedPnL.Set(realized)
	e.mon.UnrealizedPnL.Set(unrealized)

	if err := e.agg.Reconcile(e.led.Contributions()); err != nil {
		e.mon.ReconcileDrifts.Inc()
		e.log.LogRisk("totals_drift", map[string]interface{}{"error": err.Error()})
		if e.alerts != nil {
			_ = e.alerts.Critical("portfolio totals drift", map[string]interface{}{"error": err.Error()})
		}
	}
}
