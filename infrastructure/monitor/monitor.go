// Package monitor 提供引擎的 Prometheus 指标面；这是规格要求的
// 结构化状态出口，周边工具通过 /metrics 观测失败与风险状况。
package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Monitor Prometheus监控指标收集器
type Monitor struct {
	registry *prometheus.Registry

	// 订单指标
	OrdersPlaced   prometheus.Counter
	OrdersModified prometheus.Counter
	OrdersCanceled prometheus.Counter
	OrdersFilled   prometheus.Counter
	OrdersRejected prometheus.Counter

	// 风控指标
	RiskRejects     *prometheus.CounterVec
	PortfolioDelta  prometheus.Gauge
	PortfolioGamma  prometheus.Gauge
	PortfolioVega   prometheus.Gauge
	ReconcileDrifts prometheus.Counter

	// 盈亏指标
	RealizedPnL   prometheus.Gauge
	UnrealizedPnL prometheus.Gauge

	// 分析指标
	IVFailures prometheus.Counter

	// 循环与网关指标
	LoopCycles      *prometheus.CounterVec
	InvariantErrors prometheus.Counter
	GatewayErrors   *prometheus.CounterVec
	GatewayLatency  *prometheus.HistogramVec
}

// Config 监控配置
type Config struct {
	Namespace string
	Subsystem string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{Namespace: "omm", Subsystem: "engine"}
}

// New 创建新的Monitor实例
func New(cfg Config) *Monitor {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem, Name: name, Help: help,
		})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem, Name: name, Help: help,
		})
	}

	return &Monitor{
		registry: reg,

		OrdersPlaced:   counter("orders_placed_total", "下单总数"),
		OrdersModified: counter("orders_modified_total", "改价总数"),
		OrdersCanceled: counter("orders_canceled_total", "撤单总数"),
		OrdersFilled:   counter("orders_filled_total", "成交总数"),
		OrdersRejected: counter("orders_rejected_total", "交易所拒单总数"),

		RiskRejects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "risk_rejects_total", Help: "风控闸门拦截次数",
		}, []string{"reason"}),
		PortfolioDelta:  gauge("portfolio_delta", "组合 delta 总量"),
		PortfolioGamma:  gauge("portfolio_gamma", "组合 gamma 总量"),
		PortfolioVega:   gauge("portfolio_vega", "组合 vega 总量"),
		ReconcileDrifts: counter("reconcile_drifts_total", "总量对账漂移次数"),

		RealizedPnL:   gauge("realized_pnl", "已实现盈亏"),
		UnrealizedPnL: gauge("unrealized_pnl", "未实现盈亏"),

		IVFailures: counter("iv_failures_total", "隐含波动率反解失败次数"),

		LoopCycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "loop_cycles_total", Help: "各控制循环完成的周期数",
		}, []string{"loop"}),
		InvariantErrors: counter("invariant_errors_total", "不变式违例次数"),
		GatewayErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "gateway_errors_total", Help: "网关调用失败次数",
		}, []string{"op"}),
		GatewayLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "gateway_latency_seconds", Help: "网关调用延迟（秒）",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}, []string{"op"}),
	}
}

// Handler 返回挂在私有 registry 上的 /metrics handler。
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve 在 addr 上启动指标服务；addr 为空则不启动。
func (m *Monitor) Serve(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	go func() {
		_ = http.ListenAndServe(addr, mux)
	}()
}
