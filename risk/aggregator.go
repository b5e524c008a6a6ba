// Package risk 维护组合层希腊值总量并提供下单前的风控闸门。
package risk

import (
	"fmt"
	"math"
	"sync"

	"options-mm-go/analytics"
)

// Limits 风控阈值配置；各阈值应用于组合总量的绝对值，0 表示不启用该项。
type Limits struct {
	Delta        float64
	Gamma        float64
	Vega         float64
	OpenPosition float64 // 单合约净持仓上限
}

// Aggregator 以增量方式维护组合 delta/gamma/vega 总量。
// 锁持有时间很短，任何网关 I/O 都不会在锁内发生。
type Aggregator struct {
	mu     sync.Mutex
	limits Limits

	delta float64
	gamma float64
	vega  float64
}

func NewAggregator(limits Limits) *Aggregator {
	return &Aggregator{limits: limits}
}

// SetLimits 热更新阈值（配置监听器调用）。
func (a *Aggregator) SetLimits(l Limits) {
	a.mu.Lock()
	a.limits = l
	a.mu.Unlock()
}

// Limits 返回当前生效的阈值。
func (a *Aggregator) Limits() Limits {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.limits
}

// Apply 去掉旧贡献、加上新贡献。任何改变持仓数量或希腊值的变更都必须调用，
// 包括只改希腊值不改数量的报价刷新。
func (a *Aggregator) Apply(oldG analytics.Greeks, oldQty float64, newG analytics.Greeks, newQty float64) {
	a.mu.Lock()
	a.delta += newG.Delta*newQty - oldG.Delta*oldQty
	a.gamma += newG.Gamma*newQty - oldG.Gamma*oldQty
	a.vega += newG.Vega*newQty - oldG.Vega*oldQty
	a.mu.Unlock()
}

// Totals 当前组合总量快照。
func (a *Aggregator) Totals() (delta, gamma, vega float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.delta, a.gamma, a.vega
}

// PreOrder 风控闸门：用即时希腊值评估 candidateQty（正买负卖）的预期影响。
// 同号规则：让总量朝零收敛的委托永不被对应阈值拦截。
func (a *Aggregator) PreOrder(name string, g analytics.Greeks, curQty, candidateQty float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	checks := []struct {
		total, contrib, limit float64
		err                   error
	}{
		{a.delta, g.Delta * candidateQty, a.limits.Delta, ErrDeltaLimit},
		{a.gamma, g.Gamma * candidateQty, a.limits.Gamma, ErrGammaLimit},
		{a.vega, g.Vega * candidateQty, a.limits.Vega, ErrVegaLimit},
	}
	for _, c := range checks {
		if c.limit <= 0 {
			continue
		}
		if c.total*c.contrib > 0 && math.Abs(c.total+c.contrib) > c.limit {
			return fmt.Errorf("%w: %s %.4f -> %.4f > %.4f", c.err, name, c.total, c.total+c.contrib, c.limit)
		}
	}
	if a.limits.OpenPosition > 0 && math.Abs(curQty+candidateQty) > a.limits.OpenPosition {
		return fmt.Errorf("%w: %s %.2f + %.2f > %.2f", ErrPositionLimit, name, curQty, candidateQty, a.limits.OpenPosition)
	}
	return nil
}

// Contribution 单合约的即时风险贡献，用于对账。
type Contribution struct {
	Greeks analytics.Greeks
	Qty    float64
}

// Reconcile 把运行总量与从头累加的结果比对，漂移超过容差返回 ErrDrift。
// 仅用于校验，不在热路径上重建总量。
func (a *Aggregator) Reconcile(contribs []Contribution) error {
	var d, g, v float64
	for _, c := range contribs {
		d += c.Greeks.Delta * c.Qty
		g += c.Greeks.Gamma * c.Qty
		v += c.Greeks.Vega * c.Qty
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	const tol = 1e-9
	if math.Abs(a.delta-d) > tol || math.Abs(a.gamma-g) > tol || math.Abs(a.vega-v) > tol {
		return fmt.Errorf("%w: running (%.12f %.12f %.12f) scratch (%.12f %.12f %.12f)",
			ErrDrift, a.delta, a.gamma, a.vega, d, g, v)
	}
	return nil
}
