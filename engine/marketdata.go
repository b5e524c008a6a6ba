package engine

import (
	"context"
	"time"

	"options-mm-go/analytics"
	"options-mm-go/gateway"
)

// marketDataCycle 行情循环：按链序（期货最先）刷新全部合约报价，
// 期权随之重算希腊值并把风险增量推进聚合器。
func (e *Engine) marketDataCycle(ctx context.Context) {
	for _, name := range e.led.Names() {
		if ctx.Err() != nil {
			return
		}

		var q gateway.Quote
		var ok bool
		err := e.retry(ctx, "quote", func() error {
			var qerr error
			q, ok, qerr = e.gw.Quote(ctx, name)
			return qerr
		})
		if err != nil {
			// 网关持续失败：本轮跳过该合约，下轮再试
			continue
		}
		if !ok {
			continue
		}

		e.locks.Lock(name)
		err = e.led.UpdateQuote(name, q.Bid, q.Ask)
		e.locks.Unlock(name)
		if err != nil {
			if analytics.IsUnavailable(err) {
				e.mon.IVFailures.Inc()
				e.log.Debug("iv unavailable: " + err.Error())
			} else {
				e.stats.add(&e.stats.TotalErrors, 1)
				e.log.LogError(err, map[string]interface{}{"instrument": name, "loop": "marketdata"})
			}
		}
	}
	e.stats.add(&e.stats.DataCycles, 1)
	e.mon.LoopCycles.WithLabelValues("marketdata").Inc()
}

// retry 网关调用的统一入口：限次退避重试 + 指标上报。
func (e *Engine) retry(ctx context.Context, op string, fn func() error) error {
	return e.doRetry(ctx, e.cfg.Retry, op, fn)
}

// retryOrder 报价路径专用：委托动作持合约锁进行，重试次数收紧，
// 慢网关不至于长时间把行情和对账循环挡在该合约之外。
func (e *Engine) retryOrder(ctx context.Context, op string, fn func() error) error {
	return e.doRetry(ctx, e.orderRetry, op, fn)
}

func (e *Engine) doRetry(ctx context.Context, p gateway.RetryPolicy, op string, fn func() error) error {
	start := time.Now()
	err := p.Do(ctx, fn)
	e.mon.GatewayLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		e.mon.GatewayErrors.WithLabelValues(op).Inc()
	}
	return err
}
