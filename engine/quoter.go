package engine

import (
	"context"
	"errors"

	"options-mm-go/analytics"
	"options-mm-go/gateway"
	"options-mm-go/order"
	"options-mm-go/risk"
)

// quoteCycle 报价循环：对每个期权的买卖两侧独立评估风控闸门，
// 驱动 空 -> 在途 -> 成交/撤销 的槽位转换。标的期货不在此报价，
// 它走独立的对冲机制（见 Hedger）。
func (e *Engine) quoteCycle(ctx context.Context) {
	for _, name := range e.led.Names() {
		if ctx.Err() != nil {
			return
		}
		inst, ok := e.led.Instrument(name)
		if !ok || !inst.IsOption() {
			continue
		}

		// 闸门评估与其授权的动作在同一次合约锁持有内完成，
		// 成交入账不会插在评估和动作之间。
		e.locks.Lock(name)
		q, hasQuote := e.led.Quote(name)
		if !hasQuote {
			e.locks.Unlock(name)
			continue
		}
		g, qty, _ := e.led.InstrumentRisk(name)
		e.quoteSide(ctx, name, order.SideBuy, q.Bid, g, qty)
		e.quoteSide(ctx, name, order.SideSell, q.Ask, g, qty)
		e.locks.Unlock(name)
	}
	e.stats.add(&e.stats.QuoteCycles, 1)
	e.mon.LoopCycles.WithLabelValues("quoting").Inc()
}

// quoteSide 单侧状态机；调用方已持有该合约的锁。
func (e *Engine) quoteSide(ctx context.Context, name string, side order.Side, price float64, g analytics.Greeks, qty float64) {
	if price <= 0 {
		return
	}
	candidate := side.Sign() * e.cfg.OrderSize
	gateErr := e.agg.PreOrder(name, g, qty, candidate)
	w, working := e.book.Working(name, side)

	if gateErr != nil {
		e.mon.RiskRejects.WithLabelValues(riskReason(gateErr)).Inc()
		if !working {
			return
		}
		// 闸门开始拦截：撤掉在途委托
		if err := e.retryOrder(ctx, "cancel", func() error {
			return e.gw.CancelOrder(ctx, w.ID)
		}); err != nil {
			return // 撤单失败，槽位保留，下轮重试
		}
		// 撤单回报成功不等于没成交：撤与成交会竞态。清槽之前
		// 查一次终态，把已发生的成交入账，否则账本从此与交易所脱节。
		var st gateway.OrderStatus
		stErr := e.retryOrder(ctx, "order_status", func() error {
			var serr error
			st, serr = e.gw.OrderStatus(ctx, w.ID)
			return serr
		})
		switch {
		case stErr == nil && st.State != gateway.OrderWorking:
			e.settleLocked(name, side, w, st)
		case errors.Is(stErr, gateway.ErrUnknownOrder):
			// 交易所已遗忘该委托号，视同撤净
			e.book.Clear(name, side)
		default:
			return // 终态未明，槽位留给成交对账循环收尾
		}
		if st.State != gateway.OrderFilled {
			e.mon.OrdersCanceled.Inc()
			e.log.LogOrder("cancel", name, w.ID, map[string]interface{}{
				"side": string(side), "reason": gateErr.Error(),
			})
		}
		return
	}

	if working {
		// 市价未动就不动；动了只改价，委托号和数量保持不变
		if w.Price == price {
			return
		}
		if err := e.retryOrder(ctx, "modify", func() error {
			return e.gw.ModifyOrder(ctx, w.ID, w.Quantity, price)
		}); err != nil {
			return
		}
		if err := e.book.Reprice(name, side, price); err != nil {
			e.mon.InvariantErrors.Inc()
			e.log.LogError(err, map[string]interface{}{"instrument": name})
			return
		}
		e.mon.OrdersModified.Inc()
		e.log.LogOrder("modify", name, w.ID, map[string]interface{}{
			"side": string(side), "price": price,
		})
		return
	}

	// 空槽 -> 下新单。先占位，保证同槽最多一张在途委托。
	if err := e.book.Reserve(name, side); err != nil {
		e.mon.InvariantErrors.Inc()
		e.log.LogError(err, map[string]interface{}{"instrument": name, "side": string(side)})
		return
	}
	var id string
	err := e.retryOrder(ctx, "place", func() error {
		var perr error
		id, perr = e.gw.PlaceOrder(ctx, name, side, e.cfg.OrderSize, price)
		return perr
	})
	if err != nil {
		e.book.Release(name, side)
		if errors.Is(err, gateway.ErrRejected) {
			// 交易所拒单按无事发生处理，下轮重新评估
			e.mon.OrdersRejected.Inc()
			e.log.LogOrder("rejected", name, "", map[string]interface{}{"side": string(side)})
		}
		return
	}
	if err := e.book.Commit(name, side, order.Order{ID: id, Price: price, Quantity: e.cfg.OrderSize}); err != nil {
		e.mon.InvariantErrors.Inc()
		e.log.LogError(err, map[string]interface{}{"instrument": name, "order_id": id})
		return
	}
	e.stats.add(&e.stats.TotalOrders, 1)
	e.mon.OrdersPlaced.Inc()
	e.log.LogOrder("place", name, id, map[string]interface{}{
		"side": string(side), "price": price, "qty": e.cfg.OrderSize,
	})
}

func riskReason(err error) string {
	switch {
	case errors.Is(err, risk.ErrDeltaLimit):
		return "delta"
	case errors.Is(err, risk.ErrGammaLimit):
		return "gamma"
	case errors.Is(err, risk.ErrVegaLimit):
		return "vega"
	case errors.Is(err, risk.ErrPositionLimit):
		return "position"
	default:
		return "other"
	}
}
