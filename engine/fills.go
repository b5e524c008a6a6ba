package engine

import (
	"context"
	"errors"

	"options-mm-go/gateway"
	"options-mm-go/order"
)

var bothSides = []order.Side{order.SideBuy, order.SideSell}

// fillCycle 成交对账循环：逐合约逐方向查询在途委托状态；
// 成交入账并腾出槽位，远端撤单/拒单则只清槽。
func (e *Engine) fillCycle(ctx context.Context) {
	for _, name := range e.led.Names() {
		for _, side := range bothSides {
			if ctx.Err() != nil {
				return
			}
			w, working := e.book.Working(name, side)
			if !working {
				continue
			}

			var st gateway.OrderStatus
			err := e.retry(ctx, "order_status", func() error {
				var serr error
				st, serr = e.gw.OrderStatus(ctx, w.ID)
				return serr
			})
			if errors.Is(err, gateway.ErrUnknownOrder) {
				// 本地登记了交易所不认识的委托号：不变式违例。
				// 记录后跳过该合约，不清槽，留给人工排查。
				e.mon.InvariantErrors.Inc()
				e.log.LogRisk("unknown_working_order", map[string]interface{}{
					"instrument": name, "side": string(side), "order_id": w.ID,
				})
				if e.alerts != nil {
					_ = e.alerts.Error("unknown working order", map[string]interface{}{
						"instrument": name, "order_id": w.ID,
					})
				}
				break
			}
			if err != nil {
				continue // 瞬时故障，下轮再查
			}

			switch st.State {
			case gateway.OrderFilled, gateway.OrderCancelled, gateway.OrderRejected:
				e.locks.Lock(name)
				e.settleLocked(name, side, w, st)
				e.locks.Unlock(name)
			}
		}
	}
	e.stats.add(&e.stats.FillCycles, 1)
	e.mon.LoopCycles.WithLabelValues("fills").Inc()
}

// settleLocked 终态落账并清槽；调用方已持有该合约的锁。
// 成交按成交量入账；撤销/拒绝之前发生的部分成交同样入账，不许丢。
func (e *Engine) settleLocked(name string, side order.Side, w order.Order, st gateway.OrderStatus) {
	qty := st.FilledQuantity
	if st.State == gateway.OrderFilled && qty <= 0 {
		qty = w.Quantity
	}
	e.book.Clear(name, side)
	if qty <= 0 {
		return
	}
	price := st.FilledPrice
	if price <= 0 {
		price = w.Price
	}

	if err := e.led.ApplyFill(name, side.Sign()*qty, price); err != nil {
		e.mon.InvariantErrors.Inc()
		e.log.LogError(err, map[string]interface{}{"instrument": name, "order_id": w.ID})
		return
	}
	e.stats.add(&e.stats.TotalFills, 1)
	e.mon.OrdersFilled.Inc()
	e.log.LogOrder("fill", name, w.ID, map[string]interface{}{
		"side": string(side), "qty": qty, "price": price,
	})
}
