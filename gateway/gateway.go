// Package gateway 封装交易所访问：下单/改单/撤单、委托状态、行情与
// 合约列表。引擎只依赖 Exchange 接口，网络实现可替换、可注入测试桩。
package gateway

import (
	"context"
	"errors"
	"time"

	"options-mm-go/instrument"
	"options-mm-go/order"
)

var (
	// ErrRejected 交易所风控/保证金拒单；属于终态，不重试。
	ErrRejected = errors.New("order rejected by exchange")
	// ErrUnknownOrder 交易所查不到该委托。
	ErrUnknownOrder = errors.New("unknown order id")
)

// Quote 买卖一档报价。
type Quote struct {
	Bid float64
	Ask float64
}

// Mid 买卖中点。
func (q Quote) Mid() float64 {
	return (q.Bid + q.Ask) / 2
}

// OrderState 交易所侧的委托状态。
type OrderState string

const (
	OrderWorking   OrderState = "working"
	OrderFilled    OrderState = "filled"
	OrderCancelled OrderState = "cancelled"
	OrderRejected  OrderState = "rejected"
)

// OrderStatus 委托状态查询结果。
type OrderStatus struct {
	State          OrderState
	FilledQuantity float64
	FilledPrice    float64
}

// Exchange 交易所网关契约。所有调用都是阻塞 I/O，调用方不得在
// 跨协程共享锁内等待返回。
type Exchange interface {
	// PlaceOrder 返回交易所分配的委托号；拒单返回 ErrRejected。
	PlaceOrder(ctx context.Context, inst string, side order.Side, qty, price float64) (string, error)
	ModifyOrder(ctx context.Context, orderID string, qty, price float64) error
	CancelOrder(ctx context.Context, orderID string) error
	OrderStatus(ctx context.Context, orderID string) (OrderStatus, error)
	// Quote 第二返回值为 false 表示该合约当前无报价（合法结果，非错误）。
	Quote(ctx context.Context, inst string) (Quote, bool, error)
	// ChainInstruments 启动时调用一次：目标到期日的期权链 + 标的期货。
	ChainInstruments(ctx context.Context, underlying string, expiry time.Time) ([]instrument.Instrument, error)
}
