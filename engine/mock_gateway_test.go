package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"options-mm-go/gateway"
	"options-mm-go/instrument"
	"options-mm-go/order"
)

// mockGateway 模拟交易所网关（单测用）。
type mockGateway struct {
	mu     sync.Mutex
	quotes map[string]gateway.Quote
	orders map[string]*mockOrder
	seq    int

	rejectNextPlace bool
	failQuote       error // 非空则 Quote 一直报错
	failPlace       error // 非空则 PlaceOrder 一直报错（瞬时错误）

	placeCount  int
	modifyCount int
	cancelCount int
}

type mockOrder struct {
	inst        string
	side        order.Side
	price, qty  float64
	state       gateway.OrderState
	filledQty   float64
	filledPrice float64
}

func newMockGateway() *mockGateway {
	return &mockGateway{
		quotes: make(map[string]gateway.Quote),
		orders: make(map[string]*mockOrder),
	}
}

func (m *mockGateway) setQuote(inst string, bid, ask float64) {
	m.mu.Lock()
	m.quotes[inst] = gateway.Quote{Bid: bid, Ask: ask}
	m.mu.Unlock()
}

// fill 把委托标记为成交。
func (m *mockGateway) fill(orderID string, price float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return fmt.Errorf("no such order %s", orderID)
	}
	o.state = gateway.OrderFilled
	o.filledQty = o.qty
	o.filledPrice = price
	return nil
}

func (m *mockGateway) PlaceOrder(_ context.Context, inst string, side order.Side, qty, price float64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.placeCount++
	if m.failPlace != nil {
		return "", m.failPlace
	}
	if m.rejectNextPlace {
		m.rejectNextPlace = false
		return "", gateway.ErrRejected
	}
	m.seq++
	id := fmt.Sprintf("mock-%d", m.seq)
	m.orders[id] = &mockOrder{inst: inst, side: side, price: price, qty: qty, state: gateway.OrderWorking}
	return id, nil
}

func (m *mockGateway) ModifyOrder(_ context.Context, orderID string, qty, price float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modifyCount++
	o, ok := m.orders[orderID]
	if !ok {
		return gateway.ErrUnknownOrder
	}
	o.qty, o.price = qty, price
	return nil
}

func (m *mockGateway) CancelOrder(_ context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelCount++
	o, ok := m.orders[orderID]
	if !ok {
		return gateway.ErrUnknownOrder
	}
	// 撤单请求总是回报成功；若委托已先成交，终态保持成交，
	// 模拟撤单与成交竞态时交易所的行为。
	if o.state == gateway.OrderWorking {
		o.state = gateway.OrderCancelled
	}
	return nil
}

func (m *mockGateway) OrderStatus(_ context.Context, orderID string) (gateway.OrderStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return gateway.OrderStatus{}, gateway.ErrUnknownOrder
	}
	return gateway.OrderStatus{State: o.state, FilledQuantity: o.filledQty, FilledPrice: o.filledPrice}, nil
}

func (m *mockGateway) Quote(_ context.Context, inst string) (gateway.Quote, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failQuote != nil {
		return gateway.Quote{}, false, m.failQuote
	}
	q, ok := m.quotes[inst]
	return q, ok, nil
}

func (m *mockGateway) ChainInstruments(context.Context, string, time.Time) ([]instrument.Instrument, error) {
	return nil, errors.New("not used in tests")
}
