// Package order 维护每个 (合约, 方向) 的在途委托槽位。
// 硬性不变式：任一槽位同一时刻最多一张 Working 委托。
package order

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrSlotBusy 槽位已被占用，重复占位属于不变式违例。
	ErrSlotBusy = errors.New("order slot busy")
	// ErrSlotState 槽位状态与请求的转换不匹配。
	ErrSlotState = errors.New("unexpected slot state")
)

type slotKey struct {
	instrument string
	side       Side
}

type slot struct {
	state State
	ord   Order
}

// Book 订单簿状态。锁只保护内存登记，网关调用在锁外完成：
// 调用方先 Reserve 占位，回包后 Commit 或 Release。
type Book struct {
	mu    sync.RWMutex
	slots map[slotKey]*slot
}

func NewBook() *Book {
	return &Book{slots: make(map[slotKey]*slot)}
}

func (b *Book) get(inst string, side Side) *slot {
	k := slotKey{instrument: inst, side: side}
	s, ok := b.slots[k]
	if !ok {
		s = &slot{state: StateEmpty}
		b.slots[k] = s
	}
	return s
}

// Reserve 把空槽置为 Pending，为在途的下单请求占位。
func (b *Book) Reserve(inst string, side Side) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.get(inst, side)
	if s.state != StateEmpty {
		return fmt.Errorf("%w: %s %s is %s", ErrSlotBusy, inst, side, s.state)
	}
	s.state = StatePending
	return nil
}

// Commit 下单成功，登记网关返回的委托号并转入 Working。
func (b *Book) Commit(inst string, side Side, ord Order) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.get(inst, side)
	if s.state != StatePending {
		return fmt.Errorf("%w: commit %s %s in %s", ErrSlotState, inst, side, s.state)
	}
	ord.Side = side
	s.state = StateWorking
	s.ord = ord
	return nil
}

// Release 下单失败或被交易所拒单，槽位退回 Empty。
func (b *Book) Release(inst string, side Side) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.get(inst, side)
	s.state = StateEmpty
	s.ord = Order{}
}

// Reprice 改价成功后更新登记价，委托号与数量不变。
func (b *Book) Reprice(inst string, side Side, price float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.get(inst, side)
	if s.state != StateWorking {
		return fmt.Errorf("%w: reprice %s %s in %s", ErrSlotState, inst, side, s.state)
	}
	s.ord.Price = price
	return nil
}

// Clear 成交或撤单后清空槽位。
func (b *Book) Clear(inst string, side Side) {
	b.Release(inst, side)
}

// Working 返回槽位上的在途委托。
func (b *Book) Working(inst string, side Side) (Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.slots[slotKey{instrument: inst, side: side}]
	if !ok || s.state != StateWorking {
		return Order{}, false
	}
	return s.ord, true
}

// StateOf 返回槽位当前状态。
func (b *Book) StateOf(inst string, side Side) State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.slots[slotKey{instrument: inst, side: side}]
	if !ok {
		return StateEmpty
	}
	return s.state
}

// WorkingCount 全簿 Working 委托数，供状态面板与测试断言。
func (b *Book) WorkingCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, s := range b.slots {
		if s.state == StateWorking {
			n++
		}
	}
	return n
}
