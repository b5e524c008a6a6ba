package gateway

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy 瞬时错误的有界重试；退避按指数增长并封顶。
type RetryPolicy struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
}

// DefaultRetry 网关调用的默认策略。
func DefaultRetry() RetryPolicy {
	return RetryPolicy{Attempts: 3, Base: 100 * time.Millisecond, Max: 2 * time.Second}
}

// Do 执行 fn 直到成功、耗尽次数或 ctx 取消。拒单（ErrRejected）和
// 未知委托号（ErrUnknownOrder）是终态，立刻返回不重试。
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	if p.Attempts <= 0 {
		p.Attempts = 1
	}
	delay := p.Base
	var err error
	for i := 0; i < p.Attempts; i++ {
		if err = ctx.Err(); err != nil {
			return err
		}
		if err = fn(); err == nil {
			return nil
		}
		if errors.Is(err, ErrRejected) || errors.Is(err, ErrUnknownOrder) || errors.Is(err, context.Canceled) {
			return err
		}
		if i == p.Attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if p.Max > 0 && delay > p.Max {
			delay = p.Max
		}
	}
	return err
}
