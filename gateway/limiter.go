package gateway

import (
	"context"
	"sync"
	"time"
)

// RateLimiter 约束对交易所的请求速率。三条控制循环共用同一个实例，
// 等待期间必须响应 ctx 取消，不能卡住引擎停机。
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// TokenBucketLimiter 令牌桶：rate 为每秒补充速率，burst 为桶容量。
// 桶空时令牌余额转负，并发调用方各自预支一张、按预支顺序排队等待。
type TokenBucketLimiter struct {
	mu     sync.Mutex
	rate   float64
	burst  float64
	tokens float64
	last   time.Time
}

func NewTokenBucketLimiter(rate float64, burst int) *TokenBucketLimiter {
	if rate <= 0 {
		rate = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucketLimiter{
		rate:   rate,
		burst:  float64(burst),
		tokens: float64(burst),
		last:   time.Now(),
	}
}

// Wait 取走一张令牌；桶空时睡到这张令牌生成，ctx 取消立即返回。
func (l *TokenBucketLimiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	now := time.Now()
	l.tokens += now.Sub(l.last).Seconds() * l.rate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
	l.last = now
	l.tokens--
	deficit := -l.tokens
	l.mu.Unlock()

	if deficit <= 0 {
		return nil
	}
	timer := time.NewTimer(time.Duration(deficit / l.rate * float64(time.Second)))
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
