package engine

import "context"

// Hedger 期货对冲扩展点：作为第四条控制循环运行，约定与报价循环
// 共用同一套风控闸门。默认不启用，对冲策略由部署方注入。
type Hedger interface {
	HedgeCycle(ctx context.Context) error
}

// NopHedger 占位实现，什么也不做。
type NopHedger struct{}

func (NopHedger) HedgeCycle(context.Context) error { return nil }
