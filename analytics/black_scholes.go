// Package analytics 提供期权定价的纯计算：BS 定价、隐含波动率与希腊值。
// 无共享状态、无 I/O，所有函数可并发调用。
package analytics

import (
	"errors"
	"fmt"
	"math"
)

// OptionType 期权方向。
type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

var (
	// ErrNoSolution 价格落在无套利区间之外，解不出隐含波动率。
	ErrNoSolution = errors.New("implied vol has no solution")
	// ErrExpired 剩余期限不为正。
	ErrExpired = errors.New("non-positive time to expiry")
	// ErrBadInput 标的价/行权价等输入非法。
	ErrBadInput = errors.New("invalid pricing input")
)

// Greeks 单位持仓的敏感度。
type Greeks struct {
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64
	Rho   float64
}

// Result 一次完整求值：隐含波动率 + 希腊值。
type Result struct {
	IV     float64
	Greeks Greeks
}

// IsUnavailable 判断错误是否属于"解不出来"一类：调用方应把该合约
// 按零风险贡献处理，而不是当成故障。
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrNoSolution) || errors.Is(err, ErrExpired) || errors.Is(err, ErrBadInput)
}

// 标准正态密度 / 分布函数。
func normPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}

func normCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

func d1d2(s, k, t, r, sigma float64) (float64, float64) {
	d1 := (math.Log(s/k) + (r+sigma*sigma/2)*t) / (sigma * math.Sqrt(t))
	return d1, d1 - sigma*math.Sqrt(t)
}

// Price 返回 Black-Scholes 理论价。
func Price(typ OptionType, s, k, t, r, sigma float64) float64 {
	d1, d2 := d1d2(s, k, t, r, sigma)
	if typ == Call {
		return s*normCDF(d1) - k*math.Exp(-r*t)*normCDF(d2)
	}
	return k*math.Exp(-r*t)*normCDF(-d2) - s*normCDF(-d1)
}

// GreeksOf 在给定波动率下计算全部希腊值。
// Theta 按年化时间衰减给出，Vega/Rho 为对 1.00（100 个百分点）变动的敏感度。
func GreeksOf(typ OptionType, s, k, t, r, sigma float64) Greeks {
	d1, d2 := d1d2(s, k, t, r, sigma)
	sqT := math.Sqrt(t)
	g := Greeks{
		Gamma: normPDF(d1) / (s * sigma * sqT),
		Vega:  s * normPDF(d1) * sqT,
	}
	if typ == Call {
		g.Delta = normCDF(d1)
		g.Theta = -s*normPDF(d1)*sigma/(2*sqT) - r*k*math.Exp(-r*t)*normCDF(d2)
		g.Rho = k * t * math.Exp(-r*t) * normCDF(d2)
	} else {
		g.Delta = normCDF(d1) - 1
		g.Theta = -s*normPDF(d1)*sigma/(2*sqT) + r*k*math.Exp(-r*t)*normCDF(-d2)
		g.Rho = -k * t * math.Exp(-r*t) * normCDF(-d2)
	}
	return g
}

// intrinsic bounds：无套利区间 [lower, upper]。
func arbitrageBounds(typ OptionType, s, k, t, r float64) (float64, float64) {
	disc := k * math.Exp(-r*t)
	if typ == Call {
		return math.Max(s-disc, 0), s
	}
	return math.Max(disc-s, 0), disc
}

// ImpliedVol 用 Newton 迭代反解隐含波动率，发散时退回二分法。
// 价格越界或期限非正时返回错误而不是 NaN。
func ImpliedVol(typ OptionType, price, s, k, t, r float64) (float64, error) {
	if t <= 0 {
		return 0, ErrExpired
	}
	if s <= 0 || k <= 0 || price <= 0 {
		return 0, fmt.Errorf("%w: s=%.6f k=%.6f price=%.6f", ErrBadInput, s, k, price)
	}
	lower, upper := arbitrageBounds(typ, s, k, t, r)
	if price <= lower || price >= upper {
		return 0, fmt.Errorf("%w: price %.6f outside (%.6f, %.6f)", ErrNoSolution, price, lower, upper)
	}

	const (
		tol      = 1e-9
		maxIters = 100
	)
	sigma := 0.5
	for i := 0; i < maxIters; i++ {
		diff := Price(typ, s, k, t, r, sigma) - price
		if math.Abs(diff) < tol {
			return sigma, nil
		}
		vega := GreeksOf(typ, s, k, t, r, sigma).Vega
		if vega < 1e-12 {
			break
		}
		next := sigma - diff/vega
		if next <= 0 || next > 10 {
			break
		}
		sigma = next
	}

	// 二分法兜底：BS 价格对 sigma 单调。
	lo, hi := 1e-6, 10.0
	for i := 0; i < 200; i++ {
		mid := (lo + hi) / 2
		if Price(typ, s, k, t, r, mid) < price {
			lo = mid
		} else {
			hi = mid
		}
		if hi-lo < tol {
			return (lo + hi) / 2, nil
		}
	}
	return 0, ErrNoSolution
}

// Evaluate 一步完成 IV 反解 + 希腊值计算；出错时调用方应把贡献视为零。
func Evaluate(typ OptionType, price, s, k, t, r float64) (Result, error) {
	iv, err := ImpliedVol(typ, price, s, k, t, r)
	if err != nil {
		return Result{}, err
	}
	return Result{IV: iv, Greeks: GreeksOf(typ, s, k, t, r, iv)}, nil
}
