package order

// Side buy/sell.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Sign 买 +1 卖 -1，用于给成交量定符号。
func (s Side) Sign() float64 {
	if s == SideSell {
		return -1
	}
	return 1
}

// State represents the per-slot order lifecycle.
type State string

const (
	StateEmpty   State = "EMPTY"
	StatePending State = "PENDING" // 下单请求在途，占住槽位
	StateWorking State = "WORKING"
)

// Order holds the working order view for one (instrument, side) slot.
type Order struct {
	ID       string
	Side     Side
	Price    float64
	Quantity float64
}
