// Package sim 仿真交易所：标的价按几何随机游走演化，期权报价由
// 固定波动率的理论价加减价差生成，限价单在市价穿越时全额成交。
// 实现 gateway.Exchange，引擎不需要任何改动就能整体跑在仿真上。
package sim

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"options-mm-go/analytics"
	"options-mm-go/gateway"
	"options-mm-go/instrument"
	"options-mm-go/order"
)

// Config 仿真参数；零值字段取默认。
type Config struct {
	Underlying string    // 标的代码，默认 BTC
	Spot       float64   // 初始标的价，默认 2000
	Vol        float64   // 年化波动率，默认 0.8
	SpreadPct  float64   // 半价差比例，默认 0.005
	Rate       float64   // 无风险利率
	Expiry     time.Time // 期权到期日，默认 90 天后
	Strikes    []float64 // 行权价；留空则围绕初始价取五档
	Seed       int64     // 随机种子，默认当前时间
}

type simOrder struct {
	inst        string
	side        order.Side
	price, qty  float64
	state       gateway.OrderState
	filledQty   float64
	filledPrice float64
}

// Exchange 仿真交易所。
type Exchange struct {
	mu     sync.Mutex
	cfg    Config
	rng    *rand.Rand
	now    func() time.Time
	spot   float64
	seq    int
	orders map[string]*simOrder
	insts  map[string]instrument.Instrument
	chain  []instrument.Instrument
}

// New 按配置生成一条合约链：一张标的期货加每个行权价的看涨/看跌。
func New(cfg Config) *Exchange {
	if cfg.Underlying == "" {
		cfg.Underlying = "BTC"
	}
	if cfg.Spot <= 0 {
		cfg.Spot = 2000
	}
	if cfg.Vol <= 0 {
		cfg.Vol = 0.8
	}
	if cfg.SpreadPct <= 0 {
		cfg.SpreadPct = 0.005
	}
	if cfg.Expiry.IsZero() {
		cfg.Expiry = time.Now().Add(90 * 24 * time.Hour)
	}
	if len(cfg.Strikes) == 0 {
		for _, m := range []float64{0.8, 0.9, 1.0, 1.1, 1.2} {
			cfg.Strikes = append(cfg.Strikes, math.Round(cfg.Spot*m))
		}
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	s := &Exchange{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		now:    time.Now,
		spot:   cfg.Spot,
		orders: make(map[string]*simOrder),
		insts:  make(map[string]instrument.Instrument),
	}

	expiryTag := cfg.Expiry.Format("2Jan06")
	future := instrument.Instrument{
		Name:   fmt.Sprintf("%s-%s", cfg.Underlying, expiryTag),
		Kind:   instrument.KindFuture,
		Expiry: cfg.Expiry,
		Rate:   cfg.Rate,
	}
	s.chain = append(s.chain, future)
	for _, strike := range cfg.Strikes {
		for _, typ := range []analytics.OptionType{analytics.Call, analytics.Put} {
			tag := "C"
			if typ == analytics.Put {
				tag = "P"
			}
			s.chain = append(s.chain, instrument.Instrument{
				Name:       fmt.Sprintf("%s-%s-%d-%s", cfg.Underlying, expiryTag, int(strike), tag),
				Kind:       instrument.KindOption,
				Strike:     strike,
				OptionType: typ,
				Expiry:     cfg.Expiry,
				Rate:       cfg.Rate,
			})
		}
	}
	instrument.SortChain(s.chain)
	for _, inst := range s.chain {
		s.insts[inst.Name] = inst
	}
	return s
}

// Spot 当前标的价。
func (s *Exchange) Spot() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spot
}

// SetSpot 直接设定标的价并触发撮合；测试和情景回放用。
func (s *Exchange) SetSpot(price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spot = price
	s.matchLocked()
}

// Step 推进一个仿真步长：标的价按几何随机游走演化，然后撮合在途委托。
func (s *Exchange) Step(dt time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	yr := dt.Hours() / (24 * 365)
	z := s.rng.NormFloat64()
	s.spot *= math.Exp(s.cfg.Vol*math.Sqrt(yr)*z - 0.5*s.cfg.Vol*s.cfg.Vol*yr)
	s.matchLocked()
}

// quoteLocked 以当前标的价生成一档报价；深度虚值期权理论价可能贴零，
// 此时视为无报价。
func (s *Exchange) quoteLocked(inst instrument.Instrument) (gateway.Quote, bool) {
	if inst.Kind == instrument.KindFuture {
		return gateway.Quote{
			Bid: s.spot * (1 - s.cfg.SpreadPct),
			Ask: s.spot * (1 + s.cfg.SpreadPct),
		}, true
	}
	tte := inst.TimeToExpiry(s.now())
	if tte <= 0 {
		return gateway.Quote{}, false
	}
	theo := analytics.Price(inst.OptionType, s.spot, inst.Strike, tte, inst.Rate, s.cfg.Vol)
	if theo < 1e-4 {
		return gateway.Quote{}, false
	}
	return gateway.Quote{
		Bid: theo * (1 - s.cfg.SpreadPct),
		Ask: theo * (1 + s.cfg.SpreadPct),
	}, true
}

// matchLocked 顶档穿越即全额成交：买单在卖一跌破限价时成交，
// 卖单在买一升破限价时成交。
func (s *Exchange) matchLocked() {
	for _, o := range s.orders {
		if o.state != gateway.OrderWorking {
			continue
		}
		inst, ok := s.insts[o.inst]
		if !ok {
			continue
		}
		q, ok := s.quoteLocked(inst)
		if !ok {
			continue
		}
		switch {
		case o.side == order.SideBuy && q.Ask <= o.price:
			o.state = gateway.OrderFilled
			o.filledQty = o.qty
			o.filledPrice = q.Ask
		case o.side == order.SideSell && q.Bid >= o.price:
			o.state = gateway.OrderFilled
			o.filledQty = o.qty
			o.filledPrice = q.Bid
		}
	}
}

func (s *Exchange) PlaceOrder(_ context.Context, inst string, side order.Side, qty, price float64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.insts[inst]; !ok {
		return "", fmt.Errorf("%w: %s", gateway.ErrRejected, inst)
	}
	if qty <= 0 || price <= 0 {
		return "", fmt.Errorf("%w: bad qty/price", gateway.ErrRejected)
	}
	s.seq++
	id := fmt.Sprintf("sim-%d", s.seq)
	s.orders[id] = &simOrder{inst: inst, side: side, price: price, qty: qty, state: gateway.OrderWorking}
	return id, nil
}

func (s *Exchange) ModifyOrder(_ context.Context, orderID string, qty, price float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return fmt.Errorf("%w: %s", gateway.ErrUnknownOrder, orderID)
	}
	if o.state != gateway.OrderWorking {
		return fmt.Errorf("modify %s: order is %s", orderID, o.state)
	}
	o.qty, o.price = qty, price
	return nil
}

func (s *Exchange) CancelOrder(_ context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return fmt.Errorf("%w: %s", gateway.ErrUnknownOrder, orderID)
	}
	if o.state != gateway.OrderWorking {
		// 已成交/已撤的委托不能再撤，终态留给调用方对账
		return fmt.Errorf("cancel %s: order is %s", orderID, o.state)
	}
	o.state = gateway.OrderCancelled
	return nil
}

func (s *Exchange) OrderStatus(_ context.Context, orderID string) (gateway.OrderStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return gateway.OrderStatus{}, fmt.Errorf("%w: %s", gateway.ErrUnknownOrder, orderID)
	}
	return gateway.OrderStatus{State: o.state, FilledQuantity: o.filledQty, FilledPrice: o.filledPrice}, nil
}

func (s *Exchange) Quote(_ context.Context, inst string) (gateway.Quote, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.insts[inst]
	if !ok {
		return gateway.Quote{}, false, fmt.Errorf("unknown instrument %s", inst)
	}
	q, ok := s.quoteLocked(in)
	return q, ok, nil
}

func (s *Exchange) ChainInstruments(context.Context, string, time.Time) ([]instrument.Instrument, error) {
	out := make([]instrument.Instrument, len(s.chain))
	copy(out, s.chain)
	return out, nil
}
