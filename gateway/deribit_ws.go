package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// QuoteCache 保存 WS 推送的最新报价，带时间戳供新鲜度判断。
type QuoteCache struct {
	mu     sync.RWMutex
	quotes map[string]cachedQuote
}

type cachedQuote struct {
	q  Quote
	ts time.Time
}

func NewQuoteCache() *QuoteCache {
	return &QuoteCache{quotes: make(map[string]cachedQuote)}
}

// Put 写入一条推送报价。
func (c *QuoteCache) Put(inst string, q Quote, ts time.Time) {
	c.mu.Lock()
	c.quotes[inst] = cachedQuote{q: q, ts: ts}
	c.mu.Unlock()
}

// Fresh 返回不早于 maxAge 的缓存报价。
func (c *QuoteCache) Fresh(inst string, maxAge time.Duration) (Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cq, ok := c.quotes[inst]
	if !ok || time.Since(cq.ts) > maxAge {
		return Quote{}, false
	}
	return cq.q, true
}

// DeribitWS 订阅 ticker 频道并把报价写进 QuoteCache。
// 最小骨架：连接 + 订阅 + 读取；断线由调用方决定是否重连。
type DeribitWS struct {
	Endpoint string // 默认 wss://test.deribit.com/ws/api/v1
	Dialer   *websocket.Dialer
	Cache    *QuoteCache

	channels []string
}

func NewDeribitWS(cache *QuoteCache) *DeribitWS {
	return &DeribitWS{
		Endpoint: "wss://test.deribit.com/ws/api/v1",
		Dialer:   websocket.DefaultDialer,
		Cache:    cache,
	}
}

// SubscribeTicker 登记一个合约的 ticker 订阅。
func (w *DeribitWS) SubscribeTicker(inst string) error {
	if inst == "" {
		return fmt.Errorf("instrument required")
	}
	w.channels = append(w.channels, "ticker."+inst)
	return nil
}

type wsTicker struct {
	Channel string  `json:"channel"`
	Bid     float64 `json:"bid"`
	Ask     float64 `json:"ask"`
}

// Run 建连、发订阅并循环读取，直到出错或 ctx 取消。
func (w *DeribitWS) Run(ctx context.Context) error {
	if len(w.channels) == 0 {
		return fmt.Errorf("no channels subscribed")
	}
	conn, _, err := w.Dialer.DialContext(ctx, w.Endpoint, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	sub := map[string]interface{}{
		"action":   "subscribe",
		"channels": w.channels,
	}
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		w.handleMessage(message)
	}
}

func (w *DeribitWS) handleMessage(raw []byte) {
	var t wsTicker
	if err := json.Unmarshal(raw, &t); err != nil {
		return
	}
	inst, ok := strings.CutPrefix(t.Channel, "ticker.")
	if !ok || t.Bid <= 0 || t.Ask <= 0 {
		return
	}
	if w.Cache != nil {
		w.Cache.Put(inst, Quote{Bid: t.Bid, Ask: t.Ask}, time.Now())
	}
}

// CachedQuoter 行情优先走 WS 缓存，过期则回落到 REST 轮询；
// 其余操作原样透传。
type CachedQuoter struct {
	Exchange
	Cache  *QuoteCache
	MaxAge time.Duration
}

func (c *CachedQuoter) Quote(ctx context.Context, inst string) (Quote, bool, error) {
	if c.Cache != nil {
		maxAge := c.MaxAge
		if maxAge <= 0 {
			maxAge = 2 * time.Second
		}
		if q, ok := c.Cache.Fresh(inst, maxAge); ok {
			return q, true, nil
		}
	}
	return c.Exchange.Quote(ctx, inst)
}
