package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"options-mm-go/analytics"
	"options-mm-go/instrument"
	"options-mm-go/order"
)

// DeribitREST 签名 REST 客户端；HTTPClient 可注入 httptest，默认不带
// 任何全局状态。实现 Exchange 接口。
type DeribitREST struct {
	BaseURL    string
	APIKey     string
	Secret     string
	Rate       float64 // 无风险利率，写入发现的合约
	HTTPClient *http.Client
	Limiter    RateLimiter
}

// NewDefaultHTTPClient 带超时的 http.Client。
func NewDefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

func (c *DeribitREST) do(ctx context.Context, method, endpoint string, params map[string]string, out interface{}) error {
	if c == nil || c.HTTPClient == nil {
		return fmt.Errorf("http client not set")
	}
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return err
		}
	}
	query, sig := SignPayload(params, c.Secret)

	var req *http.Request
	var err error
	switch method {
	case http.MethodGet:
		req, err = http.NewRequestWithContext(ctx, method, c.BaseURL+endpoint+"?"+query, nil)
	default:
		body, merr := json.Marshal(params)
		if merr != nil {
			return merr
		}
		req, err = http.NewRequestWithContext(ctx, method, c.BaseURL+endpoint, bytes.NewReader(body))
		if req != nil {
			req.Header.Set("Content-Type", "application/json")
		}
	}
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("X-Signature", sig)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s status %d", method, endpoint, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type placeResp struct {
	Result struct {
		Order struct {
			OrderID    string `json:"order_id"`
			OrderState string `json:"order_state"`
		} `json:"order"`
	} `json:"result"`
}

// PlaceOrder 调 /trading/place_order；交易所侧拒单返回 ErrRejected。
func (c *DeribitREST) PlaceOrder(ctx context.Context, inst string, side order.Side, qty, price float64) (string, error) {
	params := map[string]string{
		"instrument_name": inst,
		"side":            string(side),
		"quantity":        strconv.FormatFloat(qty, 'f', -1, 64),
		"price":           strconv.FormatFloat(price, 'f', -1, 64),
	}
	var pr placeResp
	if err := c.do(ctx, http.MethodPost, "/api/v1/trading/place_order", params, &pr); err != nil {
		return "", err
	}
	if pr.Result.Order.OrderState == string(OrderRejected) {
		return "", fmt.Errorf("%w: %s", ErrRejected, inst)
	}
	if pr.Result.Order.OrderID == "" {
		return "", fmt.Errorf("place %s: empty order_id", inst)
	}
	return pr.Result.Order.OrderID, nil
}

// ModifyOrder 调 /trading/modify，保留原委托号。
func (c *DeribitREST) ModifyOrder(ctx context.Context, orderID string, qty, price float64) error {
	params := map[string]string{
		"order_id": orderID,
		"quantity": strconv.FormatFloat(qty, 'f', -1, 64),
		"price":    strconv.FormatFloat(price, 'f', -1, 64),
	}
	return c.do(ctx, http.MethodPost, "/api/v1/trading/modify", params, nil)
}

// CancelOrder 调 /trading/cancel。
func (c *DeribitREST) CancelOrder(ctx context.Context, orderID string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/trading/cancel", map[string]string{"order_id": orderID}, nil)
}

// CancelAll 调 /trading/cancelall，撤掉账户全部在途委托。应急工具用，
// 引擎主流程只做逐单撤销。
func (c *DeribitREST) CancelAll(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/trading/cancelall", map[string]string{"type": "all"}, nil)
}

// PositionEntry 交易所侧持仓条目。
type PositionEntry struct {
	Instrument string  `json:"instrument"`
	Size       float64 `json:"size"`
	AvgPrice   float64 `json:"average_price"`
}

type positionsResp struct {
	Result []PositionEntry `json:"result"`
}

// Positions 查询账户全部非零持仓。
func (c *DeribitREST) Positions(ctx context.Context) ([]PositionEntry, error) {
	var pr positionsResp
	if err := c.do(ctx, http.MethodGet, "/api/v1/trading/positions", nil, &pr); err != nil {
		return nil, err
	}
	out := pr.Result[:0]
	for _, p := range pr.Result {
		if p.Size != 0 {
			out = append(out, p)
		}
	}
	return out, nil
}

type stateResp struct {
	Result struct {
		OrderState     string  `json:"order_state"`
		FilledQuantity float64 `json:"filled_quantity"`
		AvgPrice       float64 `json:"avg_price"`
	} `json:"result"`
}

// OrderStatus 查询委托状态。
func (c *DeribitREST) OrderStatus(ctx context.Context, orderID string) (OrderStatus, error) {
	var sr stateResp
	if err := c.do(ctx, http.MethodGet, "/api/v1/trading/order_state", map[string]string{"order_id": orderID}, &sr); err != nil {
		return OrderStatus{}, err
	}
	if sr.Result.OrderState == "" {
		return OrderStatus{}, fmt.Errorf("%w: %s", ErrUnknownOrder, orderID)
	}
	return OrderStatus{
		State:          OrderState(sr.Result.OrderState),
		FilledQuantity: sr.Result.FilledQuantity,
		FilledPrice:    sr.Result.AvgPrice,
	}, nil
}

type tickerResp struct {
	Result struct {
		Bid []float64 `json:"bid"` // [size, price]
		Ask []float64 `json:"ask"`
	} `json:"result"`
}

// Quote 查询一档行情；流动性差的合约可能没有挂单，此时返回 ok=false。
func (c *DeribitREST) Quote(ctx context.Context, inst string) (Quote, bool, error) {
	var tr tickerResp
	if err := c.do(ctx, http.MethodGet, "/api/v1/public/ticker", map[string]string{"instrument_name": inst}, &tr); err != nil {
		return Quote{}, false, err
	}
	if len(tr.Result.Bid) < 2 || len(tr.Result.Ask) < 2 {
		return Quote{}, false, nil
	}
	q := Quote{Bid: tr.Result.Bid[1], Ask: tr.Result.Ask[1]}
	if q.Bid <= 0 || q.Ask <= 0 {
		return Quote{}, false, nil
	}
	return q, true, nil
}

type instrumentsResp struct {
	Result []struct {
		InstrumentName      string  `json:"instrument_name"`
		Kind                string  `json:"kind"`
		Strike              float64 `json:"strike"`
		OptionType          string  `json:"option_type"`
		ExpirationTimestamp int64   `json:"expiration_timestamp"`
	} `json:"result"`
}

// ChainInstruments 拉取目标到期日的期权链和标的期货，按链序返回。
func (c *DeribitREST) ChainInstruments(ctx context.Context, underlying string, expiry time.Time) ([]instrument.Instrument, error) {
	params := map[string]string{
		"currency": underlying,
		"expired":  "false",
	}
	var ir instrumentsResp
	if err := c.do(ctx, http.MethodGet, "/api/v1/public/get_instruments", params, &ir); err != nil {
		return nil, err
	}

	var out []instrument.Instrument
	for _, raw := range ir.Result {
		exp := time.UnixMilli(raw.ExpirationTimestamp).UTC()
		switch raw.Kind {
		case "option":
			if !exp.Equal(expiry) {
				continue
			}
			out = append(out, instrument.Instrument{
				Name:       raw.InstrumentName,
				Kind:       instrument.KindOption,
				Strike:     raw.Strike,
				OptionType: analytics.OptionType(raw.OptionType),
				Expiry:     exp,
				Rate:       c.Rate,
			})
		case "future":
			out = append(out, instrument.Instrument{
				Name:   raw.InstrumentName,
				Kind:   instrument.KindFuture,
				Expiry: exp,
				Rate:   c.Rate,
			})
		}
	}
	instrument.SortChain(out)
	return out, nil
}
