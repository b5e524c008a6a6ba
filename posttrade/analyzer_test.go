package posttrade

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzerRealizedPnL(t *testing.T) {
	a := NewAnalyzer()
	a.OnFill("BTC-2000-C", "buy", 2, 100)
	a.OnFill("BTC-2000-C", "sell", 1, 130)

	rep := a.Report()
	require.Len(t, rep.Instruments, 1)
	ir := rep.Instruments[0]
	assert.Equal(t, 2, ir.Fills)
	assert.Equal(t, 1.0, ir.Position.Quantity)
	// min(2,1) × (130 − 100) = 30
	assert.InDelta(t, 30.0, ir.RealizedPnL(), 1e-9)
	assert.Equal(t, 0.0, ir.UnrealizedPnL(), "无估值价时未实现盈亏为 0")

	a.SetMark("BTC-2000-C", 110)
	rep = a.Report()
	assert.InDelta(t, 10.0, rep.Instruments[0].UnrealizedPnL(), 1e-9)
	assert.InDelta(t, 40.0, rep.RealizedPnL()+rep.UnrealizedPnL(), 1e-9)
}

func TestAnalyzerIgnoresBadFills(t *testing.T) {
	a := NewAnalyzer()
	a.OnFill("", "buy", 1, 100)
	a.OnFill("X", "buy", 0, 100)
	a.OnFill("X", "buy", 1, 0)
	assert.Empty(t, a.Report().Instruments)
}

func TestReplayParsesFillEvents(t *testing.T) {
	logs := strings.Join([]string{
		`garbage line without json`,
		`{"level":"info","msg":"order_event","event":"place","instrument":"BTC-2000-C","order_id":"1","side":"buy","price":100,"qty":1,"ts":"2026-08-27T10:00:00Z"}`,
		`{"level":"info","msg":"order_event","event":"fill","instrument":"BTC-2000-C","order_id":"1","side":"buy","qty":1,"price":100,"ts":"2026-08-27T10:00:05Z"}`,
		`{"level":"info","msg":"order_event","event":"fill","instrument":"BTC-2000-C","order_id":"2","side":"sell","qty":1,"price":120,"ts":"2026-08-27T10:01:00Z"}`,
		`{"level":"warn","msg":"risk_event","event":"totals_drift","ts":"2026-08-27T10:02:00Z"}`,
		`not json either`,
	}, "\n")

	a := NewAnalyzer()
	n, err := Replay(strings.NewReader(logs), time.Time{}, a)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rep := a.Report()
	require.Len(t, rep.Instruments, 1)
	assert.Equal(t, 0.0, rep.Instruments[0].Position.Quantity)
	assert.InDelta(t, 20.0, rep.RealizedPnL(), 1e-9)
}

func TestReplayHonorsSince(t *testing.T) {
	logs := `{"msg":"order_event","event":"fill","instrument":"X","side":"buy","qty":1,"price":100,"ts":"2026-08-27T10:00:00Z"}
{"msg":"order_event","event":"fill","instrument":"X","side":"buy","qty":1,"price":110,"ts":"2026-08-27T12:00:00Z"}`

	since, _ := time.Parse(time.RFC3339, "2026-08-27T11:00:00Z")
	a := NewAnalyzer()
	n, err := Replay(strings.NewReader(logs), since, a)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	rep := a.Report()
	require.Len(t, rep.Instruments, 1)
	assert.InDelta(t, 110.0, rep.Instruments[0].Position.AvgBuyPrice(), 1e-9)
}
