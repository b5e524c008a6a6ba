package analytics

import (
	"errors"
	"math"
	"testing"
)

func TestImpliedVolRoundTrip(t *testing.T) {
	cases := []struct {
		typ   OptionType
		s, k  float64
		tte   float64
		r     float64
		sigma float64
	}{
		{Call, 2000, 2000, 0.25, 0.01, 0.6},
		{Call, 2000, 2400, 0.1, 0, 0.8},
		{Put, 2000, 1800, 0.5, 0.02, 0.45},
		{Put, 100, 120, 0.05, 0, 1.2},
	}
	for _, c := range cases {
		price := Price(c.typ, c.s, c.k, c.tte, c.r, c.sigma)
		iv, err := ImpliedVol(c.typ, price, c.s, c.k, c.tte, c.r)
		if err != nil {
			t.Fatalf("%s s=%v k=%v: unexpected error %v", c.typ, c.s, c.k, err)
		}
		if math.Abs(iv-c.sigma) > 1e-6 {
			t.Fatalf("%s s=%v k=%v: iv %.8f want %.8f", c.typ, c.s, c.k, iv, c.sigma)
		}
	}
}

func TestImpliedVolRejectsArbitrage(t *testing.T) {
	// call 价格不能低于内在价值
	if _, err := ImpliedVol(Call, 1, 2000, 1500, 0.25, 0); !errors.Is(err, ErrNoSolution) {
		t.Fatalf("expected ErrNoSolution, got %v", err)
	}
	// call 价格不能高于标的价
	if _, err := ImpliedVol(Call, 2500, 2000, 1500, 0.25, 0); !errors.Is(err, ErrNoSolution) {
		t.Fatalf("expected ErrNoSolution, got %v", err)
	}
}

func TestImpliedVolRejectsExpired(t *testing.T) {
	if _, err := ImpliedVol(Call, 100, 2000, 2000, 0, 0); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	if _, err := ImpliedVol(Put, 100, 2000, 2000, -0.1, 0); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestGreeksSanity(t *testing.T) {
	gCall := GreeksOf(Call, 2000, 2000, 0.25, 0.01, 0.6)
	gPut := GreeksOf(Put, 2000, 2000, 0.25, 0.01, 0.6)

	if gCall.Delta <= 0 || gCall.Delta >= 1 {
		t.Fatalf("call delta out of range: %v", gCall.Delta)
	}
	if gPut.Delta >= 0 || gPut.Delta <= -1 {
		t.Fatalf("put delta out of range: %v", gPut.Delta)
	}
	// put-call parity: delta_call - delta_put = 1
	if math.Abs(gCall.Delta-gPut.Delta-1) > 1e-9 {
		t.Fatalf("parity violated: %v %v", gCall.Delta, gPut.Delta)
	}
	// gamma/vega 对 call 和 put 相同
	if math.Abs(gCall.Gamma-gPut.Gamma) > 1e-12 || math.Abs(gCall.Vega-gPut.Vega) > 1e-12 {
		t.Fatalf("gamma/vega should match across types")
	}
	if gCall.Gamma <= 0 || gCall.Vega <= 0 {
		t.Fatalf("gamma/vega must be positive: %+v", gCall)
	}
}

func TestEvaluateUnavailable(t *testing.T) {
	if _, err := Evaluate(Call, 0, 2000, 2000, 0.25, 0); err == nil {
		t.Fatalf("expected error for zero price")
	}
	res, err := Evaluate(Call, Price(Call, 2000, 2000, 0.25, 0, 0.5), 2000, 2000, 0.25, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IV <= 0 || res.Greeks.Vega <= 0 {
		t.Fatalf("bad result: %+v", res)
	}
}
