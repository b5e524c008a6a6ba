package gateway

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryEventuallySucceeds(t *testing.T) {
	p := RetryPolicy{Attempts: 4, Base: time.Millisecond, Max: 5 * time.Millisecond}
	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls %d want 3", calls)
	}
}

func TestRetryExhausts(t *testing.T) {
	p := RetryPolicy{Attempts: 2, Base: time.Millisecond}
	calls := 0
	sentinel := errors.New("down")
	err := p.Do(context.Background(), func() error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) || calls != 2 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestRetryNoRetryOnRejected(t *testing.T) {
	p := RetryPolicy{Attempts: 5, Base: time.Millisecond}
	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return ErrRejected
	})
	if !errors.Is(err, ErrRejected) || calls != 1 {
		t.Fatalf("rejected must not retry: err=%v calls=%d", err, calls)
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := RetryPolicy{Attempts: 3, Base: time.Millisecond}
	if err := p.Do(ctx, func() error { return errors.New("x") }); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
