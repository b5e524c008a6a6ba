package logger

import "testing"

func TestValidateEvent(t *testing.T) {
	err := ValidateEvent("fill", map[string]interface{}{
		"side":  "buy",
		"qty":   1.0,
		"price": 100.0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = ValidateEvent("fill", map[string]interface{}{
		"side": "buy",
	})
	if err == nil {
		t.Fatalf("expected error for missing fields")
	}
	if err := ValidateEvent("unregistered", nil); err != nil {
		t.Fatalf("unregistered events must pass: %v", err)
	}
}

func TestKnownEvents(t *testing.T) {
	names := KnownEvents()
	if len(names) == 0 {
		t.Fatalf("expected non-empty schema list")
	}
	found := false
	for _, n := range names {
		if n == "totals_drift" {
			found = true
		}
	}
	if !found {
		t.Fatalf("totals_drift not found in schemas")
	}
}
