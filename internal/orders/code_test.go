package orders

import (
	"strings"
	"testing"
	"time"
)

func TestOrderCodesCarryDateAndRandomSuffix(t *testing.T) {
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	code := newOrderCode(at)
	if !strings.HasPrefix(code, "ORD-20260302-") {
		t.Fatalf("code %q missing date prefix", code)
	}
	if len(code) != len("ORD-20260302-")+6 {
		t.Fatalf("code %q has wrong suffix length", code)
	}

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		c := newOrderCode(at)
		if seen[c] {
			t.Fatalf("duplicate code %q in 100 draws", c)
		}
		seen[c] = true
	}
}

func TestTrackingNumberFormat(t *testing.T) {
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	tn := newTrackingNumber(at)
	if !strings.HasPrefix(tn, "TRK-") {
		t.Fatalf("tracking number %q missing prefix", tn)
	}
	if tn == newTrackingNumber(at) {
		t.Fatal("tracking numbers must differ across draws")
	}
}
