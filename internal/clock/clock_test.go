package clock

import (
	"testing"
	"time"
)

func TestRealClockIsUTC(t *testing.T) {
	t.Parallel()

	if loc := (RealClock{}).Now().Location(); loc != time.UTC {
		t.Errorf("expected UTC, got %v", loc)
	}
}

func TestFixed(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewFixed(start)

	if !c.Now().Equal(start) {
		t.Errorf("expected %v, got %v", start, c.Now())
	}

	c.Advance(time.Hour)
	if want := start.Add(time.Hour); !c.Now().Equal(want) {
		t.Errorf("expected %v, got %v", want, c.Now())
	}

	c.Set(start)
	if !c.Now().Equal(start) {
		t.Errorf("expected %v after Set, got %v", start, c.Now())
	}
}
