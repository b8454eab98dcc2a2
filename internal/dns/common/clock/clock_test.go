package clock

import (
	"sync"
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}

	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("clock time %v outside [%v, %v]", now, before, after)
	}
}

func TestMockClock_Now(t *testing.T) {
	fixed := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := NewMockClock(fixed)

	if !clock.Now().Equal(fixed) || !clock.Now().Equal(clock.Now()) {
		t.Errorf("expected frozen time %v, got %v", fixed, clock.Now())
	}
}

func TestMockClock_AdvanceAndSet(t *testing.T) {
	start := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	steps := []struct {
		name string
		d    time.Duration
		want time.Time
	}{
		{"one second", time.Second, start.Add(time.Second)},
		{"one more hour", time.Hour, start.Add(time.Hour + time.Second)},
		{"backwards", -time.Hour, start.Add(time.Second)},
		{"zero", 0, start.Add(time.Second)},
	}
	for _, s := range steps {
		t.Run(s.name, func(t *testing.T) {
			clock.Advance(s.d)
			if got := clock.Now(); !got.Equal(s.want) {
				t.Errorf("expected %v, got %v", s.want, got)
			}
		})
	}

	target := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	clock.Set(target)
	if got := clock.Now(); !got.Equal(target) {
		t.Errorf("Set: expected %v, got %v", target, got)
	}
}

func TestMockClock_ConcurrentUse(t *testing.T) {
	start := time.Unix(0, 0)
	clock := NewMockClock(start)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			clock.Advance(time.Second)
		}()
		go func() {
			defer wg.Done()
			_ = clock.Now()
		}()
	}
	wg.Wait()

	if got := clock.Now(); !got.Equal(start.Add(50 * time.Second)) {
		t.Errorf("expected 50s advance, got %v", got.Sub(start))
	}
}

var _ Clock = RealClock{}
var _ Clock = (*MockClock)(nil)
