package scale

import (
	"errors"
	"testing"
)

func mustStep(t *testing.T, steps uint32) Mode {
	t.Helper()
	m, err := StepMode(steps)
	if err != nil {
		t.Fatalf("StepMode(%d): %v", steps, err)
	}
	return m
}

func mustMapper(t *testing.T, mode Mode, deviceMax uint32) *Mapper {
	t.Helper()
	m, err := NewMapper(mode, deviceMax)
	if err != nil {
		t.Fatalf("NewMapper(%v, %d): %v", mode.Kind(), deviceMax, err)
	}
	return m
}

func TestToMapped(t *testing.T) {
	for _, tc := range []struct {
		mode      Mode
		deviceMax uint32
		raw       uint32
		mapped    uint32
	}{
		{AbsoluteMode(), 1000, 0, 0},
		{AbsoluteMode(), 1000, 671, 671},
		{AbsoluteMode(), 1000, 1000, 1000},
		{RelativeMode(), 1000, 0, 0},
		{RelativeMode(), 1000, 500, 50},
		{RelativeMode(), 1000, 1000, 100},
		{RelativeMode(), 1000, 994, 99},
		{RelativeMode(), 1000, 995, 100}, // .5 rounds up
		{RelativeMode(), 200, 1, 1},      // .5 rounds up
		{RelativeMode(), 3, 1, 33},
		{RelativeMode(), 3, 2, 67},
		{mustStep(t, 10), 1000, 600, 6},
		{mustStep(t, 10), 1000, 649, 6},
		{mustStep(t, 10), 1000, 650, 7}, // .5 rounds up
		{mustStep(t, 20), 1000, 1000, 20},
		{mustStep(t, 1), 1000, 499, 0},
		{mustStep(t, 1), 1000, 500, 1},
		// out-of-range raw clamps first
		{RelativeMode(), 1000, 2000, 100},
		{AbsoluteMode(), 1000, 2000, 1000},
	} {
		m := mustMapper(t, tc.mode, tc.deviceMax)
		if got := m.ToMapped(tc.raw); got != tc.mapped {
			t.Errorf("%v/%d: ToMapped(%d) = %d, want %d", tc.mode.Kind(), tc.deviceMax, tc.raw, got, tc.mapped)
		}
	}
}

func TestToRaw(t *testing.T) {
	for _, tc := range []struct {
		mode      Mode
		deviceMax uint32
		mapped    uint32
		raw       uint32
	}{
		{AbsoluteMode(), 1000, 671, 671},
		{RelativeMode(), 1000, 50, 500},
		{RelativeMode(), 1000, 100, 1000},
		{RelativeMode(), 3, 33, 1},
		{RelativeMode(), 3, 50, 2}, // 1.5 rounds up
		{mustStep(t, 10), 1000, 6, 600},
		{mustStep(t, 3), 100, 1, 33},
		{mustStep(t, 3), 100, 2, 67},
		// out-of-range mapped values clamp to the device range
		{AbsoluteMode(), 1000, 4000, 1000},
		{RelativeMode(), 1000, 150, 1000},
		{mustStep(t, 10), 1000, 99, 1000},
	} {
		m := mustMapper(t, tc.mode, tc.deviceMax)
		if got := m.ToRaw(tc.mapped); got != tc.raw {
			t.Errorf("%v/%d: ToRaw(%d) = %d, want %d", tc.mode.Kind(), tc.deviceMax, tc.mapped, got, tc.raw)
		}
	}
}

// Round-tripping a mapped value through the raw domain must be exact, and
// round-tripping a raw value through the mapped domain must stay within the
// granularity of the coarser scale (exact when the scale divides evenly).
func TestRoundTrip(t *testing.T) {
	for _, deviceMax := range []uint32{7, 50, 100, 255, 937, 1000} {
		for _, mode := range []Mode{RelativeMode(), mustStep(t, 3), mustStep(t, 10), mustStep(t, 20), mustStep(t, 100)} {
			m := mustMapper(t, mode, deviceMax)

			// every mapped value survives the raw domain as long as the
			// scale is no finer than the device range
			if m.Max() <= deviceMax {
				for mapped := uint32(0); mapped <= m.Max(); mapped++ {
					if back := m.ToMapped(m.ToRaw(mapped)); back != mapped {
						t.Errorf("%v/%d: ToMapped(ToRaw(%d)) = %d", mode.Kind(), deviceMax, mapped, back)
					}
				}
			}

			// half a raw bucket per mapped unit, plus rounding
			tol := deviceMax/(2*m.Max()) + 1
			exact := m.Max()%deviceMax == 0
			for raw := uint32(0); raw <= deviceMax; raw++ {
				back := m.ToRaw(m.ToMapped(raw))
				diff := back - raw
				if back < raw {
					diff = raw - back
				}
				if diff > tol {
					t.Errorf("%v/%d: ToRaw(ToMapped(%d)) = %d, off by %d (tolerance %d)", mode.Kind(), deviceMax, raw, back, diff, tol)
				}
				if exact && diff != 0 {
					t.Errorf("%v/%d: ToRaw(ToMapped(%d)) = %d, want exact", mode.Kind(), deviceMax, raw, back)
				}
			}
		}
	}
}

func TestMonotonic(t *testing.T) {
	for _, deviceMax := range []uint32{7, 100, 1000} {
		for _, mode := range []Mode{AbsoluteMode(), RelativeMode(), mustStep(t, 5), mustStep(t, 16)} {
			m := mustMapper(t, mode, deviceMax)
			prev := m.ToMapped(0)
			for raw := uint32(1); raw <= deviceMax; raw++ {
				cur := m.ToMapped(raw)
				if cur < prev {
					t.Fatalf("%v/%d: ToMapped(%d) = %d < ToMapped(%d) = %d", mode.Kind(), deviceMax, raw, cur, raw-1, prev)
				}
				prev = cur
			}
		}
	}
}

func TestSetClamps(t *testing.T) {
	m := mustMapper(t, mustStep(t, 10), 1000)
	if got, want := m.Set(6), uint32(600); got != want {
		t.Errorf("Set(6) = %d, want %d", got, want)
	}
	// anything past Max() behaves like Max()
	if got, want := m.Set(11), m.Set(m.Max()); got != want {
		t.Errorf("Set(11) = %d, want %d", got, want)
	}
	if got, want := m.Set(^uint32(0)), uint32(1000); got != want {
		t.Errorf("Set(MaxUint32) = %d, want %d", got, want)
	}
}

func TestIncrementDecrement(t *testing.T) {
	for _, tc := range []struct {
		mode      Mode
		deviceMax uint32
		raw       uint32
		delta     uint32
		dec       bool
		want      uint32
	}{
		{mustStep(t, 10), 1000, 600, 1, false, 700},
		{mustStep(t, 10), 1000, 600, 1, true, 500},
		{mustStep(t, 20), 1000, 1000, 1, false, 1000}, // clamps at the top step
		{mustStep(t, 20), 1000, 0, 1, true, 0},        // and at the bottom
		{RelativeMode(), 1000, 500, 25, false, 750},
		{RelativeMode(), 1000, 500, 75, true, 0},
		{RelativeMode(), 1000, 500, 200, true, 0}, // underflow clamps to zero
		{AbsoluteMode(), 1000, 990, 100, false, 1000},
	} {
		m := mustMapper(t, tc.mode, tc.deviceMax)
		var got uint32
		if tc.dec {
			got = m.Decrement(tc.raw, tc.delta)
		} else {
			got = m.Increment(tc.raw, tc.delta)
		}
		if got != tc.want {
			t.Errorf("%v/%d: adjust(%d, %d, dec=%v) = %d, want %d", tc.mode.Kind(), tc.deviceMax, tc.raw, tc.delta, tc.dec, got, tc.want)
		}
	}
}

func TestBounds(t *testing.T) {
	for _, tc := range []struct {
		mode      Mode
		deviceMax uint32
		max       uint32
	}{
		{AbsoluteMode(), 937, 937},
		{RelativeMode(), 937, 100},
		{mustStep(t, 24), 937, 24},
	} {
		m := mustMapper(t, tc.mode, tc.deviceMax)
		if got := m.Min(); got != 0 {
			t.Errorf("%v: Min() = %d, want 0", tc.mode.Kind(), got)
		}
		if got := m.Max(); got != tc.max {
			t.Errorf("%v: Max() = %d, want %d", tc.mode.Kind(), got, tc.max)
		}
	}
}

func TestConstructionErrors(t *testing.T) {
	if _, err := StepMode(0); !errors.Is(err, ErrZeroSteps) {
		t.Errorf("StepMode(0) = %v, want ErrZeroSteps", err)
	}
	if _, err := NewMapper(RelativeMode(), 0); !errors.Is(err, ErrZeroRange) {
		t.Errorf("NewMapper(relative, 0) = %v, want ErrZeroRange", err)
	}
}

func TestParseKind(t *testing.T) {
	for _, tc := range []struct {
		s    string
		kind Kind
		ok   bool
	}{
		{"absolute", Absolute, true},
		{"relative", Relative, true},
		{"step", Step, true},
		{"Step", 0, false},
		{"", 0, false},
		{"percent", 0, false},
	} {
		kind, err := ParseKind(tc.s)
		if tc.ok != (err == nil) {
			t.Errorf("ParseKind(%q) error = %v", tc.s, err)
			continue
		}
		if tc.ok && kind != tc.kind {
			t.Errorf("ParseKind(%q) = %v, want %v", tc.s, kind, tc.kind)
		}
		if !tc.ok && !errors.Is(err, ErrUnknownKind) {
			t.Errorf("ParseKind(%q) = %v, want ErrUnknownKind", tc.s, err)
		}
	}
}
