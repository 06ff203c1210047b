package notify

import "testing"

func TestIconFor(t *testing.T) {
	for _, tc := range []struct {
		percent uint32
		icon    string
	}{
		{0, iconLow},
		{49, iconLow},
		{50, iconLow}, // boundary maps to low
		{51, iconHigh},
		{100, iconHigh},
	} {
		if icon := IconFor(tc.percent); icon != tc.icon {
			t.Errorf("IconFor(%d) = %q, want %q", tc.percent, icon, tc.icon)
		}
	}
}
