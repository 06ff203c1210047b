// Package scale converts between raw backlight values and the numeric scale
// the user works in. All conversions are pure integer math: values are
// widened to 64 bits before multiplying so a large device range cannot
// overflow, and divisions round half-up so step boundaries are deterministic
// and reversible as closely as integer math allows.
package scale

import (
	"errors"
	"fmt"
	"strconv"
)

// Some errors.
var (
	ErrZeroSteps   = errors.New("step mode requires at least one step")
	ErrZeroRange   = errors.New("device reports a zero brightness range")
	ErrUnknownKind = errors.New("unknown mode")
)

// Kind selects the scale used to present raw backlight values.
type Kind int

const (
	// Absolute presents the raw device value unchanged.
	Absolute Kind = iota

	// Relative presents the value as a percentage in [0, 100].
	Relative

	// Step presents the value in [0, steps] for a user-chosen step count.
	Step
)

func (k Kind) String() string {
	switch k {
	case Absolute:
		return "absolute"
	case Relative:
		return "relative"
	case Step:
		return "step"
	default:
		return strconv.Itoa(int(k))
	}
}

// ParseKind maps a mode word from the command line to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "absolute":
		return Absolute, nil
	case "relative":
		return Relative, nil
	case "step":
		return Step, nil
	default:
		return 0, fmt.Errorf("%w %q", ErrUnknownKind, s)
	}
}

// Mode pairs a Kind with its parameters. The zero Mode is Absolute.
type Mode struct {
	kind  Kind
	steps uint32
}

// AbsoluteMode returns the identity mode.
func AbsoluteMode() Mode {
	return Mode{kind: Absolute}
}

// RelativeMode returns the fixed [0, 100] percentage mode.
func RelativeMode() Mode {
	return Mode{kind: Relative}
}

// StepMode returns the [0, steps] mode. A step count of zero is a
// configuration error, not a default.
func StepMode(steps uint32) (Mode, error) {
	if steps == 0 {
		return Mode{}, ErrZeroSteps
	}
	return Mode{kind: Step, steps: steps}, nil
}

// Kind returns the mode's scale kind.
func (m Mode) Kind() Kind {
	return m.kind
}

// Mapper converts between raw device values in [0, deviceMax] and mapped
// values in [0, Max()] for a fixed mode. Out-of-range inputs clamp rather
// than error; the device range is read once and immutable for the process
// lifetime.
type Mapper struct {
	mode      Mode
	deviceMax uint32
}

// NewMapper builds a mapper for the mode over the device range [0,
// deviceMax]. A zero deviceMax would make every conversion divide by zero,
// so it is rejected up front.
func NewMapper(mode Mode, deviceMax uint32) (*Mapper, error) {
	if deviceMax == 0 {
		return nil, ErrZeroRange
	}
	return &Mapper{mode: mode, deviceMax: deviceMax}, nil
}

// Min returns the smallest mapped value, which is zero in every mode.
func (m *Mapper) Min() uint32 {
	return 0
}

// Max returns the largest mapped value: the device maximum for Absolute, 100
// for Relative, and the step count for Step.
func (m *Mapper) Max() uint32 {
	switch m.mode.kind {
	case Relative:
		return 100
	case Step:
		return m.mode.steps
	default:
		return m.deviceMax
	}
}

// ToMapped converts a raw device value to the mode's scale.
func (m *Mapper) ToMapped(raw uint32) uint32 {
	if raw > m.deviceMax {
		raw = m.deviceMax
	}
	if m.mode.kind == Absolute {
		return raw
	}
	return roundDiv(uint64(raw)*uint64(m.Max()), uint64(m.deviceMax))
}

// ToRaw converts a mapped value back to a raw device value, clamping the
// result to [0, deviceMax]. Clamping here is the defined behavior for
// out-of-range requests, not a silent accident.
func (m *Mapper) ToRaw(mapped uint32) uint32 {
	if m.mode.kind == Absolute {
		return min(mapped, m.deviceMax)
	}
	raw := roundDiv(uint64(mapped)*uint64(m.deviceMax), uint64(m.Max()))
	return min(raw, m.deviceMax)
}

// Set clamps target to [0, Max()] and returns the corresponding raw value.
func (m *Mapper) Set(target uint32) uint32 {
	return m.ToRaw(min(target, m.Max()))
}

// Increment adds delta to the current value in the mapped scale, clamps to
// [0, Max()], and converts back to a raw value.
func (m *Mapper) Increment(raw uint32, delta uint32) uint32 {
	return m.adjust(raw, int64(delta))
}

// Decrement subtracts delta from the current value in the mapped scale,
// clamps to [0, Max()], and converts back to a raw value.
func (m *Mapper) Decrement(raw uint32, delta uint32) uint32 {
	return m.adjust(raw, -int64(delta))
}

func (m *Mapper) adjust(raw uint32, delta int64) uint32 {
	mapped := int64(m.ToMapped(raw)) + delta
	if mapped < 0 {
		mapped = 0
	}
	if mx := int64(m.Max()); mapped > mx {
		mapped = mx
	}
	return m.ToRaw(uint32(mapped))
}

// roundDiv divides a by b, rounding half-up. Both inputs are products or
// values of 32-bit operands, so a + b/2 cannot overflow.
func roundDiv(a, b uint64) uint32 {
	return uint32((a + b/2) / b)
}
