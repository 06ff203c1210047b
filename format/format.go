// Package format expands user-supplied output templates against the current,
// minimum, and maximum brightness values of the active scale.
package format

import (
	"strconv"
	"strings"
)

// Default is the template used when the user supplies none; it matches the
// historical single-value "get" output.
const Default = "%val"

type placeholder int

const (
	phNone placeholder = iota
	phVal
	phMin
	phMax
)

type segment struct {
	lit string
	ph  placeholder
}

// Template is a parsed output template. The recognized tokens are %val, %min,
// and %max; %% yields a literal percent sign. The syntax is deliberately
// lenient since templates are user-supplied and low-risk: any other
// %-prefixed sequence passes through unchanged.
type Template struct {
	segs []segment
}

// Parse scans the template once, left to right. It never fails.
func Parse(s string) Template {
	var (
		segs []segment
		lit  strings.Builder
	)
	for len(s) > 0 {
		i := strings.IndexByte(s, '%')
		if i < 0 {
			lit.WriteString(s)
			break
		}
		lit.WriteString(s[:i])
		s = s[i:]
		switch {
		case strings.HasPrefix(s, "%%"):
			lit.WriteByte('%')
			s = s[2:]
		case strings.HasPrefix(s, "%val"):
			segs = append(segs, segment{lit: lit.String(), ph: phVal})
			lit.Reset()
			s = s[4:]
		case strings.HasPrefix(s, "%min"):
			segs = append(segs, segment{lit: lit.String(), ph: phMin})
			lit.Reset()
			s = s[4:]
		case strings.HasPrefix(s, "%max"):
			segs = append(segs, segment{lit: lit.String(), ph: phMax})
			lit.Reset()
			s = s[4:]
		case len(s) >= 2:
			// unrecognized sequence, keep both characters
			lit.WriteString(s[:2])
			s = s[2:]
		default:
			// trailing lone percent
			lit.WriteByte('%')
			s = s[1:]
		}
	}
	if lit.Len() > 0 {
		segs = append(segs, segment{lit: lit.String()})
	}
	return Template{segs: segs}
}

// Render substitutes the placeholders in a single left-to-right pass.
func (t Template) Render(val, min, max uint32) string {
	var b strings.Builder
	for _, seg := range t.segs {
		b.WriteString(seg.lit)
		switch seg.ph {
		case phVal:
			b.WriteString(strconv.FormatUint(uint64(val), 10))
		case phMin:
			b.WriteString(strconv.FormatUint(uint64(min), 10))
		case phMax:
			b.WriteString(strconv.FormatUint(uint64(max), 10))
		}
	}
	return b.String()
}
