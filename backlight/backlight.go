// Package backlight reads and writes a display's backlight brightness
// through the X RandR output property interface.
package backlight

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
)

// Some errors.
var (
	ErrNoOutput    = errors.New("no output with a backlight property")
	ErrNoBacklight = errors.New("backlight property does not exist on this display")
	ErrBadRange    = errors.New("did not receive a proper backlight value range")
	ErrBadValue    = errors.New("did not receive a proper current backlight value")
)

// Device is an open connection to the X server bound to the first output
// carrying a backlight property. The valid range is queried once at open and
// immutable afterwards; the brightness register itself is shared with other
// processes, so each Get is a fresh snapshot and Set is last-writer-wins.
type Device struct {
	conn   *xgb.Conn
	output randr.Output
	prop   xproto.Atom

	min, max uint32
}

// Open connects to the X display (empty for $DISPLAY) and locates the
// backlight property. The modern property name is "Backlight"; "BACKLIGHT"
// is the legacy name still used by some drivers.
func Open(display string) (*Device, error) {
	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, err
	}
	d, err := open(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return d, nil
}

func open(conn *xgb.Conn) (*Device, error) {
	if err := randr.Init(conn); err != nil {
		return nil, err
	}
	root := xproto.Setup(conn).DefaultScreen(conn).Root

	prop, err := backlightAtom(conn)
	if err != nil {
		return nil, err
	}

	resources, err := randr.GetScreenResourcesCurrent(conn, root).Reply()
	if err != nil {
		return nil, fmt.Errorf("get screen resources: %w", err)
	}
	for _, output := range resources.Outputs {
		valid, err := randr.QueryOutputProperty(conn, output, prop).Reply()
		if err != nil {
			continue // output has no backlight property
		}
		if !valid.Range || len(valid.ValidValues) != 2 {
			return nil, ErrBadRange
		}
		lo, hi := valid.ValidValues[0], valid.ValidValues[1]
		if lo < 0 || hi <= lo {
			return nil, fmt.Errorf("%w: [%d, %d]", ErrBadRange, lo, hi)
		}
		return &Device{
			conn:   conn,
			output: output,
			prop:   prop,
			min:    uint32(lo),
			max:    uint32(hi),
		}, nil
	}
	return nil, ErrNoOutput
}

func backlightAtom(conn *xgb.Conn) (xproto.Atom, error) {
	for _, name := range []string{"Backlight", "BACKLIGHT"} {
		reply, err := xproto.InternAtom(conn, true, uint16(len(name)), name).Reply()
		if err != nil {
			return 0, fmt.Errorf("intern atom %s: %w", name, err)
		}
		if reply.Atom != xproto.AtomNone {
			return reply.Atom, nil
		}
	}
	return 0, ErrNoBacklight
}

// Range returns the device's valid raw brightness range.
func (d *Device) Range() (min, max uint32) {
	return d.min, d.max
}

// Get reads the current raw brightness value.
func (d *Device) Get() (uint32, error) {
	reply, err := randr.GetOutputProperty(d.conn, d.output, d.prop, xproto.AtomInteger, 0, 4, false, false).Reply()
	if err != nil {
		return 0, fmt.Errorf("get output property: %w", err)
	}
	if reply.Format != 32 || reply.NumItems != 1 || len(reply.Data) < 4 {
		return 0, ErrBadValue
	}
	return xgb.Get32(reply.Data), nil
}

// Set writes a raw brightness value, clamped to the device range. The mapper
// never sends an out-of-range value, but the device contract defends in
// depth anyway.
func (d *Device) Set(v uint32) error {
	if v < d.min {
		v = d.min
	}
	if v > d.max {
		v = d.max
	}
	data := make([]byte, 4)
	xgb.Put32(data, v)
	if err := randr.ChangeOutputPropertyChecked(
		d.conn, d.output, d.prop, xproto.AtomInteger,
		32, xproto.PropModeReplace, 1, data,
	).Check(); err != nil {
		return fmt.Errorf("change output property: %w", err)
	}
	return nil
}

// Close closes the X connection.
func (d *Device) Close() error {
	d.conn.Close()
	return nil
}
