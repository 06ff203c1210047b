// Package ddc drives the brightness of a DDC/CI capable external monitor
// over an I2C bus. External monitors expose no RandR backlight property, so
// this is the accessor used when the user names an I2C bus explicitly. It
// presents the same surface as the RandR accessor: a fixed [0, max] range
// discovered at open, snapshot reads, and clamped writes.
package ddc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strconv"
	"syscall"
	"time"
)

const (
	ioctlI2CSlave = 0x0703
	addrDDC       = 0x37 // DDC-CI slave
	addrHost      = 0x51

	// Luminance VCP per VESA MCCS; carries both the current value and the
	// monitor's maximum in one reply.
	vcpBrightness = 0x10
)

// Some errors.
var (
	ErrDeviceGone  = syscall.Errno(syscall.EREMOTEIO)
	ErrChecksum    = errors.New("invalid ddc checksum")
	ErrBadReply    = errors.New("bad ddc reply")
	ErrNoReply     = errors.New("no ddc reply")
	ErrUnsupported = errors.New("monitor does not support the brightness vcp")
)

// Device is an open DDC/CI brightness control on /dev/i2c-N.
type Device struct {
	f    *os.File
	next time.Time
	max  uint32
}

// Open opens the I2C bus and reads the brightness VCP once to learn the
// monitor's value range.
func Open(bus int) (*Device, error) {
	f, err := os.OpenFile("/dev/i2c-"+strconv.Itoa(bus), os.O_RDWR, os.ModeDevice)
	if err != nil {
		return nil, err
	}
	if _, _, errno := syscall.Syscall(syscall.SYS_IOCTL, f.Fd(), ioctlI2CSlave, addrDDC); errno != 0 {
		f.Close()
		return nil, fmt.Errorf("failed to open address 0x%X on i2c bus %d: %w", addrDDC, bus, syscall.Errno(errno))
	}
	d := &Device{f: f}
	_, max, err := d.getVCP(vcpBrightness)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("query brightness range: %w", err)
	}
	d.max = uint32(max)
	return d, nil
}

// Range returns the monitor's valid raw brightness range.
func (d *Device) Range() (min, max uint32) {
	return 0, d.max
}

// Get reads the current raw brightness value.
func (d *Device) Get() (uint32, error) {
	val, _, err := d.getVCP(vcpBrightness)
	return uint32(val), err
}

// Set writes a raw brightness value, clamped to the monitor's range.
func (d *Device) Set(v uint32) error {
	if v > d.max {
		v = d.max
	}
	return d.setVCP(vcpBrightness, uint16(v))
}

// Close closes the bus.
func (d *Device) Close() error {
	return d.f.Close()
}

// getVCP gets the value and maximum of a uint16 VCP.
func (d *Device) getVCP(vcp byte) (uint16, uint16, error) {
	if err := d.tx([]byte{0x01, vcp}, time.Millisecond*40); err != nil {
		return 0, 0, err
	}
	for retry := 0; retry < 5; retry++ {
		buf, err := d.rx()
		if errors.Is(err, ErrNoReply) || (err == nil && len(buf) == 0) {
			d.next = time.Now().Add(time.Millisecond * 40)
			continue
		}
		if err != nil {
			return 0, 0, err
		}
		if len(buf) != 8 {
			return 0, 0, fmt.Errorf("%w: unexpected vcp response length %d", ErrBadReply, len(buf))
		}
		if reply := buf[0]; reply != 0x02 {
			return 0, 0, fmt.Errorf("%w: unexpected reply opcode %d", ErrBadReply, reply)
		}
		if result := buf[1]; result != 0x00 {
			if result == 0x01 {
				return 0, 0, ErrUnsupported
			}
			return 0, 0, fmt.Errorf("%w: unexpected reply result code %d", ErrBadReply, result)
		}
		if got := buf[2]; got != vcp {
			return 0, 0, fmt.Errorf("%w: reply for vcp 0x%02X, requested 0x%02X", ErrBadReply, got, vcp)
		}
		max := binary.BigEndian.Uint16(buf[4:6])
		val := binary.BigEndian.Uint16(buf[6:8])
		return val, max, nil
	}
	return 0, 0, ErrNoReply
}

// setVCP sets a uint16 VCP.
func (d *Device) setVCP(vcp byte, val uint16) error {
	// https://glenwing.github.io/docs/VESA-DDCCI-1.1.pdf page 20
	return d.tx([]byte{0x03, vcp, byte(val >> 8), byte(val)}, time.Millisecond*50)
}

func (d *Device) tx(cmd []byte, wait time.Duration) error {
	// commands must be spaced out or the monitor drops them
	d.wait()

	// header (excluding slave address)
	buf := append([]byte{
		addrHost,
		0x80 | byte(len(cmd)),
	}, cmd...)

	// checksum
	buf = append(buf, addrDDC<<1)
	for i, ck := 0, len(buf)-1; i < ck; i++ {
		buf[ck] ^= buf[i]
	}

	_, err := d.f.Write(buf)
	if err == nil {
		d.next = time.Now().Add(wait)
	}
	return err
}

func (d *Device) rx() ([]byte, error) {
	d.wait()

	hdr := make([]byte, 2)
	n, err := d.f.Read(hdr)
	if err == nil && n != len(hdr) {
		err = fmt.Errorf("short ddc header read, expected %d bytes, got %d", len(hdr), n)
	}
	if err != nil {
		return nil, err
	}

	var (
		hdrAddr = hdr[0] >> 1
		pktLen  = int(hdr[1] &^ 0x80)
	)
	if hdrAddr == 0 {
		return nil, ErrNoReply
	}
	if hdrAddr != addrDDC {
		return nil, fmt.Errorf("bad ddc source address 0x%X", hdrAddr)
	}
	if hdr[1]&0x80 == 0 {
		return nil, fmt.Errorf("bad ddc header length: flag 0x80 not set")
	}

	buf := make([]byte, pktLen+1)
	n, err = d.f.Read(buf)
	if err != nil && n != len(buf) {
		err = fmt.Errorf("short ddc payload read, expected %d bytes, got %d", len(buf), n)
	}
	if err != nil {
		return nil, err
	}

	// verify the checksum over the virtual host address, header, and payload
	buf[pktLen] ^= (addrHost - 1)
	for i := 0; i < len(hdr); i++ {
		buf[pktLen] ^= hdr[i]
	}
	for i := 0; i < pktLen; i++ {
		buf[pktLen] ^= buf[i]
	}
	if buf[pktLen] != 0 {
		return nil, ErrChecksum
	}
	return buf[:pktLen], nil
}

func (d *Device) wait() {
	if t := time.Now(); t.Before(d.next) {
		time.Sleep(d.next.Sub(t))
	}
}
