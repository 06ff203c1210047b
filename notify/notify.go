// Package notify shows the brightness change popup through the freedesktop
// Notifications service on the session bus. The popup always carries the
// relative percentage of the new value so it reads the same no matter which
// scale the user is working in, and it reuses a fixed notification identity
// so a new change replaces the previous popup instead of stacking.
package notify

import (
	"fmt"
	"time"

	desktop "github.com/esiqveland/notify"
	"github.com/godbus/dbus/v5"
)

// replacesID is the fixed notification identity. Notification servers treat
// an unknown ID as "create", and subsequent sends with the same ID as
// "update in place".
const replacesID uint32 = 0x6C75

const (
	iconHigh = "display-brightness-high-symbolic"
	iconLow  = "display-brightness-low-symbolic"
)

// IconFor selects the icon for a relative percentage; 50 and below is the
// low icon.
func IconFor(percent uint32) string {
	if percent > 50 {
		return iconHigh
	}
	return iconLow
}

// Notifier sends brightness popups over an open session bus connection.
type Notifier struct {
	conn *dbus.Conn
}

// New connects to the session bus.
func New() (*Notifier, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect to session bus: %w", err)
	}
	return &Notifier{conn: conn}, nil
}

// Show sends or updates the brightness popup. The value hint lets servers
// that support it render the percentage as a progress bar.
func (n *Notifier) Show(title string, percent uint32) error {
	_, err := desktop.SendNotification(n.conn, desktop.Notification{
		AppName:    "luxctl",
		ReplacesID: replacesID,
		AppIcon:    IconFor(percent),
		Summary:    title,
		Body:       fmt.Sprintf("%d%%", percent),
		Hints: map[string]dbus.Variant{
			"value": dbus.MakeVariant(int32(percent)),
		},
		ExpireTimeout: 2 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}

// Close closes the bus connection.
func (n *Notifier) Close() error {
	return n.conn.Close()
}
