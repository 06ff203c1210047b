// Package cli parses the command line into a single brightness action and
// drives the device accessor, value mapper, formatter, and notifier through
// one linear pass: resolve mode and action, open the device and read its
// range, compute, write if anything changed, render.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"luxctl/backlight"
	"luxctl/ddc"
	"luxctl/format"
	"luxctl/notify"
	"luxctl/scale"
)

// Some errors.
var (
	ErrConflictingActions = errors.New("exactly one of --get, --min, --max, --set, --inc, --dec may be given")
	ErrStepsRequired      = errors.New("step mode requires --steps")
)

// Device is the accessor contract shared by the RandR and DDC/CI backends.
// Values are raw, device-defined units; Set must clamp or reject values
// outside the device range.
type Device interface {
	Range() (min, max uint32)
	Get() (uint32, error)
	Set(uint32) error
	Close() error
}

type action int

const (
	actGet action = iota
	actMin
	actMax
	actSet
	actInc
	actDec
)

type options struct {
	kind     scale.Kind
	steps    uint32
	stepsSet bool

	action action
	amount uint32

	template      string
	notifications bool
	title         string

	display string
	i2cBus  int
}

// runtime carries the side-effecting collaborators so tests can substitute
// fakes for the X server and the session bus.
type runtime struct {
	open   func(options) (Device, error)
	notify func(title string, percent uint32) error
	stdout io.Writer
}

func defaultRuntime() runtime {
	return runtime{
		open: func(o options) (Device, error) {
			if o.i2cBus >= 0 {
				return ddc.Open(o.i2cBus)
			}
			return backlight.Open(o.display)
		},
		notify: func(title string, percent uint32) error {
			n, err := notify.New()
			if err != nil {
				return err
			}
			defer n.Close()
			return n.Show(title, percent)
		},
		stdout: os.Stdout,
	}
}

// Execute runs the root command, printing any fatal error once and exiting
// non-zero.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "luxctl:", friendly(err))
		os.Exit(1)
	}
}

// friendly rewords low-level device failures the user can act on.
func friendly(err error) error {
	if errors.Is(err, ddc.ErrDeviceGone) {
		return fmt.Errorf("monitor disconnected: %w", err)
	}
	return err
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "luxctl [absolute|relative|step]",
		Short:         "Control display backlight brightness",
		Long:          "luxctl reads and writes the display backlight through X RandR (or DDC/CI for external monitors), presenting the value as a raw number, a percentage, or a step count.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := gather(cmd, args)
			if err != nil {
				return err
			}
			return run(o, defaultRuntime())
		},
	}

	flags := cmd.Flags()
	flags.BoolP("get", "g", false, "print the current value in the active scale")
	flags.Bool("min", false, "print the smallest value of the active scale")
	flags.Bool("max", false, "print the largest value of the active scale")
	flags.Uint32P("set", "s", 0, "set the value in the active scale")
	flags.Uint32("inc", 0, "increase the value by an amount in the active scale")
	flags.Uint32("dec", 0, "decrease the value by an amount in the active scale")
	flags.Uint32("steps", 0, "number of steps for step mode")
	flags.String("pretty-format", "", "output template for --get (%val, %min, %max, %% for a literal %)")
	flags.BoolP("notifications", "n", false, "show a desktop popup when the value changes")
	flags.String("title", "Brightness", "popup title")
	flags.String("display", "", "X display to connect to (defaults to $DISPLAY)")
	flags.Int("i2c-bus", -1, "control an external monitor over DDC/CI on /dev/i2c-N instead of RandR")

	// flags win over the config file, which wins over built-in defaults
	for _, name := range []string{"steps", "pretty-format", "notifications", "title", "display", "i2c-bus"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
	cobra.OnInitialize(loadConfig)

	return cmd
}

func loadConfig() {
	viper.SetConfigName("luxctl")
	viper.SetConfigType("yaml")
	if dir, err := os.UserConfigDir(); err == nil {
		viper.AddConfigPath(filepath.Join(dir, "luxctl"))
	}
	viper.SetEnvPrefix("luxctl")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("failed to read config file", "error", err)
		}
	}
}

// gather resolves the mode word, the primary action, and the option values.
// Everything here happens before any device I/O.
func gather(cmd *cobra.Command, args []string) (options, error) {
	var o options

	o.kind = scale.Absolute
	if len(args) == 1 {
		kind, err := scale.ParseKind(args[0])
		if err != nil {
			return o, err
		}
		o.kind = kind
	}

	flags := cmd.Flags()
	o.action = actGet
	var n int
	for _, a := range []struct {
		name string
		act  action
	}{
		{"get", actGet},
		{"min", actMin},
		{"max", actMax},
		{"set", actSet},
		{"inc", actInc},
		{"dec", actDec},
	} {
		if !flags.Changed(a.name) {
			continue
		}
		if n++; n > 1 {
			return o, ErrConflictingActions
		}
		o.action = a.act
		switch a.act {
		case actSet, actInc, actDec:
			v, err := flags.GetUint32(a.name)
			if err != nil {
				return o, err
			}
			o.amount = v
		}
	}

	o.steps = viper.GetUint32("steps")
	o.stepsSet = flags.Changed("steps") || viper.IsSet("steps")
	o.template = viper.GetString("pretty-format")
	o.notifications = viper.GetBool("notifications")
	o.title = viper.GetString("title")
	o.display = viper.GetString("display")
	o.i2cBus = viper.GetInt("i2c-bus")

	return o, nil
}

func (o options) mode() (scale.Mode, error) {
	switch o.kind {
	case scale.Relative:
		return scale.RelativeMode(), nil
	case scale.Step:
		if !o.stepsSet {
			return scale.Mode{}, ErrStepsRequired
		}
		return scale.StepMode(o.steps)
	default:
		return scale.AbsoluteMode(), nil
	}
}

func run(o options, rt runtime) error {
	// configuration errors abort before any device I/O
	mode, err := o.mode()
	if err != nil {
		return err
	}
	tmpl := o.template
	if tmpl == "" {
		tmpl = format.Default
	}

	dev, err := rt.open(o)
	if err != nil {
		return err
	}
	defer dev.Close()

	_, devMax := dev.Range()
	mapper, err := scale.NewMapper(mode, devMax)
	if err != nil {
		return err
	}
	relative, err := scale.NewMapper(scale.RelativeMode(), devMax)
	if err != nil {
		return err
	}

	switch o.action {
	case actMin:
		fmt.Fprintln(rt.stdout, mapper.Min())
		return nil
	case actMax:
		fmt.Fprintln(rt.stdout, mapper.Max())
		return nil
	case actGet:
		cur, err := dev.Get()
		if err != nil {
			return err
		}
		fmt.Fprintln(rt.stdout, format.Parse(tmpl).Render(mapper.ToMapped(cur), mapper.Min(), mapper.Max()))
		return nil
	}

	cur, err := dev.Get()
	if err != nil {
		return err
	}
	var next uint32
	switch o.action {
	case actSet:
		next = mapper.Set(o.amount)
	case actInc:
		next = mapper.Increment(cur, o.amount)
	case actDec:
		next = mapper.Decrement(cur, o.amount)
	}
	if next == cur {
		return nil
	}
	if err := dev.Set(next); err != nil {
		return err
	}

	// the popup always reports the relative percentage, whatever the active
	// scale; a failed popup never reverses a committed brightness change
	if o.notifications {
		if err := rt.notify(o.title, relative.ToMapped(next)); err != nil {
			slog.Warn("failed to show notification", "error", err)
		}
	}
	return nil
}
