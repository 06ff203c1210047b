// Command luxctl controls display backlight brightness from the command
// line, presenting the device's raw value as an absolute number, a
// percentage, or a configurable step count.
package main

import "luxctl/cli"

func main() {
	cli.Execute()
}
