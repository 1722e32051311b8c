// Command noise-monitor runs the microphone noise monitor.
package main

import "github.com/oshokin/noise-monitor/cmd/noise-monitor/cmd"

func main() {
	cmd.Execute()
}
