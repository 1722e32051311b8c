// Command noise-monitorctl controls a running noise-monitor daemon.
package main

import "github.com/oshokin/noise-monitor/cmd/noise-monitorctl/cmd"

func main() {
	cmd.Execute()
}
