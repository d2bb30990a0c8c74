// gatekeeper — admission gate in front of a read-only parts catalog.
// Scripted clients are rejected at the door; browsers pass a telemetry
// challenge and receive a signed admission token.
package main

import "github.com/partsflow/gatekeeper/internal/cli"

func main() {
	cli.Execute()
}
