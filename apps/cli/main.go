package main

import (
	"github.com/abdul-hamid-achik/partest/apps/cli/cmd"

	// Registers the demonstration suite
	_ "github.com/abdul-hamid-achik/partest/packages/selftest"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	cmd.Execute(version, buildTime)
}
