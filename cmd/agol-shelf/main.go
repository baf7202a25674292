// agol-shelf - publish and audit SGID layers in ArcGIS Online
package main

import (
	"os"

	"github.com/agrc/agol-shelf/internal/cli"
)

// Version information
var (
	Version   = "v1.2.0"
	BuildTime = "2026-08-31"
)

func main() {
	cli.Version = Version
	cli.BuildTime = BuildTime

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
