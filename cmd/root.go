package cmd

import (
	"github.com/urfave/cli/v2"
)

// App is the main urfave/cli.App for rcraidctl
var App = &cli.App{
	Name:  "rcraidctl",
	Usage: "rcraid driver patch and install tool for enterprise linux",
	Flags: []cli.Flag{
		debugFlag,
		traceFlag,
	},
	Commands: []*cli.Command{
		versionCommand,
		applyCommand,
		patchCommand,
		statusCommand,
		restoreCommand,
		initCommand,
	},
}
