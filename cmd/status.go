package cmd

import (
	"os"

	"github.com/rcraid-tools/rcraidctl/action"
	"github.com/rcraid-tools/rcraidctl/phase"

	"github.com/urfave/cli/v2"
)

var statusCommand = &cli.Command{
	Name:  "status",
	Usage: "Show the patch and module state",
	Flags: []cli.Flag{
		configFlag,
		debugFlag,
		traceFlag,
	},
	Before: actions(initLogging, initConfig, initManager),
	Action: func(ctx *cli.Context) error {
		statusAction := action.Status{
			Manager: ctx.Context.Value(ctxManagerKey{}).(*phase.Manager),
			Out:     os.Stdout,
		}

		return statusAction.Run()
	},
}
