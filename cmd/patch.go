package cmd

import (
	"github.com/rcraid-tools/rcraidctl/action"
	"github.com/rcraid-tools/rcraidctl/phase"

	"github.com/urfave/cli/v2"
)

var patchCommand = &cli.Command{
	Name:  "patch",
	Usage: "Patch the driver SDK sources without building",
	Flags: []cli.Flag{
		configFlag,
		debugFlag,
		traceFlag,
	},
	Before: actions(initLogging, initConfig, initManager),
	Action: func(ctx *cli.Context) error {
		patchAction := action.Patch{
			Manager: ctx.Context.Value(ctxManagerKey{}).(*phase.Manager),
		}

		return patchAction.Run()
	},
}
