package cmd

import (
	"github.com/rcraid-tools/rcraidctl/action"
	"github.com/rcraid-tools/rcraidctl/phase"

	"github.com/urfave/cli/v2"
)

var applyCommand = &cli.Command{
	Name:  "apply",
	Usage: "Patch, build, sign and install the driver module",
	Flags: []cli.Flag{
		configFlag,
		forceFlag,
		&cli.BoolFlag{
			Name:  "no-load",
			Usage: "Do not load the module after installing",
		},
		debugFlag,
		traceFlag,
	},
	Before: actions(initLogging, initConfig, initManager),
	Action: func(ctx *cli.Context) error {
		applyAction := action.Apply{
			Manager:  ctx.Context.Value(ctxManagerKey{}).(*phase.Manager),
			Force:    ctx.Bool("force"),
			SkipLoad: ctx.Bool("no-load"),
		}

		return applyAction.Run()
	},
}
