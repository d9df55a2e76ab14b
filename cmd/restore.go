package cmd

import (
	"os"

	"github.com/rcraid-tools/rcraidctl/action"
	"github.com/rcraid-tools/rcraidctl/phase"

	"github.com/urfave/cli/v2"
)

var restoreCommand = &cli.Command{
	Name:  "restore",
	Usage: "Restore the pristine SDK sources from backups",
	Flags: []cli.Flag{
		configFlag,
		forceFlag,
		debugFlag,
		traceFlag,
	},
	Before: actions(initLogging, initConfig, initManager),
	Action: func(ctx *cli.Context) error {
		restoreAction := action.Restore{
			Manager: ctx.Context.Value(ctxManagerKey{}).(*phase.Manager),
			Stdout:  os.Stdout,
			Force:   ctx.Bool("force"),
		}

		return restoreAction.Run()
	},
}
