package action

import (
	"fmt"
	"io"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/mattn/go-isatty"
	"github.com/rcraid-tools/rcraidctl/phase"
)

// Restore puts the original SDK sources back from the backups.
type Restore struct {
	// Manager is the phase manager
	Manager *phase.Manager
	Stdout  io.Writer
	Force   bool
}

// Run the Restore action
func (r Restore) Run() error {
	if !r.Force {
		if stdoutFile, ok := r.Stdout.(*os.File); ok && !isatty.IsTerminal(stdoutFile.Fd()) {
			return fmt.Errorf("restore requires --force")
		}
		confirmed := false
		prompt := &survey.Confirm{
			Message: "Going to overwrite the patched SDK sources with the pristine backups, are you sure?",
		}
		_ = survey.AskOne(prompt, &confirmed)
		if !confirmed {
			return fmt.Errorf("confirmation or --force required to proceed")
		}
	}

	r.Manager.AddPhase(
		&phase.LocateTargets{},
		&phase.RestoreSources{},
	)

	return r.Manager.Run()
}
