package action

import (
	"fmt"
	"io"
	"strings"

	"github.com/logrusorgru/aurora"
	"github.com/rcraid-tools/rcraidctl/phase"
)

// Status reports the current environment and module state without changing
// anything.
type Status struct {
	// Manager is the phase manager
	Manager *phase.Manager
	// Out receives the report
	Out io.Writer
}

// Run the Status action
func (s Status) Run() error {
	s.Manager.AddPhase(
		&phase.DetectEnvironment{},
		&phase.LocateTargets{},
		&phase.GatherFacts{},
	)

	if err := s.Manager.Run(); err != nil {
		return err
	}

	state := s.Manager.State
	env := state.Environment
	facts := state.Facts

	fmt.Fprintf(s.Out, "Environment:\n")
	fmt.Fprintf(s.Out, "  distribution:  %s (release %d)\n", env.Family, env.MajorVersion)
	fmt.Fprintf(s.Out, "  kernel:        %s (series %s)\n", env.KernelRelease, env.KernelSeries)
	if env.KernelSourceDir != "" {
		fmt.Fprintf(s.Out, "  kernel source: %s\n", env.KernelSourceDir)
	} else {
		fmt.Fprintf(s.Out, "  kernel source: %s\n", aurora.Yellow("not found"))
	}

	fmt.Fprintf(s.Out, "Sources:\n")
	if pending := state.Engine.Pending(env); len(pending) > 0 {
		fmt.Fprintf(s.Out, "  patches:       %s (%s)\n", aurora.Yellow("pending"), strings.Join(pending, ", "))
	} else {
		fmt.Fprintf(s.Out, "  patches:       %s\n", aurora.Green("applied"))
	}

	fmt.Fprintf(s.Out, "Module %s:\n", state.Inspector.Name)
	switch {
	case facts.Installed == nil:
		fmt.Fprintf(s.Out, "  installed:     %s\n", aurora.Yellow("no"))
	case facts.Installed.Exact():
		fmt.Fprintf(s.Out, "  installed:     %s (%s)\n", aurora.Green("yes"), facts.Installed.Path)
	default:
		fmt.Fprintf(s.Out, "  installed:     %s (%s -> %s)\n", aurora.Yellow("compatible, not exact"), facts.Installed.Path, facts.Installed.ResolvedPath)
	}
	if facts.Installed != nil {
		fmt.Fprintf(s.Out, "  signed:        %s\n", yesno(facts.InstalledSigned))
	}
	fmt.Fprintf(s.Out, "  loaded:        %s\n", yesno(facts.Loaded))
	fmt.Fprintf(s.Out, "  dkms:          %s\n", yesno(facts.DKMS.Registered))
	for _, entry := range facts.DKMS.Entries {
		fmt.Fprintf(s.Out, "                 %s\n", entry)
	}
	fmt.Fprintf(s.Out, "  secure boot:   %s\n", yesno(facts.SecureBoot))

	return nil
}

func yesno(b bool) string {
	if b {
		return aurora.Green("yes").String()
	}
	return "no"
}
