package phase

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rcraid-tools/rcraidctl/pkg/runner"
	log "github.com/sirupsen/logrus"
)

// BuildModule compiles the patched SDK tree against the running kernel's
// build tree. The compiler toolchain is an external collaborator; only the
// exit code and the presence of the artifact are checked.
type BuildModule struct {
	GenericPhase
}

// Title for the phase
func (p *BuildModule) Title() string {
	return "Build kernel module"
}

// Prepare the phase
func (p *BuildModule) Prepare(s *State) error {
	p.State = s
	if s.Environment.KernelSourceDir == "" {
		return fmt.Errorf("no kernel source tree for %s - install the kernel-devel package for the running kernel", s.Environment.KernelRelease)
	}
	return nil
}

// Run the phase
func (p *BuildModule) Run() error {
	sdk := p.State.Config.Spec.SDK.Path

	cmd, err := p.buildCommand()
	if err != nil {
		return err
	}

	log.Infof("building %s against %s", p.State.Inspector.Name, p.State.Environment.KernelSourceDir)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	artifact := filepath.Join(sdk, p.State.Inspector.Name+".ko")
	if _, err := os.Stat(artifact); err != nil {
		return fmt.Errorf("build reported success but %s does not exist", artifact)
	}

	p.State.Facts.BuiltPath = artifact
	log.Infof("built %s", artifact)
	return nil
}

func (p *BuildModule) buildCommand() (*runner.Command, error) {
	spec := p.State.Config.Spec

	if override := spec.Build.Command; override != "" {
		cmd, err := runner.FromString(override)
		if err != nil {
			return nil, fmt.Errorf("invalid build command override: %w", err)
		}
		cmd.Dir = spec.SDK.Path
		return cmd, nil
	}

	cmd := runner.New("make", "-C", p.State.Environment.KernelSourceDir, "M="+spec.SDK.Path, "modules")
	return cmd, nil
}
