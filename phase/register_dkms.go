package phase

import (
	"fmt"
	"time"

	retry "github.com/avast/retry-go"
	"github.com/rcraid-tools/rcraidctl/pkg/runner"
	log "github.com/sirupsen/logrus"
)

// RegisterDKMS hands the patched SDK tree over to DKMS so the module gets
// rebuilt on kernel updates. dkms shares locks with the package manager, so
// the add step is retried for a while before giving up.
type RegisterDKMS struct {
	GenericPhase
}

// Title for the phase
func (p *RegisterDKMS) Title() string {
	return "Register with DKMS"
}

// ShouldRun is true when DKMS is enabled and the module is not yet registered
func (p *RegisterDKMS) ShouldRun() bool {
	if !p.State.Config.Spec.DKMS.IsEnabled() {
		return false
	}
	if p.State.Facts.DKMS.Registered {
		log.Infof("%s is already registered with dkms", p.State.Inspector.Name)
		return false
	}
	return true
}

// Run the phase
func (p *RegisterDKMS) Run() error {
	spec := p.State.Config.Spec
	nameVersion := fmt.Sprintf("%s/%s", p.State.Inspector.Name, spec.SDK.Version)

	err := retry.Do(
		func() error {
			return runner.New("dkms", "add", spec.SDK.Path).Run()
		},
		retry.OnRetry(func(n uint, err error) {
			log.Warnf("dkms add attempt %d failed: %s", n+1, err)
		}),
		retry.Delay(3*time.Second),
		retry.Attempts(5),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("dkms add failed: %w", err)
	}

	steps := [][]string{
		{"dkms", "build", nameVersion, "-k", p.State.Environment.KernelRelease},
		{"dkms", "install", nameVersion, "-k", p.State.Environment.KernelRelease},
	}
	for _, step := range steps {
		if err := runner.New(step[0], step[1:]...).Run(); err != nil {
			return err
		}
	}

	p.State.Facts.DKMS = p.State.Inspector.DKMSStatus()
	p.State.Facts.Installed = p.State.Inspector.FindInstalled(p.State.Environment.KernelRelease)
	log.Infof("%s registered with dkms", nameVersion)
	return nil
}
