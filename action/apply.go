package action

import (
	"fmt"
	"time"

	"github.com/logrusorgru/aurora"
	"github.com/rcraid-tools/rcraidctl/phase"
	log "github.com/sirupsen/logrus"
)

// Apply runs the full pipeline: detect, patch, build, sign, enroll, install,
// dkms, load.
type Apply struct {
	// Manager is the phase manager
	Manager *phase.Manager
	// Force skips interactive confirmations
	Force bool
	// SkipLoad leaves the module unloaded after install
	SkipLoad bool
}

// Run the Apply action
func (a Apply) Run() error {
	start := time.Now()

	a.Manager.State.Force = a.Force

	a.Manager.AddPhase(
		&phase.DetectEnvironment{},
		&phase.LocateTargets{},
		&phase.GatherFacts{},
		&phase.ApplyPatches{},
		&phase.BuildModule{},
		&phase.SignModule{},
		&phase.EnrollCertificate{},
		&phase.InstallModule{},
		&phase.RegisterDKMS{},
	)
	if !a.SkipLoad {
		a.Manager.AddPhase(&phase.LoadModule{})
	}

	if err := a.Manager.Run(); err != nil {
		log.Infof(aurora.Red("==> Apply failed").String())
		return err
	}

	duration := time.Since(start).Truncate(time.Second)
	text := fmt.Sprintf("==> Finished in %s", duration)
	log.Infof(aurora.Green(text).String())

	name := a.Manager.State.Inspector.Name
	log.Infof("%s %s is ready for kernel %s", name, a.Manager.State.Config.Spec.SDK.Version, a.Manager.State.Environment.KernelRelease)

	return nil
}
