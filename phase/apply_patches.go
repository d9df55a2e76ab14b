package phase

import (
	log "github.com/sirupsen/logrus"
)

// ApplyPatches runs the patch engine over the SDK sources
type ApplyPatches struct {
	GenericPhase
}

// Title for the phase
func (p *ApplyPatches) Title() string {
	return "Patch SDK sources"
}

// ShouldRun is false when every applicable transformation is already in place
func (p *ApplyPatches) ShouldRun() bool {
	if pending := p.State.Engine.Pending(p.State.Environment); len(pending) > 0 {
		log.Debugf("pending transformations: %v", pending)
		return true
	}
	log.Infof("sources are already fully patched")
	return false
}

// Run the phase
func (p *ApplyPatches) Run() error {
	report := p.State.Engine.Apply(p.State.Environment)

	for _, res := range report.Results {
		log.Debugf("%s: %s: %s", res.Target, res.Transformation, res.Outcome)
	}
	log.Infof("%d transformation(s) applied, %d already in place", report.Applied(), report.AlreadyApplied())

	return report.Err()
}
