package phase

import (
	"github.com/rcraid-tools/rcraidctl/pkg/sysinfo"
	log "github.com/sirupsen/logrus"
)

// DetectEnvironment performs OS and kernel detection
type DetectEnvironment struct {
	GenericPhase

	// Detector can be overridden in tests, the zero value probes the live system.
	Detector sysinfo.Detector
}

// Title for the phase
func (p *DetectEnvironment) Title() string {
	return "Detect environment"
}

// Run the phase
func (p *DetectEnvironment) Run() error {
	env := p.Detector.Detect()
	p.State.Environment = env

	log.Infof("running on %s", env)
	if env.Family == sysinfo.FamilyUnknown {
		log.Warnf("unrecognized distribution, proceeding with the enterprise linux %d patch set", env.MajorVersion)
	}
	if env.KernelSourceDir == "" {
		log.Warnf("no kernel source tree found for %s, building will not be possible", env.KernelRelease)
	} else {
		log.Infof("kernel source tree: %s", env.KernelSourceDir)
	}

	return nil
}
