package phase

import (
	"strings"

	"github.com/rcraid-tools/rcraidctl/pkg/module"
	"github.com/rcraid-tools/rcraidctl/pkg/runner"
	log "github.com/sirupsen/logrus"
)

// GatherFacts collects the current module state: installed location,
// signature, load state, DKMS registration and Secure Boot posture. All
// queries are read-only; missing evidence means "not done".
type GatherFacts struct {
	GenericPhase
}

// Title for the phase
func (p *GatherFacts) Title() string {
	return "Gather module facts"
}

// Run the phase
func (p *GatherFacts) Run() error {
	facts := &p.State.Facts
	env := p.State.Environment

	facts.Installed = p.State.Inspector.FindInstalled(env.KernelRelease)
	if facts.Installed == nil {
		log.Infof("%s is not installed for %s", p.State.Inspector.Name, env.KernelRelease)
	} else if facts.Installed.Exact() {
		log.Infof("%s installed at %s", p.State.Inspector.Name, facts.Installed.Path)
	} else {
		log.Infof("%s compatible via weak-modules link %s -> %s", p.State.Inspector.Name, facts.Installed.Path, facts.Installed.ResolvedPath)
	}

	if facts.Installed != nil {
		signed, err := module.Signed(facts.Installed.ResolvedPath)
		if err != nil {
			log.Debugf("could not inspect %s for a signature: %s", facts.Installed.ResolvedPath, err)
		}
		facts.InstalledSigned = signed
	}

	facts.Loaded = p.State.Inspector.Loaded()
	facts.DKMS = p.State.Inspector.DKMSStatus()
	facts.SecureBoot = secureBootEnabled()
	if p.State.Config.Spec.Signing.Enabled() {
		facts.CertEnrolled = certEnrolled(p.State.Config.Spec.Signing.Certificate)
	}

	log.Infof("loaded: %t, dkms registered: %t, secure boot: %t", facts.Loaded, facts.DKMS.Registered, facts.SecureBoot)
	return nil
}

// secureBootEnabled asks mokutil. A missing tool or a query failure counts
// as disabled.
func secureBootEnabled() bool {
	output, err := runner.New("mokutil", "--sb-state").Output()
	if err != nil {
		return false
	}
	return strings.Contains(output, "SecureBoot enabled")
}

// certEnrolled asks mokutil whether the certificate is already trusted.
func certEnrolled(certPath string) bool {
	output, err := runner.New("mokutil", "--test-key", certPath).Output()
	if err != nil {
		// mokutil exits non-zero for keys that are not enrolled on some
		// versions, the message is still decisive
		return strings.Contains(err.Error(), "is already enrolled")
	}
	return strings.Contains(output, "is already enrolled")
}
