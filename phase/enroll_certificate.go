package phase

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/mattn/go-isatty"
	"github.com/rcraid-tools/rcraidctl/pkg/runner"
	log "github.com/sirupsen/logrus"
)

// EnrollCertificate offers to enroll the signing certificate as a Machine
// Owner Key when Secure Boot is enabled and the certificate is not trusted
// yet. Enrollment itself is mokutil's business, including the password
// prompt and the reboot-time confirmation.
type EnrollCertificate struct {
	GenericPhase
}

// Title for the phase
func (p *EnrollCertificate) Title() string {
	return "Enroll signing certificate"
}

// ShouldRun is true when secure boot enforcement would reject the signed module
func (p *EnrollCertificate) ShouldRun() bool {
	signing := p.State.Config.Spec.Signing
	if !signing.Enabled() || !signing.ShouldEnroll() {
		return false
	}
	if !p.State.Facts.SecureBoot {
		log.Debugf("secure boot is not enabled, no enrollment needed")
		return false
	}
	if p.State.Facts.CertEnrolled {
		log.Debugf("certificate is already enrolled")
		return false
	}
	return true
}

// Run the phase
func (p *EnrollCertificate) Run() error {
	cert := p.State.Config.Spec.Signing.Certificate

	if !p.State.Force {
		if !isatty.IsTerminal(os.Stdout.Fd()) {
			return fmt.Errorf("certificate %s must be enrolled for secure boot, re-run with --force or enroll it manually with mokutil --import", cert)
		}
		confirmed := false
		prompt := &survey.Confirm{
			Message: "Secure Boot is enabled and the signing certificate is not enrolled. Import it as a Machine Owner Key now? (mokutil will ask for a one-time password, confirmed on next boot)",
		}
		_ = survey.AskOne(prompt, &confirmed)
		if !confirmed {
			return fmt.Errorf("enrollment declined - the signed module will not load under secure boot")
		}
	}

	if err := runner.New("mokutil", "--import", cert).RunInteractive(); err != nil {
		return fmt.Errorf("mokutil import failed: %w", err)
	}

	log.Infof("enrollment staged, complete it in the MOK manager on the next boot")
	return nil
}
