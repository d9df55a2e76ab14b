package phase

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rcraid-tools/rcraidctl/pkg/module"
	"github.com/rcraid-tools/rcraidctl/pkg/runner"
	log "github.com/sirupsen/logrus"
)

// SignModule signs the built artifact using the SDK's signing helper script
// (patched by the common transformation set) or a configured override. The
// signing tool itself is a black box; success is verified by scanning the
// artifact for the signature trailer afterwards.
type SignModule struct {
	GenericPhase
}

// Title for the phase
func (p *SignModule) Title() string {
	return "Sign kernel module"
}

// ShouldRun is true when signing is configured and something was built
func (p *SignModule) ShouldRun() bool {
	if !p.State.Config.Spec.Signing.Enabled() {
		log.Debugf("signing not configured, skipping")
		return false
	}
	return p.State.Facts.BuiltPath != ""
}

// Run the phase
func (p *SignModule) Run() error {
	signing := p.State.Config.Spec.Signing

	cmd, err := p.signCommand()
	if err != nil {
		return err
	}

	log.Infof("signing %s with %s", p.State.Facts.BuiltPath, signing.Certificate)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("signing failed: %w", err)
	}

	// the helper compresses the module after signing
	if compressed := p.State.Facts.BuiltPath + ".xz"; exists(compressed) {
		p.State.Facts.BuiltPath = compressed
	}

	signed, err := module.Signed(p.State.Facts.BuiltPath)
	if err != nil {
		return fmt.Errorf("could not verify signature on %s: %w", p.State.Facts.BuiltPath, err)
	}
	if !signed {
		return fmt.Errorf("signing tool succeeded but %s carries no signature trailer", p.State.Facts.BuiltPath)
	}

	p.State.Facts.BuiltSigned = true
	log.Infof("%s is signed", p.State.Facts.BuiltPath)
	return nil
}

func (p *SignModule) signCommand() (*runner.Command, error) {
	spec := p.State.Config.Spec

	if override := spec.Build.SignCommand; override != "" {
		cmd, err := runner.FromString(override)
		if err != nil {
			return nil, fmt.Errorf("invalid sign command override: %w", err)
		}
		cmd.Dir = spec.SDK.Path
		return cmd, nil
	}

	helper := filepath.Join(spec.SDK.Path, "sign_driver.sh")
	cmd := runner.New("sh", helper)
	cmd.Dir = spec.SDK.Path
	cmd.Env = []string{
		"KEY=" + spec.Signing.PrivateKey,
		"CERT=" + spec.Signing.Certificate,
	}
	return cmd, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
