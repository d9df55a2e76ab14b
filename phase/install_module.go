package phase

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rcraid-tools/rcraidctl/pkg/runner"
	log "github.com/sirupsen/logrus"
)

// InstallModule copies the built artifact into the running kernel's extra
// tree and refreshes the module dependency index. When DKMS is enabled the
// phase steps aside: dkms install places the module itself.
type InstallModule struct {
	GenericPhase
}

// Title for the phase
func (p *InstallModule) Title() string {
	return "Install kernel module"
}

// ShouldRun is true for manual installs with a built artifact
func (p *InstallModule) ShouldRun() bool {
	if p.State.Config.Spec.DKMS.IsEnabled() {
		log.Debugf("dkms manages installation, skipping manual install")
		return false
	}
	return p.State.Facts.BuiltPath != ""
}

// Run the phase
func (p *InstallModule) Run() error {
	src := p.State.Facts.BuiltPath
	destDir := filepath.Join("/lib/modules", p.State.Environment.KernelRelease, "extra")
	dest := filepath.Join(destDir, filepath.Base(src))

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", destDir, err)
	}
	if err := copyFile(src, dest); err != nil {
		return err
	}
	log.Infof("installed %s", dest)

	if err := runner.New("depmod", "-a", p.State.Environment.KernelRelease).Run(); err != nil {
		return fmt.Errorf("depmod failed: %w", err)
	}

	p.State.Facts.Installed = p.State.Inspector.FindInstalled(p.State.Environment.KernelRelease)
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s to %s: %w", src, dest, err)
	}
	return out.Close()
}
