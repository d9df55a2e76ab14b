package phase

import (
	"context"
	"fmt"
	"time"

	"github.com/rcraid-tools/rcraidctl/pkg/retry"
	"github.com/rcraid-tools/rcraidctl/pkg/runner"
	log "github.com/sirupsen/logrus"
)

// LoadModule loads the installed module into the running kernel. modprobe
// can transiently fail right after install while depmod output settles, so
// the attempt is retried briefly.
type LoadModule struct {
	GenericPhase
}

// Title for the phase
func (p *LoadModule) Title() string {
	return "Load kernel module"
}

// ShouldRun is true when the module is installed but not loaded
func (p *LoadModule) ShouldRun() bool {
	if p.State.Facts.Loaded {
		log.Infof("%s is already loaded", p.State.Inspector.Name)
		return false
	}
	return p.State.Facts.Installed != nil
}

// Run the phase
func (p *LoadModule) Run() error {
	name := p.State.Inspector.Name

	err := retry.Timeout(context.Background(), 30*time.Second, func(_ context.Context) error {
		return runner.New("modprobe", name).Run()
	})
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", name, err)
	}

	if !p.State.Inspector.Loaded() {
		return fmt.Errorf("modprobe succeeded but %s is not in the running module list", name)
	}

	p.State.Facts.Loaded = true
	log.Infof("%s loaded", name)
	return nil
}
