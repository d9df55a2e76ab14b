package phase

import (
	"fmt"
	"os"

	"github.com/rcraid-tools/rcraidctl/pkg/patch"
	log "github.com/sirupsen/logrus"
)

// LocateTargets verifies the SDK source tree and sets up the patch engine
type LocateTargets struct {
	GenericPhase
}

// Title for the phase
func (p *LocateTargets) Title() string {
	return "Locate SDK sources"
}

// Run the phase
func (p *LocateTargets) Run() error {
	dir := p.State.Config.Spec.SDK.Path
	stat, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("sdk directory %s: %w", dir, err)
	}
	if !stat.IsDir() {
		return fmt.Errorf("sdk path %s is not a directory", dir)
	}

	p.State.Engine = patch.NewEngine(dir)

	for _, t := range p.State.Engine.Targets() {
		if _, err := os.Stat(t.Path); err != nil {
			log.Warnf("expected sdk file %s is missing", t.Path)
			continue
		}
		if t.HasBackup() {
			log.Debugf("%s has a backup from an earlier run", t.Path)
		}
	}

	log.Infof("sdk source tree: %s", dir)
	return nil
}
