package phase

import (
	log "github.com/sirupsen/logrus"
)

// RestoreSources copies the backups back over the SDK sources
type RestoreSources struct {
	GenericPhase
}

// Title for the phase
func (p *RestoreSources) Title() string {
	return "Restore SDK sources"
}

// ShouldRun is true when any target has a backup to restore from
func (p *RestoreSources) ShouldRun() bool {
	for _, t := range p.State.Engine.Targets() {
		if t.HasBackup() {
			return true
		}
	}
	log.Infof("no backups found, nothing to restore")
	return false
}

// Run the phase
func (p *RestoreSources) Run() error {
	return p.State.Engine.Restore()
}
