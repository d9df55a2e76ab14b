package action

import (
	"fmt"
	"time"

	"github.com/logrusorgru/aurora"
	"github.com/rcraid-tools/rcraidctl/phase"
	log "github.com/sirupsen/logrus"
)

// Patch applies the source transformations without building or installing.
type Patch struct {
	// Manager is the phase manager
	Manager *phase.Manager
}

// Run the Patch action
func (p Patch) Run() error {
	start := time.Now()

	p.Manager.AddPhase(
		&phase.DetectEnvironment{},
		&phase.LocateTargets{},
		&phase.ApplyPatches{},
	)

	if err := p.Manager.Run(); err != nil {
		log.Infof(aurora.Red("==> Patching failed").String())
		return err
	}

	duration := time.Since(start).Truncate(time.Second)
	text := fmt.Sprintf("==> Finished in %s", duration)
	log.Infof(aurora.Green(text).String())

	return nil
}
