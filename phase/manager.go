package phase

import (
	"github.com/logrusorgru/aurora"
	"github.com/rcraid-tools/rcraidctl/config"
	"github.com/rcraid-tools/rcraidctl/pkg/module"
	"github.com/rcraid-tools/rcraidctl/pkg/patch"
	"github.com/rcraid-tools/rcraidctl/pkg/sysinfo"
	log "github.com/sirupsen/logrus"
)

// Facts is the module state gathered and updated as the pipeline progresses.
// It is recomputed evidence, never persisted.
type Facts struct {
	// BuiltPath is the freshly compiled module artifact, empty before build.
	BuiltPath string
	// BuiltSigned is true when the built artifact carries a signature.
	BuiltSigned bool
	// Installed is the discovered install location, nil when not installed.
	Installed *module.Location
	// InstalledSigned is true when the installed artifact carries a signature.
	InstalledSigned bool
	// Loaded is true when the module is in the running kernel.
	Loaded bool
	// DKMS is the registration state reported by dkms.
	DKMS module.DKMSState
	// SecureBoot is true when the firmware enforces Secure Boot.
	SecureBoot bool
	// CertEnrolled is true when the signing certificate is MOK-enrolled.
	CertEnrolled bool
}

// State is the shared pipeline state handed to every phase. Everything a
// phase needs travels here explicitly; there are no package globals.
type State struct {
	Config      *config.Config
	Environment *sysinfo.Environment
	Engine      *patch.Engine
	Inspector   module.Inspector
	Facts       Facts
	// Force skips interactive confirmations.
	Force bool
}

type phase interface {
	Run() error
	Title() string
	Prepare(*State) error
	ShouldRun() bool
}

type beforehook interface {
	Before() error
}

type afterhook interface {
	After(err error) error
}

// Manager executes phases to work the driver pipeline
type Manager struct {
	phases []phase
	State  *State
}

// AddPhase adds a Phase to Manager
func (m *Manager) AddPhase(p ...phase) {
	m.phases = append(m.phases, p...)
}

// Run executes all the added Phases in order
func (m *Manager) Run() error {
	for _, p := range m.phases {
		log.Debugf("preparing phase '%s'", p.Title())
		if err := p.Prepare(m.State); err != nil {
			return err
		}

		if !p.ShouldRun() {
			log.Debugf("skipping phase '%s'", p.Title())
			continue
		}

		if h, ok := p.(beforehook); ok {
			if err := h.Before(); err != nil {
				return err
			}
		}

		text := aurora.Green("==> Running phase: %s").String()
		log.Infof(text, p.Title())
		err := p.Run()

		if h, ok := p.(afterhook); ok {
			if aerr := h.After(err); aerr != nil {
				return aerr
			}
		}

		if err != nil {
			return err
		}
	}

	return nil
}
