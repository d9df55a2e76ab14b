package module

import (
	"strings"

	"github.com/rcraid-tools/rcraidctl/pkg/runner"
)

// DKMSState is the registration state reported by the external dkms tool.
type DKMSState struct {
	Registered bool
	// Entries are the raw dkms status lines for this module.
	Entries []string
}

// DKMSStatus queries `dkms status` for the module. A missing dkms binary or
// a failing query is reported as not registered, not as an error: the tool
// being absent is evidence the module is not DKMS-managed.
func (i Inspector) DKMSStatus() DKMSState {
	output, err := runner.New("dkms", "status", i.Name).Output()
	if err != nil {
		return DKMSState{}
	}
	return parseDKMSStatus(output, i.Name)
}

// parseDKMSStatus extracts the entries for the named module from dkms status
// output. Both the old ("rcraid, 9.3.0, ...") and the current
// ("rcraid/9.3.0, ...") line formats are recognized.
func parseDKMSStatus(output, name string) DKMSState {
	var state DKMSState
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, name+"/") || strings.HasPrefix(line, name+",") || strings.HasPrefix(line, name+" ") {
			state.Registered = true
			state.Entries = append(state.Entries, line)
		}
	}
	return state
}
