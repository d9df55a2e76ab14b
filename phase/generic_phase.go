package phase

// GenericPhase is a basic phase which gets the state via prepare, sets it into p.State
type GenericPhase struct {
	State *State
}

// Prepare the phase
func (p *GenericPhase) Prepare(s *State) error {
	p.State = s
	return nil
}

// ShouldRun is true by default
func (p *GenericPhase) ShouldRun() bool {
	return true
}
