package logic

// Toggle is the two-state LED machine. The zero value is OFF.
type Toggle struct {
	on bool
}

// Flip moves OFF->ON or ON->OFF and returns the new state.
func (t *Toggle) Flip() State {
	t.on = !t.on
	return t.State()
}

// State returns the current state.
func (t *Toggle) State() State {
	if t.on {
		return StateOn
	}
	return StateOff
}
