package session

// Phase is one state of the per-item cycle
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhasePrompt      Phase = "prompt"
	PhaseCountdown   Phase = "countdown"
	PhaseReveal      Phase = "reveal"
	PhaseAdvanceWait Phase = "advance_wait"
	PhaseComplete    Phase = "complete"
	PhaseAborted     Phase = "aborted"
)

// Terminal reports whether the session has ended
func (p Phase) Terminal() bool {
	return p == PhaseComplete || p == PhaseAborted
}

type event int

const (
	evStart event = iota
	evPromptDone
	evTick
	evRevealDue
	evAdvanceDue
	evPause
	evResume
	evNext
	evPrevious
	evAbort
)

// scheduled events come from timers or speech, never from the user
func (e event) scheduled() bool {
	switch e {
	case evPromptDone, evTick, evRevealDue, evAdvanceDue:
		return true
	default:
		return false
	}
}

type transitionKey struct {
	phase Phase
	ev    event
}

// transitions maps each (phase, event) pair to its handler; anything
// missing from the table is ignored.
var transitions map[transitionKey]func(*Sequencer)

func init() {
	transitions = buildTransitions()
}

func buildTransitions() map[transitionKey]func(*Sequencer) {
	t := map[transitionKey]func(*Sequencer){
		{PhaseIdle, evStart}:             (*Sequencer).begin,
		{PhaseIdle, evAbort}:             (*Sequencer).abort,
		{PhasePrompt, evPromptDone}:      (*Sequencer).enterCountdown,
		{PhaseCountdown, evTick}:         (*Sequencer).tick,
		{PhaseCountdown, evRevealDue}:    (*Sequencer).enterReveal,
		{PhaseAdvanceWait, evAdvanceDue}: (*Sequencer).advanceItem,
	}

	active := []Phase{PhasePrompt, PhaseCountdown, PhaseReveal, PhaseAdvanceWait}
	for _, p := range active {
		t[transitionKey{p, evPause}] = (*Sequencer).pause
		t[transitionKey{p, evResume}] = (*Sequencer).resume
		t[transitionKey{p, evNext}] = (*Sequencer).next
		t[transitionKey{p, evPrevious}] = (*Sequencer).previous
		t[transitionKey{p, evAbort}] = (*Sequencer).abort
	}
	return t
}
