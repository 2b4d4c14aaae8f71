package model

// ChallengeState is the observed state of the challenge widget on a detail page.
//
// The state is never cached between checks: every transition is derived from
// the live page by reading the checkbox's aria-checked attribute.
type ChallengeState int

const (
	// ChallengeUnchallenged means the widget has not been acknowledged yet.
	ChallengeUnchallenged ChallengeState = iota

	// ChallengeAudioPending means the checkbox was clicked but is not checked,
	// so the audio puzzle has to be solved.
	ChallengeAudioPending

	// ChallengeSatisfied means the checkbox reports aria-checked="true".
	ChallengeSatisfied
)

// String returns a human-readable representation of the state.
func (s ChallengeState) String() string {
	switch s {
	case ChallengeUnchallenged:
		return "unchallenged"
	case ChallengeAudioPending:
		return "audio_pending"
	case ChallengeSatisfied:
		return "satisfied"
	default:
		return "unknown"
	}
}

// ChallengeStateFromAttr maps the aria-checked attribute value to a state.
// Only the literal "true" counts as satisfied.
func ChallengeStateFromAttr(value string) ChallengeState {
	if value == "true" {
		return ChallengeSatisfied
	}
	return ChallengeAudioPending
}

// ParseChallengeState is the inverse of ChallengeState.String.
// Unknown names map to ChallengeUnchallenged.
func ParseChallengeState(s string) ChallengeState {
	for st := ChallengeUnchallenged; st <= ChallengeSatisfied; st++ {
		if st.String() == s {
			return st
		}
	}
	return ChallengeUnchallenged
}
