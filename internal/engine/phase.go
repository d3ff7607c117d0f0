package engine

// Phase is the step a pass is in.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseResolving
	PhaseLocked
	PhaseLoading
	PhaseRendering
	PhaseDiffing
	PhaseReporting
	PhaseWriting
	PhaseCommitting
	PhaseUnlocking
)

var phaseNames = [...]string{
	PhaseIdle:       "idle",
	PhaseResolving:  "resolving",
	PhaseLocked:     "locked",
	PhaseLoading:    "loading",
	PhaseRendering:  "rendering",
	PhaseDiffing:    "diffing",
	PhaseReporting:  "reporting",
	PhaseWriting:    "writing",
	PhaseCommitting: "committing",
	PhaseUnlocking:  "unlocking",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}
