package zkelection

type ElectionState int

const (
	ElectionStateStart ElectionState = iota
	ElectionStateOffer
	ElectionStateDetermine
	ElectionStateElected
	ElectionStateReady
	ElectionStateSuspended
	ElectionStateFailed
	ElectionStateStop
)

var electionStateNames = [...]string{
	ElectionStateStart:     "start",
	ElectionStateOffer:     "offer",
	ElectionStateDetermine: "determine",
	ElectionStateElected:   "elected",
	ElectionStateReady:     "ready",
	ElectionStateSuspended: "suspended",
	ElectionStateFailed:    "failed",
	ElectionStateStop:      "stop",
}

func (s ElectionState) String() string {
	if s >= 0 && int(s) < len(electionStateNames) {
		return electionStateNames[s]
	}
	return "invalid"
}
