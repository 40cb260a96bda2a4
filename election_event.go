package zkelection

type ElectionEvent int

const (
	ElectionEventStart ElectionEvent = iota
	ElectionEventOfferStart
	ElectionEventOfferComplete
	ElectionEventDetermineStart
	ElectionEventDetermineComplete
	ElectionEventElected
	ElectionEventReady
	ElectionEventSuspended
	ElectionEventFailed
	ElectionEventStopStart
	ElectionEventStopComplete
)

var electionEventNames = [...]string{
	ElectionEventStart:             "start",
	ElectionEventOfferStart:        "offer_start",
	ElectionEventOfferComplete:     "offer_complete",
	ElectionEventDetermineStart:    "determine_start",
	ElectionEventDetermineComplete: "determine_complete",
	ElectionEventElected:           "elected",
	ElectionEventReady:             "ready",
	ElectionEventSuspended:         "suspended",
	ElectionEventFailed:            "failed",
	ElectionEventStopStart:         "stop_start",
	ElectionEventStopComplete:      "stop_complete",
}

func (e ElectionEvent) String() string {
	if e >= 0 && int(e) < len(electionEventNames) {
		return electionEventNames[e]
	}
	return "invalid"
}
