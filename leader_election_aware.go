package zkelection

// Called during each state transition. Low level events are provided at the
// beginning and end of each state. For instance, START may be followed by
// OFFER_START, OFFER_COMPLETE, DETERMINE_START, DETERMINE_COMPLETE, ELECTED and
// so on.
//
// Listeners run on the goroutine driving the election and must not block.
type LeaderElectionAware interface {
	OnElectionEvent(event ElectionEvent)
}

var _ LeaderElectionAware = LeaderElectionAwareFunc(nil)

type LeaderElectionAwareFunc func(event ElectionEvent)

func (l LeaderElectionAwareFunc) OnElectionEvent(event ElectionEvent) {
	l(event)
}
