package zkelection

// LeaderOffer describes the current leader as seen in the election namespace.
type LeaderOffer struct {
	candidate *CandidateNode
	data      []byte
}

func NewLeaderOffer(candidate *CandidateNode, data []byte) *LeaderOffer {
	return &LeaderOffer{candidate, data}
}

func (l *LeaderOffer) Candidate() *CandidateNode {
	return l.candidate
}

func (l *LeaderOffer) SequenceName() string {
	return l.candidate.SequenceName()
}

func (l *LeaderOffer) NodePath() string {
	return l.candidate.FullPath()
}

// Data is the payload the leader registered with.
func (l *LeaderOffer) Data() []byte {
	return l.data
}
