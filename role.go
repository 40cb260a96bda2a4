package zkelection

import "fmt"

type RoleKind int

const (
	// RoleUnknown means no role claim is honored: not started, suspended
	// while the session is lost, or stopped.
	RoleUnknown RoleKind = iota
	RoleLeader
	RoleFollower
)

func (k RoleKind) String() string {
	switch k {
	case RoleLeader:
		return "leader"
	case RoleFollower:
		return "follower"
	default:
		return "unknown"
	}
}

// ParticipantRole is derived from the namespace listing on every evaluation.
// Watching is set only for followers and names the immediate predecessor.
type ParticipantRole struct {
	Kind     RoleKind
	Watching string
}

func LeaderRole() ParticipantRole {
	return ParticipantRole{Kind: RoleLeader}
}

func FollowerRole(watching string) ParticipantRole {
	return ParticipantRole{Kind: RoleFollower, Watching: watching}
}

func (r ParticipantRole) IsLeader() bool {
	return r.Kind == RoleLeader
}

func (r ParticipantRole) IsFollower() bool {
	return r.Kind == RoleFollower
}

func (r ParticipantRole) String() string {
	if r.Kind == RoleFollower {
		return fmt.Sprintf("follower(watching: %s)", r.Watching)
	}
	return r.Kind.String()
}
