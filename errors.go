package zkelection

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/samuel/go-zookeeper/zk"
)

var (
	ErrBadPath                  = errors.New("bad path")
	ErrClosed                   = errors.New("participant closed")
	ErrAlreadyStarted           = errors.New("participant already started")
	ErrNotStarted               = errors.New("participant not started")
	ErrSessionClosed            = errors.New("session closed")
	ErrSelfNotRegistered        = errors.New("candidate not registered in election namespace")
	ErrEvaluationRetryExhausted = errors.New("evaluation retries exhausted")
	ErrCoordinationUnavailable  = errors.New("coordination service unavailable")
	ErrNoCandidates             = errors.New("no candidates in election namespace")
)

type ErrUnexpectedEvent struct {
	zk.EventType
}

func (ue *ErrUnexpectedEvent) Error() string {
	return fmt.Sprintf("unexpected event %v", ue.EventType)
}

// RegistrationError reports a failure to create the candidate node.
type RegistrationError struct {
	Namespace string
	Err       error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("register candidate under %s: %v", e.Namespace, e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// SelfNotRegisteredError is returned when the namespace listing does not
// contain this process's own candidate.
type SelfNotRegisteredError struct {
	Self string
}

func (e *SelfNotRegisteredError) Error() string {
	return fmt.Sprintf("candidate %s not found in election namespace", e.Self)
}

func (e *SelfNotRegisteredError) Is(target error) bool {
	return target == ErrSelfNotRegistered
}

// EvaluationRetryExhaustedError is returned when every evaluation pass lost
// the race against its predecessor's deletion.
type EvaluationRetryExhaustedError struct {
	Attempts        int
	LastPredecessor string
}

func (e *EvaluationRetryExhaustedError) Error() string {
	return fmt.Sprintf("could not watch a live predecessor after %d attempts (last %s)", e.Attempts, e.LastPredecessor)
}

func (e *EvaluationRetryExhaustedError) Is(target error) bool {
	return target == ErrEvaluationRetryExhausted
}

// CoordinationUnavailableError wraps a connection or session failure.
// Permanent failures end the participant.
type CoordinationUnavailableError struct {
	Op        string
	Err       error
	Permanent bool
}

func (e *CoordinationUnavailableError) Error() string {
	kind := "transient"
	if e.Permanent {
		kind = "permanent"
	}
	return fmt.Sprintf("coordination unavailable (%s) during %s: %v", kind, e.Op, e.Err)
}

func (e *CoordinationUnavailableError) Unwrap() error { return e.Err }

func (e *CoordinationUnavailableError) Is(target error) bool {
	return target == ErrCoordinationUnavailable
}

// StartupError wraps any failure of ElectionParticipant.Start.
type StartupError struct {
	Err error
}

func (e *StartupError) Error() string {
	return "start election participant: " + e.Err.Error()
}

func (e *StartupError) Unwrap() error { return e.Err }

func unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	var cu *CoordinationUnavailableError
	if errors.As(err, &cu) {
		return err
	}
	return &CoordinationUnavailableError{Op: op, Err: err, Permanent: isPermanent(err)}
}

func isPermanent(err error) bool {
	return errors.Is(err, zk.ErrAuthFailed) ||
		errors.Is(err, zk.ErrClosing) ||
		errors.Is(err, ErrSessionClosed)
}

func isNoNode(err error) bool {
	return errors.Is(err, zk.ErrNoNode)
}

func isConnectionLoss(err error) bool {
	return errors.Is(err, zk.ErrConnectionClosed) ||
		errors.Is(err, zk.ErrNoServer) ||
		errors.Is(err, zk.ErrSessionExpired) ||
		errors.Is(err, zk.ErrSessionMoved)
}

// isTransient reports whether an error only suspends the participant until
// the session is re-established.
func isTransient(err error) bool {
	var cu *CoordinationUnavailableError
	if errors.As(err, &cu) {
		return !cu.Permanent
	}
	return isConnectionLoss(err)
}

// isTerminal reports whether an error raised while handling a notification
// must end the participant.
func isTerminal(err error) bool {
	if err == nil || isTransient(err) {
		return false
	}
	var (
		cu  *CoordinationUnavailableError
		reg *RegistrationError
	)
	switch {
	case errors.As(err, &cu), errors.As(err, &reg):
		return true
	case errors.Is(err, ErrSelfNotRegistered), errors.Is(err, ErrEvaluationRetryExhausted):
		return true
	}
	return false
}
