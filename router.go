package zkelection

import (
	"github.com/pkg/errors"
	"github.com/samuel/go-zookeeper/zk"
)

// EventKind is the election-relevant classification of a notification.
type EventKind int

const (
	EventKindOther EventKind = iota
	EventKindSessionConnected
	EventKindSessionDisconnected
	EventKindSessionExpired
	EventKindSessionFailed
	EventKindSessionClosed
	EventKindNodeDeleted
	EventKindNodeDataChanged
)

var eventKindNames = [...]string{
	EventKindOther:               "other",
	EventKindSessionConnected:    "session_connected",
	EventKindSessionDisconnected: "session_disconnected",
	EventKindSessionExpired:      "session_expired",
	EventKindSessionFailed:       "session_failed",
	EventKindSessionClosed:       "session_closed",
	EventKindNodeDeleted:         "node_deleted",
	EventKindNodeDataChanged:     "node_data_changed",
}

func (k EventKind) String() string {
	if k >= 0 && int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return "invalid"
}

// sessionClosedEvent is synthesized when the session channel is closed or the
// participant is asked to stop.
var sessionClosedEvent = zk.Event{Type: zk.EventSession, State: zk.StateDisconnected, Err: zk.ErrClosing}

func ClassifyEvent(ev zk.Event) EventKind {
	switch ev.Type {
	case zk.EventSession:
		if ev.Err == zk.ErrClosing {
			return EventKindSessionClosed
		}
		switch ev.State {
		case zk.StateHasSession:
			return EventKindSessionConnected
		case zk.StateDisconnected:
			return EventKindSessionDisconnected
		case zk.StateExpired:
			return EventKindSessionExpired
		case zk.StateAuthFailed:
			return EventKindSessionFailed
		}
	case zk.EventNodeDeleted:
		return EventKindNodeDeleted
	case zk.EventNodeDataChanged:
		return EventKindNodeDataChanged
	}
	return EventKindOther
}

// dispatch is the single entry point for every notification. It only runs on
// the participant's event loop, so at most one evaluation is in flight.
// Panics are converted into errors so one bad event cannot stop the loop.
func (p *ElectionParticipant) dispatch(ev zk.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic handling %v event on %q: %v", ev.Type, ev.Path, r)
		}
	}()

	kind := ClassifyEvent(ev)
	p.metrics.event(kind)
	if p.sessionClosed {
		return nil
	}
	if p.monitor.owns(ev.Path) {
		return p.monitor.process(ev)
	}

	switch kind {
	case EventKindSessionConnected:
		return p.onSessionConnected()
	case EventKindSessionDisconnected:
		p.onSessionDisconnected()
	case EventKindSessionExpired:
		p.onSessionExpired()
	case EventKindSessionFailed:
		return &CoordinationUnavailableError{Op: "session", Err: zk.ErrAuthFailed, Permanent: true}
	case EventKindSessionClosed:
		p.onSessionClosed()
	case EventKindNodeDeleted, EventKindNodeDataChanged:
		return p.onWatchedNodeChanged(ev)
	default:
		if ev.Path != "" && ev.Path == p.watchPath() {
			return p.onUnexpectedWatchEvent(ev)
		}
		p.log.Debugf("ignoring %v event on %q (state %v)", ev.Type, ev.Path, ev.State)
	}
	return nil
}

func (p *ElectionParticipant) onSessionConnected() error {
	if !p.suspended {
		p.log.Infof("session connected")
		return nil
	}
	p.log.Infof("session re-established, re-evaluating election")
	p.suspended = false
	if p.expired {
		if err := p.register(); err != nil {
			if isTransient(err) {
				p.log.Warnf("re-registration suspended: %v", err)
				p.suspend()
				return nil
			}
			return err
		}
		p.expired = false
	}
	if err := p.reelect(); err != nil {
		return err
	}
	if p.monitor != nil {
		p.monitor.reset()
		return p.monitor.arm()
	}
	return nil
}

func (p *ElectionParticipant) onSessionDisconnected() {
	p.log.Warnf("session disconnected, suspending role")
	p.suspend()
}

func (p *ElectionParticipant) onSessionExpired() {
	p.log.Warnf("session expired, candidate %s is gone", p.currentCandidate())
	p.expired = true
	p.suspend()
}

func (p *ElectionParticipant) onSessionClosed() {
	p.sessionClosed = true
	p.clearWatch()
	p.setState(ElectionStateStop)
	p.dispatchEvent(ElectionEventStopStart)
	p.setRole(ParticipantRole{})
	p.log.Infof("session closed")
	p.dispatchEvent(ElectionEventStopComplete)
}

// onWatchedNodeChanged re-evaluates when the watched predecessor is deleted.
// The exists watch also fires on data changes; those re-arm the same way.
func (p *ElectionParticipant) onWatchedNodeChanged(ev zk.Event) error {
	if p.suspended {
		p.log.Debugf("ignoring %v on %s while suspended", ev.Type, ev.Path)
		return nil
	}
	if ev.Path != p.watchPath() {
		p.log.Debugf("ignoring stale %v on %s", ev.Type, ev.Path)
		return nil
	}
	p.clearWatch()
	if ev.Type == zk.EventNodeDeleted {
		p.log.Infof("predecessor %s deleted, re-evaluating", ev.Path)
	}
	return p.reelect()
}

// onUnexpectedWatchEvent handles anything other than a deletion or data change
// arriving on the predecessor watch. The watch is spent either way, so a live
// follower evaluates again to re-arm it.
func (p *ElectionParticipant) onUnexpectedWatchEvent(ev zk.Event) error {
	p.clearWatch()
	unexpected := &ErrUnexpectedEvent{ev.Type}
	if p.suspended || ev.Type == zk.EventNotWatching {
		return unexpected
	}
	if err := p.reelect(); err != nil {
		return err
	}
	return unexpected
}

// reelect evaluates from the notification context. Connection loss suspends
// the role until the next session event instead of failing.
func (p *ElectionParticipant) reelect() error {
	err := p.determine()
	if err != nil && isTransient(err) {
		p.log.Warnf("election suspended: %v", err)
		p.suspend()
		return nil
	}
	return err
}

func (p *ElectionParticipant) suspend() {
	p.suspended = true
	p.clearWatch()
	p.setState(ElectionStateSuspended)
	p.dispatchEvent(ElectionEventSuspended)
	p.setRole(ParticipantRole{})
}
