package zkelection

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/samuel/go-zookeeper/zk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyEvent(t *testing.T) {
	tests := []struct {
		name string
		ev   zk.Event
		want EventKind
	}{
		{"has session", zk.Event{Type: zk.EventSession, State: zk.StateHasSession}, EventKindSessionConnected},
		{"connecting", zk.Event{Type: zk.EventSession, State: zk.StateConnecting}, EventKindOther},
		{"connected without session", zk.Event{Type: zk.EventSession, State: zk.StateConnected}, EventKindOther},
		{"disconnected", zk.Event{Type: zk.EventSession, State: zk.StateDisconnected}, EventKindSessionDisconnected},
		{"expired", zk.Event{Type: zk.EventSession, State: zk.StateExpired}, EventKindSessionExpired},
		{"auth failed", zk.Event{Type: zk.EventSession, State: zk.StateAuthFailed}, EventKindSessionFailed},
		{"closing", sessionClosedEvent, EventKindSessionClosed},
		{"deleted", zk.Event{Type: zk.EventNodeDeleted, Path: "/election/c_0000000001"}, EventKindNodeDeleted},
		{"data changed", zk.Event{Type: zk.EventNodeDataChanged, Path: "/target_znode"}, EventKindNodeDataChanged},
		{"created", zk.Event{Type: zk.EventNodeCreated, Path: "/target_znode"}, EventKindOther},
		{"children changed", zk.Event{Type: zk.EventNodeChildrenChanged, Path: "/election"}, EventKindOther},
		{"not watching", zk.Event{Type: zk.EventNotWatching, Err: zk.ErrSessionExpired}, EventKindOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyEvent(tt.ev))
		})
	}
}

func TestEventKind_String(t *testing.T) {
	assert.Equal(t, "node_deleted", EventKindNodeDeleted.String())
	assert.Equal(t, "session_closed", EventKindSessionClosed.String())
	assert.Equal(t, "invalid", EventKind(42).String())
}

func TestDispatch_recoversPanics(t *testing.T) {
	e := newFakeEnsemble("/election")
	p := newTestParticipant(t, e.dial, nil)
	// never registered, so re-evaluating dereferences a nil candidate
	p.watchTarget = "c_0000000001"

	err := p.dispatch(zk.Event{Type: zk.EventNodeDeleted, Path: "/election/c_0000000001"})
	assert.Error(t, err)
	assert.False(t, isTerminal(err))
}

func TestDispatch_ignoresStaleDeletion(t *testing.T) {
	e := newFakeEnsemble("/election")
	rec := &eventRecorder{}
	startTestParticipant(t, e.dial, nil)
	b := startTestParticipant(t, e.dial, nil, WithListener(rec))
	before := len(rec.Events())

	// a deletion for a node b does not watch must not trigger an evaluation
	e.Create("/election/c_0000000009", nil)
	e.Delete("/election/c_0000000009")

	assert.Never(t, func() bool {
		return len(rec.Events()) != before
	}, 50*time.Millisecond, tick)
	assert.Equal(t, FollowerRole("c_0000000001"), b.CurrentRole())
}

func TestDispatch_unexpectedWatchEvent(t *testing.T) {
	e := newFakeEnsemble("/election")
	p := newTestParticipant(t, e.dial, nil)
	p.watchTarget = "c_0000000001"
	p.suspended = true

	err := p.dispatch(zk.Event{Type: zk.EventNotWatching, Path: "/election/c_0000000001", Err: zk.ErrSessionExpired})
	var unexpected *ErrUnexpectedEvent
	require.True(t, errors.As(err, &unexpected))
	assert.Equal(t, zk.EventNotWatching, unexpected.EventType)
	assert.False(t, isTerminal(err))
	assert.Empty(t, p.watchPath(), "a spent watch is forgotten")

	// not on the watched path, so just ignored
	assert.NoError(t, p.dispatch(zk.Event{Type: zk.EventNodeCreated, Path: "/election/c_0000000007"}))
}
