package zkelection

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/samuel/go-zookeeper/zk"

	"github.com/shanexu/go-zkelection/utils"
)

// TargetSnapshot is the last observed state of the monitored node.
type TargetSnapshot struct {
	Exists   bool
	Data     []byte
	Children []string
}

// targetMonitor logs a data node's content and children whenever they change.
// It has no bearing on leadership. Its watch slots are only touched by the
// participant's event loop.
type targetMonitor struct {
	coord Coordinator
	path  string
	log   utils.Logger

	existsW   <-chan zk.Event
	dataW     <-chan zk.Event
	childrenW <-chan zk.Event

	mu   sync.RWMutex
	last TargetSnapshot
	seen bool
}

func newTargetMonitor(coord Coordinator, path string, log utils.Logger) *targetMonitor {
	return &targetMonitor{coord: coord, path: path, log: log}
}

func (m *targetMonitor) owns(path string) bool {
	return m != nil && path != "" && path == m.path
}

func (m *targetMonitor) watches() (exists, data, children <-chan zk.Event) {
	if m == nil {
		return nil, nil, nil
	}
	return m.existsW, m.dataW, m.childrenW
}

// process handles an event fired by one of the monitor's watches. The caller
// has already cleared the slot that fired.
func (m *targetMonitor) process(ev zk.Event) error {
	if ev.Type == zk.EventNotWatching {
		m.reset()
		return nil
	}
	if ev.Type == zk.EventNodeDeleted {
		// Both the data and children watches fire on deletion; the
		// children one is dropped and arm falls back to an exists watch.
		m.childrenW = nil
		m.dataW = nil
	}
	return m.arm()
}

func (m *targetMonitor) reset() {
	m.existsW, m.dataW, m.childrenW = nil, nil, nil
}

// arm fills every empty watch slot and records the node's current state. A
// missing node is not an error: an exists watch waits for its creation.
func (m *targetMonitor) arm() error {
	var (
		data []byte
		err  error
	)
	if m.dataW == nil {
		data, m.dataW, err = m.coord.GetW(m.path)
	} else {
		data, err = m.coord.Get(m.path)
	}
	if isNoNode(err) {
		m.dataW = nil
		return m.armExists()
	}
	if err != nil {
		return errors.Wrapf(err, "monitor %s", m.path)
	}

	var children []string
	if m.childrenW == nil {
		children, m.childrenW, err = m.coord.ChildrenW(m.path)
	} else {
		children, err = m.coord.Children(m.path)
	}
	if isNoNode(err) {
		m.childrenW = nil
		return m.armExists()
	}
	if err != nil {
		return errors.Wrapf(err, "monitor %s", m.path)
	}

	m.log.Infof("target %s data: %s, children: %v", m.path, data, children)
	m.record(TargetSnapshot{Exists: true, Data: data, Children: children})
	return nil
}

func (m *targetMonitor) armExists() error {
	m.record(TargetSnapshot{})
	if m.existsW != nil {
		return nil
	}
	ok, events, err := m.coord.ExistsW(m.path)
	if err != nil {
		return errors.Wrapf(err, "monitor %s", m.path)
	}
	m.existsW = events
	if ok {
		// created between the read and the exists call
		return m.arm()
	}
	m.log.Debugf("target %s does not exist, waiting for creation", m.path)
	return nil
}

func (m *targetMonitor) record(s TargetSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = s
	m.seen = true
}

func (m *targetMonitor) snapshot() (TargetSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last, m.seen
}
