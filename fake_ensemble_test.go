package zkelection

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/samuel/go-zookeeper/zk"
)

// fakeEnsemble is an in-memory coordination service with one-shot watches
// and ephemeral-sequential nodes, shared by every fakeSession dialed from it.
type fakeEnsemble struct {
	mu            sync.Mutex
	nodes         map[string]*fakeNode
	seq           map[string]int64
	existsWatches map[string][]chan zk.Event
	dataWatches   map[string][]chan zk.Event
	childWatches  map[string][]chan zk.Event
	sessions      []*fakeSession
	creates       int
}

type fakeNode struct {
	data  []byte
	owner *fakeSession
}

type fakeSession struct {
	e      *fakeEnsemble
	events chan zk.Event
	closed bool
}

var _ Coordinator = (*fakeSession)(nil)

func newFakeEnsemble(persistent ...string) *fakeEnsemble {
	e := &fakeEnsemble{
		nodes:         map[string]*fakeNode{},
		seq:           map[string]int64{},
		existsWatches: map[string][]chan zk.Event{},
		dataWatches:   map[string][]chan zk.Event{},
		childWatches:  map[string][]chan zk.Event{},
	}
	for _, p := range persistent {
		e.nodes[p] = &fakeNode{}
	}
	return e
}

func (e *fakeEnsemble) dial(Config) (Coordinator, <-chan zk.Event, error) {
	s := &fakeSession{e: e, events: make(chan zk.Event, 64)}
	e.mu.Lock()
	e.sessions = append(e.sessions, s)
	e.mu.Unlock()
	s.events <- zk.Event{Type: zk.EventSession, State: zk.StateConnecting}
	s.events <- zk.Event{Type: zk.EventSession, State: zk.StateHasSession, Server: "fake:2181"}
	return s, s.events, nil
}

func fire(watches map[string][]chan zk.Event, p string, ev zk.Event) {
	for _, ch := range watches[p] {
		ch <- ev
		close(ch)
	}
	delete(watches, p)
}

func watch(watches map[string][]chan zk.Event, p string) <-chan zk.Event {
	ch := make(chan zk.Event, 1)
	watches[p] = append(watches[p], ch)
	return ch
}

// create must be called with e.mu held.
func (e *fakeEnsemble) create(p string, data []byte, owner *fakeSession) {
	e.nodes[p] = &fakeNode{data: data, owner: owner}
	fire(e.existsWatches, p, zk.Event{Type: zk.EventNodeCreated, Path: p})
	parent := path.Dir(p)
	fire(e.childWatches, parent, zk.Event{Type: zk.EventNodeChildrenChanged, Path: parent})
}

// remove must be called with e.mu held.
func (e *fakeEnsemble) remove(p string) {
	delete(e.nodes, p)
	ev := zk.Event{Type: zk.EventNodeDeleted, Path: p}
	fire(e.existsWatches, p, ev)
	fire(e.dataWatches, p, ev)
	fire(e.childWatches, p, ev)
	parent := path.Dir(p)
	fire(e.childWatches, parent, zk.Event{Type: zk.EventNodeChildrenChanged, Path: parent})
}

// Create adds a persistent node.
func (e *fakeEnsemble) Create(p string, data []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.create(p, data, nil)
}

// Delete removes a node as if its owner crashed.
func (e *fakeEnsemble) Delete(p string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.remove(p)
}

func (e *fakeEnsemble) SetData(p string, data []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, ok := e.nodes[p]
	if !ok {
		return
	}
	n.data = data
	ev := zk.Event{Type: zk.EventNodeDataChanged, Path: p}
	fire(e.existsWatches, p, ev)
	fire(e.dataWatches, p, ev)
}

func (e *fakeEnsemble) Exists(p string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.nodes[p]
	return ok
}

func (e *fakeEnsemble) Creates() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.creates
}

func (e *fakeEnsemble) Session(i int) *fakeSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessions[i]
}

func (e *fakeEnsemble) children(parent string) []string {
	var names []string
	for p := range e.nodes {
		if p != parent && path.Dir(p) == parent {
			names = append(names, path.Base(p))
		}
	}
	sort.Strings(names)
	return names
}

// Expire drops every node the session owns and then hands it a new session,
// the way the ZooKeeper client reconnects after expiry.
func (s *fakeSession) Expire() {
	e := s.e
	e.mu.Lock()
	defer e.mu.Unlock()
	if s.closed {
		return
	}
	s.events <- zk.Event{Type: zk.EventSession, State: zk.StateDisconnected}
	s.events <- zk.Event{Type: zk.EventSession, State: zk.StateExpired}
	s.dropOwned()
	s.events <- zk.Event{Type: zk.EventSession, State: zk.StateHasSession}
}

func (s *fakeSession) Disconnect() {
	s.e.mu.Lock()
	defer s.e.mu.Unlock()
	if s.closed {
		return
	}
	s.events <- zk.Event{Type: zk.EventSession, State: zk.StateDisconnected}
}

func (s *fakeSession) Reconnect() {
	s.e.mu.Lock()
	defer s.e.mu.Unlock()
	if s.closed {
		return
	}
	s.events <- zk.Event{Type: zk.EventSession, State: zk.StateHasSession}
}

func (s *fakeSession) Closed() bool {
	s.e.mu.Lock()
	defer s.e.mu.Unlock()
	return s.closed
}

// Kill ends the session from the server side without the owner asking.
func (s *fakeSession) Kill() {
	s.Close()
}

// dropOwned must be called with e.mu held.
func (s *fakeSession) dropOwned() {
	var owned []string
	for p, n := range s.e.nodes {
		if n.owner == s {
			owned = append(owned, p)
		}
	}
	sort.Strings(owned)
	for _, p := range owned {
		s.e.remove(p)
	}
}

func (s *fakeSession) CreateEphemeralSequential(pathPrefix string, data []byte) (string, error) {
	e := s.e
	e.mu.Lock()
	defer e.mu.Unlock()
	if s.closed {
		return "", zk.ErrClosing
	}
	parent := path.Dir(pathPrefix)
	if _, ok := e.nodes[parent]; !ok {
		return "", zk.ErrNoNode
	}
	e.seq[parent]++
	p := fmt.Sprintf("%s%010d", pathPrefix, e.seq[parent])
	e.creates++
	e.create(p, data, s)
	return p, nil
}

func (s *fakeSession) ExistsW(p string) (bool, <-chan zk.Event, error) {
	e := s.e
	e.mu.Lock()
	defer e.mu.Unlock()
	if s.closed {
		return false, nil, zk.ErrClosing
	}
	_, ok := e.nodes[p]
	return ok, watch(e.existsWatches, p), nil
}

func (s *fakeSession) Get(p string) ([]byte, error) {
	e := s.e
	e.mu.Lock()
	defer e.mu.Unlock()
	if s.closed {
		return nil, zk.ErrClosing
	}
	n, ok := e.nodes[p]
	if !ok {
		return nil, zk.ErrNoNode
	}
	return n.data, nil
}

func (s *fakeSession) GetW(p string) ([]byte, <-chan zk.Event, error) {
	e := s.e
	e.mu.Lock()
	defer e.mu.Unlock()
	if s.closed {
		return nil, nil, zk.ErrClosing
	}
	n, ok := e.nodes[p]
	if !ok {
		return nil, nil, zk.ErrNoNode
	}
	return n.data, watch(e.dataWatches, p), nil
}

func (s *fakeSession) Children(parent string) ([]string, error) {
	e := s.e
	e.mu.Lock()
	defer e.mu.Unlock()
	if s.closed {
		return nil, zk.ErrClosing
	}
	if _, ok := e.nodes[parent]; !ok {
		return nil, zk.ErrNoNode
	}
	return e.children(parent), nil
}

func (s *fakeSession) ChildrenW(parent string) ([]string, <-chan zk.Event, error) {
	e := s.e
	e.mu.Lock()
	defer e.mu.Unlock()
	if s.closed {
		return nil, nil, zk.ErrClosing
	}
	if _, ok := e.nodes[parent]; !ok {
		return nil, nil, zk.ErrNoNode
	}
	return e.children(parent), watch(e.childWatches, parent), nil
}

func (s *fakeSession) Close() {
	e := s.e
	e.mu.Lock()
	defer e.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.dropOwned()
	s.events <- zk.Event{Type: zk.EventSession, State: zk.StateDisconnected}
	close(s.events)
}

// names lists the candidate names under namespace.
func (e *fakeEnsemble) names(namespace string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []string
	for _, n := range e.children(namespace) {
		if strings.HasPrefix(n, DefaultCandidatePrefix) {
			out = append(out, n)
		}
	}
	return out
}
