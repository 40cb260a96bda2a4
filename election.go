package zkelection

import (
	"context"
	"reflect"
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samuel/go-zookeeper/zk"
	"go.uber.org/atomic"

	"github.com/shanexu/go-zkelection/utils"
)

// ElectionParticipant runs the sequential-ephemeral leader election for one
// process: it registers a candidate node, watches only its immediate
// predecessor, and re-evaluates whenever that predecessor goes away.
//
// Every evaluation after Start runs on a single event loop goroutine.
// CurrentRole, State and Leader are safe to call from any goroutine.
type ElectionParticipant struct {
	cfg        Config
	dial       Dialer
	log        utils.Logger
	registerer prometheus.Registerer
	acl        []zk.ACL
	metrics    *electionMetrics

	mu        sync.RWMutex
	role      ParticipantRole
	state     ElectionState
	candidate *CandidateNode
	coord     Coordinator
	released  bool
	err       error

	ll        sync.RWMutex
	listeners []LeaderElectionAware

	l       sync.Mutex
	running bool

	started  *atomic.Bool
	closed   *atomic.Bool
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	doneOnce sync.Once

	// owned by the goroutine running the election
	session       <-chan zk.Event
	registrar     *CandidateRegistrar
	monitor       *targetMonitor
	watchTarget   string
	watchEvents   <-chan zk.Event
	suspended     bool
	expired       bool
	sessionClosed bool
}

type ParticipantOption func(*ElectionParticipant)

func WithLogger(log utils.Logger) ParticipantOption {
	return func(p *ElectionParticipant) {
		p.log = log
	}
}

func WithDialer(dial Dialer) ParticipantOption {
	return func(p *ElectionParticipant) {
		p.dial = dial
	}
}

// WithRegisterer registers the participant's metrics with reg.
func WithRegisterer(reg prometheus.Registerer) ParticipantOption {
	return func(p *ElectionParticipant) {
		p.registerer = reg
	}
}

// WithACL sets the ACL of candidate nodes created by the default ZooKeeper
// dialer.
func WithACL(acl []zk.ACL) ParticipantOption {
	return func(p *ElectionParticipant) {
		p.acl = acl
	}
}

func WithListener(listener LeaderElectionAware) ParticipantOption {
	return func(p *ElectionParticipant) {
		p.listeners = append(p.listeners, listener)
	}
}

func NewElectionParticipant(cfg Config, opts ...ParticipantOption) (*ElectionParticipant, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	p := &ElectionParticipant{
		cfg:     cfg,
		log:     utils.NewNopLogger(),
		state:   ElectionStateStop,
		started: atomic.NewBool(false),
		closed:  atomic.NewBool(false),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.dial == nil {
		p.dial = NewZooKeeperDialer(p.log, p.acl)
	}
	p.metrics = newElectionMetrics(p.registerer, cfg)
	return p, nil
}

// Start opens a session, registers a candidate, performs the initial
// evaluation and installs the initial watch. Any failure is returned as a
// StartupError and leaves the participant shut down.
func (p *ElectionParticipant) Start(ctx context.Context) (err error) {
	if p.closed.Load() {
		return &StartupError{Err: ErrClosed}
	}
	if !p.started.CompareAndSwap(false, true) {
		return &StartupError{Err: ErrAlreadyStarted}
	}

	defer func() {
		if err != nil {
			err = &StartupError{Err: err}
			if !p.closed.Load() {
				p.becomeFailed(err)
			}
			p.releaseSession()
			p.finish()
		}
	}()

	p.setState(ElectionStateStart)
	p.dispatchEvent(ElectionEventStart)

	coord, session, err := p.dial(p.cfg)
	if err != nil {
		return unavailable("connect", err)
	}
	p.mu.Lock()
	p.coord = coord
	p.mu.Unlock()
	p.session = session
	p.registrar = NewCandidateRegistrar(coord, p.cfg)
	if p.closed.Load() {
		return ErrClosed
	}

	if err = p.awaitSession(ctx); err != nil {
		return err
	}
	if err = p.register(); err != nil {
		return err
	}
	if err = p.determine(); err != nil {
		return err
	}
	if p.cfg.MonitorPath != "" {
		monitor := newTargetMonitor(coord, p.cfg.MonitorPath, p.log)
		p.mu.Lock()
		p.monitor = monitor
		p.mu.Unlock()
		if err := monitor.arm(); err != nil {
			p.log.Warnf("monitor %s: %v", p.cfg.MonitorPath, err)
		}
	}

	p.l.Lock()
	defer p.l.Unlock()
	if p.closed.Load() {
		return ErrClosed
	}
	p.running = true
	go p.run()
	return nil
}

func (p *ElectionParticipant) awaitSession(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return unavailable("connect", ctx.Err())
		case <-p.stop:
			return ErrClosed
		case ev, ok := <-p.session:
			if !ok {
				return unavailable("connect", ErrSessionClosed)
			}
			switch ClassifyEvent(ev) {
			case EventKindSessionConnected:
				p.log.Infof("session connected to %s", ev.Server)
				return nil
			case EventKindSessionFailed:
				return unavailable("connect", zk.ErrAuthFailed)
			default:
				p.log.Debugf("waiting for session, state %v", ev.State)
			}
		}
	}
}

func (p *ElectionParticipant) run() {
	defer p.finish()
	defer p.releaseSession()

	for {
		var ev zk.Event
		exists, data, children := p.monitor.watches()
		select {
		case <-p.stop:
			ev = sessionClosedEvent
		case e, ok := <-p.session:
			if !ok {
				e = sessionClosedEvent
			}
			ev = e
		case ev = <-p.watchEvents:
			p.watchEvents = nil
		case ev = <-exists:
			p.monitor.existsW = nil
		case ev = <-data:
			p.monitor.dataW = nil
		case ev = <-children:
			p.monitor.childrenW = nil
		}

		if err := p.dispatch(ev); err != nil {
			if p.closed.Load() {
				// Close released the session under a running evaluation.
				p.log.Debugf("handling %v event after close: %v", ev.Type, err)
				if !p.sessionClosed {
					p.onSessionClosed()
				}
				return
			}
			if isTerminal(err) {
				p.log.Errorf("election stopped: %v", err)
				p.becomeFailed(err)
				return
			}
			p.log.Warnf("handling %v event: %v", ev.Type, err)
		}
		if p.sessionClosed {
			if !p.closed.Load() {
				p.setErr(unavailable("session", ErrSessionClosed))
			}
			return
		}
	}
}

func (p *ElectionParticipant) register() error {
	p.setState(ElectionStateOffer)
	p.dispatchEvent(ElectionEventOfferStart)

	candidate, err := p.registrar.Register()
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.candidate = candidate
	p.mu.Unlock()
	p.metrics.registrations.Inc()
	p.log.Infof("registered candidate %s", candidate.FullPath())

	p.dispatchEvent(ElectionEventOfferComplete)
	return nil
}

// determine evaluates the election and installs the resulting watch. A
// missing own candidate is recovered by registering again, a bounded number
// of times.
func (p *ElectionParticipant) determine() error {
	for attempt := 1; ; attempt++ {
		err := p.determineElectionStatus()
		if !errors.Is(err, ErrSelfNotRegistered) {
			return err
		}
		if attempt >= p.cfg.MaxRegistrationAttempts {
			return err
		}
		p.log.Warnf("%v, registering again", err)
		if err := p.register(); err != nil {
			return err
		}
	}
}

// determineElectionStatus lists the namespace, evaluates this candidate's role
// and, for followers, arms an exists watch on the predecessor. If the
// predecessor is already gone the listing is read again, up to
// MaxEvaluationRetries times.
func (p *ElectionParticipant) determineElectionStatus() error {
	p.setState(ElectionStateDetermine)
	p.dispatchEvent(ElectionEventDetermineStart)

	self := p.currentCandidate().SequenceName()
	var predecessor string
	for attempt := 1; attempt <= p.cfg.MaxEvaluationRetries; attempt++ {
		children, err := p.coord.Children(p.cfg.ElectionNamespace)
		if err != nil {
			p.metrics.evaluation("error")
			return unavailable("children", err)
		}
		role, err := Evaluate(filterCandidates(children, p.cfg.CandidatePrefix), self)
		if err != nil {
			p.metrics.evaluation("self_missing")
			return err
		}
		p.dispatchEvent(ElectionEventDetermineComplete)

		if role.IsLeader() {
			p.clearWatch()
			p.becomeLeader()
			return nil
		}

		predecessor = role.Watching
		ok, events, err := p.coord.ExistsW(p.candidatePath(predecessor))
		if err != nil {
			p.metrics.evaluation("error")
			return unavailable("exists", err)
		}
		if ok {
			p.watchTarget = predecessor
			p.watchEvents = events
			p.becomeReady(role)
			return nil
		}
		p.metrics.evaluation("retry")
		p.log.Debugf("predecessor %s vanished before watch, re-evaluating (attempt %d)", predecessor, attempt)
	}
	p.metrics.evaluation("exhausted")
	return &EvaluationRetryExhaustedError{Attempts: p.cfg.MaxEvaluationRetries, LastPredecessor: predecessor}
}

func (p *ElectionParticipant) becomeLeader() {
	changed := p.setRole(LeaderRole())
	p.setState(ElectionStateElected)
	p.metrics.evaluation("leader")
	if changed {
		p.log.Infof("%s is the leader", p.currentCandidate().SequenceName())
	}
	p.dispatchEvent(ElectionEventElected)
}

func (p *ElectionParticipant) becomeReady(role ParticipantRole) {
	changed := p.setRole(role)
	p.setState(ElectionStateReady)
	p.metrics.evaluation("follower")
	if changed {
		p.log.Infof("%s is a follower, watching %s", p.currentCandidate().SequenceName(), role.Watching)
	}
	p.dispatchEvent(ElectionEventReady)
}

func (p *ElectionParticipant) becomeFailed(err error) {
	p.setErr(err)
	p.setRole(ParticipantRole{})
	p.setState(ElectionStateFailed)
	p.dispatchEvent(ElectionEventFailed)
}

// Close releases the session; the coordination service removes the candidate
// node as a result. Close is idempotent and may be called from any goroutine,
// including listeners.
func (p *ElectionParticipant) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	p.stopOnce.Do(func() { close(p.stop) })
	p.releaseSession()

	p.l.Lock()
	defer p.l.Unlock()
	if !p.running {
		p.setRole(ParticipantRole{})
		p.finish()
	}
}

// AwaitShutdown blocks until the session is closed, by Close or externally,
// and returns the error that ended the participant, if any.
func (p *ElectionParticipant) AwaitShutdown() error {
	<-p.done
	return p.Err()
}

// Done is closed once the participant has shut down.
func (p *ElectionParticipant) Done() <-chan struct{} {
	return p.done
}

func (p *ElectionParticipant) finish() {
	p.doneOnce.Do(func() { close(p.done) })
}

func (p *ElectionParticipant) releaseSession() {
	p.mu.Lock()
	coord := p.coord
	if coord == nil || p.released {
		p.mu.Unlock()
		return
	}
	p.released = true
	p.mu.Unlock()
	coord.Close()
}

// CurrentRole returns the last computed role.
func (p *ElectionParticipant) CurrentRole() ParticipantRole {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.role
}

func (p *ElectionParticipant) IsLeader() bool {
	return p.CurrentRole().IsLeader()
}

func (p *ElectionParticipant) State() ElectionState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Candidate returns this participant's current registration, or nil before
// Start.
func (p *ElectionParticipant) Candidate() *CandidateNode {
	return p.currentCandidate()
}

// Err returns the error that ended the participant.
func (p *ElectionParticipant) Err() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.err
}

// MonitoredTarget returns the last observed state of Config.MonitorPath.
func (p *ElectionParticipant) MonitoredTarget() (TargetSnapshot, bool) {
	p.mu.RLock()
	monitor := p.monitor
	p.mu.RUnlock()
	if monitor == nil {
		return TargetSnapshot{}, false
	}
	return monitor.snapshot()
}

// Leader reads the namespace and returns the current leader's registration
// and payload.
func (p *ElectionParticipant) Leader() (*LeaderOffer, error) {
	p.mu.RLock()
	coord, released := p.coord, p.released
	p.mu.RUnlock()
	if coord == nil {
		return nil, ErrNotStarted
	}
	if released {
		return nil, ErrClosed
	}

	for attempt := 1; attempt <= p.cfg.MaxEvaluationRetries; attempt++ {
		children, err := coord.Children(p.cfg.ElectionNamespace)
		if err != nil {
			return nil, unavailable("children", err)
		}
		name, ok := smallestName(filterCandidates(children, p.cfg.CandidatePrefix))
		if !ok {
			return nil, ErrNoCandidates
		}
		data, err := coord.Get(p.candidatePath(name))
		if isNoNode(err) {
			continue
		}
		if err != nil {
			return nil, unavailable("get", err)
		}
		candidate, err := NewCandidateNode(p.cfg.ElectionNamespace, p.candidatePath(name))
		if err != nil {
			return nil, err
		}
		return NewLeaderOffer(candidate, data), nil
	}
	return nil, &EvaluationRetryExhaustedError{Attempts: p.cfg.MaxEvaluationRetries}
}

func (p *ElectionParticipant) AddListener(listener LeaderElectionAware) {
	p.ll.Lock()
	defer p.ll.Unlock()
	p.listeners = append(p.listeners, listener)
}

// RemoveListener unregisters listener. Listeners of an uncomparable type,
// such as LeaderElectionAwareFunc, cannot be removed.
func (p *ElectionParticipant) RemoveListener(listener LeaderElectionAware) {
	p.ll.Lock()
	defer p.ll.Unlock()
	for i, l := range p.listeners {
		if reflect.TypeOf(l).Comparable() && l == listener {
			p.listeners = append(p.listeners[:i], p.listeners[i+1:]...)
			return
		}
	}
}

func (p *ElectionParticipant) dispatchEvent(event ElectionEvent) {
	p.ll.RLock()
	defer p.ll.RUnlock()
	for _, observer := range p.listeners {
		observer.OnElectionEvent(event)
	}
}

func (p *ElectionParticipant) candidatePath(name string) string {
	return p.cfg.ElectionNamespace + "/" + name
}

func (p *ElectionParticipant) watchPath() string {
	if p.watchTarget == "" {
		return ""
	}
	return p.candidatePath(p.watchTarget)
}

func (p *ElectionParticipant) clearWatch() {
	p.watchTarget = ""
	p.watchEvents = nil
}

func (p *ElectionParticipant) currentCandidate() *CandidateNode {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.candidate
}

// setRole publishes role and reports whether it changed.
func (p *ElectionParticipant) setRole(role ParticipantRole) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	changed := p.role != role
	p.role = role
	p.metrics.role(role)
	return changed
}

func (p *ElectionParticipant) setState(state ElectionState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = state
}

func (p *ElectionParticipant) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err == nil {
		p.err = err
	}
}
