package zkelection

import (
	"github.com/pkg/errors"
	"github.com/samuel/go-zookeeper/zk"

	"github.com/shanexu/go-zkelection/utils"
)

// Coordinator is the session-scoped view of the coordination service the
// election needs. Watches are one-shot: each returned channel delivers at most
// one event.
type Coordinator interface {
	// CreateEphemeralSequential creates pathPrefix followed by a sequence
	// suffix and returns the assigned path. The node vanishes with the session.
	CreateEphemeralSequential(pathPrefix string, data []byte) (string, error)
	// ExistsW reports whether path exists and arms a watch on it.
	ExistsW(path string) (bool, <-chan zk.Event, error)
	Get(path string) ([]byte, error)
	GetW(path string) ([]byte, <-chan zk.Event, error)
	Children(parent string) ([]string, error)
	ChildrenW(parent string) ([]string, <-chan zk.Event, error)
	// Close ends the session.
	Close()
}

// Dialer opens a session. The returned channel carries session state events
// and is closed when the session is closed.
type Dialer func(cfg Config) (Coordinator, <-chan zk.Event, error)

type zkLogger struct {
	utils.Logger
}

func (l zkLogger) Printf(format string, v ...interface{}) {
	l.Infof(format, v...)
}

// NewZooKeeperDialer connects to cfg.ServiceAddress and creates candidate
// nodes with acl.
func NewZooKeeperDialer(log utils.Logger, acl []zk.ACL) Dialer {
	return func(cfg Config) (Coordinator, <-chan zk.Event, error) {
		conn, events, err := zk.Connect(cfg.ServiceAddress, cfg.SessionTimeout, zk.WithLogger(zkLogger{log}))
		if err != nil {
			return nil, nil, errors.Wrapf(err, "connect %v", cfg.ServiceAddress)
		}
		return NewCatManWithOption(conn, acl), events, nil
	}
}
