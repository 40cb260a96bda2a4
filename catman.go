package zkelection

import (
	"github.com/pkg/errors"
	"github.com/samuel/go-zookeeper/zk"
)

var (
	OpenAclUnsafe = zk.WorldACL(zk.PermAll)
	CreatorAllAcl = zk.AuthACL(zk.PermAll)
)

// CatMan is the Coordinator backed by a ZooKeeper connection.
type CatMan struct {
	conn       *zk.Conn
	defaultACL []zk.ACL
}

var _ Coordinator = (*CatMan)(nil)

func NewCatManWithOption(conn *zk.Conn, acl []zk.ACL) *CatMan {
	if len(acl) == 0 {
		acl = OpenAclUnsafe
	}
	return &CatMan{conn, acl}
}

func (cm *CatMan) ACL() []zk.ACL {
	return cm.defaultACL
}

func (cm *CatMan) CreateEphemeralSequential(pathPrefix string, data []byte) (string, error) {
	path, err := cm.conn.Create(pathPrefix, data, zk.FlagSequence|zk.FlagEphemeral, cm.defaultACL)
	if err != nil {
		return "", errors.Wrapf(err, "create %s", pathPrefix)
	}
	return path, nil
}

func (cm *CatMan) ExistsW(path string) (bool, <-chan zk.Event, error) {
	ok, _, events, err := cm.conn.ExistsW(path)
	if err != nil {
		return false, nil, errors.Wrapf(err, "exists %s", path)
	}
	return ok, events, nil
}

func (cm *CatMan) Get(path string) ([]byte, error) {
	data, _, err := cm.conn.Get(path)
	if err != nil {
		return nil, errors.Wrapf(err, "get %s", path)
	}
	return data, nil
}

func (cm *CatMan) GetW(path string) ([]byte, <-chan zk.Event, error) {
	data, _, events, err := cm.conn.GetW(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "get %s", path)
	}
	return data, events, nil
}

func (cm *CatMan) Children(parent string) ([]string, error) {
	children, _, err := cm.conn.Children(parent)
	if err != nil {
		return nil, errors.Wrapf(err, "children %s", parent)
	}
	return children, nil
}

func (cm *CatMan) ChildrenW(parent string) ([]string, <-chan zk.Event, error) {
	children, _, events, err := cm.conn.ChildrenW(parent)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "children %s", parent)
	}
	return children, events, nil
}

// Close ends the session; ZooKeeper removes every ephemeral node it owns.
func (cm *CatMan) Close() {
	cm.conn.Close()
}
