package zkelection

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// sequenceWidth is the width of the zero padded suffix ZooKeeper appends to
// sequential nodes.
const sequenceWidth = 10

// CandidateNode is one participant's registration in the election namespace.
type CandidateNode struct {
	fullPath     string
	sequenceName string
	prefix       string
	sequence     int64
}

// NewCandidateNode splits a path returned by the coordination service into its
// namespace relative name and sequence number.
func NewCandidateNode(namespace, fullPath string) (*CandidateNode, error) {
	if !strings.HasPrefix(fullPath, namespace+"/") {
		return nil, errors.Wrapf(ErrBadPath, "%s is not under %s", fullPath, namespace)
	}
	name := fullPath[len(namespace)+1:]
	if name == "" || strings.Contains(name, "/") {
		return nil, errors.Wrapf(ErrBadPath, "%s is not a direct child of %s", fullPath, namespace)
	}
	seq, err := name2Seq(name)
	if err != nil {
		return nil, err
	}
	return &CandidateNode{
		fullPath:     fullPath,
		sequenceName: name,
		prefix:       name[:len(name)-sequenceWidth],
		sequence:     seq,
	}, nil
}

func (n *CandidateNode) FullPath() string {
	return n.fullPath
}

func (n *CandidateNode) SequenceName() string {
	return n.sequenceName
}

func (n *CandidateNode) Prefix() string {
	return n.prefix
}

func (n *CandidateNode) Sequence() int64 {
	return n.sequence
}

func (n *CandidateNode) String() string {
	return n.fullPath
}

func name2Seq(name string) (int64, error) {
	if len(name) < sequenceWidth {
		return 0, errors.Wrapf(ErrBadPath, "%s has no sequence suffix", name)
	}
	seq, err := strconv.ParseInt(name[len(name)-sequenceWidth:], 10, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrBadPath, "%s has no sequence suffix", name)
	}
	return seq, nil
}

// filterCandidates keeps the children that look like candidates registered
// with prefix.
func filterCandidates(children []string, prefix string) []string {
	cs := make([]string, 0, len(children))
	for _, name := range children {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if _, err := name2Seq(name); err != nil {
			continue
		}
		cs = append(cs, name)
	}
	return cs
}
