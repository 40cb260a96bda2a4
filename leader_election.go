package zkelection

import (
	"github.com/emirpasic/gods/sets/treeset"
)

// Evaluate computes the role of self given the current children of the
// election namespace. The smallest name in lexicographic order is the leader;
// every other candidate follows its immediate predecessor. Evaluate has no
// hidden state, so every member evaluating the same listing agrees on a single
// leader.
func Evaluate(children []string, self string) (ParticipantRole, error) {
	sortedNames := sortNames(children)
	if !sortedNames.Contains(self) {
		return ParticipantRole{}, &SelfNotRegisteredError{Self: self}
	}
	predecessor, ok := largestLessThan(sortedNames, self)
	if !ok {
		return LeaderRole(), nil
	}
	return FollowerRole(predecessor), nil
}

func sortNames(names []string) *treeset.Set {
	sortedNames := treeset.NewWithStringComparator()
	for _, name := range names {
		sortedNames.Add(name)
	}
	return sortedNames
}

func largestLessThan(sortedNames *treeset.Set, name string) (string, bool) {
	var (
		lessThan string
		found    bool
	)
	it := sortedNames.Iterator()
	for it.Next() {
		n := it.Value().(string)
		if n >= name {
			break
		}
		lessThan, found = n, true
	}
	return lessThan, found
}

// smallestName returns the first name in lexicographic order.
func smallestName(names []string) (string, bool) {
	sortedNames := sortNames(names)
	if sortedNames.Empty() {
		return "", false
	}
	it := sortedNames.Iterator()
	it.First()
	return it.Value().(string), true
}
