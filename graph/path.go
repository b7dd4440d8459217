package graph

// pathSet is the set of person IDs on the current traversal branch. It is
// immutable: with returns an extended copy that shares the parent's tail, so
// sibling branches, including ones running concurrently, never see each
// other's visits.
type pathSet struct {
	id     string
	parent *pathSet
}

func (p *pathSet) with(id string) *pathSet {
	return &pathSet{id: id, parent: p}
}

func (p *pathSet) has(id string) bool {
	for n := p; n != nil; n = n.parent {
		if n.id == id {
			return true
		}
	}

	return false
}

func (p *pathSet) len() int {
	n := 0
	for ; p != nil; p = p.parent {
		n++
	}

	return n
}
