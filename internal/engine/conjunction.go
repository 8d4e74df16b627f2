package engine

import "sort"

// ConjunctionIterator intersects several postings lists (AND). The
// cheapest child leads; the rest leapfrog to whatever document the lead
// proposes, and any overshoot bounces the proposal forward until every
// child agrees.
type ConjunctionIterator struct {
	children []PostingsIterator
	lead     PostingsIterator
	current  uint32
}

// NewConjunctionIterator builds an intersection over children, which must
// be non-empty.
func NewConjunctionIterator(children []PostingsIterator) *ConjunctionIterator {
	// Cheapest first: the lead drives, so it should be the sparsest list.
	sorted := make([]PostingsIterator, len(children))
	copy(sorted, children)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Cost() < sorted[j].Cost()
	})

	return &ConjunctionIterator{
		children: sorted,
		lead:     sorted[0],
	}
}

func (c *ConjunctionIterator) Next() bool {
	if !c.lead.Next() {
		return false
	}
	return c.align(c.lead.DocID())
}

func (c *ConjunctionIterator) DocID() uint32 {
	return c.current
}

func (c *ConjunctionIterator) Freq() uint32 {
	// The lead's frequency stands in for the intersection's.
	return c.lead.Freq()
}

func (c *ConjunctionIterator) Advance(target uint32) bool {
	if !c.lead.Advance(target) {
		return false
	}
	return c.align(c.lead.DocID())
}

func (c *ConjunctionIterator) Cost() int64 {
	return c.lead.Cost()
}

// align leapfrogs every non-lead child to target, raising target whenever
// a child overshoots, until all children sit on one document.
func (c *ConjunctionIterator) align(target uint32) bool {
	for {
		allAligned := true
		for _, child := range c.children {
			if child == c.lead {
				continue
			}
			if !child.Advance(target) {
				return false
			}
			if child.DocID() > target {
				target = child.DocID()
				if !c.lead.Advance(target) {
					return false
				}
				// The lead itself may overshoot; restart from where it landed.
				target = c.lead.DocID()
				allAligned = false
				break
			}
		}
		if allAligned {
			c.current = target
			return true
		}
	}
}
