package query

// Rewrite normalizes a query AST to a fixed point: nested booleans with a
// single operator flatten, MatchAll drops out of conjunctions, MatchNone
// short-circuits them, and single-must-clause booleans unwrap.
func Rewrite(q Query) Query {
	for {
		rewritten := rewriteOnce(q)
		if queryEqual(rewritten, q) {
			return rewritten
		}
		q = rewritten
	}
}

func rewriteOnce(q Query) Query {
	switch v := q.(type) {
	case *BooleanQuery:
		return rewriteBoolean(v)
	default:
		return q
	}
}

func rewriteBoolean(q *BooleanQuery) Query {
	// Children first, flattening same-operator nesting on the way up.
	clauses := make([]BooleanClause, 0, len(q.Clauses))
	for _, c := range q.Clauses {
		rewritten := rewriteOnce(c.Query)

		if inner, ok := rewritten.(*BooleanQuery); ok {
			if canFlatten(c.Occur, inner) {
				for _, ic := range inner.Clauses {
					clauses = append(clauses, BooleanClause{Occur: c.Occur, Query: ic.Query})
				}
				continue
			}
		}

		clauses = append(clauses, BooleanClause{Occur: c.Occur, Query: rewritten})
	}

	// MatchAll contributes nothing to a conjunction.
	filtered := make([]BooleanClause, 0, len(clauses))
	hasMust := false
	for _, c := range clauses {
		if c.Occur == BooleanMust {
			hasMust = true
			if _, ok := c.Query.(*MatchAllQuery); ok {
				continue
			}
		}
		filtered = append(filtered, c)
	}

	// One MatchNone must-clause kills the whole conjunction.
	for _, c := range filtered {
		if c.Occur == BooleanMust {
			if _, ok := c.Query.(*MatchNoneQuery); ok {
				return &MatchNoneQuery{}
			}
		}
	}

	// Every must-clause was MatchAll and nothing else remains.
	if hasMust && len(filtered) == 0 {
		return &MatchAllQuery{}
	}

	// A lone must-clause needs no boolean wrapper.
	if len(filtered) == 1 && filtered[0].Occur == BooleanMust {
		return filtered[0].Query
	}

	return &BooleanQuery{
		Clauses:            filtered,
		MinimumShouldMatch: q.MinimumShouldMatch,
	}
}

// canFlatten reports whether inner can merge into its parent clause:
// AND(AND(a,b)) → AND(a,b), OR(OR(a,b)) → OR(a,b), never through MustNot.
func canFlatten(outerOccur BooleanOp, inner *BooleanQuery) bool {
	if outerOccur == BooleanMustNot {
		return false
	}
	for _, c := range inner.Clauses {
		if c.Occur != outerOccur {
			return false
		}
	}
	return true
}

// queryEqual is the structural comparison Rewrite uses to detect its
// fixed point; leaves compare by pointer, which suffices after one pass.
func queryEqual(a, b Query) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Type() != b.Type() {
		return false
	}
	if ab, ok := a.(*BooleanQuery); ok {
		bb := b.(*BooleanQuery)
		if len(ab.Clauses) != len(bb.Clauses) {
			return false
		}
		for i := range ab.Clauses {
			if ab.Clauses[i].Occur != bb.Clauses[i].Occur {
				return false
			}
			if !queryEqual(ab.Clauses[i].Query, bb.Clauses[i].Query) {
				return false
			}
		}
		return true
	}
	return a == b
}
