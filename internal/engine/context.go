package engine

import (
	"errors"
	"time"
)

var (
	ErrQueryTimeout       = errors.New("query execution timeout")
	ErrStateLimitExceeded = errors.New("automaton state limit exceeded")
	ErrMatchLimitExceeded = errors.New("term match limit exceeded")
)

// ExecutionContext carries one query's resource budgets: a wall-clock
// deadline plus caps on automaton states visited and terms matched.
// Executors bump the counters and call CheckLimits each iteration.
type ExecutionContext struct {
	Deadline time.Time

	MaxStatesVisited int
	MaxTermsMatched  int

	StatesVisited int
	TermsMatched  int

	// checkCounter amortizes time checks.
	checkCounter  int
	checkInterval int

	TimedOut      bool
	LimitExceeded bool
}

// NewExecutionContext builds a context with the given timeout and caps;
// non-positive caps get defaults.
func NewExecutionContext(timeout time.Duration, maxStates, maxTerms int) *ExecutionContext {
	if maxStates <= 0 {
		maxStates = 10000
	}
	if maxTerms <= 0 {
		maxTerms = 1000
	}
	return &ExecutionContext{
		Deadline:         time.Now().Add(timeout),
		MaxStatesVisited: maxStates,
		MaxTermsMatched:  maxTerms,
		checkInterval:    128,
	}
}

// CheckLimits reports the first exceeded budget, if any. The deadline is
// only consulted every checkInterval calls to keep time.Now() off the
// per-document path.
func (ctx *ExecutionContext) CheckLimits() error {
	if ctx.StatesVisited >= ctx.MaxStatesVisited {
		ctx.LimitExceeded = true
		return ErrStateLimitExceeded
	}
	if ctx.TermsMatched >= ctx.MaxTermsMatched {
		ctx.LimitExceeded = true
		return ErrMatchLimitExceeded
	}

	ctx.checkCounter++
	if ctx.checkCounter%ctx.checkInterval == 0 {
		if time.Now().After(ctx.Deadline) {
			ctx.TimedOut = true
			return ErrQueryTimeout
		}
	}
	return nil
}
