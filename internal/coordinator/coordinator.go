// Package coordinator routes queries across shard nodes and merges their
// partial results. It holds no index data itself: automaton construction,
// term expansion, postings traversal, and scoring all happen on the shards.
package coordinator

import (
	"container/heap"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrNoShards        = errors.New("coordinator: no shards configured")
	ErrAllShardsFailed = errors.New("coordinator: every shard failed")
)

// ShardClient is implemented by shard node connections. The coordinator
// only ever talks to shards through this interface, so tests can stand in
// fakes without a network.
type ShardClient interface {
	// Execute runs a query plan on the shard and returns its partial result.
	Execute(ctx context.Context, plan *QueryPlan) (*ShardResponse, error)

	// Health reports the shard's current health.
	Health(ctx context.Context) (*ShardHealth, error)
}

// Coordinator scatters query plans to shard nodes and gathers the
// shard-local top-K lists into one global ranking. It is stateless apart
// from a cache of the last health poll.
type Coordinator struct {
	config  Config
	clients map[string]ShardClient // keyed by shard ID
	logger  *slog.Logger

	healthMu sync.RWMutex
	health   map[string]*ShardHealth
}

// New builds a Coordinator over the given shard clients. logger may be
// nil, in which case slog.Default() is used.
func New(config Config, clients map[string]ShardClient, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		config:  config,
		clients: clients,
		logger:  logger,
		health:  make(map[string]*ShardHealth),
	}
}

// QueryResult is the merged, client-facing result.
type QueryResult struct {
	Status           string       `json:"status"` // "success", "partial", "error"
	Hits             []ShardHit   `json:"hits"`
	TotalHits        uint64       `json:"total_hits"`
	TookMs           int64        `json:"took_ms"`
	SuccessfulShards []string     `json:"successful_shards"`
	Errors           []ShardError `json:"errors,omitempty"`
}

// ShardError attributes a failure to the shard it came from.
type ShardError struct {
	ShardID string `json:"shard_id"`
	Error   string `json:"error"`
}

// Search fans a query out to every shard and merges whatever comes back.
// A subset of shard failures degrades the result to "partial"; only a
// total loss returns ErrAllShardsFailed.
func (c *Coordinator) Search(ctx context.Context, query QueryClause, opts QueryOptions) (*QueryResult, error) {
	start := time.Now()

	if len(c.clients) == 0 {
		return nil, ErrNoShards
	}

	plan := c.newPlan(query, opts)

	// Each shard answers from its own latest committed generation; there
	// is no cross-shard generation pinning.
	queryCtx, cancel := context.WithTimeout(ctx, c.config.PerShardTimeout)
	defer cancel()

	answers := c.scatter(queryCtx, plan)

	var good []ShardResponse
	var failures []ShardError
	var goodIDs []string

	for _, a := range answers {
		switch {
		case a.err != nil:
			failures = append(failures, ShardError{ShardID: a.shardID, Error: a.err.Error()})
			c.logger.Warn("shard query failed", "shard", a.shardID, "error", a.err)
		case a.response.Status == "error":
			failures = append(failures, ShardError{ShardID: a.shardID, Error: a.response.Error})
		default:
			good = append(good, *a.response)
			goodIDs = append(goodIDs, a.shardID)
		}
	}

	if len(good) == 0 {
		return &QueryResult{
			Status: "error",
			Errors: failures,
			TookMs: time.Since(start).Milliseconds(),
		}, ErrAllShardsFailed
	}

	merged := mergeTopK(good, opts.TopK)

	var totalHits uint64
	for _, resp := range good {
		totalHits += resp.Stats.TotalHits
	}

	status := "success"
	if len(failures) > 0 {
		status = "partial"
	}

	return &QueryResult{
		Status:           status,
		Hits:             merged,
		TotalHits:        totalHits,
		TookMs:           time.Since(start).Milliseconds(),
		SuccessfulShards: goodIDs,
		Errors:           failures,
	}, nil
}

// shardAnswer pairs a shard's response (or error) with its ID during
// scatter-gather.
type shardAnswer struct {
	shardID  string
	response *ShardResponse
	err      error
}

// scatter sends plan to every shard concurrently and blocks until all
// have answered or the context expires.
func (c *Coordinator) scatter(ctx context.Context, plan *QueryPlan) []shardAnswer {
	answers := make([]shardAnswer, 0, len(c.clients))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for shardID, client := range c.clients {
		wg.Add(1)
		go func(id string, cl ShardClient) {
			defer wg.Done()
			resp, err := cl.Execute(ctx, plan)
			mu.Lock()
			answers = append(answers, shardAnswer{shardID: id, response: resp, err: err})
			mu.Unlock()
		}(shardID, client)
	}

	wg.Wait()
	return answers
}

func (c *Coordinator) newPlan(query QueryClause, opts QueryOptions) *QueryPlan {
	return &QueryPlan{
		PlanID:    newPlanID(),
		TimeoutMs: c.config.PerShardTimeout.Milliseconds(),
		Query:     query,
		Options:   opts,
	}
}

// CheckHealth polls every shard and refreshes the cached health map.
func (c *Coordinator) CheckHealth(ctx context.Context) map[string]*ShardHealth {
	var mu sync.Mutex
	var wg sync.WaitGroup
	polled := make(map[string]*ShardHealth, len(c.clients))

	for shardID, client := range c.clients {
		wg.Add(1)
		go func(id string, cl ShardClient) {
			defer wg.Done()
			h, err := cl.Health(ctx)
			if err != nil {
				h = &ShardHealth{Status: "unhealthy"}
				c.logger.Warn("shard health probe failed", "shard", id, "error", err)
			}
			mu.Lock()
			polled[id] = h
			mu.Unlock()
		}(shardID, client)
	}

	wg.Wait()

	c.healthMu.Lock()
	for id, h := range polled {
		c.health[id] = h
	}
	c.healthMu.Unlock()

	return polled
}

// HealthyShardCount reports how many shards looked healthy at the last poll.
func (c *Coordinator) HealthyShardCount() int {
	c.healthMu.RLock()
	defer c.healthMu.RUnlock()

	n := 0
	for _, h := range c.health {
		if h.Status == "healthy" {
			n++
		}
	}
	return n
}

// mergeTopK folds shard-local top-K lists into one global top-K, using a
// bounded min-heap whose root is the weakest hit retained so far.
func mergeTopK(responses []ShardResponse, k int) []ShardHit {
	if k <= 0 {
		k = 10
	}

	h := &hitHeap{}
	heap.Init(h)

	for _, resp := range responses {
		for _, hit := range resp.Hits {
			if h.Len() < k {
				heap.Push(h, hit)
			} else if hit.Score > (*h)[0].Score {
				(*h)[0] = hit
				heap.Fix(h, 0)
			}
		}
	}

	// Drain ascending, fill the output back-to-front for descending order.
	out := make([]ShardHit, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(ShardHit)
	}
	return out
}

// hitHeap is a min-heap of ShardHit ordered by score.
type hitHeap []ShardHit

func (h hitHeap) Len() int            { return len(h) }
func (h hitHeap) Less(i, j int) bool   { return h[i].Score < h[j].Score }
func (h hitHeap) Swap(i, j int)        { h[i], h[j] = h[j], h[i] }
func (h *hitHeap) Push(x any)          { *h = append(*h, x.(ShardHit)) }
func (h *hitHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func newPlanID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("plan-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
