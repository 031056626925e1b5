package pipeline

import (
	"errors"
	"fmt"

	"github.com/dvloznov/monomind/internal/domain"
)

// Stage names one state of the orchestration graph.
type Stage string

const (
	StageClassifyIntent     Stage = "CLASSIFY_INTENT"
	StageFetchLedger        Stage = "FETCH_LEDGER"
	StageComputeMetrics     Stage = "COMPUTE_METRICS"
	StageExtractPurchase    Stage = "EXTRACT_PURCHASE"
	StageFetchMarketContext Stage = "FETCH_MARKET_CONTEXT"
	StageAssessRisk         Stage = "ASSESS_RISK"
	StageComposeResponse    Stage = "COMPOSE_RESPONSE"
	StageEnd                Stage = "END"
)

// Router picks the next stage from the classified intent. Routers must be
// pure and defined for every intent.
type Router func(domain.Intent) Stage

// Edge is the outgoing transition of a stage: either a fixed target or a router.
type Edge struct {
	To    Stage
	Route Router
}

// Always is an unconditional transition.
func Always(to Stage) Edge {
	return Edge{To: to}
}

// Branch is a transition decided by r.
func Branch(r Router) Edge {
	return Edge{Route: r}
}

func (e Edge) targets() []Stage {
	if e.Route == nil {
		return []Stage{e.To}
	}
	seen := make(map[Stage]bool)
	var out []Stage
	for _, intent := range domain.Intents() {
		to := e.Route(intent)
		if !seen[to] {
			seen[to] = true
			out = append(out, to)
		}
	}
	return out
}

func (e Edge) next(intent domain.Intent) Stage {
	if e.Route == nil {
		return e.To
	}
	return e.Route(intent)
}

// ErrInvalidGraph is returned when a transition table fails validation.
var ErrInvalidGraph = errors.New("invalid pipeline graph")

// Graph is a validated transition table. Stages are listed in execution
// order and every edge points strictly forward, so every walk terminates.
type Graph struct {
	order []Stage
	rank  map[Stage]int
	edges map[Stage]Edge
}

// NewGraph validates the table. order must start with the entry stage and
// end with StageEnd.
func NewGraph(order []Stage, edges map[Stage]Edge) (*Graph, error) {
	if len(order) < 2 || order[len(order)-1] != StageEnd {
		return nil, fmt.Errorf("%w: order must contain an entry stage and end with %s", ErrInvalidGraph, StageEnd)
	}

	g := &Graph{
		order: append([]Stage(nil), order...),
		rank:  make(map[Stage]int, len(order)),
		edges: make(map[Stage]Edge, len(edges)),
	}
	for i, s := range order {
		if _, dup := g.rank[s]; dup {
			return nil, fmt.Errorf("%w: stage %s listed twice", ErrInvalidGraph, s)
		}
		g.rank[s] = i
	}
	for from, e := range edges {
		if _, ok := g.rank[from]; !ok {
			return nil, fmt.Errorf("%w: edge from unknown stage %s", ErrInvalidGraph, from)
		}
		if e.Route == nil && e.To == "" {
			return nil, fmt.Errorf("%w: stage %s has an empty edge", ErrInvalidGraph, from)
		}
		g.edges[from] = e
	}

	if err := g.validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// MustGraph is NewGraph that panics on an invalid table.
func MustGraph(order []Stage, edges map[Stage]Edge) *Graph {
	g, err := NewGraph(order, edges)
	if err != nil {
		panic(err)
	}
	return g
}

func (g *Graph) validate() error {
	if _, ok := g.edges[StageEnd]; ok {
		return fmt.Errorf("%w: %s must not have outgoing edges", ErrInvalidGraph, StageEnd)
	}

	reached := map[Stage]bool{g.order[0]: true}
	for _, from := range g.order[:len(g.order)-1] {
		e, ok := g.edges[from]
		if !ok {
			return fmt.Errorf("%w: stage %s has no outgoing edge", ErrInvalidGraph, from)
		}
		for _, to := range e.targets() {
			toRank, known := g.rank[to]
			if !known {
				return fmt.Errorf("%w: %s routes to unknown stage %q", ErrInvalidGraph, from, to)
			}
			if toRank <= g.rank[from] {
				return fmt.Errorf("%w: %s -> %s points backwards", ErrInvalidGraph, from, to)
			}
			if to == StageEnd && from != StageComposeResponse {
				return fmt.Errorf("%w: %s reaches %s without composing a response", ErrInvalidGraph, from, StageEnd)
			}
			if reached[from] {
				reached[to] = true
			}
		}
	}

	for _, s := range g.order {
		if !reached[s] {
			return fmt.Errorf("%w: stage %s is unreachable", ErrInvalidGraph, s)
		}
	}
	return nil
}

// Entry returns the first stage.
func (g *Graph) Entry() Stage {
	return g.order[0]
}

// Stages returns every stage in execution order, including StageEnd.
func (g *Graph) Stages() []Stage {
	return append([]Stage(nil), g.order...)
}

// Next returns the stage that follows from for the given intent.
func (g *Graph) Next(from Stage, intent domain.Intent) (Stage, error) {
	e, ok := g.edges[from]
	if !ok {
		return "", fmt.Errorf("%w: no transition from %s", ErrInvalidGraph, from)
	}
	return e.next(intent), nil
}

// Path returns the full sequence of stages visited for intent, ending with
// StageEnd.
func (g *Graph) Path(intent domain.Intent) []Stage {
	path := []Stage{g.Entry()}
	for cur := g.Entry(); cur != StageEnd; {
		cur = g.edges[cur].next(intent)
		path = append(path, cur)
	}
	return path
}

// routeAfterClassify sends ledger-backed intents to the ledger fetch.
func routeAfterClassify(intent domain.Intent) Stage {
	if intent.RequiresLedger() {
		return StageFetchLedger
	}
	return StageComposeResponse
}

// routeAfterMetrics continues to purchase analysis only for purchase questions.
func routeAfterMetrics(intent domain.Intent) Stage {
	if intent == domain.IntentEvaluatePurchase {
		return StageExtractPurchase
	}
	return StageComposeResponse
}

var defaultGraph = MustGraph(
	[]Stage{
		StageClassifyIntent,
		StageFetchLedger,
		StageComputeMetrics,
		StageExtractPurchase,
		StageFetchMarketContext,
		StageAssessRisk,
		StageComposeResponse,
		StageEnd,
	},
	map[Stage]Edge{
		StageClassifyIntent:     Branch(routeAfterClassify),
		StageFetchLedger:        Always(StageComputeMetrics),
		StageComputeMetrics:     Branch(routeAfterMetrics),
		StageExtractPurchase:    Always(StageFetchMarketContext),
		StageFetchMarketContext: Always(StageAssessRisk),
		StageAssessRisk:         Always(StageComposeResponse),
		StageComposeResponse:    Always(StageEnd),
	},
)

// DefaultGraph returns the standard question-answering graph.
func DefaultGraph() *Graph {
	return defaultGraph
}
