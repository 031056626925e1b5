package pipeline

import (
	"testing"

	"github.com/dvloznov/monomind/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultGraphPaths(t *testing.T) {
	g := DefaultGraph()

	tests := []struct {
		intent domain.Intent
		want   []Stage
	}{
		{
			intent: domain.IntentGeneralChat,
			want:   []Stage{StageClassifyIntent, StageComposeResponse, StageEnd},
		},
		{
			intent: domain.IntentGetBalance,
			want:   []Stage{StageClassifyIntent, StageFetchLedger, StageComputeMetrics, StageComposeResponse, StageEnd},
		},
		{
			intent: domain.IntentAnalyzeRunway,
			want:   []Stage{StageClassifyIntent, StageFetchLedger, StageComputeMetrics, StageComposeResponse, StageEnd},
		},
		{
			intent: domain.IntentEvaluatePurchase,
			want: []Stage{
				StageClassifyIntent, StageFetchLedger, StageComputeMetrics, StageExtractPurchase,
				StageFetchMarketContext, StageAssessRisk, StageComposeResponse, StageEnd,
			},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.intent), func(t *testing.T) {
			assert.Equal(t, tt.want, g.Path(tt.intent))
		})
	}
}

func TestDefaultGraphEveryPathComposesOnce(t *testing.T) {
	for _, intent := range domain.Intents() {
		path := DefaultGraph().Path(intent)
		require.GreaterOrEqual(t, len(path), 2)
		assert.Equal(t, StageComposeResponse, path[len(path)-2], intent)

		composes := 0
		for _, s := range path {
			if s == StageComposeResponse {
				composes++
			}
		}
		assert.Equal(t, 1, composes, intent)
	}
}

func TestGraphNext(t *testing.T) {
	g := DefaultGraph()

	next, err := g.Next(StageComputeMetrics, domain.IntentEvaluatePurchase)
	require.NoError(t, err)
	assert.Equal(t, StageExtractPurchase, next)

	next, err = g.Next(StageComputeMetrics, domain.IntentGetBalance)
	require.NoError(t, err)
	assert.Equal(t, StageComposeResponse, next)

	_, err = g.Next(StageEnd, domain.IntentGetBalance)
	assert.ErrorIs(t, err, ErrInvalidGraph)
}

func TestNewGraphRejectsInvalidTables(t *testing.T) {
	order := []Stage{StageClassifyIntent, StageFetchLedger, StageComposeResponse, StageEnd}

	tests := []struct {
		name  string
		order []Stage
		edges map[Stage]Edge
	}{
		{
			name:  "missing edge",
			order: order,
			edges: map[Stage]Edge{
				StageClassifyIntent:  Always(StageFetchLedger),
				StageComposeResponse: Always(StageEnd),
			},
		},
		{
			name:  "backward edge",
			order: order,
			edges: map[Stage]Edge{
				StageClassifyIntent:  Always(StageFetchLedger),
				StageFetchLedger:     Always(StageClassifyIntent),
				StageComposeResponse: Always(StageEnd),
			},
		},
		{
			name:  "self loop",
			order: order,
			edges: map[Stage]Edge{
				StageClassifyIntent:  Always(StageFetchLedger),
				StageFetchLedger:     Always(StageFetchLedger),
				StageComposeResponse: Always(StageEnd),
			},
		},
		{
			name:  "end without composing",
			order: order,
			edges: map[Stage]Edge{
				StageClassifyIntent:  Always(StageFetchLedger),
				StageFetchLedger:     Always(StageEnd),
				StageComposeResponse: Always(StageEnd),
			},
		},
		{
			name:  "router to unknown stage",
			order: order,
			edges: map[Stage]Edge{
				StageClassifyIntent: Branch(func(i domain.Intent) Stage {
					if i == domain.IntentGeneralChat {
						return "SMALL_TALK"
					}
					return StageFetchLedger
				}),
				StageFetchLedger:     Always(StageComposeResponse),
				StageComposeResponse: Always(StageEnd),
			},
		},
		{
			name:  "unreachable stage",
			order: order,
			edges: map[Stage]Edge{
				StageClassifyIntent:  Always(StageComposeResponse),
				StageFetchLedger:     Always(StageComposeResponse),
				StageComposeResponse: Always(StageEnd),
			},
		},
		{
			name:  "end has an edge",
			order: order,
			edges: map[Stage]Edge{
				StageClassifyIntent:  Always(StageFetchLedger),
				StageFetchLedger:     Always(StageComposeResponse),
				StageComposeResponse: Always(StageEnd),
				StageEnd:             Always(StageEnd),
			},
		},
		{
			name:  "order without end",
			order: []Stage{StageClassifyIntent, StageComposeResponse},
			edges: map[Stage]Edge{
				StageClassifyIntent: Always(StageComposeResponse),
			},
		},
		{
			name:  "duplicate stage",
			order: []Stage{StageClassifyIntent, StageComposeResponse, StageComposeResponse, StageEnd},
			edges: map[Stage]Edge{
				StageClassifyIntent:  Always(StageComposeResponse),
				StageComposeResponse: Always(StageEnd),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGraph(tt.order, tt.edges)
			assert.ErrorIs(t, err, ErrInvalidGraph)
		})
	}
}

func TestMustGraphPanicsOnInvalidTable(t *testing.T) {
	assert.Panics(t, func() {
		MustGraph([]Stage{StageClassifyIntent, StageEnd}, map[Stage]Edge{})
	})
}
