package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/monomind/internal/pipeline"
)

// MarketResearcher summarizes current prices for an item, using web search
// where the backend supports it.
type MarketResearcher struct {
	model Model
}

// NewMarketResearcher creates a MarketResearcher backed by model.
func NewMarketResearcher(model Model) *MarketResearcher {
	return &MarketResearcher{model: model}
}

// Lookup implements pipeline.MarketContextProvider.
func (r *MarketResearcher) Lookup(ctx context.Context, itemName string) (string, error) {
	itemName = strings.TrimSpace(itemName)
	if itemName == "" {
		return "", fmt.Errorf("MarketResearcher.Lookup: item name is empty")
	}

	text, err := r.model.Generate(ctx, Prompt{
		System:      marketPrompt,
		User:        itemName,
		Temperature: 0.2,
		MaxTokens:   300,
		WebSearch:   true,
	})
	if err != nil {
		return "", fmt.Errorf("MarketResearcher.Lookup: %w", err)
	}
	return text, nil
}

var _ pipeline.MarketContextProvider = (*MarketResearcher)(nil)
