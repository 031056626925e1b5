package llm

import (
	"context"
	"fmt"

	"github.com/dvloznov/monomind/internal/pipeline"
)

// Composer writes the final answer around the pipeline's facts.
type Composer struct {
	model       Model
	temperature float32
}

// NewComposer creates a Composer backed by model.
func NewComposer(model Model, temperature float32) *Composer {
	return &Composer{model: model, temperature: temperature}
}

// Compose implements pipeline.ResponseComposer.
func (c *Composer) Compose(ctx context.Context, state pipeline.State) (string, error) {
	text, err := c.model.Generate(ctx, Prompt{
		System:      composerPrompt(state.Intent, state.FactSheet()),
		History:     state.History(),
		User:        state.LastUserMessage(),
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("Composer.Compose: %w", err)
	}
	return text, nil
}

var _ pipeline.ResponseComposer = (*Composer)(nil)
