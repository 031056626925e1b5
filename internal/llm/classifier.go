package llm

import (
	"context"
	"fmt"

	"github.com/dvloznov/monomind/internal/domain"
	"github.com/dvloznov/monomind/internal/pipeline"
)

// Classifier labels user messages with an intent.
type Classifier struct {
	model Model
}

// NewClassifier creates a Classifier backed by model.
func NewClassifier(model Model) *Classifier {
	return &Classifier{model: model}
}

// Classify implements pipeline.IntentClassifier. Labels outside the closed
// set are reported as errors.
func (c *Classifier) Classify(ctx context.Context, text string) (domain.Intent, error) {
	raw, err := c.model.Generate(ctx, Prompt{
		System:      classifierPrompt,
		User:        text,
		JSON:        true,
		Temperature: 0,
	})
	if err != nil {
		return domain.IntentGeneralChat, fmt.Errorf("Classifier.Classify: %w", err)
	}

	var out struct {
		Intent string `json:"intent"`
	}
	if err := decodeModelJSON(raw, &out); err != nil {
		return domain.IntentGeneralChat, fmt.Errorf("Classifier.Classify: %w", err)
	}

	intent, ok := domain.ParseIntent(out.Intent)
	if !ok {
		return domain.IntentGeneralChat, fmt.Errorf("Classifier.Classify: unknown intent %q", out.Intent)
	}
	return intent, nil
}

var _ pipeline.IntentClassifier = (*Classifier)(nil)
