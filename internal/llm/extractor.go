package llm

import (
	"context"
	"fmt"
	"math"

	"github.com/dvloznov/monomind/internal/domain"
	"github.com/dvloznov/monomind/internal/pipeline"
	"github.com/shopspring/decimal"
)

// Extractor turns purchase questions into structured requests.
type Extractor struct {
	model Model
}

// NewExtractor creates an Extractor backed by model.
func NewExtractor(model Model) *Extractor {
	return &Extractor{model: model}
}

type extraction struct {
	ItemName     string              `json:"item_name"`
	ItemPrice    decimal.NullDecimal `json:"item_price"`
	IsCredit     bool                `json:"is_credit"`
	CreditMonths decimal.NullDecimal `json:"credit_months"`
}

// Extract implements pipeline.PurchaseExtractor. A missing price becomes 0
// and a missing or zero credit term becomes one month.
func (e *Extractor) Extract(ctx context.Context, text string) (domain.PurchaseRequest, error) {
	raw, err := e.model.Generate(ctx, Prompt{
		System:      extractorPrompt,
		User:        text,
		JSON:        true,
		Temperature: 0,
	})
	if err != nil {
		return domain.PurchaseRequest{}, fmt.Errorf("Extractor.Extract: %w", err)
	}

	var out extraction
	if err := decodeModelJSON(raw, &out); err != nil {
		return domain.PurchaseRequest{}, fmt.Errorf("Extractor.Extract: %w", err)
	}

	req := domain.PurchaseRequest{
		ItemName:  out.ItemName,
		ItemPrice: decimal.Zero,
		IsCredit:  out.IsCredit,
	}
	if out.ItemPrice.Valid {
		req.ItemPrice = out.ItemPrice.Decimal
	}
	if out.CreditMonths.Valid {
		months, err := creditMonths(out.CreditMonths.Decimal)
		if err != nil {
			return domain.PurchaseRequest{}, fmt.Errorf("Extractor.Extract: %w", err)
		}
		req.CreditMonths = months
	}
	req = req.Normalized()

	if err := req.Validate(); err != nil {
		return domain.PurchaseRequest{}, fmt.Errorf("Extractor.Extract: %w", err)
	}
	return req, nil
}

// creditMonths accepts 6, 6.0 and "6" alike but refuses fractional terms.
func creditMonths(d decimal.Decimal) (int, error) {
	if !d.IsInteger() || d.GreaterThan(maxCreditMonths) || d.LessThan(maxCreditMonths.Neg()) {
		return 0, fmt.Errorf("%w: credit months %s is not a whole number of months", domain.ErrInvalidPurchase, d)
	}
	return int(d.IntPart()), nil
}

var maxCreditMonths = decimal.NewFromInt(math.MaxInt32)

var _ pipeline.PurchaseExtractor = (*Extractor)(nil)
