package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseIntent(t *testing.T) {
	tests := []struct {
		in   string
		want Intent
		ok   bool
	}{
		{"get_balance", IntentGetBalance, true},
		{" Analyze_Runway ", IntentAnalyzeRunway, true},
		{"evaluate_purchase", IntentEvaluatePurchase, true},
		{"general_chat", IntentGeneralChat, true},
		{"buy_stocks", IntentGeneralChat, false},
		{"", IntentGeneralChat, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseIntent(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestIntentRequiresLedger(t *testing.T) {
	for _, i := range Intents() {
		assert.Equal(t, i != IntentGeneralChat, i.RequiresLedger(), i)
	}
	assert.False(t, Intent("other").RequiresLedger())
}

func TestPurchaseRequestNormalizedAndValidate(t *testing.T) {
	r := PurchaseRequest{ItemName: "  ", ItemPrice: decimal.NewFromInt(10)}.Normalized()
	assert.Equal(t, UnknownItemName, r.ItemName)
	assert.Equal(t, 1, r.CreditMonths)
	assert.True(t, r.IsPlaceholder())
	assert.NoError(t, r.Validate())

	bad := PurchaseRequest{ItemName: "tv", ItemPrice: decimal.NewFromInt(-5), CreditMonths: 1}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidPurchase)

	zeroMonths := PurchaseRequest{ItemName: "tv", ItemPrice: decimal.NewFromInt(5)}
	assert.ErrorIs(t, zeroMonths.Validate(), ErrInvalidPurchase)

	p := PlaceholderPurchase()
	assert.True(t, p.ItemPrice.IsZero())
	assert.NoError(t, p.Validate())
}
