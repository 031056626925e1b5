package domain

import "strings"

// Intent is the closed set of query categories the pipeline routes on.
type Intent string

const (
	IntentGetBalance       Intent = "get_balance"
	IntentAnalyzeRunway    Intent = "analyze_runway"
	IntentEvaluatePurchase Intent = "evaluate_purchase"
	IntentGeneralChat      Intent = "general_chat"
)

// Intents returns every known intent in a stable order.
func Intents() []Intent {
	return []Intent{
		IntentGetBalance,
		IntentAnalyzeRunway,
		IntentEvaluatePurchase,
		IntentGeneralChat,
	}
}

// ParseIntent maps a label to a known intent. Unknown labels report false.
func ParseIntent(s string) (Intent, bool) {
	i := Intent(strings.ToLower(strings.TrimSpace(s)))
	if i.Valid() {
		return i, true
	}
	return IntentGeneralChat, false
}

// Valid reports whether i belongs to the closed set.
func (i Intent) Valid() bool {
	switch i {
	case IntentGetBalance, IntentAnalyzeRunway, IntentEvaluatePurchase, IntentGeneralChat:
		return true
	}
	return false
}

// RequiresLedger reports whether answering i needs the user's ledger.
func (i Intent) RequiresLedger() bool {
	switch i {
	case IntentGetBalance, IntentAnalyzeRunway, IntentEvaluatePurchase:
		return true
	}
	return false
}
