package llm

import (
	"strings"

	"github.com/dvloznov/monomind/internal/domain"
)

const assistantName = "MonoMind"

const classifierPrompt = `You are a strictly logical financial routing AI.
Analyze the user's input and determine their intent.
You MUST respond ONLY with a valid JSON object containing a single key "intent".
The value for "intent" MUST be exactly one of these strings:
1. "get_balance" (asking about current money, transactions, ledger, balance or spending)
2. "analyze_runway" (asking how long their money will last, burn rate or survival prediction)
3. "evaluate_purchase" (asking whether they can afford to buy something, outright or on credit)
4. "general_chat" (anything else, greetings or irrelevant questions)
Return ONLY raw JSON. Do NOT use Markdown or code fences.`

const extractorPrompt = `You are a precise financial data extraction agent.
Extract the item name, price and credit details from the user's input.
Respond ONLY with a JSON object with these fields:
- "item_name": string
- "item_price": number (0.0 if the price is missing)
- "is_credit": boolean (true if the user plans to pay in installments or on credit)
- "credit_months": integer (number of monthly installments, 1 if not on credit)
Return ONLY raw JSON. Do NOT use Markdown or code fences.`

const marketPrompt = `You are a market research assistant.
Give a short summary (at most three sentences) of the current typical retail price range for the item the user names.
Mention the currency. If you are not sure, say so plainly instead of guessing.`

const languageRule = "CRITICAL: Always respond in English, regardless of the language the user speaks."

// composerPrompt builds the system prompt around the deterministic facts.
func composerPrompt(intent domain.Intent, facts string) string {
	var b strings.Builder
	b.WriteString("You are " + assistantName + ", an elite financial AI assistant.\n")

	switch intent {
	case domain.IntentAnalyzeRunway:
		b.WriteString("The user is asking about their financial runway or burn rate.\n")
		b.WriteString("Explain these metrics clearly and professionally. Warn them if the runway is very short.\n")
	case domain.IntentGetBalance:
		b.WriteString("Answer the user's question about their balance and transactions. Be concise and professional.\n")
	case domain.IntentEvaluatePurchase:
		b.WriteString("The user wants to know whether they can afford a purchase.\n")
		b.WriteString("State the risk verdict first, then explain it using the figures below.\n")
		b.WriteString("Use the market context only as background; the verdict is final.\n")
	default:
		b.WriteString("Have a helpful, brief conversation. If the user asks about their finances, ")
		b.WriteString("suggest asking about their balance, runway or a planned purchase.\n")
	}

	b.WriteString("\nUse ONLY these deterministic facts. Do NOT invent or recalculate any numbers.\n")
	b.WriteString(facts)
	b.WriteString("\n")
	b.WriteString(languageRule)
	return b.String()
}
