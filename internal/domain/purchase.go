package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// UnknownItemName is the item name of the placeholder purchase.
const UnknownItemName = "unknown item"

// ErrInvalidPurchase is returned for purchase requests that cannot be assessed.
var ErrInvalidPurchase = errors.New("invalid purchase request")

// PurchaseRequest is the structured form of "can I buy X".
type PurchaseRequest struct {
	ItemName     string          `json:"item_name"`
	ItemPrice    decimal.Decimal `json:"item_price"`
	IsCredit     bool            `json:"is_credit"`
	CreditMonths int             `json:"credit_months"`
}

// PlaceholderPurchase is used when extraction fails.
func PlaceholderPurchase() PurchaseRequest {
	return PurchaseRequest{
		ItemName:     UnknownItemName,
		ItemPrice:    decimal.Zero,
		CreditMonths: 1,
	}
}

// IsPlaceholder reports whether r carries no usable item.
func (r PurchaseRequest) IsPlaceholder() bool {
	name := strings.TrimSpace(r.ItemName)
	return name == "" || strings.EqualFold(name, UnknownItemName)
}

// Validate checks the price and credit term.
func (r PurchaseRequest) Validate() error {
	if r.ItemPrice.IsNegative() {
		return fmt.Errorf("%w: price %s is negative", ErrInvalidPurchase, r.ItemPrice)
	}
	if r.CreditMonths < 1 {
		return fmt.Errorf("%w: credit months %d is less than 1", ErrInvalidPurchase, r.CreditMonths)
	}
	return nil
}

// Normalized fills defaults: a blank name becomes the unknown item and a
// missing credit term becomes one month.
func (r PurchaseRequest) Normalized() PurchaseRequest {
	r.ItemName = strings.TrimSpace(r.ItemName)
	if r.ItemName == "" {
		r.ItemName = UnknownItemName
	}
	if r.CreditMonths < 1 {
		r.CreditMonths = 1
	}
	return r
}
