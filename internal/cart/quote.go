package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuoteLine is one cart line priced at build time. UnitPrice is a snapshot
// of the variant price; later catalog edits do not touch it.
type QuoteLine struct {
	LineID    uuid.UUID       `json:"line_id"`
	VariantID uuid.UUID       `json:"variant_id"`
	ProductID uuid.UUID       `json:"product_id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// PurchasedLine names how many units of a variant a committed quote
// consumed. The cart keeps whatever was added on top of that after the
// quote was built.
type PurchasedLine struct {
	VariantID uuid.UUID
	Quantity  int
}

// Quote is the priced, never-persisted view of a cart. Discounts are layered
// on by the coupon evaluator, not here.
type Quote struct {
	UserID   uuid.UUID       `json:"user_id"`
	Lines    []QuoteLine     `json:"lines"`
	Subtotal decimal.Decimal `json:"subtotal"`
}
