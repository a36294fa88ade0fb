package enums

// StockStatus is the shopper-facing availability of a variant. It is derived
// from the available quantity and recomputed on every stock mutation.
type StockStatus string

const (
	StockStatusInStock    StockStatus = "IN_STOCK"
	StockStatusLowStock   StockStatus = "LOW_STOCK"
	StockStatusOutOfStock StockStatus = "OUT_OF_STOCK"
)

var validStockStatuses = []StockStatus{
	StockStatusInStock,
	StockStatusLowStock,
	StockStatusOutOfStock,
}

// String implements fmt.Stringer.
func (s StockStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StockStatus.
func (s StockStatus) IsValid() bool {
	for _, candidate := range validStockStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// StockStatusFor derives the availability label from the available quantity.
func StockStatusFor(availableQty, lowStockThreshold int) StockStatus {
	switch {
	case availableQty <= 0:
		return StockStatusOutOfStock
	case availableQty <= lowStockThreshold:
		return StockStatusLowStock
	default:
		return StockStatusInStock
	}
}
