package dto

// CreateStockCountRequest plans a counting session. AutoAdjust and the scope
// settings are fixed here; completion reads them back from the session.
type CreateStockCountRequest struct {
	Name            string  `json:"name" binding:"required"`
	CategoryID      *string `json:"categoryId"`
	IncludeInactive bool    `json:"includeInactive"`
	AutoAdjust      bool    `json:"autoAdjust"`
	Comment         string  `json:"comment"`
}

// RecordCountRequest records a physical count for one product.
type RecordCountRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Counted   int64  `json:"counted" binding:"min=0"`
	Notes     string `json:"notes"`
}
