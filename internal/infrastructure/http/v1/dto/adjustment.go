package dto

// CreateAdjustmentRequest proposes a new on-hand quantity for a product or
// one of its variants.
type CreateAdjustmentRequest struct {
	ProductID   string  `json:"productId" binding:"required"`
	VariantID   *string `json:"variantId"`
	NewQuantity int64   `json:"newQuantity" binding:"min=0"`
	Reason      string  `json:"reason" binding:"required"`
	Notes       string  `json:"notes"`
}

// ReviewAdjustmentRequest approves or rejects a pending adjustment.
type ReviewAdjustmentRequest struct {
	Comment string `json:"comment"`
}
