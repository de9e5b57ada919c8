package dto

import (
	"time"

	"retailcore/internal/core/apperror"
	"retailcore/internal/core/id"
	"retailcore/internal/core/types"
	"retailcore/internal/domain/purchasing"
)

// ComposePurchaseLine is one requested order line.
type ComposePurchaseLine struct {
	ProductID string      `json:"productId" binding:"required"`
	VariantID *string     `json:"variantId"`
	Quantity  int64       `json:"quantity" binding:"required,min=1"`
	UnitCost  types.Money `json:"unitCost"`
}

// ComposePurchaseRequest creates a draft purchase order.
type ComposePurchaseRequest struct {
	SupplierName string                `json:"supplierName" binding:"required"`
	Comment      string                `json:"comment"`
	ExpectedDate *time.Time            `json:"expectedDate"`
	Lines        []ComposePurchaseLine `json:"lines" binding:"required,min=1"`
}

// ToInput converts the request into the service input.
func (r ComposePurchaseRequest) ToInput() (purchasing.ComposeInput, error) {
	input := purchasing.ComposeInput{
		SupplierName: r.SupplierName,
		Comment:      r.Comment,
		ExpectedDate: r.ExpectedDate,
		Lines:        make([]purchasing.ComposeLine, 0, len(r.Lines)),
	}
	for _, l := range r.Lines {
		productID, err := id.Parse(l.ProductID)
		if err != nil {
			return purchasing.ComposeInput{}, apperror.NewValidation("invalid product id").
				WithDetail("value", l.ProductID)
		}
		line := purchasing.ComposeLine{
			ProductID: productID,
			Quantity:  l.Quantity,
			UnitCost:  l.UnitCost,
		}
		if l.VariantID != nil {
			variantID, err := id.Parse(*l.VariantID)
			if err != nil {
				return purchasing.ComposeInput{}, apperror.NewValidation("invalid variant id").
					WithDetail("value", *l.VariantID)
			}
			line.VariantID = &variantID
		}
		input.Lines = append(input.Lines, line)
	}
	return input, nil
}

// PurchaseOrderResponse is the API shape of an order with its lines.
type PurchaseOrderResponse struct {
	*purchasing.Order
	Lines []purchasing.Line `json:"lines,omitempty"`
}
