package dto

import (
	"retailcore/internal/core/apperror"
	"retailcore/internal/core/id"
	"retailcore/internal/core/types"
	"retailcore/internal/domain/sales"
)

// ComposeSaleLine is one requested item at checkout.
type ComposeSaleLine struct {
	ProductID string      `json:"productId" binding:"required"`
	VariantID *string     `json:"variantId"`
	Quantity  int64       `json:"quantity" binding:"required,min=1"`
	UnitPrice types.Money `json:"unitPrice"`
}

// ComposeSaleRequest creates a priced open sale.
type ComposeSaleRequest struct {
	CustomerName string            `json:"customerName"`
	Comment      string            `json:"comment"`
	PromoCode    string            `json:"promoCode"`
	Lines        []ComposeSaleLine `json:"lines" binding:"required,min=1"`
}

// ToInput converts the request into the service input.
func (r ComposeSaleRequest) ToInput() (sales.ComposeInput, error) {
	input := sales.ComposeInput{
		CustomerName: r.CustomerName,
		Comment:      r.Comment,
		PromoCode:    r.PromoCode,
		Lines:        make([]sales.ComposeLine, 0, len(r.Lines)),
	}
	for _, l := range r.Lines {
		productID, err := id.Parse(l.ProductID)
		if err != nil {
			return sales.ComposeInput{}, apperror.NewValidation("invalid product id").
				WithDetail("value", l.ProductID)
		}
		line := sales.ComposeLine{
			ProductID: productID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		}
		if l.VariantID != nil {
			variantID, err := id.Parse(*l.VariantID)
			if err != nil {
				return sales.ComposeInput{}, apperror.NewValidation("invalid variant id").
					WithDetail("value", *l.VariantID)
			}
			line.VariantID = &variantID
		}
		input.Lines = append(input.Lines, line)
	}
	return input, nil
}

// SaleResponse is the API shape of a sale with its lines.
type SaleResponse struct {
	*sales.Sale
	Lines []sales.Line `json:"lines,omitempty"`
}
