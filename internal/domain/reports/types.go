// Package reports provides read-side tabular reports. Each report is one
// grouped aggregation over a fact table, parameterized by a dimension;
// nothing here introduces new invariants.
package reports

import (
	"time"

	"retailcore/internal/core/id"
	"retailcore/internal/core/types"
)

// --- Sales report ---

// SalesDimension selects how sales facts are grouped.
type SalesDimension string

const (
	SalesByProduct  SalesDimension = "product"
	SalesByCategory SalesDimension = "category"
	SalesByDay      SalesDimension = "day"
)

// Valid reports whether the dimension is known.
func (d SalesDimension) Valid() bool {
	switch d {
	case SalesByProduct, SalesByCategory, SalesByDay:
		return true
	}
	return false
}

// SalesReportFilter defines filter for the sales report.
type SalesReportFilter struct {
	// Period (required)
	FromDate time.Time
	ToDate   time.Time

	Dimension SalesDimension

	// Optional narrowing
	ProductIDs  []id.ID
	CategoryIDs []id.ID

	// Pagination
	Limit  int
	Offset int
}

// SalesReportRow is one group in the sales report. Key identifies the
// group member (product ID, category ID or ISO date depending on the
// dimension); Label carries its display name.
type SalesReportRow struct {
	Key   string `json:"key"`
	Label string `json:"label"`

	SalesCount int64 `json:"salesCount"`
	UnitsSold  int64 `json:"unitsSold"`

	GrossTotal    types.Money `json:"grossTotal"`
	DiscountTotal types.Money `json:"discountTotal"`
	NetTotal      types.Money `json:"netTotal"`
}

// SalesReport is the full grouped sales report.
type SalesReport struct {
	FromDate  time.Time      `json:"fromDate"`
	ToDate    time.Time      `json:"toDate"`
	Dimension SalesDimension `json:"dimension"`

	Rows      []SalesReportRow `json:"rows"`
	TotalRows int              `json:"totalRows"`

	// Summary across all rows, not just the returned page
	TotalUnits    int64       `json:"totalUnits"`
	TotalGross    types.Money `json:"totalGross"`
	TotalDiscount types.Money `json:"totalDiscount"`
	TotalNet      types.Money `json:"totalNet"`
}

// --- Movement report ---

// MovementDimension selects how ledger facts are grouped.
type MovementDimension string

const (
	MovementsByType    MovementDimension = "type"
	MovementsByProduct MovementDimension = "product"
)

// Valid reports whether the dimension is known.
func (d MovementDimension) Valid() bool {
	switch d {
	case MovementsByType, MovementsByProduct:
		return true
	}
	return false
}

// MovementReportFilter defines filter for the movement report.
type MovementReportFilter struct {
	// Period (required)
	FromDate time.Time
	ToDate   time.Time

	Dimension MovementDimension

	ProductIDs []id.ID

	Limit  int
	Offset int
}

// MovementReportRow is one group in the movement report.
type MovementReportRow struct {
	Key   string `json:"key"`
	Label string `json:"label"`

	Inbound  int64 `json:"inbound"`
	Outbound int64 `json:"outbound"`
	Net      int64 `json:"net"`
}

// MovementReport is the full grouped movement report.
type MovementReport struct {
	FromDate  time.Time         `json:"fromDate"`
	ToDate    time.Time         `json:"toDate"`
	Dimension MovementDimension `json:"dimension"`

	Rows      []MovementReportRow `json:"rows"`
	TotalRows int                 `json:"totalRows"`

	TotalInbound  int64 `json:"totalInbound"`
	TotalOutbound int64 `json:"totalOutbound"`
}

// --- Stock valuation ---

// ValuationFilter defines filter for the stock valuation report.
type ValuationFilter struct {
	CategoryIDs []id.ID

	// ExcludeZero drops products with zero on-hand quantity
	ExcludeZero bool

	Limit  int
	Offset int
}

// ValuationRow is one product in the valuation report.
type ValuationRow struct {
	ProductID id.ID  `json:"productId"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`

	OnHand   int64       `json:"onHand"`
	UnitCost types.Money `json:"unitCost"`
	Value    types.Money `json:"value"`
}

// ValuationReport is the stock valuation at cost.
type ValuationReport struct {
	AsOfDate time.Time `json:"asOfDate"`

	Rows      []ValuationRow `json:"rows"`
	TotalRows int            `json:"totalRows"`

	TotalUnits int64       `json:"totalUnits"`
	TotalValue types.Money `json:"totalValue"`
}
