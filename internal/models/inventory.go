package models

import "time"

const (
	MovementPurchase   = "PURCHASE"
	MovementUsage      = "USAGE"
	MovementAdjustment = "ADJUSTMENT"
)

// StockItem is a retail or back-bar product the salon keeps on hand.
// QuantityOnHand only changes through stock movements.
type StockItem struct {
	ID             string  `json:"id" db:"id"`
	Name           string  `json:"name" db:"name"`
	SKU            *string `json:"sku,omitempty" db:"sku"`
	Unit           string  `json:"unit" db:"unit"`
	QuantityOnHand int64   `json:"quantity_on_hand" db:"quantity_on_hand"`
	ReorderLevel   int64   `json:"reorder_level" db:"reorder_level"`
	UnitCost       int64   `json:"unit_cost" db:"unit_cost"` // last purchase cost, in paise
	Timestamps
}

// NeedsReorder reports whether stock has fallen to the reorder level.
func (i *StockItem) NeedsReorder() bool {
	return i.QuantityOnHand <= i.ReorderLevel
}

// StockMovement is one immutable change to an item's quantity.
type StockMovement struct {
	ID            string    `json:"id" db:"id"`
	StockItemID   string    `json:"stock_item_id" db:"stock_item_id"`
	Kind          string    `json:"kind" db:"kind"` // PURCHASE, USAGE or ADJUSTMENT
	QuantityDelta int64     `json:"quantity_delta" db:"quantity_delta"`
	QuantityAfter int64     `json:"quantity_after" db:"quantity_after"`
	ReceiptID     *string   `json:"receipt_id,omitempty" db:"receipt_id"`
	Reason        string    `json:"reason" db:"reason"`
	CreatedBy     string    `json:"created_by" db:"created_by"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// PurchaseReceipt records goods received from a supplier.
type PurchaseReceipt struct {
	ID           string                `json:"id" db:"id"`
	SupplierName string                `json:"supplier_name" db:"supplier_name"`
	Reference    string                `json:"reference" db:"reference"`
	Total        int64                 `json:"total" db:"total"`
	Notes        string                `json:"notes" db:"notes"`
	ReceivedBy   string                `json:"received_by" db:"received_by"`
	ReceivedAt   time.Time             `json:"received_at" db:"received_at"`
	Items        []PurchaseReceiptItem `json:"items"`
}

type PurchaseReceiptItem struct {
	ID          string `json:"id" db:"id"`
	ReceiptID   string `json:"receipt_id" db:"receipt_id"`
	StockItemID string `json:"stock_item_id" db:"stock_item_id"`
	Quantity    int64  `json:"quantity" db:"quantity"`
	UnitCost    int64  `json:"unit_cost" db:"unit_cost"`
	LineTotal   int64  `json:"line_total" db:"line_total"`
}
