package sales

import "time"

// CreateSaleItem is one requested line item.
type CreateSaleItem struct {
	ProductNo int64   `json:"product_no" validate:"required"`
	Qty       float64 `json:"qty" validate:"gt=0"`
	Price     float64 `json:"price" validate:"gte=0"`
	Discount  float64 `json:"discount" validate:"gte=0"`
	Tax       float64 `json:"tax" validate:"gte=0"`
}

// CreateSaleRequest carries the data for a new sale.
type CreateSaleRequest struct {
	CustomerNo   int64            `json:"customer_no" validate:"required"`
	StoreNo      int64            `json:"store_no" validate:"required"`
	AccountID    int64            `json:"account_id"`
	Items        []CreateSaleItem `json:"items" validate:"min=1,dive"`
	Paid         float64          `json:"paid" validate:"gte=0"`
	Status       Status           `json:"status"`
	Notes        string           `json:"notes"`
	DeliveryDate *time.Time       `json:"delivery_date"`
}

// UpdateSaleRequest is the post-creation whitelist. Items, customer, store
// and account are fixed once a sale exists; editing them is a stated
// limitation of this design, not an oversight to work around here.
type UpdateSaleRequest struct {
	Status       *Status    `json:"status"`
	Notes        *string    `json:"notes"`
	Paid         *float64   `json:"paid" validate:"omitempty,gte=0"`
	DeliveryDate *time.Time `json:"delivery_date"`
}

// InsertSaleResult identifies the created sale.
type InsertSaleResult struct {
	SaleNo string `json:"sale_no"`
	SaleID int64  `json:"sale_id"`
	Sale   *Sale  `json:"sale"`
}
