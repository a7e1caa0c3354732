// Package sales owns the sale aggregate, its status state machine and the
// effects engine that applies or reverses a sale's ledger consequences.
package sales

import "time"

// Status enumerates sale lifecycle states.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusConfirmed, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// EffectBearing reports whether ledgers reflect a sale in this status.
// Only confirmed and delivered sales have their inventory and financial
// consequences applied.
func (s Status) EffectBearing() bool {
	return s == StatusConfirmed || s == StatusDelivered
}

// EffectAction is the ledger action a status transition requires.
type EffectAction int

const (
	EffectNone EffectAction = iota
	EffectApply
	EffectReverse
)

// TransitionAction is the single transition table consulted by every
// status-changing path. Delete behaves as a transition to a non-effect-bearing
// state followed by removal.
func TransitionAction(from, to Status) EffectAction {
	switch {
	case !from.EffectBearing() && to.EffectBearing():
		return EffectApply
	case from.EffectBearing() && !to.EffectBearing():
		return EffectReverse
	default:
		return EffectNone
	}
}

// SaleItem is one line of a sale. Subtotal is computed, never client-supplied.
type SaleItem struct {
	ProductNo int64   `bson:"product_no" json:"product_no"`
	Qty       float64 `bson:"qty" json:"qty"`
	Price     float64 `bson:"price" json:"price"`
	Discount  float64 `bson:"discount" json:"discount"`
	Tax       float64 `bson:"tax" json:"tax"`
	Subtotal  float64 `bson:"subtotal" json:"subtotal"`
}

// Sale is the aggregate root. It exclusively owns its items; the ledgers it
// touches are shared with other workflows. Once effects are applied, the
// stored amount/paid are the source of truth for what must be reversed.
type Sale struct {
	SaleID        int64      `bson:"sale_id" json:"sale_id"`
	SaleNo        string     `bson:"sale_no" json:"sale_no"`
	SelNo         int64      `bson:"sel_no" json:"sel_no"`
	UserID        string     `bson:"user_id" json:"-"`
	CustomerNo    int64      `bson:"customer_no" json:"customer_no"`
	CustomerName  string     `bson:"customer_name" json:"customer_name"`
	StoreNo       int64      `bson:"store_no" json:"store_no"`
	StoreName     string     `bson:"store_name" json:"store_name"`
	AccountID     int64      `bson:"account_id" json:"account_id"`
	AccountName   string     `bson:"account_name" json:"account_name"`
	Items         []SaleItem `bson:"items" json:"items"`
	Subtotal      float64    `bson:"subtotal" json:"subtotal"`
	TotalDiscount float64    `bson:"total_discount" json:"total_discount"`
	TotalTax      float64    `bson:"total_tax" json:"total_tax"`
	Amount        float64    `bson:"amount" json:"amount"`
	Paid          float64    `bson:"paid" json:"paid"`
	BalanceDue    float64    `bson:"balance_due" json:"balance_due"`
	Status        Status     `bson:"status" json:"status"`
	Notes         string     `bson:"notes" json:"notes"`
	DeliveryDate  *time.Time `bson:"delivery_date,omitempty" json:"delivery_date,omitempty"`
	CreatedAt     time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `bson:"updated_at" json:"updated_at"`
}

// Debt is the receivable recognized against the customer when effects apply.
func (s *Sale) Debt() float64 {
	return s.Amount - s.Paid
}

// TotalQty sums line quantities.
func (s *Sale) TotalQty() float64 {
	var total float64
	for _, item := range s.Items {
		total += item.Qty
	}
	return total
}

// ProductNos lists the distinct products touched by the sale.
func (s *Sale) ProductNos() []int64 {
	seen := make(map[int64]struct{}, len(s.Items))
	var nos []int64
	for _, item := range s.Items {
		if _, ok := seen[item.ProductNo]; ok {
			continue
		}
		seen[item.ProductNo] = struct{}{}
		nos = append(nos, item.ProductNo)
	}
	return nos
}

// Totals aggregates the computed amounts of a sale.
type Totals struct {
	Subtotal      float64
	TotalDiscount float64
	TotalTax      float64
	Amount        float64
}

// CalculateTotals fills each item's subtotal and returns the aggregates.
// Per item: subtotal = qty*price - discount + tax. Aggregate amount =
// sum(qty*price) - sum(discount) + sum(tax), which equals the item sum.
func CalculateTotals(items []SaleItem) Totals {
	var t Totals
	for i := range items {
		items[i].Subtotal = items[i].Qty*items[i].Price - items[i].Discount + items[i].Tax
		t.Subtotal += items[i].Qty * items[i].Price
		t.TotalDiscount += items[i].Discount
		t.TotalTax += items[i].Tax
	}
	t.Amount = t.Subtotal - t.TotalDiscount + t.TotalTax
	return t
}
