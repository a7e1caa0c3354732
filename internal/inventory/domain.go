// Package inventory owns per-store stock rows and the recalculation pass that
// repairs the derived product/store aggregates from them.
package inventory

import "time"

// StoreProduct is the authoritative stock row for one product in one store,
// unique per (product_no, store_no, user_id). Rows are created lazily on the
// first inbound movement; sales never create them.
type StoreProduct struct {
	ProductNo int64     `bson:"product_no" json:"product_no"`
	StoreNo   int64     `bson:"store_no" json:"store_no"`
	UserID    string    `bson:"user_id" json:"-"`
	Qty       float64   `bson:"qty" json:"qty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ProductTotal is one product's stock summed across stores for one tenant.
type ProductTotal struct {
	ProductNo int64   `bson:"product_no"`
	UserID    string  `bson:"user_id"`
	Qty       float64 `bson:"qty"`
}

// StoreTotal is one store's stock summed across products for one tenant.
type StoreTotal struct {
	StoreNo int64   `bson:"store_no"`
	UserID  string  `bson:"user_id"`
	Qty     float64 `bson:"qty"`
}
