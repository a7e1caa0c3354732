// Package masterdata owns the shared ledger entities mutated by multiple
// workflows: products, stores, customers and cash accounts. The sales effects
// engine is one writer among several, so all mutations are expressed as
// relative increments at the storage layer.
package masterdata

import "time"

// Product carries the derived aggregate stock across all stores.
type Product struct {
	ProductNo      int64     `bson:"product_no" json:"product_no"`
	UserID         string    `bson:"user_id" json:"-"`
	Name           string    `bson:"name" json:"name"`
	Price          float64   `bson:"price" json:"price"`
	StoringBalance float64   `bson:"storing_balance" json:"storing_balance"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updated_at"`
}

// Store carries the derived total item count for one location.
type Store struct {
	StoreNo    int64     `bson:"store_no" json:"store_no"`
	UserID     string    `bson:"user_id" json:"-"`
	Name       string    `bson:"name" json:"name"`
	TotalItems float64   `bson:"total_items" json:"total_items"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at" json:"updated_at"`
}

// Customer carries the outstanding receivable balance.
type Customer struct {
	CustomerNo int64     `bson:"customer_no" json:"customer_no"`
	UserID     string    `bson:"user_id" json:"-"`
	Name       string    `bson:"name" json:"name"`
	Bal        float64   `bson:"bal" json:"bal"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at" json:"updated_at"`
}

// Account carries the cash position.
type Account struct {
	AccountID int64     `bson:"account_id" json:"account_id"`
	UserID    string    `bson:"user_id" json:"-"`
	Name      string    `bson:"name" json:"name"`
	Balance   float64   `bson:"balance" json:"balance"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
