// Package invoice maintains the read-mostly invoice projection derived from
// confirmed and delivered sales.
package invoice

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/shopstack-erp/shopstack/internal/sales"
	"github.com/shopstack-erp/shopstack/internal/sequence"
)

const colInvoices = "invoices"

// Invoice is the projection document.
type Invoice struct {
	InvoiceID    int64     `bson:"invoice_id" json:"invoice_id"`
	InvoiceNo    string    `bson:"invoice_no" json:"invoice_no"`
	Reference    string    `bson:"reference" json:"reference"`
	SaleNo       string    `bson:"sale_no" json:"sale_no"`
	SaleID       int64     `bson:"sale_id" json:"sale_id"`
	UserID       string    `bson:"user_id" json:"-"`
	CustomerNo   int64     `bson:"customer_no" json:"customer_no"`
	CustomerName string    `bson:"customer_name" json:"customer_name"`
	Amount       float64   `bson:"amount" json:"amount"`
	Paid         float64   `bson:"paid" json:"paid"`
	BalanceDue   float64   `bson:"balance_due" json:"balance_due"`
	IssuedAt     time.Time `bson:"issued_at" json:"issued_at"`
}

// SequencePort mints invoice numbers.
type SequencePort interface {
	Next(ctx context.Context, name string) (int64, error)
}

// Projector creates invoice projections from sales.
type Projector struct {
	db  *mongo.Database
	seq SequencePort
}

// NewProjector builds the Projector.
func NewProjector(db *mongo.Database, seq SequencePort) *Projector {
	return &Projector{db: db, seq: seq}
}

// CreateForSale writes the projection for a sale that became effect-bearing.
// The caller treats this as fire-and-forget.
func (p *Projector) CreateForSale(ctx context.Context, s *sales.Sale) error {
	n, err := p.seq.Next(ctx, sequence.CounterInvoice)
	if err != nil {
		return fmt.Errorf("invoice: mint number for %s: %w", s.SaleNo, err)
	}
	inv := Invoice{
		InvoiceID:    n,
		InvoiceNo:    sequence.FormatInvoiceNo(n),
		Reference:    uuid.NewString(),
		SaleNo:       s.SaleNo,
		SaleID:       s.SaleID,
		UserID:       s.UserID,
		CustomerNo:   s.CustomerNo,
		CustomerName: s.CustomerName,
		Amount:       s.Amount,
		Paid:         s.Paid,
		BalanceDue:   s.BalanceDue,
		IssuedAt:     time.Now().UTC(),
	}
	if _, err := p.db.Collection(colInvoices).InsertOne(ctx, inv); err != nil {
		return fmt.Errorf("invoice: create for %s: %w", s.SaleNo, err)
	}
	return nil
}

// ListBySale returns the projections recorded for one sale.
func (p *Projector) ListBySale(ctx context.Context, saleNo, userID string) ([]Invoice, error) {
	cur, err := p.db.Collection(colInvoices).Find(ctx, bson.M{"sale_no": saleNo, "user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("invoice: list for %s: %w", saleNo, err)
	}
	defer cur.Close(ctx)

	var invoices []Invoice
	if err := cur.All(ctx, &invoices); err != nil {
		return nil, fmt.Errorf("invoice: decode list: %w", err)
	}
	return invoices, nil
}
