// Package sequence issues strictly increasing integers per named counter,
// backed by a durable counter document so correctness survives restarts and
// multiple instances.
package sequence

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const collection = "counters"

// Counter names used across the application.
const (
	CounterSale    = "sale"
	CounterInvoice = "invoice"
)

// Generator mints per-name monotonic identifiers.
type Generator struct {
	col *mongo.Collection
}

// New builds a Generator on the given database.
func New(db *mongo.Database) *Generator {
	return &Generator{col: db.Collection(collection)}
}

type counterDoc struct {
	Name string `bson:"_id"`
	Seq  int64  `bson:"seq"`
}

// Next atomically increments and returns the named counter, creating it at 1
// on first use. The find-and-modify is a single atomic operation, so
// concurrent callers never receive the same value twice.
func (g *Generator) Next(ctx context.Context, name string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc counterDoc
	err := g.col.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("sequence: next %q: %w", name, err)
	}
	return doc.Seq, nil
}

// FormatSaleNo renders the human-readable sale number, e.g. SAL-00007.
func FormatSaleNo(n int64) string {
	return fmt.Sprintf("SAL-%05d", n)
}

// FormatInvoiceNo renders the human-readable invoice number, e.g. INV-00003.
func FormatInvoiceNo(n int64) string {
	return fmt.Sprintf("INV-%05d", n)
}
