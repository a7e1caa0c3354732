package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/shopstack-erp/shopstack/internal/shared"
)

const colStoreProducts = "store_products"

// Repository persists StoreProduct rows and answers aggregate queries.
type Repository struct {
	db *mongo.Database
}

// NewRepository builds the Repository.
func NewRepository(db *mongo.Database) *Repository {
	return &Repository{db: db}
}

func (r *Repository) col() *mongo.Collection {
	return r.db.Collection(colStoreProducts)
}

// Get returns the stock row for (product, store) owned by userID.
func (r *Repository) Get(ctx context.Context, productNo, storeNo int64, userID string) (*StoreProduct, error) {
	var sp StoreProduct
	err := r.col().
		FindOne(ctx, bson.M{"product_no": productNo, "store_no": storeNo, "user_id": userID}).
		Decode(&sp)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, shared.NewNotFoundError("store product", fmt.Sprintf("%d@%d", productNo, storeNo))
		}
		return nil, fmt.Errorf("inventory: get store product %d@%d: %w", productNo, storeNo, err)
	}
	return &sp, nil
}

// IncQty adjusts a stock row by delta using an atomic increment. A missing
// row is a NotFoundError: a sale must not silently create inventory.
func (r *Repository) IncQty(ctx context.Context, productNo, storeNo int64, userID string, delta float64) error {
	res, err := r.col().UpdateOne(ctx,
		bson.M{"product_no": productNo, "store_no": storeNo, "user_id": userID},
		bson.M{
			"$inc": bson.M{"qty": delta},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("inventory: inc qty %d@%d: %w", productNo, storeNo, err)
	}
	if res.MatchedCount == 0 {
		return shared.NewNotFoundError("store product", fmt.Sprintf("%d@%d", productNo, storeNo))
	}
	return nil
}

// Receive books an inbound movement (purchase, transfer-in, opening stock),
// creating the row lazily on first movement into the store.
func (r *Repository) Receive(ctx context.Context, productNo, storeNo int64, userID string, qty float64) error {
	if qty <= 0 {
		return shared.NewValidationError("inbound quantity must be positive, got %.2f", qty)
	}
	now := time.Now().UTC()
	_, err := r.col().UpdateOne(ctx,
		bson.M{"product_no": productNo, "store_no": storeNo, "user_id": userID},
		bson.M{
			"$inc":         bson.M{"qty": qty},
			"$set":         bson.M{"updated_at": now},
			"$setOnInsert": bson.M{"created_at": now},
		},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("inventory: receive %d@%d: %w", productNo, storeNo, err)
	}
	return nil
}

// ProductTotal sums qty across all stores for one product.
func (r *Repository) ProductTotal(ctx context.Context, productNo int64, userID string) (float64, error) {
	return r.sum(ctx, bson.M{"product_no": productNo, "user_id": userID})
}

// StoreTotal sums qty across all products for one store.
func (r *Repository) StoreTotal(ctx context.Context, storeNo int64, userID string) (float64, error) {
	return r.sum(ctx, bson.M{"store_no": storeNo, "user_id": userID})
}

func (r *Repository) sum(ctx context.Context, match bson.M) (float64, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: match}},
		bson.D{{Key: "$group", Value: bson.M{"_id": nil, "qty": bson.M{"$sum": "$qty"}}}},
	}
	cur, err := r.col().Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("inventory: sum qty: %w", err)
	}
	defer cur.Close(ctx)

	var out struct {
		Qty float64 `bson:"qty"`
	}
	if cur.Next(ctx) {
		if err := cur.Decode(&out); err != nil {
			return 0, fmt.Errorf("inventory: decode sum: %w", err)
		}
	}
	return out.Qty, cur.Err()
}

// ProductTotals groups qty by (product, tenant) across the whole collection.
// Used by the sweep job.
func (r *Repository) ProductTotals(ctx context.Context) ([]ProductTotal, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$group", Value: bson.M{
			"_id": bson.M{"product_no": "$product_no", "user_id": "$user_id"},
			"qty": bson.M{"$sum": "$qty"},
		}}},
	}
	cur, err := r.col().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("inventory: product totals: %w", err)
	}
	defer cur.Close(ctx)

	var totals []ProductTotal
	for cur.Next(ctx) {
		var row struct {
			ID struct {
				ProductNo int64  `bson:"product_no"`
				UserID    string `bson:"user_id"`
			} `bson:"_id"`
			Qty float64 `bson:"qty"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("inventory: decode product total: %w", err)
		}
		totals = append(totals, ProductTotal{ProductNo: row.ID.ProductNo, UserID: row.ID.UserID, Qty: row.Qty})
	}
	return totals, cur.Err()
}

// StoreTotals groups qty by (store, tenant) across the whole collection.
func (r *Repository) StoreTotals(ctx context.Context) ([]StoreTotal, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$group", Value: bson.M{
			"_id": bson.M{"store_no": "$store_no", "user_id": "$user_id"},
			"qty": bson.M{"$sum": "$qty"},
		}}},
	}
	cur, err := r.col().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("inventory: store totals: %w", err)
	}
	defer cur.Close(ctx)

	var totals []StoreTotal
	for cur.Next(ctx) {
		var row struct {
			ID struct {
				StoreNo int64  `bson:"store_no"`
				UserID  string `bson:"user_id"`
			} `bson:"_id"`
			Qty float64 `bson:"qty"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("inventory: decode store total: %w", err)
		}
		totals = append(totals, StoreTotal{StoreNo: row.ID.StoreNo, UserID: row.ID.UserID, Qty: row.Qty})
	}
	return totals, cur.Err()
}

// EnsureIndexes creates the unique (product, store, tenant) index.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "product_no", Value: 1}, {Key: "store_no", Value: 1}, {Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("inventory: ensure indexes: %w", err)
	}
	return nil
}
