package sales

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/shopstack-erp/shopstack/internal/shared"
)

const colSales = "sales"

// MongoRepository persists Sale documents.
type MongoRepository struct {
	db *mongo.Database
}

// NewMongoRepository builds the repository.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{db: db}
}

func (r *MongoRepository) col() *mongo.Collection {
	return r.db.Collection(colSales)
}

// refFilter matches a sale by formatted sale_no, or by the legacy numeric
// sel_no when the reference is all digits.
func refFilter(ref, userID string) bson.M {
	if n, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return bson.M{"sel_no": n, "user_id": userID}
	}
	return bson.M{"sale_no": ref, "user_id": userID}
}

// Insert stores a new sale document.
func (r *MongoRepository) Insert(ctx context.Context, sale *Sale) error {
	now := time.Now().UTC()
	sale.CreatedAt, sale.UpdatedAt = now, now
	if _, err := r.col().InsertOne(ctx, sale); err != nil {
		return fmt.Errorf("sales: insert %s: %w", sale.SaleNo, err)
	}
	return nil
}

// Get loads one sale by reference for the owner.
func (r *MongoRepository) Get(ctx context.Context, ref, userID string) (*Sale, error) {
	var sale Sale
	err := r.col().FindOne(ctx, refFilter(ref, userID)).Decode(&sale)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, shared.NewNotFoundError("sale", ref)
		}
		return nil, fmt.Errorf("sales: get %s: %w", ref, err)
	}
	return &sale, nil
}

// Update replaces the mutable fields of a stored sale.
func (r *MongoRepository) Update(ctx context.Context, sale *Sale) error {
	sale.UpdatedAt = time.Now().UTC()
	res, err := r.col().UpdateOne(ctx,
		bson.M{"sale_no": sale.SaleNo, "user_id": sale.UserID},
		bson.M{"$set": bson.M{
			"status":        sale.Status,
			"notes":         sale.Notes,
			"paid":          sale.Paid,
			"balance_due":   sale.BalanceDue,
			"delivery_date": sale.DeliveryDate,
			"updated_at":    sale.UpdatedAt,
		}},
	)
	if err != nil {
		return fmt.Errorf("sales: update %s: %w", sale.SaleNo, err)
	}
	if res.MatchedCount == 0 {
		return shared.NewNotFoundError("sale", sale.SaleNo)
	}
	return nil
}

// Delete removes the sale document.
func (r *MongoRepository) Delete(ctx context.Context, saleNo, userID string) error {
	res, err := r.col().DeleteOne(ctx, bson.M{"sale_no": saleNo, "user_id": userID})
	if err != nil {
		return fmt.Errorf("sales: delete %s: %w", saleNo, err)
	}
	if res.DeletedCount == 0 {
		return shared.NewNotFoundError("sale", saleNo)
	}
	return nil
}

// ListByUser returns all sales owned by userID, newest first.
func (r *MongoRepository) ListByUser(ctx context.Context, userID string) ([]Sale, error) {
	cur, err := r.col().Find(ctx,
		bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "sale_id", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("sales: list: %w", err)
	}
	defer cur.Close(ctx)

	var sales []Sale
	if err := cur.All(ctx, &sales); err != nil {
		return nil, fmt.Errorf("sales: decode list: %w", err)
	}
	return sales, nil
}

// EnsureIndexes creates the lookup indexes for sale references.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "sale_no", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "sel_no", Value: 1}, {Key: "user_id", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("sales: ensure indexes: %w", err)
	}
	return nil
}
