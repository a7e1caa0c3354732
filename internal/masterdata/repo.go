package masterdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/shopstack-erp/shopstack/internal/shared"
)

const (
	colProducts  = "products"
	colStores    = "stores"
	colCustomers = "customers"
	colAccounts  = "accounts"
)

// Repository reads and mutates the shared ledger entities. Every query
// filters by the owning tenant.
type Repository struct {
	db *mongo.Database
}

// NewRepository builds the Repository.
func NewRepository(db *mongo.Database) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetProduct(ctx context.Context, productNo int64, userID string) (*Product, error) {
	var p Product
	err := r.db.Collection(colProducts).
		FindOne(ctx, bson.M{"product_no": productNo, "user_id": userID}).
		Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, shared.NewNotFoundError("product", productNo)
		}
		return nil, fmt.Errorf("masterdata: get product %d: %w", productNo, err)
	}
	return &p, nil
}

func (r *Repository) GetStore(ctx context.Context, storeNo int64, userID string) (*Store, error) {
	var s Store
	err := r.db.Collection(colStores).
		FindOne(ctx, bson.M{"store_no": storeNo, "user_id": userID}).
		Decode(&s)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, shared.NewNotFoundError("store", storeNo)
		}
		return nil, fmt.Errorf("masterdata: get store %d: %w", storeNo, err)
	}
	return &s, nil
}

func (r *Repository) GetCustomer(ctx context.Context, customerNo int64, userID string) (*Customer, error) {
	var c Customer
	err := r.db.Collection(colCustomers).
		FindOne(ctx, bson.M{"customer_no": customerNo, "user_id": userID}).
		Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, shared.NewNotFoundError("customer", customerNo)
		}
		return nil, fmt.Errorf("masterdata: get customer %d: %w", customerNo, err)
	}
	return &c, nil
}

func (r *Repository) GetAccount(ctx context.Context, accountID int64, userID string) (*Account, error) {
	var a Account
	err := r.db.Collection(colAccounts).
		FindOne(ctx, bson.M{"account_id": accountID, "user_id": userID}).
		Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, shared.NewNotFoundError("account", accountID)
		}
		return nil, fmt.Errorf("masterdata: get account %d: %w", accountID, err)
	}
	return &a, nil
}

// IncCustomerBalance adjusts the customer's receivable by delta.
func (r *Repository) IncCustomerBalance(ctx context.Context, customerNo int64, userID string, delta float64) error {
	return r.inc(ctx, colCustomers, bson.M{"customer_no": customerNo, "user_id": userID}, "bal", delta, "customer", customerNo)
}

// IncAccountBalance adjusts the account's cash position by delta.
func (r *Repository) IncAccountBalance(ctx context.Context, accountID int64, userID string, delta float64) error {
	return r.inc(ctx, colAccounts, bson.M{"account_id": accountID, "user_id": userID}, "balance", delta, "account", accountID)
}

// IncStoreTotalItems adjusts the store's total item count by delta.
func (r *Repository) IncStoreTotalItems(ctx context.Context, storeNo int64, userID string, delta float64) error {
	return r.inc(ctx, colStores, bson.M{"store_no": storeNo, "user_id": userID}, "total_items", delta, "store", storeNo)
}

func (r *Repository) inc(ctx context.Context, col string, filter bson.M, field string, delta float64, entity string, key any) error {
	res, err := r.db.Collection(col).UpdateOne(ctx, filter, bson.M{
		"$inc": bson.M{field: delta},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("masterdata: inc %s.%s: %w", col, field, err)
	}
	if res.MatchedCount == 0 {
		return shared.NewNotFoundError(entity, key)
	}
	return nil
}

// SetProductStoringBalance writes the recalculated aggregate stock.
func (r *Repository) SetProductStoringBalance(ctx context.Context, productNo int64, userID string, value float64) error {
	res, err := r.db.Collection(colProducts).UpdateOne(ctx,
		bson.M{"product_no": productNo, "user_id": userID},
		bson.M{"$set": bson.M{"storing_balance": value, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("masterdata: set product %d storing_balance: %w", productNo, err)
	}
	if res.MatchedCount == 0 {
		return shared.NewNotFoundError("product", productNo)
	}
	return nil
}

// SetStoreTotalItems writes the recalculated store total.
func (r *Repository) SetStoreTotalItems(ctx context.Context, storeNo int64, userID string, value float64) error {
	res, err := r.db.Collection(colStores).UpdateOne(ctx,
		bson.M{"store_no": storeNo, "user_id": userID},
		bson.M{"$set": bson.M{"total_items": value, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("masterdata: set store %d total_items: %w", storeNo, err)
	}
	if res.MatchedCount == 0 {
		return shared.NewNotFoundError("store", storeNo)
	}
	return nil
}

// CreateProduct inserts a product row. Used by seeding and the purchase flow.
func (r *Repository) CreateProduct(ctx context.Context, p *Product) error {
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	if _, err := r.db.Collection(colProducts).InsertOne(ctx, p); err != nil {
		return fmt.Errorf("masterdata: create product: %w", err)
	}
	return nil
}

// CreateStore inserts a store row.
func (r *Repository) CreateStore(ctx context.Context, s *Store) error {
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	if _, err := r.db.Collection(colStores).InsertOne(ctx, s); err != nil {
		return fmt.Errorf("masterdata: create store: %w", err)
	}
	return nil
}

// CreateCustomer inserts a customer row.
func (r *Repository) CreateCustomer(ctx context.Context, c *Customer) error {
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	if _, err := r.db.Collection(colCustomers).InsertOne(ctx, c); err != nil {
		return fmt.Errorf("masterdata: create customer: %w", err)
	}
	return nil
}

// CreateAccount inserts an account row.
func (r *Repository) CreateAccount(ctx context.Context, a *Account) error {
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	if _, err := r.db.Collection(colAccounts).InsertOne(ctx, a); err != nil {
		return fmt.Errorf("masterdata: create account: %w", err)
	}
	return nil
}
