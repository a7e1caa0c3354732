package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopstack-erp/shopstack/internal/shared"
)

// StockReader answers aggregate quantity queries over StoreProduct rows.
type StockReader interface {
	ProductTotal(ctx context.Context, productNo int64, userID string) (float64, error)
	StoreTotal(ctx context.Context, storeNo int64, userID string) (float64, error)
	ProductTotals(ctx context.Context) ([]ProductTotal, error)
	StoreTotals(ctx context.Context) ([]StoreTotal, error)
}

// AggregateWriter writes recalculated aggregates onto Product and Store.
type AggregateWriter interface {
	SetProductStoringBalance(ctx context.Context, productNo int64, userID string, value float64) error
	SetStoreTotalItems(ctx context.Context, storeNo int64, userID string, value float64) error
}

// Recalculator recomputes derived aggregates from the authoritative
// StoreProduct rows. It is idempotent and is the self-healing mechanism
// against drift left by partial failures in the effects engine.
type Recalculator struct {
	stock   StockReader
	ledgers AggregateWriter
	logger  *slog.Logger
}

// NewRecalculator builds the Recalculator.
func NewRecalculator(stock StockReader, ledgers AggregateWriter, logger *slog.Logger) *Recalculator {
	return &Recalculator{stock: stock, ledgers: ledgers, logger: logger}
}

// RecalculateProductBalance writes the summed stock into the product's
// storing balance.
func (r *Recalculator) RecalculateProductBalance(ctx context.Context, productNo int64, userID string) error {
	total, err := r.stock.ProductTotal(ctx, productNo, userID)
	if err != nil {
		return fmt.Errorf("inventory: recalc product %d: %w", productNo, err)
	}
	return r.ledgers.SetProductStoringBalance(ctx, productNo, userID, total)
}

// RecalculateStoreTotal writes the summed stock into the store's total items.
func (r *Recalculator) RecalculateStoreTotal(ctx context.Context, storeNo int64, userID string) error {
	total, err := r.stock.StoreTotal(ctx, storeNo, userID)
	if err != nil {
		return fmt.Errorf("inventory: recalc store %d: %w", storeNo, err)
	}
	return r.ledgers.SetStoreTotalItems(ctx, storeNo, userID, total)
}

// SweepAll recalculates every product and store aggregate for all tenants.
// Stock rows referencing deleted products or stores are logged and skipped.
func (r *Recalculator) SweepAll(ctx context.Context) error {
	productTotals, err := r.stock.ProductTotals(ctx)
	if err != nil {
		return err
	}
	for _, pt := range productTotals {
		if err := r.ledgers.SetProductStoringBalance(ctx, pt.ProductNo, pt.UserID, pt.Qty); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				r.logger.Warn("sweep skipped orphan stock rows",
					slog.Int64("product_no", pt.ProductNo),
					slog.String("user_id", pt.UserID))
				continue
			}
			return err
		}
	}

	storeTotals, err := r.stock.StoreTotals(ctx)
	if err != nil {
		return err
	}
	for _, st := range storeTotals {
		if err := r.ledgers.SetStoreTotalItems(ctx, st.StoreNo, st.UserID, st.Qty); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				r.logger.Warn("sweep skipped orphan stock rows",
					slog.Int64("store_no", st.StoreNo),
					slog.String("user_id", st.UserID))
				continue
			}
			return err
		}
	}

	r.logger.Info("recalculation sweep finished",
		slog.Int("products", len(productTotals)),
		slog.Int("stores", len(storeTotals)))
	return nil
}
