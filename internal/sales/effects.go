package sales

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopstack-erp/shopstack/internal/inventory"
	"github.com/shopstack-erp/shopstack/internal/shared"
)

// StockPort is the slice of the inventory repository the engine needs.
type StockPort interface {
	Get(ctx context.Context, productNo, storeNo int64, userID string) (*inventory.StoreProduct, error)
	IncQty(ctx context.Context, productNo, storeNo int64, userID string, delta float64) error
}

// LedgerPort mutates the shared financial ledgers by relative increments.
type LedgerPort interface {
	IncStoreTotalItems(ctx context.Context, storeNo int64, userID string, delta float64) error
	IncCustomerBalance(ctx context.Context, customerNo int64, userID string, delta float64) error
	IncAccountBalance(ctx context.Context, accountID int64, userID string, delta float64) error
}

// EffectsEngine applies and reverses the ledger consequences of a sale.
// Apply and Reverse are exact inverses: running one after the other returns
// every touched ledger to its prior value. The engine never triggers
// recalculation itself; the caller does so after commit.
type EffectsEngine struct {
	stock         StockPort
	ledgers       LedgerPort
	transactional bool
	logger        *slog.Logger
}

// NewEffectsEngine builds the engine. transactional tells the engine whether
// its writes run under an all-or-nothing commit; without one, a mid-sequence
// failure is surfaced as a ConsistencyError naming the touched ledgers.
func NewEffectsEngine(stock StockPort, ledgers LedgerPort, transactional bool, logger *slog.Logger) *EffectsEngine {
	return &EffectsEngine{stock: stock, ledgers: ledgers, transactional: transactional, logger: logger}
}

// CheckStock verifies every line has sufficient stock before a transition
// into an effect-bearing status. The check and the later decrement are not
// atomic against concurrent sales on the same row unless the unit of work is
// transactional, so two concurrent sales can both pass and oversell.
func (e *EffectsEngine) CheckStock(ctx context.Context, sale *Sale) error {
	required := make(map[int64]float64, len(sale.Items))
	for _, item := range sale.Items {
		required[item.ProductNo] += item.Qty
	}
	for _, productNo := range sale.ProductNos() {
		sp, err := e.stock.Get(ctx, productNo, sale.StoreNo, sale.UserID)
		if err != nil {
			return err
		}
		if sp.Qty < required[productNo] {
			return &shared.InsufficientStockError{
				ProductNo: productNo,
				Available: sp.Qty,
				Required:  required[productNo],
			}
		}
	}
	return nil
}

// Apply books the sale's consequences into the five ledgers.
func (e *EffectsEngine) Apply(ctx context.Context, sale *Sale) error {
	return e.run(ctx, sale, 1)
}

// Reverse undoes Apply using the stored sale's amount and paid values.
func (e *EffectsEngine) Reverse(ctx context.Context, sale *Sale) error {
	return e.run(ctx, sale, -1)
}

// run executes the ledger sequence in a fixed order: per-item stock, store
// total, customer receivable, account cash. direction +1 applies, -1 reverses.
func (e *EffectsEngine) run(ctx context.Context, sale *Sale, direction float64) error {
	var touched []string

	for _, item := range sale.Items {
		if err := e.stock.IncQty(ctx, item.ProductNo, sale.StoreNo, sale.UserID, -direction*item.Qty); err != nil {
			return e.fail(sale, touched, fmt.Errorf("stock %d: %w", item.ProductNo, err))
		}
		touched = append(touched, fmt.Sprintf("store_product:%d", item.ProductNo))
	}

	if err := e.ledgers.IncStoreTotalItems(ctx, sale.StoreNo, sale.UserID, -direction*sale.TotalQty()); err != nil {
		return e.fail(sale, touched, fmt.Errorf("store %d total: %w", sale.StoreNo, err))
	}
	touched = append(touched, fmt.Sprintf("store:%d", sale.StoreNo))

	if debt := sale.Debt(); debt > 0 {
		if err := e.ledgers.IncCustomerBalance(ctx, sale.CustomerNo, sale.UserID, direction*debt); err != nil {
			return e.fail(sale, touched, fmt.Errorf("customer %d balance: %w", sale.CustomerNo, err))
		}
		touched = append(touched, fmt.Sprintf("customer:%d", sale.CustomerNo))
	}

	if sale.Paid > 0 {
		if err := e.ledgers.IncAccountBalance(ctx, sale.AccountID, sale.UserID, direction*sale.Paid); err != nil {
			return e.fail(sale, touched, fmt.Errorf("account %d balance: %w", sale.AccountID, err))
		}
	}

	return nil
}

// AdjustPayment moves a payment delta between the customer receivable and
// the cash account for a sale whose effects are already in place.
func (e *EffectsEngine) AdjustPayment(ctx context.Context, sale *Sale, delta float64) error {
	if delta == 0 {
		return nil
	}
	if err := e.ledgers.IncAccountBalance(ctx, sale.AccountID, sale.UserID, delta); err != nil {
		return fmt.Errorf("account %d balance: %w", sale.AccountID, err)
	}
	if err := e.ledgers.IncCustomerBalance(ctx, sale.CustomerNo, sale.UserID, -delta); err != nil {
		return e.fail(sale, []string{fmt.Sprintf("account:%d", sale.AccountID)}, fmt.Errorf("customer %d balance: %w", sale.CustomerNo, err))
	}
	return nil
}

// fail wraps a mid-sequence error. Under a transaction the abort discards the
// earlier writes, so the underlying error is enough; without one the touched
// ledgers are logged so operators can run the recalculation pass and
// reconcile customer/account balances by hand.
func (e *EffectsEngine) fail(sale *Sale, touched []string, err error) error {
	if e.transactional || len(touched) == 0 {
		return err
	}
	cerr := &shared.ConsistencyError{SaleNo: sale.SaleNo, Touched: touched, Err: err}
	e.logger.Error("partial ledger update",
		slog.String("sale_no", sale.SaleNo),
		slog.Any("touched", touched),
		slog.Any("error", err))
	return cerr
}
