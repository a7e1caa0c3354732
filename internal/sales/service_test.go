package sales

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shopstack-erp/shopstack/internal/masterdata"
	"github.com/shopstack-erp/shopstack/internal/shared"
)

type memSaleRepo struct {
	sales map[string]*Sale
}

func newMemSaleRepo() *memSaleRepo {
	return &memSaleRepo{sales: map[string]*Sale{}}
}

func (r *memSaleRepo) Insert(ctx context.Context, sale *Sale) error {
	cp := *sale
	r.sales[sale.SaleNo] = &cp
	return nil
}

func (r *memSaleRepo) Get(ctx context.Context, ref, userID string) (*Sale, error) {
	if n, err := strconv.ParseInt(ref, 10, 64); err == nil {
		for _, s := range r.sales {
			if s.SelNo == n && s.UserID == userID {
				cp := *s
				return &cp, nil
			}
		}
		return nil, shared.NewNotFoundError("sale", ref)
	}
	s, ok := r.sales[ref]
	if !ok || s.UserID != userID {
		return nil, shared.NewNotFoundError("sale", ref)
	}
	cp := *s
	return &cp, nil
}

func (r *memSaleRepo) Update(ctx context.Context, sale *Sale) error {
	if _, ok := r.sales[sale.SaleNo]; !ok {
		return shared.NewNotFoundError("sale", sale.SaleNo)
	}
	cp := *sale
	r.sales[sale.SaleNo] = &cp
	return nil
}

func (r *memSaleRepo) Delete(ctx context.Context, saleNo, userID string) error {
	if _, ok := r.sales[saleNo]; !ok {
		return shared.NewNotFoundError("sale", saleNo)
	}
	delete(r.sales, saleNo)
	return nil
}

func (r *memSaleRepo) ListByUser(ctx context.Context, userID string) ([]Sale, error) {
	var out []Sale
	for _, s := range r.sales {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

type memSeq struct {
	n int64
}

func (s *memSeq) Next(ctx context.Context, name string) (int64, error) {
	s.n++
	return s.n, nil
}

type memParties struct {
	customers map[int64]*masterdata.Customer
	stores    map[int64]*masterdata.Store
	accounts  map[int64]*masterdata.Account
}

func (p *memParties) GetCustomer(ctx context.Context, customerNo int64, userID string) (*masterdata.Customer, error) {
	c, ok := p.customers[customerNo]
	if !ok {
		return nil, shared.NewNotFoundError("customer", customerNo)
	}
	return c, nil
}

func (p *memParties) GetStore(ctx context.Context, storeNo int64, userID string) (*masterdata.Store, error) {
	s, ok := p.stores[storeNo]
	if !ok {
		return nil, shared.NewNotFoundError("store", storeNo)
	}
	return s, nil
}

func (p *memParties) GetAccount(ctx context.Context, accountID int64, userID string) (*masterdata.Account, error) {
	a, ok := p.accounts[accountID]
	if !ok {
		return nil, shared.NewNotFoundError("account", accountID)
	}
	return a, nil
}

type memUow struct {
	transactional bool
}

func (u *memUow) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (u *memUow) Transactional() bool { return u.transactional }

type memRecalc struct {
	productCalls []int64
	storeCalls   []int64
}

func (m *memRecalc) RecalculateProductBalance(ctx context.Context, productNo int64, userID string) error {
	m.productCalls = append(m.productCalls, productNo)
	return nil
}

func (m *memRecalc) RecalculateStoreTotal(ctx context.Context, storeNo int64, userID string) error {
	m.storeCalls = append(m.storeCalls, storeNo)
	return nil
}

type memInvoices struct {
	created []string
	err     error
}

func (m *memInvoices) CreateForSale(ctx context.Context, sale *Sale) error {
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, sale.SaleNo)
	return nil
}

type memNames struct{}

func (memNames) CustomerName(ctx context.Context, customerNo int64, userID string) (string, error) {
	return "Acme Traders", nil
}

func (memNames) StoreName(ctx context.Context, storeNo int64, userID string) (string, error) {
	return "Main Branch", nil
}

type fixture struct {
	stock    *memStock
	ledgers  *memLedgers
	repo     *memSaleRepo
	recalc   *memRecalc
	invoices *memInvoices
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	stock := newMemStock()
	stock.seed(1, 3, "u1", 50)
	ledgers := newMemLedgers()
	ledgers.storeTotals[3] = 50
	repo := newMemSaleRepo()
	recalc := &memRecalc{}
	invoices := &memInvoices{}
	parties := &memParties{
		customers: map[int64]*masterdata.Customer{7: {CustomerNo: 7, Name: "Acme Traders"}},
		stores:    map[int64]*masterdata.Store{3: {StoreNo: 3, Name: "Main Branch"}},
		accounts:  map[int64]*masterdata.Account{2: {AccountID: 2, Name: "Cash"}},
	}
	engine := NewEffectsEngine(stock, ledgers, true, slog.Default())
	svc := NewService(repo, &memSeq{}, parties, engine, invoices, recalc, &memUow{transactional: true}, memNames{}, slog.Default())
	return &fixture{stock: stock, ledgers: ledgers, repo: repo, recalc: recalc, invoices: invoices, svc: svc}
}

func draftRequest() CreateSaleRequest {
	return CreateSaleRequest{
		CustomerNo: 7,
		StoreNo:    3,
		AccountID:  2,
		Items:      []CreateSaleItem{{ProductNo: 1, Qty: 5, Price: 100, Discount: 10, Tax: 5}},
		Status:     StatusDraft,
	}
}

func TestInsertDraftSaleHasNoLedgerEffects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.svc.InsertSale(ctx, draftRequest(), "u1")
	require.NoError(t, err)
	require.Equal(t, "SAL-00001", result.SaleNo)
	require.Equal(t, int64(1), result.SaleID)
	require.InDelta(t, 495.0, result.Sale.Amount, 0.0001)
	require.InDelta(t, 495.0, result.Sale.BalanceDue, 0.0001)

	require.InDelta(t, 50.0, f.stock.qty(1, 3), 0.0001)
	require.InDelta(t, 50.0, f.ledgers.storeTotals[3], 0.0001)
	require.InDelta(t, 0.0, f.ledgers.customerBals[7], 0.0001)
	require.Empty(t, f.invoices.created)
	require.Empty(t, f.recalc.productCalls)
}

func TestConfirmAppliesEffects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.svc.InsertSale(ctx, draftRequest(), "u1")
	require.NoError(t, err)

	status := StatusConfirmed
	require.NoError(t, f.svc.UpdateSale(ctx, result.SaleNo, UpdateSaleRequest{Status: &status}, "u1"))

	require.InDelta(t, 45.0, f.stock.qty(1, 3), 0.0001)
	require.InDelta(t, 45.0, f.ledgers.storeTotals[3], 0.0001)
	require.InDelta(t, 495.0, f.ledgers.customerBals[7], 0.0001)
	require.InDelta(t, 0.0, f.ledgers.accountBals[2], 0.0001)
	require.Equal(t, []string{result.SaleNo}, f.invoices.created)
	require.Equal(t, []int64{1}, f.recalc.productCalls)
	require.Equal(t, []int64{3}, f.recalc.storeCalls)

	stored, err := f.svc.GetSale(ctx, result.SaleNo, "u1")
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, stored.Status)
}

func TestCancelReversesEffects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.svc.InsertSale(ctx, draftRequest(), "u1")
	require.NoError(t, err)

	confirmed := StatusConfirmed
	require.NoError(t, f.svc.UpdateSale(ctx, result.SaleNo, UpdateSaleRequest{Status: &confirmed}, "u1"))
	cancelled := StatusCancelled
	require.NoError(t, f.svc.UpdateSale(ctx, result.SaleNo, UpdateSaleRequest{Status: &cancelled}, "u1"))

	require.InDelta(t, 50.0, f.stock.qty(1, 3), 0.0001)
	require.InDelta(t, 50.0, f.ledgers.storeTotals[3], 0.0001)
	require.InDelta(t, 0.0, f.ledgers.customerBals[7], 0.0001)
}

func TestConfirmedToDeliveredLeavesLedgersAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.svc.InsertSale(ctx, draftRequest(), "u1")
	require.NoError(t, err)
	confirmed := StatusConfirmed
	require.NoError(t, f.svc.UpdateSale(ctx, result.SaleNo, UpdateSaleRequest{Status: &confirmed}, "u1"))

	delivered := StatusDelivered
	require.NoError(t, f.svc.UpdateSale(ctx, result.SaleNo, UpdateSaleRequest{Status: &delivered}, "u1"))

	// effects already in place, applied exactly once
	require.InDelta(t, 45.0, f.stock.qty(1, 3), 0.0001)
	require.InDelta(t, 495.0, f.ledgers.customerBals[7], 0.0001)
}

func TestInsertConfirmedWithPartialPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := CreateSaleRequest{
		CustomerNo: 7,
		StoreNo:    3,
		AccountID:  2,
		Items:      []CreateSaleItem{{ProductNo: 1, Qty: 2, Price: 100}},
		Paid:       150,
		Status:     StatusConfirmed,
	}
	result, err := f.svc.InsertSale(ctx, req, "u1")
	require.NoError(t, err)
	require.InDelta(t, 200.0, result.Sale.Amount, 0.0001)

	require.InDelta(t, 50.0, f.ledgers.customerBals[7], 0.0001)
	require.InDelta(t, 150.0, f.ledgers.accountBals[2], 0.0001)
	require.InDelta(t, 48.0, f.stock.qty(1, 3), 0.0001)
	require.Equal(t, []string{result.SaleNo}, f.invoices.created)
}

func TestDeleteConfirmedSaleRestoresAllLedgers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := CreateSaleRequest{
		CustomerNo: 7,
		StoreNo:    3,
		AccountID:  2,
		Items:      []CreateSaleItem{{ProductNo: 1, Qty: 2, Price: 100}},
		Paid:       150,
		Status:     StatusConfirmed,
	}
	result, err := f.svc.InsertSale(ctx, req, "u1")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteSale(ctx, result.SaleNo, "u1"))

	require.InDelta(t, 50.0, f.stock.qty(1, 3), 0.0001)
	require.InDelta(t, 50.0, f.ledgers.storeTotals[3], 0.0001)
	require.InDelta(t, 0.0, f.ledgers.customerBals[7], 0.0001)
	require.InDelta(t, 0.0, f.ledgers.accountBals[2], 0.0001)

	_, err = f.svc.GetSale(ctx, result.SaleNo, "u1")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestInsertConfirmedInsufficientStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := draftRequest()
	req.Status = StatusConfirmed
	req.Items[0].Qty = 51

	_, err := f.svc.InsertSale(ctx, req, "u1")
	var insufficient *shared.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)

	// nothing persisted, nothing moved
	require.Empty(t, f.repo.sales)
	require.InDelta(t, 50.0, f.stock.qty(1, 3), 0.0001)
}

func TestPaymentDeltaOnEffectBearingSale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := draftRequest()
	req.Status = StatusConfirmed
	result, err := f.svc.InsertSale(ctx, req, "u1")
	require.NoError(t, err)
	require.InDelta(t, 495.0, f.ledgers.customerBals[7], 0.0001)

	paid := 100.0
	require.NoError(t, f.svc.UpdateSale(ctx, result.SaleNo, UpdateSaleRequest{Paid: &paid}, "u1"))

	require.InDelta(t, 100.0, f.ledgers.accountBals[2], 0.0001)
	require.InDelta(t, 395.0, f.ledgers.customerBals[7], 0.0001)

	stored, err := f.svc.GetSale(ctx, result.SaleNo, "u1")
	require.NoError(t, err)
	require.InDelta(t, 100.0, stored.Paid, 0.0001)
	require.InDelta(t, 395.0, stored.BalanceDue, 0.0001)
}

func TestPaymentOnDraftSaleTouchesNoLedgers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.svc.InsertSale(ctx, draftRequest(), "u1")
	require.NoError(t, err)

	paid := 200.0
	require.NoError(t, f.svc.UpdateSale(ctx, result.SaleNo, UpdateSaleRequest{Paid: &paid}, "u1"))

	require.InDelta(t, 0.0, f.ledgers.accountBals[2], 0.0001)
	require.InDelta(t, 0.0, f.ledgers.customerBals[7], 0.0001)

	stored, err := f.svc.GetSale(ctx, result.SaleNo, "u1")
	require.NoError(t, err)
	require.InDelta(t, 200.0, stored.Paid, 0.0001)
	require.InDelta(t, 295.0, stored.BalanceDue, 0.0001)
}

func TestConfirmAfterPaymentUsesUpdatedPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.svc.InsertSale(ctx, draftRequest(), "u1")
	require.NoError(t, err)

	// pay on the draft, then confirm: debt must reflect the payment
	paid := 200.0
	require.NoError(t, f.svc.UpdateSale(ctx, result.SaleNo, UpdateSaleRequest{Paid: &paid}, "u1"))
	confirmed := StatusConfirmed
	require.NoError(t, f.svc.UpdateSale(ctx, result.SaleNo, UpdateSaleRequest{Status: &confirmed}, "u1"))

	require.InDelta(t, 295.0, f.ledgers.customerBals[7], 0.0001)
	require.InDelta(t, 200.0, f.ledgers.accountBals[2], 0.0001)
}

func TestInsertValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := draftRequest()
	req.Items = nil
	_, err := f.svc.InsertSale(ctx, req, "u1")
	require.ErrorIs(t, err, shared.ErrValidation)

	req = draftRequest()
	req.Items[0].Qty = 0
	_, err = f.svc.InsertSale(ctx, req, "u1")
	require.ErrorIs(t, err, shared.ErrValidation)

	req = draftRequest()
	req.Paid = 1000
	_, err = f.svc.InsertSale(ctx, req, "u1")
	require.ErrorIs(t, err, shared.ErrValidation)

	req = draftRequest()
	req.Status = Status("shipped")
	_, err = f.svc.InsertSale(ctx, req, "u1")
	require.ErrorIs(t, err, shared.ErrValidation)

	require.Empty(t, f.repo.sales)
}

func TestInsertUnknownCustomer(t *testing.T) {
	f := newFixture(t)
	req := draftRequest()
	req.CustomerNo = 999

	_, err := f.svc.InsertSale(context.Background(), req, "u1")
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Empty(t, f.repo.sales)
}

func TestInvoiceFailureDoesNotFailSale(t *testing.T) {
	f := newFixture(t)
	f.invoices.err = errors.New("projection store down")

	req := draftRequest()
	req.Status = StatusConfirmed
	result, err := f.svc.InsertSale(context.Background(), req, "u1")
	require.NoError(t, err)
	require.NotNil(t, result)
	require.InDelta(t, 45.0, f.stock.qty(1, 3), 0.0001)
}

func TestLegacySelNoLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.svc.InsertSale(ctx, draftRequest(), "u1")
	require.NoError(t, err)

	sale, err := f.svc.GetSale(ctx, "1", "u1")
	require.NoError(t, err)
	require.Equal(t, result.SaleNo, sale.SaleNo)
}

func TestGetAllSalesDenormalizesNames(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.InsertSale(ctx, draftRequest(), "u1")
	require.NoError(t, err)

	sales, err := f.svc.GetAllSales(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, sales, 1)
	require.Equal(t, "Acme Traders", sales[0].CustomerName)
	require.Equal(t, "Main Branch", sales[0].StoreName)

	// another tenant sees nothing
	sales, err = f.svc.GetAllSales(ctx, "u2")
	require.NoError(t, err)
	require.Empty(t, sales)
}

func TestUpdateUnknownStatusRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.svc.InsertSale(ctx, draftRequest(), "u1")
	require.NoError(t, err)

	bogus := Status("archived")
	err = f.svc.UpdateSale(ctx, result.SaleNo, UpdateSaleRequest{Status: &bogus}, "u1")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdatePaidAboveAmountRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.svc.InsertSale(ctx, draftRequest(), "u1")
	require.NoError(t, err)

	paid := 1000.0
	err = f.svc.UpdateSale(ctx, result.SaleNo, UpdateSaleRequest{Paid: &paid}, "u1")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestStatusTableDrivenThroughService(t *testing.T) {
	statuses := []Status{StatusDraft, StatusPending, StatusConfirmed, StatusDelivered, StatusCancelled}
	for _, from := range statuses {
		for _, to := range statuses {
			f := newFixture(t)
			ctx := context.Background()

			req := draftRequest()
			req.Status = from
			result, err := f.svc.InsertSale(ctx, req, "u1")
			require.NoError(t, err)

			target := to
			require.NoError(t, f.svc.UpdateSale(ctx, result.SaleNo, UpdateSaleRequest{Status: &target}, "u1"))

			wantQty := 50.0
			if to.EffectBearing() {
				wantQty = 45.0
			}
			require.InDelta(t, wantQty, f.stock.qty(1, 3), 0.0001, "from=%s to=%s", from, to)

			wantBal := 0.0
			if to.EffectBearing() {
				wantBal = 495.0
			}
			require.InDelta(t, wantBal, f.ledgers.customerBals[7], 0.0001, "from=%s to=%s", from, to)
		}
	}
}
