package sales

import (
	"context"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/shopstack-erp/shopstack/internal/masterdata"
	"github.com/shopstack-erp/shopstack/internal/sequence"
	"github.com/shopstack-erp/shopstack/internal/shared"
)

// Repository persists sale documents.
type Repository interface {
	Insert(ctx context.Context, sale *Sale) error
	Get(ctx context.Context, ref, userID string) (*Sale, error)
	Update(ctx context.Context, sale *Sale) error
	Delete(ctx context.Context, saleNo, userID string) error
	ListByUser(ctx context.Context, userID string) ([]Sale, error)
}

// SequencePort mints monotonic identifiers.
type SequencePort interface {
	Next(ctx context.Context, name string) (int64, error)
}

// PartyPort resolves referenced master data rows for the owner.
type PartyPort interface {
	GetCustomer(ctx context.Context, customerNo int64, userID string) (*masterdata.Customer, error)
	GetStore(ctx context.Context, storeNo int64, userID string) (*masterdata.Store, error)
	GetAccount(ctx context.Context, accountID int64, userID string) (*masterdata.Account, error)
}

// InvoicePort creates the derived invoice projection. Best effort only.
type InvoicePort interface {
	CreateForSale(ctx context.Context, sale *Sale) error
}

// RecalcPort triggers the aggregate recalculation pass.
type RecalcPort interface {
	RecalculateProductBalance(ctx context.Context, productNo int64, userID string) error
	RecalculateStoreTotal(ctx context.Context, storeNo int64, userID string) error
}

// UnitOfWork scopes a sale operation's writes, transactionally when the
// deployment supports it.
type UnitOfWork interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
	Transactional() bool
}

// NamePort resolves current display names for read paths.
type NamePort interface {
	CustomerName(ctx context.Context, customerNo int64, userID string) (string, error)
	StoreName(ctx context.Context, storeNo int64, userID string) (string, error)
}

// Service orchestrates the sale lifecycle and the effects engine.
type Service struct {
	repo     Repository
	seq      SequencePort
	parties  PartyPort
	engine   *EffectsEngine
	invoices InvoicePort
	recalc   RecalcPort
	uow      UnitOfWork
	names    NamePort
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService builds the Service.
func NewService(repo Repository, seq SequencePort, parties PartyPort, engine *EffectsEngine, invoices InvoicePort, recalc RecalcPort, uow UnitOfWork, names NamePort, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		seq:      seq,
		parties:  parties,
		engine:   engine,
		invoices: invoices,
		recalc:   recalc,
		uow:      uow,
		names:    names,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// InsertSale validates, persists and, for effect-bearing statuses, applies a
// new sale. Nothing is persisted if any validation or lookup fails.
func (s *Service) InsertSale(ctx context.Context, req CreateSaleRequest, userID string) (*InsertSaleResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.NewValidationError("invalid sale: %v", err)
	}

	status := req.Status
	if status == "" {
		status = StatusDraft
	}
	if !status.Valid() {
		return nil, shared.NewValidationError("unknown status %q", status)
	}

	items := make([]SaleItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = SaleItem{ProductNo: it.ProductNo, Qty: it.Qty, Price: it.Price, Discount: it.Discount, Tax: it.Tax}
	}
	totals := CalculateTotals(items)

	if req.Paid > totals.Amount {
		return nil, shared.NewValidationError("paid %.2f exceeds amount %.2f", req.Paid, totals.Amount)
	}
	if req.Paid > 0 && req.AccountID == 0 {
		return nil, shared.NewValidationError("paid sale requires an account")
	}

	sale := &Sale{
		UserID:        userID,
		CustomerNo:    req.CustomerNo,
		StoreNo:       req.StoreNo,
		AccountID:     req.AccountID,
		Items:         items,
		Subtotal:      totals.Subtotal,
		TotalDiscount: totals.TotalDiscount,
		TotalTax:      totals.TotalTax,
		Amount:        totals.Amount,
		Paid:          req.Paid,
		BalanceDue:    totals.Amount - req.Paid,
		Status:        status,
		Notes:         req.Notes,
		DeliveryDate:  req.DeliveryDate,
	}

	if status.EffectBearing() {
		if err := s.engine.CheckStock(ctx, sale); err != nil {
			return nil, err
		}
	}

	customer, err := s.parties.GetCustomer(ctx, req.CustomerNo, userID)
	if err != nil {
		return nil, err
	}
	store, err := s.parties.GetStore(ctx, req.StoreNo, userID)
	if err != nil {
		return nil, err
	}
	sale.CustomerName = customer.Name
	sale.StoreName = store.Name
	if req.AccountID != 0 {
		account, err := s.parties.GetAccount(ctx, req.AccountID, userID)
		if err != nil {
			return nil, err
		}
		sale.AccountName = account.Name
	}

	n, err := s.seq.Next(ctx, sequence.CounterSale)
	if err != nil {
		return nil, err
	}
	sale.SaleID = n
	sale.SelNo = n
	sale.SaleNo = sequence.FormatSaleNo(n)

	err = s.uow.Run(ctx, func(ctx context.Context) error {
		if err := s.repo.Insert(ctx, sale); err != nil {
			return err
		}
		if sale.Status.EffectBearing() {
			return s.engine.Apply(ctx, sale)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if sale.Status.EffectBearing() {
		s.createInvoice(ctx, sale)
		s.triggerRecalc(ctx, sale)
	}

	return &InsertSaleResult{SaleNo: sale.SaleNo, SaleID: sale.SaleID, Sale: sale}, nil
}

// UpdateSale mutates the post-creation whitelist: status, notes, paid and
// delivery date. Effect application/reversal follows the transition table;
// payment deltas move money between the customer receivable and the cash
// account only while the sale is effect-bearing.
func (s *Service) UpdateSale(ctx context.Context, saleNo string, req UpdateSaleRequest, userID string) error {
	if err := s.validate.Struct(req); err != nil {
		return shared.NewValidationError("invalid update: %v", err)
	}

	sale, err := s.repo.Get(ctx, saleNo, userID)
	if err != nil {
		return err
	}

	oldStatus := sale.Status
	oldPaid := sale.Paid

	newStatus := oldStatus
	if req.Status != nil {
		newStatus = *req.Status
		if !newStatus.Valid() {
			return shared.NewValidationError("unknown status %q", newStatus)
		}
	}
	newPaid := oldPaid
	if req.Paid != nil {
		newPaid = *req.Paid
		if newPaid > sale.Amount {
			return shared.NewValidationError("paid %.2f exceeds amount %.2f", newPaid, sale.Amount)
		}
		if newPaid > 0 && sale.AccountID == 0 {
			return shared.NewValidationError("paid sale requires an account")
		}
	}

	action := TransitionAction(oldStatus, newStatus)
	if action == EffectApply {
		if err := s.engine.CheckStock(ctx, sale); err != nil {
			return err
		}
	}

	err = s.uow.Run(ctx, func(ctx context.Context) error {
		switch action {
		case EffectApply:
			// Effects are booked with the updated payment, so no
			// separate delta is needed.
			sale.Paid = newPaid
			if err := s.engine.Apply(ctx, sale); err != nil {
				return err
			}
		case EffectReverse:
			// Reverse exactly what was applied: the stored
			// amount/paid, before any payment change takes effect.
			if err := s.engine.Reverse(ctx, sale); err != nil {
				return err
			}
			sale.Paid = newPaid
		case EffectNone:
			if oldStatus.EffectBearing() {
				if err := s.engine.AdjustPayment(ctx, sale, newPaid-oldPaid); err != nil {
					return err
				}
			}
			sale.Paid = newPaid
		}

		sale.Status = newStatus
		sale.BalanceDue = sale.Amount - sale.Paid
		if req.Notes != nil {
			sale.Notes = *req.Notes
		}
		if req.DeliveryDate != nil {
			sale.DeliveryDate = req.DeliveryDate
		}
		return s.repo.Update(ctx, sale)
	})
	if err != nil {
		return err
	}

	if action == EffectApply {
		s.createInvoice(ctx, sale)
	}
	if action != EffectNone {
		s.triggerRecalc(ctx, sale)
	}
	return nil
}

// DeleteSale reverses any applied effects, then removes the document.
func (s *Service) DeleteSale(ctx context.Context, saleNo, userID string) error {
	sale, err := s.repo.Get(ctx, saleNo, userID)
	if err != nil {
		return err
	}

	err = s.uow.Run(ctx, func(ctx context.Context) error {
		if sale.Status.EffectBearing() {
			if err := s.engine.Reverse(ctx, sale); err != nil {
				return err
			}
		}
		return s.repo.Delete(ctx, sale.SaleNo, userID)
	})
	if err != nil {
		return err
	}

	s.triggerRecalc(ctx, sale)
	return nil
}

// GetAllSales lists the owner's sales with current display names.
func (s *Service) GetAllSales(ctx context.Context, userID string) ([]Sale, error) {
	sales, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range sales {
		if name, err := s.names.CustomerName(ctx, sales[i].CustomerNo, userID); err == nil {
			sales[i].CustomerName = name
		}
		if name, err := s.names.StoreName(ctx, sales[i].StoreNo, userID); err == nil {
			sales[i].StoreName = name
		}
	}
	return sales, nil
}

// GetSale loads one sale by sale_no or legacy sel_no.
func (s *Service) GetSale(ctx context.Context, ref, userID string) (*Sale, error) {
	return s.repo.Get(ctx, ref, userID)
}

// createInvoice is fire-and-forget: a failed projection is logged so
// operators can detect drift, but never fails the sale.
func (s *Service) createInvoice(ctx context.Context, sale *Sale) {
	if s.invoices == nil {
		return
	}
	if err := s.invoices.CreateForSale(ctx, sale); err != nil {
		s.logger.Warn("invoice projection failed",
			slog.String("sale_no", sale.SaleNo),
			slog.Any("error", err))
	}
}

// triggerRecalc repairs the product and store aggregates after a committed
// stock movement. Failures are logged; the sweep job is the backstop.
func (s *Service) triggerRecalc(ctx context.Context, sale *Sale) {
	g, gctx := errgroup.WithContext(ctx)
	for _, productNo := range sale.ProductNos() {
		productNo := productNo
		g.Go(func() error {
			return s.recalc.RecalculateProductBalance(gctx, productNo, sale.UserID)
		})
	}
	g.Go(func() error {
		return s.recalc.RecalculateStoreTotal(gctx, sale.StoreNo, sale.UserID)
	})
	if err := g.Wait(); err != nil {
		s.logger.Warn("recalculation after sale failed",
			slog.String("sale_no", sale.SaleNo),
			slog.Any("error", err))
	}
}
