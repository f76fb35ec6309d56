package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/ventech/storefront-backend/internal/customers"
	"github.com/ventech/storefront-backend/internal/notifications"
	"github.com/ventech/storefront-backend/pkg/db"
	"github.com/ventech/storefront-backend/pkg/db/models"
	"github.com/ventech/storefront-backend/pkg/enums"
	pkgerrors "github.com/ventech/storefront-backend/pkg/errors"
	"github.com/ventech/storefront-backend/pkg/logger"
	"github.com/ventech/storefront-backend/pkg/money"
	"github.com/ventech/storefront-backend/pkg/pagination"
	"github.com/ventech/storefront-backend/pkg/types"
	"gorm.io/gorm"
)

const (
	DefaultListLimit   = 20
	MaxListLimit       = 100
	orderNumberRetries = 3
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type customerResolver interface {
	Upsert(ctx context.Context, tx *gorm.DB, input customers.UpsertInput) (*models.Customer, error)
	TouchLastOrder(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, at time.Time) error
}

type inboxPublisher interface {
	Publish(ctx context.Context, tx *gorm.DB, notification *models.Notification) error
}

type orderMailer interface {
	SendOrderConfirmation(ctx context.Context, order *models.Order) notifications.Result
	SendOrderStatusUpdate(ctx context.Context, order *models.Order, newStatus enums.OrderStatus) notifications.Result
}

// Service is the order state machine and checkout entry point.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Order, error)
	Get(ctx context.Context, id uuid.UUID, actor Actor) (*models.Order, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (*models.Order, error)
	Cancel(ctx context.Context, id uuid.UUID, actor Actor) (*models.Order, error)
}

// Options overrides clock and order numbering.
type Options struct {
	Now         func() time.Time
	OrderNumber func(now time.Time) string
	Currency    string
}

type service struct {
	repo      Repository
	tx        txRunner
	customers customerResolver
	inbox     inboxPublisher
	mail      orderMailer
	runner    notifications.Runner
	logg      *logger.Logger
	now       func() time.Time
	number    func(now time.Time) string
	currency  string
}

// NewService wires the order service.
func NewService(
	repo Repository,
	tx txRunner,
	customerSvc customerResolver,
	inbox inboxPublisher,
	mail orderMailer,
	runner notifications.Runner,
	logg *logger.Logger,
	opts Options,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if customerSvc == nil {
		return nil, fmt.Errorf("customer resolver required")
	}
	if inbox == nil {
		return nil, fmt.Errorf("notification inbox required")
	}
	if mail == nil {
		return nil, fmt.Errorf("order mailer required")
	}
	if runner == nil {
		return nil, fmt.Errorf("task runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	number := opts.OrderNumber
	if number == nil {
		number = NewOrderNumber
	}
	return &service{
		repo:      repo,
		tx:        tx,
		customers: customerSvc,
		inbox:     inbox,
		mail:      mail,
		runner:    runner,
		logg:      logg,
		now:       now,
		number:    number,
		currency:  opts.Currency,
	}, nil
}

// NewOrderNumber returns "VT-YYYYMMDD-XXXXXX" with a random hex suffix.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return "VT-" + now.UTC().Format("20060102") + "-" + suffix
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	now := s.now()
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		products, err := repo.ProductsByID(ctx, productIDs(input.Items))
		if err != nil {
			return err
		}
		items, subtotal, err := snapshotItems(input.Items, products)
		if err != nil {
			return err
		}
		discount := money.Round2(input.Discount)
		tax := money.Round2(input.Tax)
		deliveryFee := money.Round2(input.DeliveryFee)
		total := subtotal.Sub(discount).Add(tax).Add(deliveryFee)
		if total.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "discount exceeds order value")
		}

		customer, err := s.customers.Upsert(ctx, tx, customers.UpsertInput{
			UserID:   input.UserID,
			Email:    input.CustomerEmail,
			Phone:    input.CustomerPhone,
			FullName: input.CustomerName,
		})
		if err != nil {
			return err
		}

		order = &models.Order{
			UserID:          input.UserID,
			CustomerID:      &customer.ID,
			CustomerName:    strings.TrimSpace(input.CustomerName),
			CustomerEmail:   optional(customers.NormalizeEmail(input.CustomerEmail)),
			CustomerPhone:   optional(strings.TrimSpace(input.CustomerPhone)),
			Status:          enums.OrderStatusPending,
			PaymentStatus:   enums.PaymentStatusPending,
			PaymentMethod:   optional(strings.TrimSpace(input.PaymentMethod)),
			Subtotal:        subtotal,
			Discount:        discount,
			Tax:             tax,
			DeliveryFee:     deliveryFee,
			Total:           total,
			DeliveryAddress: input.DeliveryAddress,
			Notes:           optional(strings.TrimSpace(input.Notes)),
			Items:           items,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.insertWithNumber(ctx, repo, order, now); err != nil {
			return err
		}
		return s.customers.TouchLastOrder(ctx, tx, customer.ID, now)
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		s.logg.Error(ctx, "orders.create.failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "create order")
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(s.logg.WithField(ctx, "order_number", order.OrderNumber), "orders.create.success")
	s.publishAlert(ctx, order)
	s.dispatch(ctx, "order_confirmation", func(taskCtx context.Context) notifications.Result {
		return s.mail.SendOrderConfirmation(taskCtx, order)
	})
	return order, nil
}

func (s *service) insertWithNumber(ctx context.Context, repo Repository, order *models.Order, now time.Time) error {
	var err error
	for attempt := 0; attempt < orderNumberRetries; attempt++ {
		order.OrderNumber = s.number(now)
		if err = repo.Create(ctx, order); err == nil {
			return nil
		}
		if !db.IsUniqueViolation(err, "") {
			return err
		}
		s.logg.Warn(s.logg.WithField(ctx, "order_number", order.OrderNumber), "orders.create.number_collision")
	}
	return err
}

func (s *service) Get(ctx context.Context, id uuid.UUID, actor Actor) (*models.Order, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(order) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to access this order")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	page := pagination.NewPage(params.Page, params.Limit, DefaultListLimit, MaxListLimit)
	rows, total, err := s.repo.List(ctx, ListFilters{
		Status:        params.Status,
		PaymentStatus: params.PaymentStatus,
		UserID:        params.UserID,
		CustomerID:    params.CustomerID,
	}, page.Offset(), page.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list orders")
	}
	if rows == nil {
		rows = []models.Order{}
	}
	return &ListResult{
		Orders: rows,
		Pagination: types.Pagination{
			Page:       page.Page,
			Limit:      page.Limit,
			Total:      total,
			TotalPages: pagination.TotalPages(total, page.Limit),
		},
	}, nil
}

func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (*models.Order, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").
			WithDetails(map[string]any{"status": status})
	}
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, order, status)
}

func (s *service) Cancel(ctx context.Context, id uuid.UUID, actor Actor) (*models.Order, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(order) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to cancel this order")
	}
	return s.transition(ctx, order, enums.OrderStatusCancelled)
}

// transition validates and applies one status change, then notifies the customer.
func (s *service) transition(ctx context.Context, order *models.Order, to enums.OrderStatus) (*models.Order, error) {
	from := order.Status
	if err := CheckTransition(from, to); err != nil {
		return nil, err
	}

	update := StatusUpdate{Status: to}
	if to == enums.OrderStatusRefunded {
		refunded := enums.PaymentStatusRefunded
		update.PaymentStatus = &refunded
	}
	applied, err := s.repo.CompareAndSetStatus(ctx, order.ID, from, update)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "update order status")
	}
	if !applied {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order status changed concurrently; reload and retry").
			WithDetails(map[string]any{"expected": from})
	}

	order.Status = to
	if update.PaymentStatus != nil {
		order.PaymentStatus = *update.PaymentStatus
	}
	order.UpdatedAt = s.now()

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"from": from, "to": to}), "orders.status.changed")
	s.dispatch(ctx, "order_status_update", func(taskCtx context.Context) notifications.Result {
		return s.mail.SendOrderStatusUpdate(taskCtx, order, to)
	})
	return order, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load order")
	}
	return order, nil
}

func (s *service) publishAlert(ctx context.Context, order *models.Order) {
	actionURL := "/admin/orders/" + order.ID.String()
	err := s.inbox.Publish(ctx, nil, &models.Notification{
		Type:      enums.NotificationTypeOrderAlert,
		Title:     "New order received",
		Message:   fmt.Sprintf("Order %s from %s totalling %s", order.OrderNumber, order.CustomerName, money.Format(s.currency, order.Total)),
		ActionURL: &actionURL,
		Metadata: types.JSONMap{
			"order_id":     order.ID.String(),
			"order_number": order.OrderNumber,
		},
	})
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "orders.alert.failed")
	}
}

func (s *service) dispatch(ctx context.Context, task string, send func(ctx context.Context) notifications.Result) {
	s.runner.Go(ctx, task, func(taskCtx context.Context) {
		res := send(taskCtx)
		if !res.Success {
			s.logg.Warn(s.logg.WithFields(taskCtx, map[string]any{"task": task, "reason": res.Reason}), "orders.notification.failed")
		}
	})
}

func validateCreate(input CreateInput) error {
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	if strings.TrimSpace(input.CustomerName) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer name is required")
	}
	if customers.NormalizeEmail(input.CustomerEmail) == "" && strings.TrimSpace(input.CustomerPhone) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer email or phone is required")
	}
	adjustments := []struct {
		name   string
		amount decimal.Decimal
	}{
		{"discount", input.Discount},
		{"tax", input.Tax},
		{"delivery_fee", input.DeliveryFee},
	}
	for _, adj := range adjustments {
		if adj.amount.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, adj.name+" must not be negative")
		}
	}
	for i, item := range input.Items {
		if item.Quantity < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be at least 1").
				WithDetails(map[string]any{"index": i})
		}
		if item.ProductID == nil && strings.TrimSpace(item.ProductName) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "item product is required").
				WithDetails(map[string]any{"index": i})
		}
		if item.UnitPrice.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "item price must not be negative").
				WithDetails(map[string]any{"index": i})
		}
	}
	return nil
}

func productIDs(items []ItemInput) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if item.ProductID != nil {
			ids = append(ids, *item.ProductID)
		}
	}
	return ids
}

// snapshotItems freezes name and unit price per line and returns the subtotal.
func snapshotItems(inputs []ItemInput, catalog map[uuid.UUID]models.Product) ([]models.OrderItem, decimal.Decimal, error) {
	subtotal := decimal.Zero
	items := make([]models.OrderItem, 0, len(inputs))
	for i, in := range inputs {
		name, price := strings.TrimSpace(in.ProductName), in.UnitPrice
		if in.ProductID != nil {
			product, ok := catalog[*in.ProductID]
			if !ok {
				return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "product not found").
					WithDetails(map[string]any{"index": i, "product_id": in.ProductID.String()})
			}
			name, price = product.Name, product.Price
		}
		price = money.Round2(price)
		line := price.Mul(decimal.NewFromInt(int64(in.Quantity)))
		subtotal = subtotal.Add(line)
		items = append(items, models.OrderItem{
			ProductID:        in.ProductID,
			ProductName:      name,
			UnitPrice:        price,
			Quantity:         in.Quantity,
			SelectedVariants: in.SelectedVariants,
			Subtotal:         line,
		})
	}
	return items, subtotal, nil
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
