package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/ventech/storefront-backend/internal/users"
	"github.com/ventech/storefront-backend/pkg/config"
	"github.com/ventech/storefront-backend/pkg/db/models"
	"github.com/ventech/storefront-backend/pkg/enums"
	pkgerrors "github.com/ventech/storefront-backend/pkg/errors"
	"github.com/ventech/storefront-backend/pkg/logger"
	"github.com/ventech/storefront-backend/pkg/mailer"
	"github.com/ventech/storefront-backend/pkg/metrics"
	"github.com/ventech/storefront-backend/pkg/money"
)

const (
	ReasonEmailDisabled  = "User has disabled email notifications"
	ReasonUnsubscribed   = "User has unsubscribed from newsletter"
	ReasonUserNotFound   = "User not found"
	ReasonNoRecipient    = "No recipient email address"
	orderDateLayout      = "Jan 2, 2006"
	invoiceContentType   = "application/pdf"
	kindOrderConfirm     = "order_confirmation"
	kindOrderStatus      = "order_status_update"
	kindNewsletter       = "newsletter"
	kindWishlistReminder = "wishlist_reminder"
	kindCartReminder     = "cart_abandonment"
	kindContact          = "contact_message"
	kindInvestment       = "investment_request"
)

// Result is the outcome of one dispatch. A skip is a success.
type Result struct {
	Success bool   `json:"success"`
	Skipped bool   `json:"skipped,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Err     error  `json:"-"`
}

// PreferenceReader loads a user's communication opt-ins.
type PreferenceReader interface {
	Preferences(ctx context.Context, userID uuid.UUID) (users.Preferences, error)
}

// ContactReader resolves a user's mailing identity.
type ContactReader interface {
	Contact(ctx context.Context, userID uuid.UUID) (users.Contact, error)
}

// InvoiceRenderer produces the PDF attached to order confirmations.
type InvoiceRenderer interface {
	Render(order *models.Order) ([]byte, error)
}

// ContactMessage is a public contact-form submission.
type ContactMessage struct {
	Name    string
	Email   string
	Phone   string
	Subject string
	Message string
}

// InvestmentRequest is a public investment-interest submission.
type InvestmentRequest struct {
	FullName string
	Email    string
	Phone    string
	Tier     string
	Amount   string
	Plan     string
	Message  string
}

// Options carries the static identity used in every email.
type Options struct {
	Store             config.StoreConfig
	OperationsMailbox string
	FrontendURL       string
}

// Dispatcher decides whether an email may be sent, renders it, and hands it to
// the mail gateway. It never returns an error; failures are reported in Result.
type Dispatcher struct {
	prefs     PreferenceReader
	contacts  ContactReader
	mail      mailer.Gateway
	templates *Templates
	invoices  InvoiceRenderer
	metrics   *metrics.DispatchMetrics
	logg      *logger.Logger
	opts      Options
}

// NewDispatcher wires the dispatcher. invoices and dispatchMetrics may be nil.
func NewDispatcher(
	prefs PreferenceReader,
	contacts ContactReader,
	mail mailer.Gateway,
	templates *Templates,
	invoices InvoiceRenderer,
	dispatchMetrics *metrics.DispatchMetrics,
	logg *logger.Logger,
	opts Options,
) (*Dispatcher, error) {
	if prefs == nil {
		return nil, fmt.Errorf("preference reader required")
	}
	if contacts == nil {
		return nil, fmt.Errorf("contact reader required")
	}
	if mail == nil {
		return nil, fmt.Errorf("mail gateway required")
	}
	if templates == nil {
		return nil, fmt.Errorf("email templates required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(opts.OperationsMailbox) == "" {
		return nil, fmt.Errorf("operations mailbox required")
	}
	return &Dispatcher{
		prefs:     prefs,
		contacts:  contacts,
		mail:      mail,
		templates: templates,
		invoices:  invoices,
		metrics:   dispatchMetrics,
		logg:      logg,
		opts:      opts,
	}, nil
}

// Allowed applies the preference gate. Guests and failed lookups fall back to
// the default preferences.
func (d *Dispatcher) Allowed(ctx context.Context, userID *uuid.UUID, class enums.EmailClass) (bool, string) {
	prefs := users.DefaultPreferences()
	if userID != nil && *userID != uuid.Nil {
		loaded, err := d.prefs.Preferences(ctx, *userID)
		switch {
		case err == nil:
			prefs = loaded
		case errors.Is(err, users.ErrNotFound):
		default:
			d.logg.Warn(d.logg.WithFields(ctx, map[string]any{
				"user_id": userID.String(),
				"error":   err.Error(),
			}), "notifications.preferences.lookup_failed")
		}
	}

	switch class {
	case enums.EmailClassNewsletter, enums.EmailClassMarketing:
		if !prefs.NewsletterSubscribed {
			return false, ReasonUnsubscribed
		}
		return true, ""
	default:
		if !prefs.EmailNotifications {
			return false, ReasonEmailDisabled
		}
		return true, ""
	}
}

// SendOrderConfirmation emails the order summary with the PDF invoice attached.
func (d *Dispatcher) SendOrderConfirmation(ctx context.Context, order *models.Order) Result {
	ctx = d.logg.WithOrderID(ctx, order.ID.String())
	if ok, reason := d.Allowed(ctx, order.UserID, enums.EmailClassTransactional); !ok {
		return d.skip(ctx, kindOrderConfirm, reason)
	}
	to := deref(order.CustomerEmail)
	if to == "" {
		return d.fail(ctx, kindOrderConfirm, ReasonNoRecipient, nil)
	}

	view := d.orderView(order, "Order Confirmation")
	html, err := d.templates.Render(templateOrderConfirmation, view)
	if err != nil {
		return d.fail(ctx, kindOrderConfirm, "render template", err)
	}

	msg := mailer.Message{
		To:      to,
		Subject: "Order Confirmation - " + order.OrderNumber,
		HTML:    html,
	}
	if d.invoices != nil {
		pdf, err := d.invoices.Render(order)
		if err != nil {
			d.logg.Warn(d.logg.WithField(ctx, "error", err.Error()), "notifications.invoice.render_failed")
		} else {
			msg.Attachments = append(msg.Attachments, mailer.Attachment{
				Filename:    "invoice-" + order.OrderNumber + ".pdf",
				ContentType: invoiceContentType,
				Content:     pdf,
			})
		}
	}
	return d.send(ctx, kindOrderConfirm, msg)
}

// SendOrderStatusUpdate emails the customer about a status transition.
func (d *Dispatcher) SendOrderStatusUpdate(ctx context.Context, order *models.Order, newStatus enums.OrderStatus) Result {
	ctx = d.logg.WithOrderID(ctx, order.ID.String())
	if ok, reason := d.Allowed(ctx, order.UserID, enums.EmailClassTransactional); !ok {
		return d.skip(ctx, kindOrderStatus, reason)
	}
	to := deref(order.CustomerEmail)
	if to == "" {
		return d.fail(ctx, kindOrderStatus, ReasonNoRecipient, nil)
	}

	view := d.orderView(order, "Order Update")
	view.NewStatus = newStatus.String()
	html, err := d.templates.Render(templateOrderStatusUpdate, view)
	if err != nil {
		return d.fail(ctx, kindOrderStatus, "render template", err)
	}
	return d.send(ctx, kindOrderStatus, mailer.Message{
		To:      to,
		Subject: "Order Update - " + order.OrderNumber,
		HTML:    html,
	})
}

// SendNewsletter sends caller-provided HTML to a subscribed user.
func (d *Dispatcher) SendNewsletter(ctx context.Context, userID uuid.UUID, subject, html string) Result {
	ctx = d.logg.WithUserID(ctx, userID.String())
	if ok, reason := d.Allowed(ctx, &userID, enums.EmailClassNewsletter); !ok {
		return d.skip(ctx, kindNewsletter, reason)
	}
	contact, res, ok := d.recipient(ctx, kindNewsletter, userID)
	if !ok {
		return res
	}
	return d.send(ctx, kindNewsletter, mailer.Message{To: contact.Email, Subject: subject, HTML: html})
}

// SendWishlistReminder nudges a user about saved products.
func (d *Dispatcher) SendWishlistReminder(ctx context.Context, userID uuid.UUID, products []models.Product) Result {
	ctx = d.logg.WithUserID(ctx, userID.String())
	if ok, reason := d.Allowed(ctx, &userID, enums.EmailClassMarketing); !ok {
		return d.skip(ctx, kindWishlistReminder, reason)
	}
	contact, res, ok := d.recipient(ctx, kindWishlistReminder, userID)
	if !ok {
		return res
	}

	rows := make([]productRow, 0, len(products))
	for _, p := range products {
		rows = append(rows, productRow{Name: p.Name, Price: d.money(p.Price)})
	}
	html, err := d.templates.Render(templateWishlistReminder, wishlistView{
		Title:        "Your Wishlist",
		Brand:        d.brand(),
		CustomerName: displayName(contact),
		Products:     rows,
		ActionURL:    d.link("/wishlist"),
	})
	if err != nil {
		return d.fail(ctx, kindWishlistReminder, "render template", err)
	}
	return d.send(ctx, kindWishlistReminder, mailer.Message{
		To:      contact.Email,
		Subject: "Items in your wishlist are waiting - " + d.opts.Store.BrandName,
		HTML:    html,
	})
}

// SendCartReminder reminds a user about an idle cart.
func (d *Dispatcher) SendCartReminder(ctx context.Context, userID uuid.UUID, items []models.CartItem) Result {
	ctx = d.logg.WithUserID(ctx, userID.String())
	if ok, reason := d.Allowed(ctx, &userID, enums.EmailClassMarketing); !ok {
		return d.skip(ctx, kindCartReminder, reason)
	}
	contact, res, ok := d.recipient(ctx, kindCartReminder, userID)
	if !ok {
		return res
	}

	total := decimal.Zero
	rows := make([]itemRow, 0, len(items))
	for _, item := range items {
		name, price := "Product", decimal.Zero
		if item.Product != nil {
			name, price = item.Product.Name, item.Product.Price
		}
		line := price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(line)
		rows = append(rows, itemRow{
			Name:      name,
			Variants:  item.SelectedVariants.Describe(),
			Quantity:  item.Quantity,
			Price:     d.money(price),
			LineTotal: d.money(line),
		})
	}
	html, err := d.templates.Render(templateCartAbandonment, cartView{
		Title:        "Your Cart",
		Brand:        d.brand(),
		CustomerName: displayName(contact),
		Items:        rows,
		Total:        d.money(total),
		ActionURL:    d.link("/cart"),
	})
	if err != nil {
		return d.fail(ctx, kindCartReminder, "render template", err)
	}
	return d.send(ctx, kindCartReminder, mailer.Message{
		To:      contact.Email,
		Subject: "You left items in your cart - " + d.opts.Store.BrandName,
		HTML:    html,
	})
}

// SendContactMessage relays a contact form to the operations mailbox. No gate applies.
func (d *Dispatcher) SendContactMessage(ctx context.Context, msg ContactMessage) Result {
	html, err := d.templates.Render(templateContactMessage, contactView{
		Title:          "New Contact Message",
		Brand:          d.brand(),
		ContactMessage: msg,
	})
	if err != nil {
		return d.fail(ctx, kindContact, "render template", err)
	}
	return d.send(ctx, kindContact, mailer.Message{
		To:      d.opts.OperationsMailbox,
		ReplyTo: msg.Email,
		Subject: "New Contact Message - " + msg.Subject,
		HTML:    html,
	})
}

// SendInvestmentRequest relays an investment request to the operations mailbox. No gate applies.
func (d *Dispatcher) SendInvestmentRequest(ctx context.Context, req InvestmentRequest) Result {
	req.Amount = strings.TrimSpace(d.opts.Store.CurrencyPrefix + " " + req.Amount)
	html, err := d.templates.Render(templateInvestment, investmentView{
		Title:             "New Investment Request - " + d.opts.Store.BrandName,
		Brand:             d.brand(),
		InvestmentRequest: req,
	})
	if err != nil {
		return d.fail(ctx, kindInvestment, "render template", err)
	}
	return d.send(ctx, kindInvestment, mailer.Message{
		To:      d.opts.OperationsMailbox,
		ReplyTo: req.Email,
		Subject: "New Investment Request - " + req.FullName,
		HTML:    html,
	})
}

func (d *Dispatcher) send(ctx context.Context, kind string, msg mailer.Message) Result {
	ctx = d.logg.WithField(ctx, "email_kind", kind)
	start := time.Now()
	err := d.mail.Send(ctx, msg)
	d.metrics.ObserveSend(kind, time.Since(start))
	if err != nil {
		return d.fail(ctx, kind, "send failed", err)
	}
	d.metrics.Record(kind, metrics.OutcomeSent)
	d.logg.Info(ctx, "notifications.email.sent")
	return Result{Success: true}
}

func (d *Dispatcher) skip(ctx context.Context, kind, reason string) Result {
	d.metrics.Record(kind, metrics.OutcomeSkipped)
	d.logg.Info(d.logg.WithFields(ctx, map[string]any{"email_kind": kind, "reason": reason}), "notifications.email.skipped")
	return Result{Success: true, Skipped: true, Reason: reason}
}

func (d *Dispatcher) fail(ctx context.Context, kind, reason string, cause error) Result {
	d.metrics.Record(kind, metrics.OutcomeFailed)
	var typed *pkgerrors.Error
	if cause != nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeNotification, cause, reason)
		reason = reason + ": " + cause.Error()
	} else {
		typed = pkgerrors.New(pkgerrors.CodeNotification, reason)
	}
	d.logg.Error(d.logg.WithField(ctx, "email_kind", kind), "notifications.email.failed", typed)
	return Result{Success: false, Reason: reason, Err: typed}
}

func (d *Dispatcher) recipient(ctx context.Context, kind string, userID uuid.UUID) (users.Contact, Result, bool) {
	contact, err := d.contacts.Contact(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return users.Contact{}, d.fail(ctx, kind, ReasonUserNotFound, nil), false
		}
		return users.Contact{}, d.fail(ctx, kind, "lookup recipient", err), false
	}
	if strings.TrimSpace(contact.Email) == "" {
		return users.Contact{}, d.fail(ctx, kind, ReasonNoRecipient, nil), false
	}
	return contact, Result{}, true
}

func (d *Dispatcher) orderView(order *models.Order, title string) orderView {
	rows := make([]itemRow, 0, len(order.Items))
	for _, item := range order.Items {
		rows = append(rows, itemRow{
			Name:      item.ProductName,
			Variants:  item.SelectedVariants.Describe(),
			Quantity:  item.Quantity,
			Price:     d.money(item.UnitPrice),
			LineTotal: d.money(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))),
		})
	}
	return orderView{
		Title:        title + " - " + order.OrderNumber,
		Brand:        d.brand(),
		OrderNumber:  order.OrderNumber,
		CustomerName: order.CustomerName,
		OrderDate:    order.CreatedAt.Format(orderDateLayout),
		Total:        d.money(order.Total),
		Address:      order.DeliveryAddress.Format(),
		Items:        rows,
	}
}

func (d *Dispatcher) brand() brandView {
	return brandView{
		Name:         d.opts.Store.BrandName,
		Tagline:      d.opts.Store.Tagline,
		SupportEmail: d.opts.Store.SupportEmail,
		SupportPhone: d.opts.Store.SupportPhone,
		Website:      d.opts.Store.Website,
	}
}

func (d *Dispatcher) money(amount decimal.Decimal) string {
	return money.Format(d.opts.Store.CurrencyPrefix, amount)
}

func (d *Dispatcher) link(path string) string {
	base := strings.TrimRight(strings.TrimSpace(d.opts.FrontendURL), "/")
	if base == "" {
		return ""
	}
	return base + path
}

func displayName(contact users.Contact) string {
	if name := strings.TrimSpace(contact.FullName); name != "" {
		return name
	}
	return "there"
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}
