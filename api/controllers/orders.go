package controllers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/ventech/storefront-backend/api/responses"
	"github.com/ventech/storefront-backend/api/validators"
	"github.com/ventech/storefront-backend/internal/notifications"
	"github.com/ventech/storefront-backend/internal/orders"
	"github.com/ventech/storefront-backend/pkg/db/models"
	"github.com/ventech/storefront-backend/pkg/enums"
	pkgerrors "github.com/ventech/storefront-backend/pkg/errors"
	"github.com/ventech/storefront-backend/pkg/logger"
	"github.com/ventech/storefront-backend/pkg/types"
)

type InvoiceRenderer interface {
	Render(order *models.Order) ([]byte, error)
}

type ReminderService interface {
	Wishlist(ctx context.Context, userID uuid.UUID) (notifications.Result, error)
	CartAbandonment(ctx context.Context) (*orders.ReminderSummary, error)
}

type createOrderRequest struct {
	CustomerName    string             `json:"customer_name" validate:"required,max=200"`
	CustomerEmail   string             `json:"customer_email" validate:"omitempty,email"`
	CustomerPhone   string             `json:"customer_phone" validate:"required_without=CustomerEmail"`
	Items           []orderItemRequest `json:"items" validate:"required,min=1,dive"`
	Discount        decimal.Decimal    `json:"discount"`
	Tax             decimal.Decimal    `json:"tax"`
	DeliveryFee     decimal.Decimal    `json:"delivery_fee"`
	DeliveryAddress *types.Address     `json:"delivery_address"`
	PaymentMethod   string             `json:"payment_method" validate:"max=50"`
	Notes           string             `json:"notes" validate:"max=2000"`
}

type orderItemRequest struct {
	ProductID        *uuid.UUID              `json:"product_id"`
	ProductName      string                  `json:"product_name" validate:"required_without=ProductID"`
	UnitPrice        decimal.Decimal         `json:"unit_price"`
	Quantity         int                     `json:"quantity" validate:"min=1"`
	SelectedVariants types.VariantSelections `json:"selected_variants"`
}

func (req createOrderRequest) toInput(userID *uuid.UUID) orders.CreateInput {
	items := make([]orders.ItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, orders.ItemInput{
			ProductID:        item.ProductID,
			ProductName:      validators.SanitizeString(item.ProductName, 200),
			UnitPrice:        item.UnitPrice,
			Quantity:         item.Quantity,
			SelectedVariants: item.SelectedVariants,
		})
	}
	return orders.CreateInput{
		UserID:          userID,
		CustomerName:    validators.SanitizeString(req.CustomerName, 200),
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   validators.SanitizeString(req.CustomerPhone, 32),
		Items:           items,
		Discount:        req.Discount,
		Tax:             req.Tax,
		DeliveryFee:     req.DeliveryFee,
		DeliveryAddress: req.DeliveryAddress,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
	}
}

// CreateOrder accepts guest and authenticated checkouts.
func CreateOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Create(r.Context(), req.toInput(userIDPtr(r)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, "Order created successfully", order)
	}
}

func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), id, actorFromRequest(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "Order fetched successfully", order)
	}
}

// ListOrders is the admin listing filtered by status and payment_status.
func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := parseOrderListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		res, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WritePage(w, "Orders fetched successfully", res.Orders, res.Pagination)
	}
}

func parseOrderListParams(r *http.Request) (orders.ListParams, error) {
	var params orders.ListParams
	var err error
	if params.Page, err = validators.ParseQueryInt(r, "page", 1, 1, 100000); err != nil {
		return params, err
	}
	if params.Limit, err = validators.ParseQueryInt(r, "limit", orders.DefaultListLimit, 1, orders.MaxListLimit); err != nil {
		return params, err
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return params, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		params.Status = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("payment_status")); raw != "" {
		status, err := enums.ParsePaymentStatus(raw)
		if err != nil {
			return params, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_status")
		}
		params.PaymentStatus = &status
	}
	if params.UserID, err = validators.ParseOptionalUUIDQuery(r, "user_id"); err != nil {
		return params, err
	}
	if params.CustomerID, err = validators.ParseOptionalUUIDQuery(r, "customer_id"); err != nil {
		return params, err
	}
	return params, nil
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func UpdateOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req updateStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}
		order, err := svc.UpdateStatus(r.Context(), id, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "Order status updated successfully", order)
	}
}

func CancelOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Cancel(r.Context(), id, actorFromRequest(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "Order cancelled successfully", order)
	}
}

// DownloadOrderPDF streams the invoice for an order the caller may see.
func DownloadOrderPDF(svc orders.Service, renderer InvoiceRenderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), id, actorFromRequest(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pdf, err := renderer.Render(order)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render invoice"))
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="invoice-%s.pdf"`, order.OrderNumber))
		w.Header().Set("Content-Length", fmt.Sprint(len(pdf)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(pdf)
	}
}

func SendWishlistReminder(svc ReminderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := validators.ParseUUIDParam(r, "user_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		res, err := svc.Wishlist(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		message := "Wishlist reminder sent"
		switch {
		case res.Skipped:
			message = "Wishlist reminder skipped"
		case !res.Success:
			message = "Wishlist reminder could not be delivered"
		}
		responses.WriteSuccess(w, message, res)
	}
}

func SendCartAbandonmentReminders(svc ReminderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := svc.CartAbandonment(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "Cart abandonment reminders processed", summary)
	}
}
