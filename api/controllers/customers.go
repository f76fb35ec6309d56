package controllers

import (
	"net/http"
	"strings"

	"github.com/ventech/storefront-backend/api/responses"
	"github.com/ventech/storefront-backend/api/validators"
	"github.com/ventech/storefront-backend/internal/customers"
	"github.com/ventech/storefront-backend/pkg/enums"
	"github.com/ventech/storefront-backend/pkg/logger"
)

type createCustomerRequest struct {
	FullName string `json:"full_name" validate:"required,max=200"`
	Phone    string `json:"phone" validate:"required,min=5,max=32"`
	Email    string `json:"email" validate:"omitempty,email"`
}

// CreateCustomer registers a walk-in or phone customer on behalf of staff.
func CreateCustomer(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createCustomerRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customer, created, err := svc.CreateGuest(r.Context(), customers.CreateGuestInput{
			FullName:  validators.SanitizeString(req.FullName, 200),
			Phone:     validators.SanitizeString(req.Phone, 32),
			Email:     req.Email,
			CreatedBy: userIDPtr(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !created {
			responses.WriteSuccess(w, "Customer already exists", customer)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, "Customer created successfully", customer)
	}
}

func SearchCustomers(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", customers.DefaultSearchLimit, 1, customers.MaxSearchLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		term := validators.SanitizeString(strings.TrimSpace(r.URL.Query().Get("q")), 100)
		results, err := svc.Search(r.Context(), term, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "Customers fetched successfully", results)
	}
}

type linkUserRequest struct {
	Phone    string `json:"phone" validate:"omitempty,max=32"`
	FullName string `json:"full_name" validate:"omitempty,max=200"`
}

// LinkCustomerUser attaches the caller's account to the customer matching
// their email, creating one when none exists.
func LinkCustomerUser(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req linkUserRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		userID := p.UserID
		customer, err := svc.Upsert(r.Context(), nil, customers.UpsertInput{
			UserID:   &userID,
			Email:    p.Email,
			Phone:    validators.SanitizeString(req.Phone, 32),
			FullName: validators.SanitizeString(req.FullName, 200),
			Source:   enums.CustomerSourceRegistered,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, "Customer linked successfully", customer)
	}
}
