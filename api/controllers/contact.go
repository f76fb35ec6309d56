package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ventech/storefront-backend/api/responses"
	"github.com/ventech/storefront-backend/api/validators"
	"github.com/ventech/storefront-backend/internal/notifications"
	"github.com/ventech/storefront-backend/pkg/logger"
)

type PublicFormMailer interface {
	SendContactMessage(ctx context.Context, msg notifications.ContactMessage) notifications.Result
	SendInvestmentRequest(ctx context.Context, req notifications.InvestmentRequest) notifications.Result
}

type contactRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"omitempty,max=32"`
	Subject string `json:"subject" validate:"required,max=300"`
	Message string `json:"message" validate:"required,max=5000"`
}

// SubmitContact relays the form to the operations mailbox. Delivery runs after
// the response and its outcome is only logged.
func SubmitContact(mail PublicFormMailer, runner notifications.Runner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req contactRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		msg := notifications.ContactMessage{
			Name:    validators.SanitizeString(req.Name, 200),
			Email:   strings.TrimSpace(req.Email),
			Phone:   validators.SanitizeString(req.Phone, 32),
			Subject: validators.SanitizeString(req.Subject, 300),
			Message: strings.TrimSpace(req.Message),
		}
		runner.Go(r.Context(), "contact_message", func(ctx context.Context) {
			mail.SendContactMessage(ctx, msg)
		})
		responses.WriteSuccess(w, "Message sent successfully", nil)
	}
}

// looseText accepts a JSON string or number.
type looseText string

func (t *looseText) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		*t = looseText(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return err
	}
	*t = looseText(n.String())
	return nil
}

type investmentRequest struct {
	FullName string    `json:"fullName" validate:"required,max=200"`
	Email    string    `json:"email" validate:"required,email"`
	Phone    string    `json:"phone" validate:"required,max=32"`
	Tier     string    `json:"tier" validate:"required,max=100"`
	Amount   looseText `json:"amount" validate:"required"`
	Plan     string    `json:"plan" validate:"required,max=100"`
	Message  string    `json:"message" validate:"omitempty,max=5000"`
}

func SubmitInvestment(mail PublicFormMailer, runner notifications.Runner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req investmentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		msg := notifications.InvestmentRequest{
			FullName: validators.SanitizeString(req.FullName, 200),
			Email:    strings.TrimSpace(req.Email),
			Phone:    validators.SanitizeString(req.Phone, 32),
			Tier:     validators.SanitizeString(req.Tier, 100),
			Amount:   validators.SanitizeString(string(req.Amount), 50),
			Plan:     validators.SanitizeString(req.Plan, 100),
			Message:  strings.TrimSpace(req.Message),
		}
		runner.Go(r.Context(), "investment_request", func(ctx context.Context) {
			mail.SendInvestmentRequest(ctx, msg)
		})
		responses.WriteSuccess(w, "Investment request submitted successfully", nil)
	}
}
