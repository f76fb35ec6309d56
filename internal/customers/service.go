package customers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ventech/storefront-backend/pkg/db"
	"github.com/ventech/storefront-backend/pkg/db/models"
	"github.com/ventech/storefront-backend/pkg/enums"
	pkgerrors "github.com/ventech/storefront-backend/pkg/errors"
	"github.com/ventech/storefront-backend/pkg/logger"
	"github.com/ventech/storefront-backend/pkg/pagination"
	"github.com/ventech/storefront-backend/pkg/types"
	"gorm.io/gorm"
)

const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 50
	minPhoneLength     = 5
)

// UpsertInput carries every contact channel the resolver can match on.
type UpsertInput struct {
	UserID    *uuid.UUID
	Email     string
	Phone     string
	FullName  string
	CreatedBy *uuid.UUID
	Source    enums.CustomerSource
}

// CreateGuestInput is the admin-entered contact for a phone or walk-in order.
type CreateGuestInput struct {
	FullName  string
	Phone     string
	Email     string
	CreatedBy *uuid.UUID
}

// Service resolves contact channels onto one customer record.
type Service interface {
	Upsert(ctx context.Context, tx *gorm.DB, input UpsertInput) (*models.Customer, error)
	CreateGuest(ctx context.Context, input CreateGuestInput) (*models.Customer, bool, error)
	Search(ctx context.Context, term string, limit int) ([]models.Customer, error)
	TouchLastOrder(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, at time.Time) error
}

// Options configures guest alias synthesis.
type Options struct {
	FallbackEmail string
	Alias         AliasFunc
}

type service struct {
	repo     Repository
	logg     *logger.Logger
	fallback string
	alias    AliasFunc
}

// NewService builds the customer identity resolver.
func NewService(repo Repository, logg *logger.Logger, opts Options) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("customers repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	alias := opts.Alias
	if alias == nil {
		alias = randomSuffix
	}
	fallback := strings.TrimSpace(opts.FallbackEmail)
	if fallback == "" {
		fallback = DefaultFallbackEmail
	}
	return &service{repo: repo, logg: logg, fallback: fallback, alias: alias}, nil
}

// NormalizeEmail trims and lowercases; an empty result means absent.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *service) Upsert(ctx context.Context, tx *gorm.DB, input UpsertInput) (*models.Customer, error) {
	repo := s.repo.WithTx(tx)
	email := NormalizeEmail(input.Email)
	phone := strings.TrimSpace(input.Phone)
	name := strings.TrimSpace(input.FullName)

	if email == "" && phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer email or phone is required")
	}

	if input.UserID != nil {
		existing, err := repo.FindByUserID(ctx, *input.UserID)
		switch {
		case err == nil:
			return s.backfill(ctx, repo, existing, fillable{Email: email, Phone: phone, FullName: name})
		case !isNotFound(err):
			return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "lookup customer by user")
		}
	}

	if email != "" {
		existing, err := repo.FindByEmail(ctx, email)
		switch {
		case err == nil:
			return s.backfill(ctx, repo, existing, fillable{UserID: input.UserID, Phone: phone, FullName: name})
		case !isNotFound(err):
			return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "lookup customer by email")
		}
	}

	source := input.Source
	if !source.IsValid() {
		source = enums.CustomerSourceManual
		if input.UserID != nil {
			source = enums.CustomerSourceRegistered
		}
	}

	customer := &models.Customer{
		UserID:    input.UserID,
		Email:     optional(email),
		Phone:     optional(phone),
		FullName:  optional(name),
		Source:    source,
		CreatedBy: input.CreatedBy,
	}
	return s.insertOrReuse(ctx, repo, customer)
}

func (s *service) CreateGuest(ctx context.Context, input CreateGuestInput) (*models.Customer, bool, error) {
	name := strings.TrimSpace(input.FullName)
	phone := strings.TrimSpace(input.Phone)
	email := NormalizeEmail(input.Email)

	if name == "" {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "customer full name is required")
	}
	if len(phone) < minPhoneLength {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "customer phone number is required")
	}

	if email != "" {
		existing, err := s.repo.FindByEmail(ctx, email)
		switch {
		case err == nil:
			return existing, false, nil
		case !isNotFound(err):
			return nil, false, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "lookup customer by email")
		}
	}

	customer := &models.Customer{
		Phone:     &phone,
		FullName:  &name,
		Source:    enums.CustomerSourceManual,
		CreatedBy: input.CreatedBy,
	}
	if email != "" {
		customer.Email = &email
	} else {
		primary, alias := guestAlias(s.fallback, s.alias())
		customer.Email = &alias
		customer.Metadata = types.JSONMap{
			"contact_email":   primary,
			"generated_alias": alias,
		}
	}

	if err := s.repo.Create(ctx, customer); err != nil {
		if !db.IsUniqueViolation(err, "") {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "create customer")
		}
		existing, findErr := s.repo.FindByEmail(ctx, *customer.Email)
		if findErr != nil {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodePersistence, findErr, "reload customer after conflict")
		}
		return existing, false, nil
	}
	return customer, true, nil
}

func (s *service) Search(ctx context.Context, term string, limit int) ([]models.Customer, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []models.Customer{}, nil
	}
	rows, err := s.repo.Search(ctx, term, pagination.Clamp(limit, DefaultSearchLimit, MaxSearchLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "search customers")
	}
	return rows, nil
}

func (s *service) TouchLastOrder(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, at time.Time) error {
	if err := s.repo.WithTx(tx).TouchLastOrder(ctx, customerID, at); err != nil {
		if isNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "touch customer last order")
	}
	return nil
}

// insertOrReuse creates the customer, or on an email unique-violation returns
// the row a concurrent request inserted first.
func (s *service) insertOrReuse(ctx context.Context, repo Repository, customer *models.Customer) (*models.Customer, error) {
	err := repo.Create(ctx, customer)
	if err == nil {
		return customer, nil
	}
	if customer.Email == nil || !db.IsUniqueViolation(err, "") {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "create customer")
	}

	s.logg.Warn(s.logg.WithField(ctx, "email", *customer.Email), "customers.upsert.conflict_reused")
	existing, findErr := repo.FindByEmail(ctx, *customer.Email)
	if findErr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, findErr, "reload customer after conflict")
	}
	return existing, nil
}

// fillable holds candidate values; only fields empty on the record are written.
type fillable struct {
	UserID   *uuid.UUID
	Email    string
	Phone    string
	FullName string
}

func (s *service) backfill(ctx context.Context, repo Repository, existing *models.Customer, in fillable) (*models.Customer, error) {
	updates := map[string]any{}
	if in.UserID != nil && existing.UserID == nil {
		updates["user_id"] = *in.UserID
		existing.UserID = in.UserID
	}
	if in.Email != "" && isBlank(existing.Email) {
		updates["email"] = in.Email
		existing.Email = optional(in.Email)
	}
	if in.Phone != "" && isBlank(existing.Phone) {
		updates["phone"] = in.Phone
		existing.Phone = optional(in.Phone)
	}
	if in.FullName != "" && isBlank(existing.FullName) {
		updates["full_name"] = in.FullName
		existing.FullName = optional(in.FullName)
	}
	if len(updates) == 0 {
		return existing, nil
	}
	updates["updated_at"] = time.Now().UTC()

	if err := repo.Update(ctx, existing.ID, updates); err != nil {
		if db.IsUniqueViolation(err, "") {
			// The email being backfilled already belongs to another customer; keep the record as-is.
			reloaded, findErr := repo.FindByID(ctx, existing.ID)
			if findErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, findErr, "reload customer")
			}
			return reloaded, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "backfill customer")
	}
	return existing, nil
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func isBlank(value *string) bool {
	return value == nil || strings.TrimSpace(*value) == ""
}
