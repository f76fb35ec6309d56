package audit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/ventech/storefront-backend/pkg/db/models"
	"github.com/ventech/storefront-backend/pkg/enums"
	pkgerrors "github.com/ventech/storefront-backend/pkg/errors"
	"github.com/ventech/storefront-backend/pkg/logger"
	"github.com/ventech/storefront-backend/pkg/metrics"
	"github.com/ventech/storefront-backend/pkg/pagination"
	"github.com/ventech/storefront-backend/pkg/types"
)

const (
	ActionViewLogs = "VIEW_ADMIN_LOGS"

	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Entry describes one privileged action.
type Entry struct {
	Action     string
	UserID     *uuid.UUID
	Role       enums.Role
	StatusCode int
	Duration   time.Duration
	IPAddress  string
	Metadata   map[string]any
}

// Viewer is the caller asking to read the trail.
type Viewer struct {
	UserID    uuid.UUID
	Role      enums.Role
	Email     string
	IPAddress string
}

type ListParams struct {
	Page   int
	Limit  int
	Action string
	UserID *uuid.UUID
}

type ListResult struct {
	Logs       []models.AdminLog `json:"logs"`
	Pagination types.Pagination  `json:"pagination"`
}

// Service writes and reads the admin audit trail.
type Service interface {
	// Record appends an entry. Failures are logged and counted, never returned.
	Record(ctx context.Context, entry Entry)
	List(ctx context.Context, viewer Viewer, params ListParams) (*ListResult, error)
}

type service struct {
	repo    Repository
	policy  *Policy
	metrics *metrics.AuditMetrics
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(repo Repository, policy *Policy, auditMetrics *metrics.AuditMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	if policy == nil {
		return nil, fmt.Errorf("audit policy required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    repo,
		policy:  policy,
		metrics: auditMetrics,
		logg:    logg,
		now:     time.Now,
	}, nil
}

func (s *service) Record(ctx context.Context, entry Entry) {
	row := &models.AdminLog{
		Action:     entry.Action,
		UserID:     entry.UserID,
		Role:       entry.Role.String(),
		StatusCode: entry.StatusCode,
		DurationMS: entry.Duration.Milliseconds(),
		IPAddress:  entry.IPAddress,
		Metadata:   types.JSONMap(entry.Metadata),
	}
	if err := s.repo.Append(context.WithoutCancel(ctx), row); err != nil {
		s.metrics.IncWriteFailure(entry.Action)
		s.logg.Error(s.logg.WithField(ctx, "action", entry.Action), "audit.write.failed", err)
	}
}

func (s *service) List(ctx context.Context, viewer Viewer, params ListParams) (*ListResult, error) {
	if err := s.policy.CanViewLogs(viewer); err != nil {
		return nil, err
	}
	start := s.now()
	page := pagination.NewPage(params.Page, params.Limit, DefaultListLimit, MaxListLimit)

	rows, total, err := s.repo.List(ctx, ListFilters{Action: params.Action, UserID: params.UserID}, page.Offset(), page.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list admin logs")
	}
	if rows == nil {
		rows = []models.AdminLog{}
	}

	userID := viewer.UserID
	s.Record(ctx, Entry{
		Action:     ActionViewLogs,
		UserID:     &userID,
		Role:       viewer.Role,
		StatusCode: http.StatusOK,
		Duration:   s.now().Sub(start),
		IPAddress:  viewer.IPAddress,
		Metadata:   map[string]any{"page": page.Page, "limit": page.Limit},
	})

	return &ListResult{
		Logs: rows,
		Pagination: types.Pagination{
			Page:       page.Page,
			Limit:      page.Limit,
			Total:      total,
			TotalPages: pagination.TotalPages(total, page.Limit),
		},
	}, nil
}
