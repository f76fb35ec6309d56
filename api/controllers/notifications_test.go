package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ventech/storefront-backend/internal/notifications"
	"github.com/ventech/storefront-backend/pkg/db/models"
	pkgerrors "github.com/ventech/storefront-backend/pkg/errors"
	"github.com/ventech/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

type stubInbox struct {
	params  notifications.ListParams
	deleted uuid.UUID
	err     error
}

func (s *stubInbox) Publish(context.Context, *gorm.DB, *models.Notification) error { return nil }

func (s *stubInbox) List(_ context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	s.params = params
	return &notifications.ListResult{Notifications: []models.Notification{}, UnreadCount: 4}, nil
}

func (s *stubInbox) MarkRead(context.Context, uuid.UUID) error { return s.err }

func (s *stubInbox) MarkAllRead(context.Context) (int64, error) { return 4, nil }

func (s *stubInbox) Delete(_ context.Context, id uuid.UUID) error {
	s.deleted = id
	return s.err
}

func TestListNotifications(t *testing.T) {
	svc := &stubInbox{}
	w, env := call(t, ListNotifications(svc, logger.Nop()), http.MethodGet, "/api/notifications?unread=true", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, notifications.DefaultInboxLimit, svc.params.Limit)
	assert.True(t, svc.params.UnreadOnly)

	var res notifications.ListResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.EqualValues(t, 4, res.UnreadCount)

	w, _ = call(t, ListNotifications(svc, logger.Nop()), http.MethodGet, "/api/notifications?limit=51", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMarkNotificationReadNotFound(t *testing.T) {
	svc := &stubInbox{err: pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")}
	w, _ := call(t, MarkNotificationRead(svc, logger.Nop()), http.MethodPatch, "/", "", withParam("id", uuid.NewString()))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMarkAllAndDelete(t *testing.T) {
	svc := &stubInbox{}
	w, _ := call(t, MarkAllNotificationsRead(svc, logger.Nop()), http.MethodPatch, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)

	id := uuid.New()
	w, _ = call(t, DeleteNotification(svc, logger.Nop()), http.MethodDelete, "/", "", withParam("id", id.String()))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, svc.deleted)
}
