package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/supplyhub-backend/internal/actor"
	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
	"github.com/angelmondragon/supplyhub-backend/pkg/pagination"
)

// Service defines the recipient inbox operations.
type Service interface {
	List(ctx context.Context, actx actor.Context, params ListParams) (*pagination.Page[models.Notification], error)
	MarkRead(ctx context.Context, actx actor.Context, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, actx actor.Context) (int64, error)
}

type service struct {
	repo Repository
}

// ListParams configures pagination for notifications.
type ListParams struct {
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// NewService wires notifications dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo}, nil
}

func scopeFor(actx actor.Context) (recipientScope, error) {
	if actx.UserID == uuid.Nil {
		return recipientScope{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	scope := recipientScope{UserID: actx.UserID}
	if actx.IsAdmin() {
		scope.Groups = []enums.NotificationGroup{enums.NotificationGroupAdmins}
	}
	return scope, nil
}

func (s *service) List(ctx context.Context, actx actor.Context, params ListParams) (*pagination.Page[models.Notification], error) {
	scope, err := scopeFor(actx)
	if err != nil {
		return nil, err
	}

	query := listNotificationsParams{
		Scope:      scope,
		Limit:      params.Limit,
		UnreadOnly: params.UnreadOnly,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	page := &pagination.Page[models.Notification]{Items: rows}
	if next != nil {
		page.NextCursor = pagination.EncodeCursor(*next)
	}
	return page, nil
}

func (s *service) MarkRead(ctx context.Context, actx actor.Context, notificationID uuid.UUID) error {
	scope, err := scopeFor(actx)
	if err != nil {
		return err
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	result, err := s.repo.MarkRead(ctx, scope, notificationID, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, actx actor.Context) (int64, error) {
	scope, err := scopeFor(actx)
	if err != nil {
		return 0, err
	}

	count, err := s.repo.MarkAllRead(ctx, scope, time.Now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}
