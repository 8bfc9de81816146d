package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/supplyhub-backend/internal/actor"
	"github.com/angelmondragon/supplyhub-backend/internal/testdb"
	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
)

func seedNotification(t *testing.T, repo Repository, msg Message, at time.Time) *models.Notification {
	t.Helper()
	row := &models.Notification{
		ID:              uuid.New(),
		RecipientUserID: msg.RecipientUserID,
		RecipientGroup:  msg.RecipientGroup,
		Type:            msg.Type,
		Title:           msg.Title,
		Body:            msg.Body,
		CreatedAt:       at,
	}
	require.NoError(t, repo.Create(context.Background(), row))
	return row
}

func TestInboxScopesByUserAndGroup(t *testing.T) {
	conn := testdb.Open(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo)
	require.NoError(t, err)

	shopper := actor.Context{UserID: uuid.New(), Role: enums.ActorRoleShopper}
	admin := actor.Context{UserID: uuid.New(), Role: enums.ActorRoleAdmin}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	seedNotification(t, repo, ToUser(shopper.UserID, enums.NotificationTypePurchaseOrderStatus, "Shipped", "", nil), base)
	seedNotification(t, repo, ToGroup(enums.NotificationGroupAdmins, enums.NotificationTypePurchaseOrderStatus, "PO shipped", "", nil), base.Add(time.Minute))
	seedNotification(t, repo, ToUser(admin.UserID, enums.NotificationTypeActionCode, "Code", "", nil), base.Add(2*time.Minute))

	page, err := svc.List(context.Background(), shopper, ListParams{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Shipped", page.Items[0].Title)

	page, err = svc.List(context.Background(), admin, ListParams{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Code", page.Items[0].Title)
	assert.Empty(t, page.NextCursor)
}

func TestInboxPaginatesAndMarksRead(t *testing.T) {
	conn := testdb.Open(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo)
	require.NoError(t, err)
	ctx := context.Background()

	user := actor.Context{UserID: uuid.New(), Role: enums.ActorRoleSupplier}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var rows []*models.Notification
	for i := 0; i < 3; i++ {
		rows = append(rows, seedNotification(t, repo, ToUser(user.UserID, enums.NotificationTypePurchaseOrderStatus, "n", "", nil), base.Add(time.Duration(i)*time.Minute)))
	}

	first, err := svc.List(ctx, user, ListParams{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.NotEmpty(t, first.NextCursor)
	assert.Equal(t, rows[2].ID, first.Items[0].ID)

	second, err := svc.List(ctx, user, ListParams{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, rows[0].ID, second.Items[0].ID)

	require.NoError(t, svc.MarkRead(ctx, user, rows[0].ID))
	require.NoError(t, svc.MarkRead(ctx, user, rows[0].ID), "marking twice is not an error")

	stranger := actor.Context{UserID: uuid.New(), Role: enums.ActorRoleShopper}
	err = svc.MarkRead(ctx, stranger, rows[1].ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	unread, err := svc.List(ctx, user, ListParams{UnreadOnly: true})
	require.NoError(t, err)
	assert.Len(t, unread.Items, 2)

	count, err := svc.MarkAllRead(ctx, user)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestInboxValidation(t *testing.T) {
	svc, err := NewService(NewRepository(testdb.Open(t)))
	require.NoError(t, err)

	_, err = svc.List(context.Background(), actor.Context{}, ListParams{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	user := actor.Context{UserID: uuid.New(), Role: enums.ActorRoleShopper}
	_, err = svc.List(context.Background(), user, ListParams{Cursor: "%%%"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	err = svc.MarkRead(context.Background(), user, uuid.Nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
