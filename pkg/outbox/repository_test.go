package outbox

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
)

func TestDeletePublishedBeforeKeepsPendingRows(t *testing.T) {
	conn := newOutboxDB(t)
	repo := NewRepository(conn)
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	old := now.Add(-40 * 24 * time.Hour)
	recent := now.Add(-time.Hour)

	rows := []models.OutboxEvent{
		{PublishedAt: &old},
		{PublishedAt: &recent},
		{},
	}
	for i := range rows {
		rows[i].ID = uuid.New()
		rows[i].EventType = enums.EventRefundRequested
		rows[i].AggregateType = enums.AggregateRefundRequest
		rows[i].AggregateID = uuid.New()
		rows[i].Payload = []byte(`{}`)
		require.NoError(t, repo.Insert(conn, rows[i]))
	}

	deleted, err := repo.DeletePublishedBefore(conn, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var remaining []models.OutboxEvent
	require.NoError(t, conn.Order("created_at").Find(&remaining).Error)
	require.Len(t, remaining, 2)
	for _, row := range remaining {
		assert.NotEqual(t, rows[0].ID, row.ID)
	}
}
