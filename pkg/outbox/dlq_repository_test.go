package outbox

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
)

func TestDLQInsertTruncatesMessage(t *testing.T) {
	conn := newOutboxDB(t)
	require.NoError(t, conn.Exec(`CREATE TABLE outbox_dlq (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL UNIQUE,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		error_reason TEXT NOT NULL,
		error_message TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		failed_at DATETIME
	)`).Error)
	repo := NewDLQRepository(conn)
	msg := strings.Repeat("x", maxDLQErrorLen+100)

	require.NoError(t, repo.InsertTx(conn, models.OutboxDLQ{
		EventID:       uuid.New(),
		EventType:     enums.EventDeliveryOTPIssued,
		AggregateType: enums.AggregatePurchaseOrder,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{"version":1}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts.String(),
		ErrorMessage:  &msg,
	}))

	var row models.OutboxDLQ
	require.NoError(t, conn.First(&row).Error)
	require.NotNil(t, row.ErrorMessage)
	assert.Len(t, *row.ErrorMessage, maxDLQErrorLen)
	assert.NotEqual(t, uuid.Nil, row.ID)
	assert.Error(t, repo.InsertTx(nil, models.OutboxDLQ{}))
}
