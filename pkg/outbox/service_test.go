package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/pos-backend/pkg/db/models"
	"github.com/angelmondragon/pos-backend/pkg/enums"
	"github.com/angelmondragon/pos-backend/pkg/outbox/payloads"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:outbox_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.OutboxEvent{}))
	return conn
}

func TestEmitWritesEnvelopeInsideTransaction(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)
	orderID := uuid.New()
	actor := uuid.New()

	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         &ActorRef{UserID: actor, Role: "cashier"},
			Data:          payloads.OrderCreatedEvent{OrderID: orderID, Number: "VTA-2026-00001"},
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, orderID, rows[0].AggregateID)

	env, err := DecodeEnvelope(rows[0].Payload)
	require.NoError(t, err)
	require.Equal(t, 1, env.Version)
	require.NotEmpty(t, env.EventID)
	require.Equal(t, actor, env.Actor.UserID)
	require.Contains(t, string(env.Data), "VTA-2026-00001")
}

func TestEmitRolledBackWithTransaction(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(NewRepository(conn), nil)

	_ = conn.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventShiftOpened,
			AggregateType: enums.AggregateShift,
			AggregateID:   uuid.New(),
		}))
		return gorm.ErrInvalidTransaction
	})

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestEmitRejectsUnknownTypesAndMissingTx(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(NewRepository(conn), nil)
	require.Error(t, svc.Emit(context.Background(), nil, DomainEvent{}))
	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{EventType: "bogus", AggregateType: enums.AggregateOrder})
	})
	require.Error(t, err)
}

func TestRepositoryLifecycle(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	old := time.Now().UTC().Add(-48 * time.Hour)

	published := models.OutboxEvent{EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: []byte(`{}`)}
	pending := models.OutboxEvent{EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: []byte(`{}`)}
	require.NoError(t, repo.Insert(conn, published))
	require.NoError(t, repo.Insert(conn, pending))

	rows := make([]models.OutboxEvent, 2)
	require.NoError(t, conn.Where("aggregate_id = ?", published.AggregateID).First(&rows[0]).Error)
	require.NoError(t, conn.Where("aggregate_id = ?", pending.AggregateID).First(&rows[1]).Error)

	require.NoError(t, repo.MarkPublishedTx(conn, rows[0].ID))
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("id = ?", rows[0].ID).Update("published_at", old).Error)
	require.NoError(t, repo.MarkFailedTx(conn, rows[1].ID, gorm.ErrInvalidData))

	batch, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	require.Equal(t, 1, batch[0].AttemptCount)

	require.NoError(t, repo.MarkTerminalTx(conn, rows[1].ID, gorm.ErrInvalidData, 3))
	batch, err = repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Empty(t, batch)

	pendingCount, err := repo.CountPending(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, pendingCount)

	deleted, err := repo.DeletePublishedBefore(context.Background(), conn, time.Now().UTC().Add(-24*time.Hour), 3)
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)
}
