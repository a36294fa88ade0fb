package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akhilnathan/shopsite-backend/pkg/enums"
	"github.com/akhilnathan/shopsite-backend/pkg/pagination"
)

func TestRepoFindByIDPreloadsRelations(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()

	order := seedOrder(t, db, userID, enums.OrderStatusPending)
	seedOrderItem(t, db, order.ID, uuid.New(), 2)

	got, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
	assert.Len(t, got.Items, 1)
	assert.Len(t, got.StatusEvents, 1)
	require.NotNil(t, got.Transaction)
	assert.Equal(t, enums.PaymentMethodCard, got.Transaction.PaymentMethod)
}

func TestRepoListFiltersAndPaginates(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()

	seedOrder(t, db, userID, enums.OrderStatusPending)
	seedOrder(t, db, userID, enums.OrderStatusPending)
	seedOrder(t, db, userID, enums.OrderStatusDelivered)
	seedOrder(t, db, uuid.New(), enums.OrderStatusPending)

	rows, total, err := repo.List(context.Background(), userID, pagination.Params{Limit: 10}, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, rows, 3)

	pending := enums.OrderStatusPending
	rows, total, err = repo.List(context.Background(), userID, pagination.Params{Limit: 1}, &pending)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, rows, 1)

	// admin view passes uuid.Nil and sees every user's orders
	_, total, err = repo.List(context.Background(), uuid.Nil, pagination.Params{Limit: 10}, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
}

func TestRepoUpdateStatusHeadGuardsPreviousValue(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)

	order := seedOrder(t, db, uuid.New(), enums.OrderStatusPending)

	moved, err := repo.UpdateStatusHead(context.Background(), order.ID, enums.OrderStatusPending, enums.OrderStatusConfirmed, nil)
	require.NoError(t, err)
	assert.True(t, moved)

	// second transition from the stale head loses
	moved, err = repo.UpdateStatusHead(context.Background(), order.ID, enums.OrderStatusPending, enums.OrderStatusConfirmed, nil)
	require.NoError(t, err)
	assert.False(t, moved)

	got, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, got.Status)
}

func TestRepoUpdatePaymentStatus(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)

	order := seedOrder(t, db, uuid.New(), enums.OrderStatusPending)

	updated, err := repo.UpdatePaymentStatus(context.Background(), order.ID, enums.PaymentStatusSuccess)
	require.NoError(t, err)
	assert.True(t, updated)

	updated, err = repo.UpdateTransactionStatus(context.Background(), order.ID, enums.PaymentStatusSuccess)
	require.NoError(t, err)
	assert.True(t, updated)

	got, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusSuccess, got.PaymentStatus)
	require.NotNil(t, got.Transaction)
	assert.Equal(t, enums.PaymentStatusSuccess, got.Transaction.Status)
}
