package orders

import (
	"context"
	"testing"
	"time"

	"github.com/larkspur-kitchen/rewards/internal/apperr"
	dbutil "github.com/larkspur-kitchen/rewards/internal/db"
	"github.com/larkspur-kitchen/rewards/internal/identity"
	"github.com/larkspur-kitchen/rewards/internal/models"
	"github.com/larkspur-kitchen/rewards/internal/orderstatus"
	"github.com/larkspur-kitchen/rewards/internal/security"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, errOpen := dbutil.Open(":memory:")
	require.NoError(t, errOpen)
	require.NoError(t, dbutil.Migrate(conn))
	return conn
}

func seedOrder(t *testing.T, conn *gorm.DB, id string, owner uint64, status orderstatus.Status, orderType orderstatus.OrderType) models.Order {
	t.Helper()
	now := time.Now().UTC()
	order := models.Order{
		ID:            id,
		Status:        status,
		OrderType:     orderType,
		PaymentStatus: "paid",
		SourceEventID: "evt_" + id,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if owner != 0 {
		order.UserID = &owner
	}
	require.NoError(t, conn.Create(&order).Error)
	return order
}

var (
	customer = identity.Identity{UserID: 7, Role: identity.RoleCustomer}
	kitchen  = identity.Identity{UserID: 100, Role: identity.RoleKitchen}
	admin    = identity.Identity{UserID: 1, Role: identity.RoleAdmin}
)

func TestCustomerCannotConfirm(t *testing.T) {
	conn := openTestDB(t)
	seedOrder(t, conn, "o-1", customer.UserID, orderstatus.StatusPending, orderstatus.OrderTypeDelivery)

	update, err := NewService(conn).UpdateStatus(context.Background(), customer, "o-1", "confirmed", "")
	require.True(t, apperr.Is(err, apperr.KindValidation))
	require.Equal(t, "Role 'customer' cannot update status to 'confirmed'", apperr.Message(err))
	require.False(t, update.Result.Valid)
	require.Equal(t, "Role 'customer' cannot update status to 'confirmed'", update.Result.Error)

	var stored models.Order
	require.NoError(t, conn.Take(&stored, "id = ?", "o-1").Error)
	require.Equal(t, orderstatus.StatusPending, stored.Status)
}

func TestPickupOrderCannotGoOutForDelivery(t *testing.T) {
	conn := openTestDB(t)
	seedOrder(t, conn, "o-2", 0, orderstatus.StatusReady, orderstatus.OrderTypePickup)

	_, err := NewService(conn).UpdateStatus(context.Background(), admin, "o-2", "out_for_delivery", "")
	require.True(t, apperr.Is(err, apperr.KindValidation))
	require.Equal(t, "Status 'out-for-delivery' is not valid for pickup orders", apperr.Message(err))
}

func TestKitchenAdvancesOrderAndRecordsHistory(t *testing.T) {
	conn := openTestDB(t)
	seedOrder(t, conn, "o-3", customer.UserID, orderstatus.StatusPending, orderstatus.OrderTypeDelivery)
	svc := NewService(conn)

	for _, next := range []string{"confirmed", "preparing", "ready"} {
		update, err := svc.UpdateStatus(context.Background(), kitchen, "o-3", next, "on it")
		require.NoError(t, err)
		require.True(t, update.Result.Valid)
		require.Equal(t, orderstatus.Status(next), update.Order.Status)
	}
	_, err := svc.UpdateStatus(context.Background(), kitchen, "o-3", "out-for-delivery", "")
	require.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.UpdateStatus(context.Background(), admin, "o-3", "completed", "")
	require.Equal(t, "Delivery orders must be delivered before they can be completed", apperr.Message(err))

	for _, next := range []string{"out-for-delivery", "delivered", "completed"} {
		_, err = svc.UpdateStatus(context.Background(), admin, "o-3", next, "")
		require.NoError(t, err)
	}

	order, err := svc.Get(context.Background(), customer, "o-3")
	require.NoError(t, err)
	require.Equal(t, orderstatus.StatusCompleted, order.Status)
	require.Len(t, order.StatusHistory, 6)
	require.Equal(t, "kitchen", order.StatusHistory[0].ActorRole)
	require.Equal(t, "on it", order.StatusHistory[0].Reason)
	require.Equal(t, orderstatus.StatusCompleted, order.StatusHistory[5].Status)
}

func TestCustomerCancelsOnlyOwnOrders(t *testing.T) {
	conn := openTestDB(t)
	seedOrder(t, conn, "mine", customer.UserID, orderstatus.StatusConfirmed, orderstatus.OrderTypePickup)
	seedOrder(t, conn, "theirs", 99, orderstatus.StatusConfirmed, orderstatus.OrderTypePickup)
	svc := NewService(conn)

	_, err := svc.UpdateStatus(context.Background(), customer, "theirs", "cancelled", "")
	require.ErrorIs(t, err, ErrOrderNotFound)
	_, err = svc.Get(context.Background(), customer, "theirs")
	require.ErrorIs(t, err, ErrOrderNotFound)

	update, err := svc.UpdateStatus(context.Background(), customer, "mine", "cancelled", "changed my mind")
	require.NoError(t, err)
	require.Equal(t, orderstatus.StatusCancelled, update.Order.Status)

	_, err = svc.UpdateStatus(context.Background(), customer, "mine", "cancelled", "")
	require.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.UpdateStatus(context.Background(), admin, "missing", "cancelled", "")
	require.ErrorIs(t, err, ErrOrderNotFound)
	_, err = svc.UpdateStatus(context.Background(), admin, "mine", "teleported", "")
	require.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestListFiltersAndPaginates(t *testing.T) {
	conn := openTestDB(t)
	seedOrder(t, conn, "a", 1, orderstatus.StatusPending, orderstatus.OrderTypePickup)
	seedOrder(t, conn, "b", 1, orderstatus.StatusReady, orderstatus.OrderTypePickup)
	seedOrder(t, conn, "c", 2, orderstatus.StatusPending, orderstatus.OrderTypeDelivery)
	svc := NewService(conn)

	rows, total, err := svc.List(context.Background(), ListFilter{Status: "pending"})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, rows, 2)

	rows, total, err = svc.List(context.Background(), ListFilter{UserID: 1, PageSize: 1})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, rows, 1)

	_, _, err = svc.List(context.Background(), ListFilter{Status: "lost"})
	require.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestVerifyPickup(t *testing.T) {
	conn := openTestDB(t)
	order := seedOrder(t, conn, "p-1", 0, orderstatus.StatusReady, orderstatus.OrderTypePickup)
	hash, err := security.HashPickupCode("482913")
	require.NoError(t, err)
	require.NoError(t, conn.Model(&models.Order{}).Where("id = ?", order.ID).Update("pickup_code_hash", hash).Error)
	svc := NewService(conn)

	ok, err := svc.VerifyPickup(context.Background(), "p-1", "482913")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = svc.VerifyPickup(context.Background(), "p-1", "000000")
	require.NoError(t, err)
	require.False(t, ok)

	seedOrder(t, conn, "d-1", 0, orderstatus.StatusReady, orderstatus.OrderTypeDelivery)
	_, err = svc.VerifyPickup(context.Background(), "d-1", "482913")
	require.True(t, apperr.Is(err, apperr.KindValidation))
	seedOrder(t, conn, "p-2", 0, orderstatus.StatusPreparing, orderstatus.OrderTypePickup)
	_, err = svc.VerifyPickup(context.Background(), "p-2", "482913")
	require.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestCompletingPickupOrderRequiresCode(t *testing.T) {
	conn := openTestDB(t)
	order := seedOrder(t, conn, "p-3", customer.UserID, orderstatus.StatusReady, orderstatus.OrderTypePickup)
	hash, err := security.HashPickupCode("615204")
	require.NoError(t, err)
	require.NoError(t, conn.Model(&models.Order{}).Where("id = ?", order.ID).Update("pickup_code_hash", hash).Error)
	svc := NewService(conn)

	update, err := svc.UpdateStatus(context.Background(), admin, "p-3", "completed", "")
	require.True(t, apperr.Is(err, apperr.KindValidation))
	require.Equal(t, "A pickup code is required to complete pickup orders", apperr.Message(err))
	require.False(t, update.Result.Valid)

	_, err = svc.UpdateStatus(context.Background(), admin, "p-3", "completed", "", WithPickupCode("000000"))
	require.Equal(t, "Pickup code does not match", apperr.Message(err))

	var stored models.Order
	require.NoError(t, conn.Take(&stored, "id = ?", "p-3").Error)
	require.Equal(t, orderstatus.StatusReady, stored.Status)

	update, err = svc.UpdateStatus(context.Background(), admin, "p-3", "completed", "picked up", WithPickupCode(" 615204 "))
	require.NoError(t, err)
	require.True(t, update.Result.Valid)
	require.Equal(t, orderstatus.StatusCompleted, update.Order.Status)

	// The code gate sits behind the role filter: kitchen still cannot complete.
	seedOrder(t, conn, "p-4", 0, orderstatus.StatusReady, orderstatus.OrderTypePickup)
	_, err = svc.UpdateStatus(context.Background(), kitchen, "p-4", "completed", "", WithPickupCode("615204"))
	require.Equal(t, "Role 'kitchen' cannot update status to 'completed'", apperr.Message(err))
}
