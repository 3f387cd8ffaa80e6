package shifts

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/pos-backend/internal/testutil"
	"github.com/angelmondragon/pos-backend/pkg/db/models"
	"github.com/angelmondragon/pos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/outbox"
)

func newService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(testutil.Client(conn), NewRepository(conn), outbox.NewService(outbox.NewRepository(conn), nil), nil, nil, []string{"admin", "Manager"})
	require.NoError(t, err)
	return svc
}

func seedOrder(t *testing.T, conn *gorm.DB, shift *models.CashShift, status enums.OrderStatus, change string, payments map[enums.PaymentMethod]string) {
	t.Helper()
	order := &models.Order{
		BusinessID:     shift.BusinessID,
		Number:         "VTA-" + uuid.NewString()[:8],
		Status:         status,
		ShiftID:        &shift.ID,
		ActorID:        shift.OperatorID,
		ChangeAmount:   testutil.Money(change),
		Total:          testutil.Money("0"),
		Subtotal:       testutil.Money("0"),
		DiscountTotal:  testutil.Money("0"),
		TaxTotal:       testutil.Money("0"),
		AmountPaid:     testutil.Money("0"),
		CreditUsed:     testutil.Money("0"),
		CreditReleased: testutil.Money("0"),
		ReturnedAmount: testutil.Money("0"),
	}
	require.NoError(t, conn.Create(order).Error)
	for method, amount := range payments {
		require.NoError(t, conn.Create(&models.Payment{OrderID: order.ID, Method: method, Amount: testutil.Money(amount)}).Error)
	}
}

func TestOpenCreatesShiftAndEvent(t *testing.T) {
	conn := testutil.OpenDB(t)
	svc := newService(t, conn)
	business, operator := uuid.New(), uuid.New()

	shift, err := svc.Open(context.Background(), OpenInput{BusinessID: business, TillID: " T1 ", OperatorID: operator, OpeningFloat: testutil.Money("500")})
	require.NoError(t, err)
	require.Equal(t, "T1", shift.TillID)
	require.Equal(t, enums.ShiftStatusOpen, shift.Status)
	require.EqualValues(t, 1, testutil.Count(t, conn, &models.OutboxEvent{}, "event_type = ?", enums.EventShiftOpened))

	current, err := svc.CurrentForOperator(context.Background(), business, operator)
	require.NoError(t, err)
	require.Equal(t, shift.ID, current.ID)
}

func TestOpenRejectsSecondOpenShiftForTillOrOperator(t *testing.T) {
	conn := testutil.OpenDB(t)
	svc := newService(t, conn)
	business, operator := uuid.New(), uuid.New()
	ctx := context.Background()

	_, err := svc.Open(ctx, OpenInput{BusinessID: business, TillID: "T1", OperatorID: operator, OpeningFloat: testutil.Money("100")})
	require.NoError(t, err)

	_, err = svc.Open(ctx, OpenInput{BusinessID: business, TillID: "T1", OperatorID: uuid.New(), OpeningFloat: testutil.Money("100")})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, err = svc.Open(ctx, OpenInput{BusinessID: business, TillID: "T2", OperatorID: operator, OpeningFloat: testutil.Money("100")})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, err = svc.Open(ctx, OpenInput{BusinessID: uuid.New(), TillID: "T1", OperatorID: uuid.New(), OpeningFloat: testutil.Money("100")})
	require.NoError(t, err, "tills are scoped per business")

	_, err = svc.Open(ctx, OpenInput{BusinessID: uuid.New(), TillID: "T9", OperatorID: operator, OpeningFloat: testutil.Money("100")})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "operator is limited to one open shift across businesses")

	var open int64
	require.NoError(t, conn.Model(&models.CashShift{}).
		Where("operator_id = ? AND status = ?", operator, enums.ShiftStatusOpen).Count(&open).Error)
	require.EqualValues(t, 1, open)
}

func TestOpenValidatesInput(t *testing.T) {
	conn := testutil.OpenDB(t)
	svc := newService(t, conn)
	ctx := context.Background()

	_, err := svc.Open(ctx, OpenInput{BusinessID: uuid.New(), TillID: "T1", OperatorID: uuid.New(), OpeningFloat: testutil.Money("-1")})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Open(ctx, OpenInput{BusinessID: uuid.New(), TillID: "  ", OperatorID: uuid.New()})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCloseComputesExpectedAndVariance(t *testing.T) {
	conn := testutil.OpenDB(t)
	svc := newService(t, conn)
	business, operator := uuid.New(), uuid.New()
	shift := testutil.SeedOpenShift(t, conn, business, operator, "T1", "500")
	seedOrder(t, conn, shift, enums.OrderStatusCompleted, "0", map[enums.PaymentMethod]string{enums.PaymentMethodCash: "120"})

	closed, err := svc.Close(context.Background(), CloseInput{
		ShiftID: shift.ID, BusinessID: business, CountedAmount: testutil.Money("610"), ActorID: operator,
	})
	require.NoError(t, err)
	require.Equal(t, enums.ShiftStatusClosed, closed.Status)
	require.True(t, testutil.Money("620").Equal(closed.ExpectedAmount.Decimal))
	require.True(t, testutil.Money("-10").Equal(closed.Variance.Decimal))
	require.Equal(t, operator, *closed.ClosedBy)

	stored, err := svc.Get(context.Background(), business, shift.ID)
	require.NoError(t, err)
	require.Equal(t, enums.ShiftStatusClosed, stored.Status)
	require.True(t, testutil.Money("-10").Equal(stored.Variance.Decimal))
	require.EqualValues(t, 1, testutil.Count(t, conn, &models.OutboxEvent{}, "event_type = ?", enums.EventShiftClosed))
}

func TestCloseCountsOnlyCashOfCompletedOrders(t *testing.T) {
	conn := testutil.OpenDB(t)
	svc := newService(t, conn)
	business, operator := uuid.New(), uuid.New()
	shift := testutil.SeedOpenShift(t, conn, business, operator, "T1", "100")
	seedOrder(t, conn, shift, enums.OrderStatusCompleted, "30", map[enums.PaymentMethod]string{
		enums.PaymentMethodCash: "100",
		enums.PaymentMethodCard: "50",
	})
	seedOrder(t, conn, shift, enums.OrderStatusCancelled, "0", map[enums.PaymentMethod]string{enums.PaymentMethodCash: "80"})
	seedOrder(t, conn, shift, enums.OrderStatusReturned, "0", map[enums.PaymentMethod]string{enums.PaymentMethodCash: "40"})

	closed, err := svc.Close(context.Background(), CloseInput{
		ShiftID: shift.ID, BusinessID: business, CountedAmount: testutil.Money("170"), ActorID: operator,
	})
	require.NoError(t, err)
	require.True(t, testutil.Money("170").Equal(closed.ExpectedAmount.Decimal))
	require.True(t, closed.Variance.Decimal.IsZero())
}

func TestCloseAuthorization(t *testing.T) {
	conn := testutil.OpenDB(t)
	svc := newService(t, conn)
	business, operator := uuid.New(), uuid.New()
	shift := testutil.SeedOpenShift(t, conn, business, operator, "T1", "0")
	ctx := context.Background()

	_, err := svc.Close(ctx, CloseInput{ShiftID: shift.ID, BusinessID: business, ActorID: uuid.New(), ActorRole: "cashier"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.Close(ctx, CloseInput{ShiftID: shift.ID, BusinessID: business, ActorID: uuid.New(), ActorRole: "manager"})
	require.NoError(t, err)

	_, err = svc.Close(ctx, CloseInput{ShiftID: shift.ID, BusinessID: business, ActorID: operator})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBusinessRule))
	require.Contains(t, err.Error(), "shift already closed")
}

func TestCloseUnknownOrForeignShift(t *testing.T) {
	conn := testutil.OpenDB(t)
	svc := newService(t, conn)
	operator := uuid.New()
	shift := testutil.SeedOpenShift(t, conn, uuid.New(), operator, "T1", "0")

	_, err := svc.Close(context.Background(), CloseInput{ShiftID: shift.ID, BusinessID: uuid.New(), ActorID: operator})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Get(context.Background(), uuid.New(), shift.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRequireOpenShift(t *testing.T) {
	conn := testutil.OpenDB(t)
	svc := newService(t, conn)
	business, operator := uuid.New(), uuid.New()

	_, err := svc.RequireOpenShift(context.Background(), nil, business, operator)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBusinessRule))
	require.Contains(t, err.Error(), "no open shift for operator")

	shift := testutil.SeedOpenShift(t, conn, business, operator, "T1", "0")
	got, err := svc.RequireOpenShift(context.Background(), nil, business, operator)
	require.NoError(t, err)
	require.Equal(t, shift.ID, got.ID)
}

func TestReopenAfterClose(t *testing.T) {
	conn := testutil.OpenDB(t)
	svc := newService(t, conn)
	business, operator := uuid.New(), uuid.New()
	ctx := context.Background()

	first, err := svc.Open(ctx, OpenInput{BusinessID: business, TillID: "T1", OperatorID: operator})
	require.NoError(t, err)
	_, err = svc.Close(ctx, CloseInput{ShiftID: first.ID, BusinessID: business, ActorID: operator})
	require.NoError(t, err)

	second, err := svc.Open(ctx, OpenInput{BusinessID: business, TillID: "T1", OperatorID: operator})
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)
}

func TestExpectedCash(t *testing.T) {
	got := ExpectedCash(testutil.Money("500"), testutil.Money("120"), testutil.Money("0"))
	require.True(t, testutil.Money("620").Equal(got))
}
