package booking

import (
	"testing"
	"time"

	"hotelbooking/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

func TestSideEffectsFor(t *testing.T) {
	t.Run("Approved", func(t *testing.T) {
		p, err := SideEffectsFor(models.StatusApproved, TransitionContext{ActorID: 7}, now)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentPending, *p.PaymentStatus)
		assert.Equal(t, int64(7), *p.ApprovedBy)
		assert.Equal(t, now, *p.ApprovedAt)
	})

	t.Run("DeniedRequiresReason", func(t *testing.T) {
		_, err := SideEffectsFor(models.StatusDenied, TransitionContext{DeniedReason: "   "}, now)
		assert.ErrorIs(t, err, ErrDeniedReasonRequired)
		assert.Equal(t, KindValidation, KindOf(err))

		p, err := SideEffectsFor(models.StatusDenied, TransitionContext{DeniedReason: " overbooked "}, now)
		require.NoError(t, err)
		assert.Equal(t, "overbooked", *p.DeniedReason)
		assert.Equal(t, models.PaymentRefunded, *p.PaymentStatus)
	})

	t.Run("Booked", func(t *testing.T) {
		p, err := SideEffectsFor(models.StatusBooked, TransitionContext{}, now)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentPaid, *p.PaymentStatus)
	})

	t.Run("CheckedOutKeepsPayment", func(t *testing.T) {
		p, err := SideEffectsFor(models.StatusCheckedOut, TransitionContext{}, now)
		require.NoError(t, err)
		assert.Nil(t, p.PaymentStatus)
		assert.Equal(t, now, *p.CheckedOutAt)
	})

	t.Run("Cancelled", func(t *testing.T) {
		p, err := SideEffectsFor(models.StatusCancelled, TransitionContext{}, now)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentRefunded, *p.PaymentStatus)
		assert.NotNil(t, p.CancelledAt)
	})

	t.Run("NoShowOnlyStatus", func(t *testing.T) {
		p, err := SideEffectsFor(models.StatusNoShow, TransitionContext{}, now)
		require.NoError(t, err)
		assert.Equal(t, FieldPatch{Status: p.Status}, p)
	})

	t.Run("AdminNotes", func(t *testing.T) {
		p, err := SideEffectsFor(models.StatusNoShow, TransitionContext{AdminNotes: "called twice"}, now)
		require.NoError(t, err)
		assert.Equal(t, "called twice", *p.AdminNotes)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := SideEffectsFor(models.BookingStatus("lost"), TransitionContext{}, now)
		assert.ErrorIs(t, err, ErrInvalidStatus)
	})
}

func TestPlan(t *testing.T) {
	t.Run("SelfTransitionIsNoop", func(t *testing.T) {
		b := &models.Booking{Status: models.StatusDenied}
		p, changed, err := Plan(b, models.StatusDenied, TransitionContext{}, now)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, FieldPatch{}, p)
	})

	t.Run("PendingToCheckedIn", func(t *testing.T) {
		b := &models.Booking{Status: models.StatusPending}
		_, changed, err := Plan(b, models.StatusCheckedIn, TransitionContext{}, now)
		require.Error(t, err)
		assert.False(t, changed)
		assert.ErrorIs(t, err, ErrIllegalTransition)
		assert.Equal(t, KindConflict, KindOf(err))
		assert.Equal(t, []models.BookingStatus{models.StatusApproved, models.StatusCancelled, models.StatusDenied}, AllowedOf(err))
	})

	t.Run("PendingToDeniedWithoutReason", func(t *testing.T) {
		b := &models.Booking{Status: models.StatusPending}
		_, _, err := Plan(b, models.StatusDenied, TransitionContext{}, now)
		assert.Equal(t, KindValidation, KindOf(err))
		assert.Equal(t, models.StatusPending, b.Status)
	})

	t.Run("BookedThroughCheckout", func(t *testing.T) {
		b := &models.Booking{Status: models.StatusBooked, PaymentStatus: models.PaymentPaid}

		p, changed, err := Plan(b, models.StatusCheckedIn, TransitionContext{}, now)
		require.NoError(t, err)
		require.True(t, changed)
		p.Apply(b)

		later := now.Add(48 * time.Hour)
		p, changed, err = Plan(b, models.StatusCheckedOut, TransitionContext{}, later)
		require.NoError(t, err)
		require.True(t, changed)
		p.Apply(b)

		assert.Equal(t, models.StatusCheckedOut, b.Status)
		assert.Equal(t, models.PaymentPaid, b.PaymentStatus)
		require.NotNil(t, b.CheckedInAt)
		require.NotNil(t, b.CheckedOutAt)
		assert.Equal(t, now, *b.CheckedInAt)
		assert.Equal(t, later, *b.CheckedOutAt)
	})
}

func TestApplyLeavesUnsetFields(t *testing.T) {
	approver := int64(3)
	b := &models.Booking{Status: models.StatusApproved, ApprovedBy: &approver, AdminNotes: "vip"}
	p, err := SideEffectsFor(models.StatusBooked, TransitionContext{}, now)
	require.NoError(t, err)
	p.Apply(b)

	assert.Equal(t, models.StatusBooked, b.Status)
	assert.Equal(t, int64(3), *b.ApprovedBy)
	assert.Equal(t, "vip", b.AdminNotes)
}
