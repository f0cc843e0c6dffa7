package booking

import (
	"strings"
	"time"

	"hotelbooking/internal/models"
)

// TransitionContext carries the actor and the transition-specific input.
type TransitionContext struct {
	ActorID      int64
	DeniedReason string
	AdminNotes   string
}

// FieldPatch is the set of fields a transition writes. Nil fields are left as is.
type FieldPatch struct {
	Status        *models.BookingStatus
	PaymentStatus *models.PaymentStatus
	ApprovedBy    *int64
	ApprovedAt    *time.Time
	DeniedReason  *string
	CheckedInAt   *time.Time
	CheckedOutAt  *time.Time
	CancelledAt   *time.Time
	AdminNotes    *string
}

// SideEffectsFor derives the fields written when a booking enters target.
// It does not check whether the edge is legal; see Plan.
func SideEffectsFor(target models.BookingStatus, tctx TransitionContext, now time.Time) (FieldPatch, error) {
	patch := FieldPatch{Status: ptr(target)}

	switch target {
	case models.StatusPending:
	case models.StatusApproved:
		patch.PaymentStatus = ptr(models.PaymentPending)
		patch.ApprovedBy = ptr(tctx.ActorID)
		patch.ApprovedAt = ptr(now)
	case models.StatusDenied:
		reason := strings.TrimSpace(tctx.DeniedReason)
		if reason == "" {
			return FieldPatch{}, Validation(ErrDeniedReasonRequired, "denied reason is required")
		}
		patch.DeniedReason = ptr(reason)
		patch.PaymentStatus = ptr(models.PaymentRefunded)
	case models.StatusBooked:
		patch.PaymentStatus = ptr(models.PaymentPaid)
	case models.StatusCheckedIn:
		patch.CheckedInAt = ptr(now)
	case models.StatusCheckedOut:
		patch.CheckedOutAt = ptr(now)
	case models.StatusCancelled:
		patch.PaymentStatus = ptr(models.PaymentRefunded)
		patch.CancelledAt = ptr(now)
	case models.StatusNoShow:
	default:
		return FieldPatch{}, Validation(ErrInvalidStatus, "unknown booking status %q", string(target))
	}

	if notes := strings.TrimSpace(tctx.AdminNotes); notes != "" {
		patch.AdminNotes = ptr(notes)
	}
	return patch, nil
}

// Plan validates a transition of b to target and returns the patch to persist.
// changed is false for a self-transition, which succeeds without a write.
func Plan(b *models.Booking, target models.BookingStatus, tctx TransitionContext, now time.Time) (FieldPatch, bool, error) {
	if !target.Valid() {
		return FieldPatch{}, false, Validation(ErrInvalidStatus, "unknown booking status %q", string(target))
	}
	if b.Status == target {
		return FieldPatch{}, false, nil
	}
	if !CanTransition(b.Status, target) {
		return FieldPatch{}, false, IllegalTransition(b.Status, target)
	}
	patch, err := SideEffectsFor(target, tctx, now)
	if err != nil {
		return FieldPatch{}, false, err
	}
	return patch, true, nil
}

// Apply writes the patch into b.
func (p FieldPatch) Apply(b *models.Booking) {
	if p.Status != nil {
		b.Status = *p.Status
	}
	if p.PaymentStatus != nil {
		b.PaymentStatus = *p.PaymentStatus
	}
	if p.ApprovedBy != nil {
		b.ApprovedBy = ptr(*p.ApprovedBy)
	}
	if p.ApprovedAt != nil {
		b.ApprovedAt = ptr(*p.ApprovedAt)
	}
	if p.DeniedReason != nil {
		b.DeniedReason = *p.DeniedReason
	}
	if p.CheckedInAt != nil {
		b.CheckedInAt = ptr(*p.CheckedInAt)
	}
	if p.CheckedOutAt != nil {
		b.CheckedOutAt = ptr(*p.CheckedOutAt)
	}
	if p.CancelledAt != nil {
		b.CancelledAt = ptr(*p.CancelledAt)
	}
	if p.AdminNotes != nil {
		b.AdminNotes = *p.AdminNotes
	}
}

func ptr[T any](v T) *T {
	return &v
}
