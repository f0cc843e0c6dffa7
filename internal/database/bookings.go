package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"hotelbooking/internal/models"
)

const bookingColumns = `id, user_id, room_id, check_in, check_out, guests, total_amount,
	status, payment_status, special_requests, admin_notes, approved_by, approved_at,
	denied_reason, checked_in_at, checked_out_at, cancelled_at, created_at, updated_at, version`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	b := &models.Booking{}
	var checkIn, checkOut string
	err := row.Scan(
		&b.ID, &b.UserID, &b.RoomID, &checkIn, &checkOut, &b.Guests, &b.TotalAmount,
		&b.Status, &b.PaymentStatus, &b.SpecialRequests, &b.AdminNotes, &b.ApprovedBy, &b.ApprovedAt,
		&b.DeniedReason, &b.CheckedInAt, &b.CheckedOutAt, &b.CancelledAt, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}
	if b.CheckIn, err = time.Parse(models.DateLayout, checkIn); err != nil {
		return nil, fmt.Errorf("failed to parse check-in date %s: %w", checkIn, err)
	}
	if b.CheckOut, err = time.Parse(models.DateLayout, checkOut); err != nil {
		return nil, fmt.Errorf("failed to parse check-out date %s: %w", checkOut, err)
	}
	return b, nil
}

func scanBookings(rows *sql.Rows) ([]*models.Booking, error) {
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}
	return bookings, nil
}

// countOverlapping counts active bookings of roomID intersecting [checkIn, checkOut),
// ignoring excludeID.
func countOverlapping(ctx context.Context, q queryer, roomID int64, checkIn, checkOut time.Time, excludeID int64) (int, error) {
	placeholders, args := inactiveStatusArgs()
	query := `SELECT COUNT(*) FROM bookings
              WHERE room_id = ? AND id != ? AND status NOT IN (` + placeholders + `)
              AND check_in < ? AND ? < check_out`

	params := append([]interface{}{roomID, excludeID}, args...)
	params = append(params, checkOut.Format(models.DateLayout), checkIn.Format(models.DateLayout))

	var count int
	if err := q.QueryRowContext(ctx, query, params...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to check overlapping bookings: %w", err)
	}
	return count, nil
}

// HasOverlappingBooking reports whether any active booking other than excludeID
// occupies roomID during [checkIn, checkOut).
func (db *DB) HasOverlappingBooking(ctx context.Context, roomID int64, checkIn, checkOut time.Time, excludeID int64) (bool, error) {
	count, err := countOverlapping(ctx, db, roomID, checkIn, checkOut, excludeID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateBookingWithLock inserts the booking if its dates are still free. The
// overlap check and the insert run in one write transaction.
func (db *DB) CreateBookingWithLock(ctx context.Context, booking *models.Booking) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 1. Check availability inside transaction
	count, err := countOverlapping(ctx, tx, booking.RoomID, booking.CheckIn, booking.CheckOut, 0)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrNotAvailable
	}

	// 2. Create booking
	query := `INSERT INTO bookings (
				user_id, room_id, check_in, check_out, guests, total_amount, status,
				payment_status, special_requests, admin_notes, created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`
	now := time.Now()
	result, err := tx.ExecContext(ctx, query,
		booking.UserID,
		booking.RoomID,
		booking.CheckIn.Format(models.DateLayout),
		booking.CheckOut.Format(models.DateLayout),
		booking.Guests,
		booking.TotalAmount,
		booking.Status,
		booking.PaymentStatus,
		booking.SpecialRequests,
		booking.AdminNotes,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}

	booking.ID = id
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1
	return nil
}

// UpdateBookingDetailsWithLock rewrites room, dates, guests, total and notes of a
// booking. Availability is re-checked against every other active booking in the
// same transaction, and the write only lands if the version is unchanged.
func (db *DB) UpdateBookingDetailsWithLock(ctx context.Context, booking *models.Booking) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	count, err := countOverlapping(ctx, tx, booking.RoomID, booking.CheckIn, booking.CheckOut, booking.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrNotAvailable
	}

	query := `UPDATE bookings SET room_id = ?, check_in = ?, check_out = ?, guests = ?, total_amount = ?,
                special_requests = ?, admin_notes = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND version = ?`
	now := time.Now()
	result, err := tx.ExecContext(ctx, query,
		booking.RoomID,
		booking.CheckIn.Format(models.DateLayout),
		booking.CheckOut.Format(models.DateLayout),
		booking.Guests,
		booking.TotalAmount,
		booking.SpecialRequests,
		booking.AdminNotes,
		now,
		booking.ID,
		booking.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking update: %w", err)
	}

	booking.Version++
	booking.UpdatedAt = now
	return nil
}

// UpdateBookingLifecycle persists status, payment and audit fields of booking in
// one statement, guarded by fromVersion.
func (db *DB) UpdateBookingLifecycle(ctx context.Context, booking *models.Booking, fromVersion int64) error {
	query := `UPDATE bookings SET status = ?, payment_status = ?, approved_by = ?, approved_at = ?,
                denied_reason = ?, checked_in_at = ?, checked_out_at = ?, cancelled_at = ?,
                admin_notes = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND version = ?`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		booking.Status,
		booking.PaymentStatus,
		booking.ApprovedBy,
		booking.ApprovedAt,
		booking.DeniedReason,
		booking.CheckedInAt,
		booking.CheckedOutAt,
		booking.CancelledAt,
		booking.AdminNotes,
		now,
		booking.ID,
		fromVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}

	booking.Version = fromVersion + 1
	booking.UpdatedAt = now
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	b.ContactHistory, err = db.GetBookingContacts(ctx, id)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (db *DB) ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	var where []string
	var args []interface{}

	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.RoomID > 0 {
		where = append(where, "room_id = ?")
		args = append(args, filter.RoomID)
	}
	if filter.UserID > 0 {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	// stays intersecting [From, To]
	if !filter.From.IsZero() {
		where = append(where, "check_out > ?")
		args = append(args, filter.From.Format(models.DateLayout))
	}
	if !filter.To.IsZero() {
		where = append(where, "check_in <= ?")
		args = append(args, filter.To.Format(models.DateLayout))
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY check_in ASC, id ASC"

	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return scanBookings(rows)
}

func (db *DB) GetUserBookings(ctx context.Context, userID int64) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = ? ORDER BY check_in DESC`
	rows, err := db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user bookings: %w", err)
	}
	return scanBookings(rows)
}

// GetActiveRoomBookings returns active bookings of roomID intersecting [from, to).
func (db *DB) GetActiveRoomBookings(ctx context.Context, roomID int64, from, to time.Time) ([]*models.Booking, error) {
	placeholders, statusArgs := inactiveStatusArgs()
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE room_id = ? AND status NOT IN (` + placeholders + `)
              AND check_in < ? AND ? < check_out
              ORDER BY check_in ASC`

	args := append([]interface{}{roomID}, statusArgs...)
	args = append(args, to.Format(models.DateLayout), from.Format(models.DateLayout))

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get room bookings: %w", err)
	}
	return scanBookings(rows)
}

// GetRoomCalendar marks every night in [startDate, startDate+days) as free or
// occupied by an active booking.
func (db *DB) GetRoomCalendar(ctx context.Context, roomID int64, startDate time.Time, days int) ([]*models.NightAvailability, error) {
	endDate := startDate.AddDate(0, 0, days)
	bookings, err := db.GetActiveRoomBookings(ctx, roomID, startDate, endDate)
	if err != nil {
		return nil, err
	}

	nights := make([]*models.NightAvailability, 0, days)
	for i := 0; i < days; i++ {
		date := startDate.AddDate(0, 0, i)
		night := &models.NightAvailability{Date: date, RoomID: roomID}
		for _, b := range bookings {
			if !date.Before(b.CheckIn) && date.Before(b.CheckOut) {
				night.Booked = true
				night.BookingID = b.ID
				night.Status = b.Status
				break
			}
		}
		nights = append(nights, night)
	}
	return nights, nil
}

func (db *DB) CountRoomBookings(ctx context.Context, roomID int64) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE room_id = ?`, roomID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count room bookings: %w", err)
	}
	return count, nil
}

// HasCompletedStay reports whether userID has a checked-out booking for roomID.
func (db *DB) HasCompletedStay(ctx context.Context, userID, roomID int64) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM bookings WHERE user_id = ? AND room_id = ? AND status = ?`
	err := db.QueryRowContext(ctx, query, userID, roomID, models.StatusCheckedOut).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check completed stay: %w", err)
	}
	return count > 0, nil
}

// AddBookingContact appends to the contact history. Entries are never updated.
func (db *DB) AddBookingContact(ctx context.Context, entry *models.ContactEntry) error {
	if entry.ContactedAt.IsZero() {
		entry.ContactedAt = time.Now()
	}
	query := `INSERT INTO booking_contacts (booking_id, method, note, contacted_by, contacted_at)
              VALUES (?, ?, ?, ?, ?)`
	result, err := db.ExecContext(ctx, query,
		entry.BookingID,
		entry.Method,
		entry.Note,
		entry.ContactedBy,
		entry.ContactedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add booking contact: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	entry.ID = id
	return nil
}

func (db *DB) GetBookingContacts(ctx context.Context, bookingID int64) ([]models.ContactEntry, error) {
	query := `SELECT id, booking_id, method, note, contacted_by, contacted_at
              FROM booking_contacts WHERE booking_id = ? ORDER BY contacted_at ASC, id ASC`
	rows, err := db.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking contacts: %w", err)
	}
	defer rows.Close()

	contacts := []models.ContactEntry{}
	for rows.Next() {
		var c models.ContactEntry
		if err := rows.Scan(&c.ID, &c.BookingID, &c.Method, &c.Note, &c.ContactedBy, &c.ContactedAt); err != nil {
			return nil, fmt.Errorf("failed to scan booking contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}
