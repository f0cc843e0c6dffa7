package database

import (
	"context"
	"fmt"
	"time"

	"hotelbooking/internal/models"
)

// GetDashboardStats aggregates the admin overview as of the calendar date today.
func (db *DB) GetDashboardStats(ctx context.Context, today time.Time) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{
		BookingsByStatus: make(map[models.BookingStatus]int),
		GeneratedAt:      time.Now(),
	}
	day := today.Format(models.DateLayout)

	roomQuery := `SELECT COUNT(*),
                    COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
                    COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
                  FROM rooms`
	err := db.QueryRowContext(ctx, roomQuery, models.RoomAvailable, models.RoomMaintenance).
		Scan(&stats.TotalRooms, &stats.AvailableRooms, &stats.MaintenanceRooms)
	if err != nil {
		return nil, fmt.Errorf("failed to count rooms: %w", err)
	}

	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&stats.TotalUsers); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	rows, err := db.QueryContext(ctx, `SELECT status, COUNT(*) FROM bookings GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count bookings by status: %w", err)
	}
	for rows.Next() {
		var status models.BookingStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan booking count: %w", err)
		}
		stats.BookingsByStatus[status] = count
		stats.TotalBookings += count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for status, count := range stats.BookingsByStatus {
		switch status {
		case models.StatusCancelled, models.StatusDenied, models.StatusNoShow, models.StatusCheckedOut:
		default:
			stats.ActiveBookings += count
		}
	}
	stats.PendingApprovals = stats.BookingsByStatus[models.StatusPending]

	placeholders, inactive := inactiveStatusArgs()
	dayQuery := `SELECT
                   COALESCE(SUM(CASE WHEN check_in = ? THEN 1 ELSE 0 END), 0),
                   COALESCE(SUM(CASE WHEN check_out = ? THEN 1 ELSE 0 END), 0),
                   COUNT(DISTINCT CASE WHEN check_in <= ? AND ? < check_out THEN room_id END)
                 FROM bookings WHERE status NOT IN (` + placeholders + `)`
	args := append([]interface{}{day, day, day, day}, inactive...)
	err = db.QueryRowContext(ctx, dayQuery, args...).Scan(&stats.TodayCheckIns, &stats.TodayCheckOuts, &stats.OccupiedTonight)
	if err != nil {
		return nil, fmt.Errorf("failed to count today's movements: %w", err)
	}

	bookable := stats.TotalRooms - stats.MaintenanceRooms
	if bookable > 0 {
		stats.OccupancyRate = float64(stats.OccupiedTonight) / float64(bookable)
	}

	err = db.QueryRowContext(ctx, `SELECT COALESCE(SUM(total_amount), 0) FROM bookings WHERE payment_status = ?`, models.PaymentPaid).
		Scan(&stats.Revenue)
	if err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}

	err = db.QueryRowContext(ctx, `SELECT COALESCE(AVG(rating), 0) FROM reviews`).Scan(&stats.AverageRating)
	if err != nil {
		return nil, fmt.Errorf("failed to average ratings: %w", err)
	}

	return stats, nil
}
