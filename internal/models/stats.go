package models

import "time"

// DashboardStats is the admin overview snapshot.
type DashboardStats struct {
	TotalRooms       int                   `json:"total_rooms"`
	AvailableRooms   int                   `json:"available_rooms"`
	MaintenanceRooms int                   `json:"maintenance_rooms"`
	TotalUsers       int                   `json:"total_users"`
	TotalBookings    int                   `json:"total_bookings"`
	BookingsByStatus map[BookingStatus]int `json:"bookings_by_status"`
	ActiveBookings   int                   `json:"active_bookings"`
	PendingApprovals int                   `json:"pending_approvals"`
	TodayCheckIns    int                   `json:"today_check_ins"`
	TodayCheckOuts   int                   `json:"today_check_outs"`
	OccupiedTonight  int                   `json:"occupied_tonight"`
	OccupancyRate    float64               `json:"occupancy_rate"`
	Revenue          float64               `json:"revenue"`
	AverageRating    float64               `json:"average_rating"`
	GeneratedAt      time.Time             `json:"generated_at"`
}
