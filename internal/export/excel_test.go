package export

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"hotelbooking/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleReport() Report {
	checkIn := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	mk := func(id int64, status models.BookingStatus, payment models.PaymentStatus, total float64) *models.BookingDetails {
		return &models.BookingDetails{
			Booking: models.Booking{
				ID: id, RoomID: 3, CheckIn: checkIn, CheckOut: checkIn.AddDate(0, 0, 2),
				Guests: 2, TotalAmount: total, Status: status, PaymentStatus: payment,
				SpecialRequests: "late arrival", CreatedAt: checkIn.AddDate(0, 0, -10),
			},
			User: &models.UserSummary{ID: 1, Name: "Ivan", Email: "ivan@example.com"},
			Room: &models.RoomSummary{ID: 3, Number: "301", Name: "Suite"},
		}
	}
	return Report{
		From: checkIn,
		To:   checkIn.AddDate(0, 1, 0),
		Bookings: []*models.BookingDetails{
			mk(1, models.StatusBooked, models.PaymentPaid, 400),
			mk(2, models.StatusPending, models.PaymentPending, 200),
			mk(3, models.StatusCancelled, models.PaymentRefunded, 300),
		},
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleReport()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{bookingsSheet, summarySheet}, f.GetSheetList())

	rows, err := f.GetRows(bookingsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, bookingColumns, rows[0])
	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "301 Suite", rows[1][1])
	assert.Equal(t, "Ivan", rows[1][2])
	assert.Equal(t, "2026-06-01", rows[1][5])
	assert.Equal(t, "2", rows[1][7])
	assert.Equal(t, "booked", rows[1][10])

	total, err := f.GetCellValue(summarySheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "3", total)

	revenue, err := f.GetCellValue(summarySheet, "B3")
	require.NoError(t, err)
	assert.Equal(t, "400", revenue)
}

func TestWrite_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Report{}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(bookingsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestSaveFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	path, err := SaveFile(dir, sampleReport())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "bookings_2026-06-01_to_2026-07-01.xlsx"), path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), bookingsSheet)
}

func TestFileName(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	assert.Equal(t, "bookings_2026-03-04_05-06-07.xlsx", FileName(Report{}, now))
	assert.Equal(t, "bookings_start_to_2026-01-31.xlsx", FileName(Report{To: time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)}, now))
}

func TestRoomLabel(t *testing.T) {
	assert.Equal(t, "#7", roomLabel(&models.BookingDetails{Booking: models.Booking{RoomID: 7}}))
	assert.Equal(t, "12", roomLabel(&models.BookingDetails{Room: &models.RoomSummary{Number: "12"}}))
}
