package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"hotelbooking/internal/booking"
	"hotelbooking/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	bookingsSheet = "Bookings"
	summarySheet  = "Summary"
)

var bookingColumns = []string{
	"ID", "Room", "Guest", "Email", "Phone", "Check-in", "Check-out", "Nights",
	"Guests", "Total", "Status", "Payment", "Special requests", "Admin notes", "Created",
}

// Row fill colour by booking status
var statusFill = map[models.BookingStatus]string{
	models.StatusPending:    "#FFEB9C",
	models.StatusApproved:   "#DDEBF7",
	models.StatusBooked:     "#C6EFCE",
	models.StatusCheckedIn:  "#C6EFCE",
	models.StatusCheckedOut: "#EDEDED",
	models.StatusCancelled:  "#FFC7CE",
	models.StatusDenied:     "#FFC7CE",
	models.StatusNoShow:     "#FFC7CE",
}

// Report is a bookings export for one period. Zero From/To mean an open range.
type Report struct {
	From     time.Time
	To       time.Time
	Bookings []*models.BookingDetails
}

// Build renders the report into a new workbook. The caller closes it.
func Build(r Report) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(bookingsSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	if err := writeBookings(f, r.Bookings); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeSummary(f, r); err != nil {
		f.Close()
		return nil, err
	}

	_ = f.DeleteSheet("Sheet1")
	return f, nil
}

// Write streams the xlsx report to w.
func Write(w io.Writer, r Report) error {
	f, err := Build(r)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

// SaveFile writes the report into dir and returns the file path.
func SaveFile(dir string, r Report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f, err := Build(r)
	if err != nil {
		return "", err
	}
	defer f.Close()

	filePath := filepath.Join(dir, FileName(r, time.Now()))
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}
	return filePath, nil
}

// FileName builds a stable report name from the period.
func FileName(r Report, now time.Time) string {
	if r.From.IsZero() && r.To.IsZero() {
		return fmt.Sprintf("bookings_%s.xlsx", now.Format("2006-01-02_15-04-05"))
	}
	return fmt.Sprintf("bookings_%s_to_%s.xlsx", formatBound(r.From, "start"), formatBound(r.To, "end"))
}

func formatBound(t time.Time, open string) string {
	if t.IsZero() {
		return open
	}
	return t.Format(models.DateLayout)
}

func writeBookings(f *excelize.File, bookings []*models.BookingDetails) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
	})
	if err != nil {
		return err
	}

	for i, header := range bookingColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(bookingsSheet, cell, header)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(bookingColumns))
	_ = f.SetCellStyle(bookingsSheet, "A1", lastCol+"1", headerStyle)

	styles := make(map[models.BookingStatus]int, len(statusFill))
	for status, color := range statusFill {
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err != nil {
			return err
		}
		styles[status] = id
	}

	for i, b := range bookings {
		row := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(bookingsSheet, cell, &[]interface{}{
			b.ID,
			roomLabel(b),
			guestField(b, func(u *models.UserSummary) string { return u.Name }),
			guestField(b, func(u *models.UserSummary) string { return u.Email }),
			guestField(b, func(u *models.UserSummary) string { return u.Phone }),
			b.CheckIn.Format(models.DateLayout),
			b.CheckOut.Format(models.DateLayout),
			booking.NewStay(b.CheckIn, b.CheckOut).Nights(),
			b.Guests,
			b.TotalAmount,
			string(b.Status),
			string(b.PaymentStatus),
			b.SpecialRequests,
			b.AdminNotes,
			b.CreatedAt.Format("02.01.2006 15:04"),
		}); err != nil {
			return fmt.Errorf("error writing row %d: %w", row, err)
		}
		if style, ok := styles[b.Status]; ok {
			_ = f.SetCellStyle(bookingsSheet, cell, fmt.Sprintf("%s%d", lastCol, row), style)
		}
	}

	_ = f.SetColWidth(bookingsSheet, "A", "A", 8)
	_ = f.SetColWidth(bookingsSheet, "B", "E", 22)
	_ = f.SetColWidth(bookingsSheet, "F", "L", 12)
	_ = f.SetColWidth(bookingsSheet, "M", "N", 30)
	_ = f.SetColWidth(bookingsSheet, "O", "O", 18)
	return f.SetPanes(bookingsSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func writeSummary(f *excelize.File, r Report) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}

	counts := make(map[models.BookingStatus]int)
	var revenue float64
	for _, b := range r.Bookings {
		counts[b.Status]++
		if b.PaymentStatus == models.PaymentPaid {
			revenue += b.TotalAmount
		}
	}

	_ = f.SetCellValue(summarySheet, "A1", fmt.Sprintf("Period: %s - %s", formatBound(r.From, "start"), formatBound(r.To, "end")))
	_ = f.SetCellValue(summarySheet, "A2", "Total bookings")
	_ = f.SetCellValue(summarySheet, "B2", len(r.Bookings))
	_ = f.SetCellValue(summarySheet, "A3", "Paid revenue")
	_ = f.SetCellValue(summarySheet, "B3", revenue)

	row := 5
	for _, status := range models.AllBookingStatuses {
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), booking.Label(status))
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), counts[status])
		row++
	}

	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return err
	}
	_ = f.SetCellStyle(summarySheet, "A1", "A1", titleStyle)
	return f.SetColWidth(summarySheet, "A", "A", 30)
}

func roomLabel(b *models.BookingDetails) string {
	if b.Room == nil {
		return fmt.Sprintf("#%d", b.RoomID)
	}
	if b.Room.Name == "" {
		return b.Room.Number
	}
	return b.Room.Number + " " + b.Room.Name
}

func guestField(b *models.BookingDetails, get func(*models.UserSummary) string) string {
	if b.User == nil {
		return ""
	}
	return get(b.User)
}
