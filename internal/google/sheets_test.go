package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hotelbooking/internal/models"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

func setupMockServer(t *testing.T) (*http.ServeMux, *SheetsService) {
	t.Helper()
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	srv, err := sheets.NewService(context.Background(), option.WithEndpoint(server.URL), option.WithoutAuthentication())
	if err != nil {
		t.Fatalf("sheets service: %v", err)
	}
	return mux, newSheetsService(srv, "bookings_tid", "", nil)
}

func sampleBooking(id int64) *models.BookingDetails {
	checkIn := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	return &models.BookingDetails{
		Booking: models.Booking{
			ID:            id,
			CheckIn:       checkIn,
			CheckOut:      checkIn.AddDate(0, 0, 3),
			Guests:        2,
			TotalAmount:   450,
			Status:        models.StatusApproved,
			PaymentStatus: models.PaymentPending,
			CreatedAt:     checkIn.AddDate(0, 0, -7),
			UpdatedAt:     checkIn.AddDate(0, 0, -6),
		},
		User: &models.UserSummary{ID: 3, Name: "Anna", Email: "anna@example.com", Phone: "+7900"},
		Room: &models.RoomSummary{ID: 4, Number: "204"},
	}
}

func TestSheetsService_TestConnection(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"ID"}}})
	})
	if err := s.TestConnection(context.Background()); err != nil {
		t.Errorf("TestConnection failed: %v", err)
	}
}

func TestSheetsService_WarmUpCache(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{
			Values: [][]interface{}{{"ID"}, {"123"}, {}, {"456"}},
		})
	})
	if err := s.WarmUpCache(context.Background()); err != nil {
		t.Fatalf("WarmUpCache failed: %v", err)
	}
	if row, ok := s.getCachedRow(123); !ok || row != 2 {
		t.Errorf("Expected row 2 for ID 123, got %d", row)
	}
	if row, ok := s.getCachedRow(456); !ok || row != 4 {
		t.Errorf("Expected row 4 for ID 456, got %d", row)
	}
}

func TestSheetsService_AppendBooking(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A:A:append", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.AppendValuesResponse{
			Updates: &sheets.UpdateValuesResponse{UpdatedRange: "Bookings!A10:N10"},
		})
	})
	if err := s.AppendBooking(context.Background(), sampleBooking(789)); err != nil {
		t.Fatalf("AppendBooking failed: %v", err)
	}
	if row, _ := s.getCachedRow(789); row != 10 {
		t.Errorf("Expected cached row 10, got %d", row)
	}
}

func TestSheetsService_UpsertBooking(t *testing.T) {
	t.Run("UpdatesCachedRow", func(t *testing.T) {
		mux, s := setupMockServer(t)
		s.setCachedRow(123, 2)
		var got sheets.ValueRange
		mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A2:N2", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&got)
			_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
		})
		if err := s.UpsertBooking(context.Background(), sampleBooking(123)); err != nil {
			t.Fatalf("UpsertBooking failed: %v", err)
		}
		if len(got.Values) != 1 || len(got.Values[0]) != len(bookingHeaders) {
			t.Fatalf("unexpected row written: %+v", got.Values)
		}
	})

	t.Run("AppendsMissingRow", func(t *testing.T) {
		mux, s := setupMockServer(t)
		mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A:A", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"ID"}}})
		})
		appended := false
		mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A:A:append", func(w http.ResponseWriter, r *http.Request) {
			appended = true
			_ = json.NewEncoder(w).Encode(sheets.AppendValuesResponse{
				Updates: &sheets.UpdateValuesResponse{UpdatedRange: "Bookings!A2:N2"},
			})
		})
		if err := s.UpsertBooking(context.Background(), sampleBooking(5)); err != nil {
			t.Fatalf("UpsertBooking failed: %v", err)
		}
		if !appended {
			t.Fatalf("expected append for a booking without a row")
		}
	})

	t.Run("NilBooking", func(t *testing.T) {
		_, s := setupMockServer(t)
		if err := s.UpsertBooking(context.Background(), nil); err == nil {
			t.Fatalf("expected error for nil booking")
		}
	})
}

func TestSheetsService_UpdateBookingStatus(t *testing.T) {
	mux, s := setupMockServer(t)
	s.setCachedRow(123, 5)
	var req sheets.BatchUpdateValuesRequest
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values:batchUpdate", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(sheets.BatchUpdateValuesResponse{})
	})

	if err := s.UpdateBookingStatus(context.Background(), 123, models.StatusBooked, models.PaymentPaid); err != nil {
		t.Fatalf("UpdateBookingStatus failed: %v", err)
	}
	if len(req.Data) != 2 {
		t.Fatalf("expected 2 ranges, got %d", len(req.Data))
	}
	if req.Data[0].Range != "Bookings!K5:L5" {
		t.Errorf("unexpected status range %q", req.Data[0].Range)
	}
	if req.Data[0].Values[0][0] != "booked" || req.Data[0].Values[0][1] != "paid" {
		t.Errorf("unexpected status values %+v", req.Data[0].Values)
	}
}

func TestSheetsService_FindBookingRow(t *testing.T) {
	mux, s := setupMockServer(t)
	calls := 0
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A:A", func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"ID"}, {"7"}, {"8"}}})
	})

	ctx := context.Background()
	row, err := s.FindBookingRow(ctx, 8)
	if err != nil || row != 3 {
		t.Fatalf("expected row 3, got %d (%v)", row, err)
	}
	if _, err := s.FindBookingRow(ctx, 8); err != nil {
		t.Fatalf("cached lookup: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected second lookup to hit the cache, got %d calls", calls)
	}
	if _, err := s.FindBookingRow(ctx, 99); err != ErrRowNotFound {
		t.Errorf("expected ErrRowNotFound, got %v", err)
	}
	if _, err := s.FindBookingRow(ctx, 0); err == nil {
		t.Errorf("expected error for zero id")
	}
}

func TestSheetsService_ReplaceBookingsSheet(t *testing.T) {
	mux, s := setupMockServer(t)
	s.setCachedRow(999, 40)
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A:Z:clear", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ClearValuesResponse{})
	})
	var written sheets.ValueRange
	mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&written)
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})

	if err := s.ReplaceBookingsSheet(context.Background(), []*models.BookingDetails{sampleBooking(1), sampleBooking(2)}); err != nil {
		t.Fatalf("ReplaceBookingsSheet failed: %v", err)
	}
	if len(written.Values) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(written.Values))
	}
	if row, _ := s.getCachedRow(2); row != 3 {
		t.Errorf("expected booking 2 on row 3, got %d", row)
	}
	if _, ok := s.getCachedRow(999); ok {
		t.Errorf("expected stale cache entries to be dropped")
	}
}

func TestBookingRowValues(t *testing.T) {
	row := bookingRowValues(sampleBooking(11))
	if len(row) != len(bookingHeaders) {
		t.Fatalf("expected %d cells, got %d", len(bookingHeaders), len(row))
	}
	if row[1] != "204" || row[2] != "Anna" || row[5] != "2026-05-10" || row[7] != 3 {
		t.Errorf("unexpected row %+v", row)
	}
	if row[10] != "approved" || row[11] != "pending" {
		t.Errorf("unexpected status cells %v %v", row[10], row[11])
	}

	bare := bookingRowValues(&models.BookingDetails{Booking: models.Booking{ID: 1}})
	if bare[1] != "" || bare[2] != "" {
		t.Errorf("expected empty guest and room cells, got %+v", bare)
	}
}

func TestRowFromRange(t *testing.T) {
	cases := map[string]int{
		"Bookings!A10:N10": 10,
		"Sheet 1!B7":       7,
		"A3":               3,
	}
	for in, want := range cases {
		got, ok := rowFromRange(in)
		if !ok || got != want {
			t.Errorf("rowFromRange(%q) = %d, %v; want %d", in, got, ok, want)
		}
	}
	if _, ok := rowFromRange("Bookings!A:A"); ok {
		t.Errorf("expected column-only range to be rejected")
	}
}

func TestCellID(t *testing.T) {
	if cellID(float64(12)) != 12 || cellID(" 15 ") != 15 || cellID("ID") != 0 || cellID(nil) != 0 {
		t.Errorf("unexpected cellID conversions")
	}
}
