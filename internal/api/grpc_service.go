package api

import (
	"context"
	"errors"
	"time"

	"hotelbooking/internal/booking"
	"hotelbooking/internal/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	availabilityServiceName = "hotel.availability.v1.AvailabilityService"

	methodCheckAvailability = "/" + availabilityServiceName + "/CheckAvailability"
	methodGetRoomCalendar   = "/" + availabilityServiceName + "/GetRoomCalendar"
)

// AvailabilityServer is the read-only availability API for partner systems.
// Messages are google.protobuf.Struct so no generated code is needed.
type AvailabilityServer interface {
	CheckAvailability(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRoomCalendar(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var availabilityServiceDesc = grpc.ServiceDesc{
	ServiceName: availabilityServiceName,
	HandlerType: (*AvailabilityServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CheckAvailability", Handler: checkAvailabilityHandler},
		{MethodName: "GetRoomCalendar", Handler: getRoomCalendarHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "hotel/availability/v1/availability.proto",
}

// RegisterAvailabilityServer attaches srv to a gRPC server.
func RegisterAvailabilityServer(s grpc.ServiceRegistrar, srv AvailabilityServer) {
	s.RegisterService(&availabilityServiceDesc, srv)
}

func checkAvailabilityHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AvailabilityServer).CheckAvailability(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodCheckAvailability}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AvailabilityServer).CheckAvailability(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getRoomCalendarHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AvailabilityServer).GetRoomCalendar(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetRoomCalendar}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AvailabilityServer).GetRoomCalendar(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

type AvailabilityChecker interface {
	IsAvailable(ctx context.Context, roomID int64, checkIn, checkOut time.Time, excludeID int64) (bool, error)
}

type RoomReader interface {
	GetRoom(ctx context.Context, id int64) (*models.Room, error)
	GetCalendar(ctx context.Context, roomID int64, from time.Time, days int) ([]*models.NightAvailability, error)
}

type AvailabilityService struct {
	bookings AvailabilityChecker
	rooms    RoomReader
}

func NewAvailabilityService(bookings AvailabilityChecker, rooms RoomReader) *AvailabilityService {
	return &AvailabilityService{bookings: bookings, rooms: rooms}
}

func (s *AvailabilityService) CheckAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	roomID, err := requiredID(req, "room_id")
	if err != nil {
		return nil, err
	}
	checkIn, err := requiredDate(req, "check_in")
	if err != nil {
		return nil, err
	}
	checkOut, err := requiredDate(req, "check_out")
	if err != nil {
		return nil, err
	}
	excludeID := int64(numberField(req, "exclude_booking_id"))
	guests := int(numberField(req, "guests"))

	available, err := s.bookings.IsAvailable(ctx, roomID, checkIn, checkOut, excludeID)
	if err != nil {
		return nil, grpcError(err)
	}
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return nil, grpcError(err)
	}

	reason := ""
	if guests > 0 {
		if err := booking.CheckCapacity(guests, room.Capacity); err != nil {
			available = false
			reason = err.Error()
		}
	}
	if reason == "" && !available {
		reason = "room is already booked for these dates"
	}

	stay := booking.NewStay(checkIn, checkOut)
	resp, err := structpb.NewStruct(map[string]any{
		"room_id":      float64(roomID),
		"check_in":     stay.CheckIn.Format(models.DateLayout),
		"check_out":    stay.CheckOut.Format(models.DateLayout),
		"available":    available,
		"nights":       float64(stay.Nights()),
		"total_amount": booking.TotalAmount(stay, room.Price),
		"reason":       reason,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}

func (s *AvailabilityService) GetRoomCalendar(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	roomID, err := requiredID(req, "room_id")
	if err != nil {
		return nil, err
	}
	from := time.Now()
	if raw := stringField(req, "from"); raw != "" {
		if from, err = booking.ParseDate(raw); err != nil {
			return nil, grpcError(err)
		}
	}

	calendar, err := s.rooms.GetCalendar(ctx, roomID, from, int(numberField(req, "days")))
	if err != nil {
		return nil, grpcError(err)
	}

	nights := make([]any, 0, len(calendar))
	for _, n := range calendar {
		night := map[string]any{
			"date":   n.Date.Format(models.DateLayout),
			"booked": n.Booked,
		}
		if n.Booked {
			night["booking_id"] = float64(n.BookingID)
			night["status"] = string(n.Status)
		}
		nights = append(nights, night)
	}

	resp, err := structpb.NewStruct(map[string]any{
		"room_id": float64(roomID),
		"nights":  nights,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}

var kindCodes = map[booking.Kind]codes.Code{
	booking.KindValidation: codes.InvalidArgument,
	booking.KindCapacity:   codes.FailedPrecondition,
	booking.KindNotFound:   codes.NotFound,
	booking.KindConflict:   codes.Aborted,
	booking.KindForbidden:  codes.PermissionDenied,
	booking.KindRateLimit:  codes.ResourceExhausted,
}

func grpcError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.FromContextError(err).Err()
	}
	if code, ok := kindCodes[booking.KindOf(err)]; ok {
		return status.Error(code, err.Error())
	}
	return status.Error(codes.Internal, "internal error")
}

func requiredID(req *structpb.Struct, name string) (int64, error) {
	v := numberField(req, name)
	if v <= 0 || v != float64(int64(v)) {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a positive integer", name)
	}
	return int64(v), nil
}

func requiredDate(req *structpb.Struct, name string) (time.Time, error) {
	raw := stringField(req, name)
	if raw == "" {
		return time.Time{}, status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	t, err := booking.ParseDate(raw)
	if err != nil {
		return time.Time{}, grpcError(err)
	}
	return t, nil
}

func numberField(req *structpb.Struct, name string) float64 {
	if v, ok := req.GetFields()[name]; ok {
		return v.GetNumberValue()
	}
	return 0
}

func stringField(req *structpb.Struct, name string) string {
	if v, ok := req.GetFields()[name]; ok {
		return v.GetStringValue()
	}
	return ""
}
