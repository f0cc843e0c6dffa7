package service

import (
	"context"
	"strings"
	"testing"

	"hotelbooking/internal/booking"
	"hotelbooking/internal/events"
	"hotelbooking/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomService(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	var actions []string
	env.bus.Subscribe(events.EventRoomChanged, func(e *events.Event) error {
		var p events.EntityEventPayload
		if err := e.Decode(&p); err != nil {
			return err
		}
		actions = append(actions, p.Action)
		return nil
	})

	room := &models.Room{Number: " 301 ", Name: "Sea view", Type: "Suite", Price: 250, Capacity: 3}
	require.NoError(t, env.rooms.CreateRoom(ctx, room))
	assert.Equal(t, "301", room.Number)
	assert.Equal(t, "suite", room.Type)
	assert.Equal(t, models.RoomAvailable, room.Status)

	t.Run("Validation", func(t *testing.T) {
		bad := []*models.Room{
			{Name: "x", Type: "single", Price: 10, Capacity: 1},
			{Number: "1", Type: "single", Price: 10, Capacity: 1},
			{Number: "1", Name: "x", Type: "single", Price: 0, Capacity: 1},
			{Number: "1", Name: "x", Type: "single", Price: 10, Capacity: 0},
			{Number: "1", Name: "x", Type: "single", Price: 10, Capacity: 1, Status: "closed"},
		}
		for _, r := range bad {
			assert.Equal(t, booking.KindValidation, booking.KindOf(env.rooms.CreateRoom(ctx, r)))
		}
	})

	t.Run("DuplicateNumber", func(t *testing.T) {
		err := env.rooms.CreateRoom(ctx, &models.Room{Number: "301", Name: "Copy", Type: "single", Price: 10, Capacity: 1})
		assert.Equal(t, booking.KindConflict, booking.KindOf(err))
	})

	t.Run("ListAvailableBetween", func(t *testing.T) {
		other := env.room(t, "302", 120, 2)
		guest := env.user(t, "guest@example.com")
		env.book(t, guest.ID, room.ID, "2026-08-01", "2026-08-05")

		rooms, err := env.rooms.ListRooms(ctx, RoomQuery{CheckIn: date("2026-08-03"), CheckOut: date("2026-08-04")})
		require.NoError(t, err)
		require.Len(t, rooms, 1)
		assert.Equal(t, other.ID, rooms[0].ID)

		rooms, err = env.rooms.ListRooms(ctx, RoomQuery{CheckIn: date("2026-08-05"), CheckOut: date("2026-08-06")})
		require.NoError(t, err)
		assert.Len(t, rooms, 2)

		require.NoError(t, env.rooms.SetRoomStatus(ctx, other.ID, models.RoomMaintenance))
		rooms, err = env.rooms.ListRooms(ctx, RoomQuery{CheckIn: date("2026-08-05"), CheckOut: date("2026-08-06")})
		require.NoError(t, err)
		assert.Len(t, rooms, 1)

		_, err = env.rooms.ListRooms(ctx, RoomQuery{CheckIn: date("2026-08-05")})
		assert.Equal(t, booking.KindValidation, booking.KindOf(err))
	})

	t.Run("Calendar", func(t *testing.T) {
		nights, err := env.rooms.GetCalendar(ctx, room.ID, date("2026-07-31"), 7)
		require.NoError(t, err)
		require.Len(t, nights, 7)
		assert.False(t, nights[0].Booked)
		assert.True(t, nights[1].Booked)
		assert.True(t, nights[4].Booked)
		assert.False(t, nights[5].Booked, "check-out day is free")

		_, err = env.rooms.GetCalendar(ctx, 999, date("2026-07-31"), 7)
		assert.Equal(t, booking.KindNotFound, booking.KindOf(err))

		_, err = env.rooms.GetCalendar(ctx, room.ID, date("2026-07-31"), 1000)
		assert.Equal(t, booking.KindValidation, booking.KindOf(err))
	})

	t.Run("DeleteRefusedWithBookings", func(t *testing.T) {
		err := env.rooms.DeleteRoom(ctx, room.ID)
		assert.Equal(t, booking.KindConflict, booking.KindOf(err))
		assert.ErrorIs(t, err, ErrRoomHasBookings)

		empty := env.room(t, "303", 90, 2)
		require.NoError(t, env.rooms.DeleteRoom(ctx, empty.ID))
		_, err = env.rooms.GetRoom(ctx, empty.ID)
		assert.Equal(t, booking.KindNotFound, booking.KindOf(err))
	})

	t.Run("SeedUpserts", func(t *testing.T) {
		rooms, err := ParseRoomsYAML(strings.NewReader(`
rooms:
  - number: "301"
    name: Sea view deluxe
    type: suite
    price: 280
    capacity: 3
  - number: "401"
    name: Attic
    type: single
    price: 60
    capacity: 1
    amenities: [wifi]
`))
		require.NoError(t, err)

		created, updated, err := env.rooms.SeedRooms(ctx, rooms)
		require.NoError(t, err)
		assert.Equal(t, 1, created)
		assert.Equal(t, 1, updated)

		got, err := env.rooms.GetRoom(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, 280.0, got.Price)
		assert.Equal(t, "Sea view deluxe", got.Name)

		_, err = ParseRoomsYAML(strings.NewReader("rooms: []"))
		assert.Error(t, err)
		_, err = ParseRoomsYAML(strings.NewReader("rooms:\n  - number: 1\n    colour: red\n"))
		assert.Error(t, err)
	})

	assert.Contains(t, actions, "created")
	assert.Contains(t, actions, "deleted")
	assert.Contains(t, actions, "seeded")
}
