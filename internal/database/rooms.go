package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"hotelbooking/internal/models"
)

const roomColumns = `id, number, name, type, description, price, capacity, status, amenities, images, created_at, updated_at`

func scanRoom(row rowScanner) (*models.Room, error) {
	r := &models.Room{}
	var amenities, images string
	err := row.Scan(
		&r.ID, &r.Number, &r.Name, &r.Type, &r.Description, &r.Price, &r.Capacity,
		&r.Status, &amenities, &images, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(amenities), &r.Amenities); err != nil {
		return nil, fmt.Errorf("failed to decode amenities of room %d: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(images), &r.Images); err != nil {
		return nil, fmt.Errorf("failed to decode images of room %d: %w", r.ID, err)
	}
	return r, nil
}

func encodeList(values []string) string {
	if values == nil {
		values = []string{}
	}
	data, _ := json.Marshal(values)
	return string(data)
}

func (db *DB) CreateRoom(ctx context.Context, room *models.Room) error {
	if room.Status == "" {
		room.Status = models.RoomAvailable
	}
	query := `INSERT INTO rooms (number, name, type, description, price, capacity, status, amenities, images, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		room.Number,
		room.Name,
		room.Type,
		room.Description,
		room.Price,
		room.Capacity,
		room.Status,
		encodeList(room.Amenities),
		encodeList(room.Images),
		now,
		now,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	room.ID = id
	room.CreatedAt = now
	room.UpdatedAt = now
	return nil
}

func (db *DB) UpdateRoom(ctx context.Context, room *models.Room) error {
	query := `UPDATE rooms SET number = ?, name = ?, type = ?, description = ?, price = ?, capacity = ?,
                status = ?, amenities = ?, images = ?, updated_at = ?
              WHERE id = ?`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		room.Number,
		room.Name,
		room.Type,
		room.Description,
		room.Price,
		room.Capacity,
		room.Status,
		encodeList(room.Amenities),
		encodeList(room.Images),
		now,
		room.ID,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	room.UpdatedAt = now
	return nil
}

// UpsertRoomByNumber creates the room or overwrites the one with the same number.
func (db *DB) UpsertRoomByNumber(ctx context.Context, room *models.Room) (created bool, err error) {
	existing, err := db.GetRoomByNumber(ctx, room.Number)
	switch {
	case errors.Is(err, ErrNotFound):
		return true, db.CreateRoom(ctx, room)
	case err != nil:
		return false, err
	}
	room.ID = existing.ID
	if room.Status == "" {
		room.Status = existing.Status
	}
	return false, db.UpdateRoom(ctx, room)
}

func (db *DB) SetRoomStatus(ctx context.Context, id int64, status models.RoomStatus) error {
	result, err := db.ExecContext(ctx, `UPDATE rooms SET status = ?, updated_at = ? WHERE id = ?`, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set room status: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) DeleteRoom(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) GetRoom(ctx context.Context, id int64) (*models.Room, error) {
	return db.queryRoom(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id)
}

func (db *DB) GetRoomByNumber(ctx context.Context, number string) (*models.Room, error) {
	return db.queryRoom(ctx, `SELECT `+roomColumns+` FROM rooms WHERE number = ?`, number)
}

func (db *DB) queryRoom(ctx context.Context, query string, args ...interface{}) (*models.Room, error) {
	room, err := scanRoom(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return room, nil
}

func (db *DB) ListRooms(ctx context.Context, filter models.RoomFilter) ([]*models.Room, error) {
	var where []string
	var args []interface{}

	if filter.Type != "" {
		where = append(where, "type = ?")
		args = append(args, filter.Type)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.MinCapacity > 0 {
		where = append(where, "capacity >= ?")
		args = append(args, filter.MinCapacity)
	}
	if filter.MaxPrice > 0 {
		where = append(where, "price <= ?")
		args = append(args, filter.MaxPrice)
	}

	query := `SELECT ` + roomColumns + ` FROM rooms`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY number ASC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*models.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// GetRoomRatings returns the average review rating per room id.
func (db *DB) GetRoomRatings(ctx context.Context) (map[int64]float64, error) {
	rows, err := db.QueryContext(ctx, `SELECT room_id, AVG(rating) FROM reviews GROUP BY room_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to get room ratings: %w", err)
	}
	defer rows.Close()

	ratings := make(map[int64]float64)
	for rows.Next() {
		var roomID int64
		var avg float64
		if err := rows.Scan(&roomID, &avg); err != nil {
			return nil, fmt.Errorf("failed to scan room rating: %w", err)
		}
		ratings[roomID] = avg
	}
	return ratings, rows.Err()
}
