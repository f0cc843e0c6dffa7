package models

import "time"

type RoomStatus string

const (
	RoomAvailable   RoomStatus = "available"
	RoomBooked      RoomStatus = "booked"
	RoomMaintenance RoomStatus = "maintenance"
)

func (s RoomStatus) Valid() bool {
	switch s {
	case RoomAvailable, RoomBooked, RoomMaintenance:
		return true
	}
	return false
}

type Room struct {
	ID          int64      `json:"id" yaml:"-"`
	Number      string     `json:"number" yaml:"number"`
	Name        string     `json:"name" yaml:"name"`
	Type        string     `json:"type" yaml:"type"`
	Description string     `json:"description" yaml:"description"`
	Price       float64    `json:"price" yaml:"price"`
	Capacity    int        `json:"capacity" yaml:"capacity"`
	Status      RoomStatus `json:"status" yaml:"status"`
	Amenities   []string   `json:"amenities" yaml:"amenities"`
	Images      []string   `json:"images" yaml:"images"`
	Rating      float64    `json:"rating" yaml:"-"`
	CreatedAt   time.Time  `json:"created_at" yaml:"-"`
	UpdatedAt   time.Time  `json:"updated_at" yaml:"-"`
}

func (r *Room) Summary() *RoomSummary {
	return &RoomSummary{ID: r.ID, Number: r.Number, Name: r.Name, Type: r.Type, Price: r.Price}
}

type RoomFilter struct {
	Type        string
	Status      RoomStatus
	MinCapacity int
	MaxPrice    float64
}
