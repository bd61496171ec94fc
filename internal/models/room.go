package models

import "time"

// Room represents a bookable teaching room.
type Room struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Capacity       int       `db:"capacity" json:"capacity"`
	Type           string    `db:"type" json:"type"`
	OpenForBooking bool      `db:"open_for_booking" json:"open_for_booking"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// RoomFilter captures filtering options for listing rooms.
type RoomFilter struct {
	Type        string
	MinCapacity int
	Open        *bool
	Page        int
	PageSize    int
}
