package domain

import "time"

type ParkingSpace struct {
	ID                     int          `json:"id"`
	SpaceIdentifier        string       `json:"space_identifier"` // e.g. "A-01"
	VehicleClass           VehicleClass `json:"vehicle_class"`
	Occupied               bool         `json:"occupied"`
	Active                 bool         `json:"active"` // false = maintenance, excluded from allocation
	LastChangeSource       string       `json:"last_change_source,omitempty"`
	LastOccupiedChangeTime *time.Time   `json:"last_occupied_change_time,omitempty"`
	CreatedAt              time.Time    `json:"created_at"`
	UpdatedAt              time.Time    `json:"updated_at"`
}

type ParkingSpaceDTO struct {
	SpaceIdentifier string `json:"space_identifier" binding:"required"`
	VehicleClass    string `json:"vehicle_class" binding:"required,oneof=motorcycle car other"`
	Active          *bool  `json:"active"`
}
