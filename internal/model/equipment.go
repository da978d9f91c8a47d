package model

import "time"

// EquipmentUnit is a single serialized piece of equipment with exactly one
// custodian at any time.
type EquipmentUnit struct {
	ID               string    `json:"id"`
	EquipmentType    string    `json:"equipment_type"`
	SerialNumber     string    `json:"serial_number"`
	CurrentCustodian string    `json:"current_custodian"`
	LastIssuer       string    `json:"last_issuer,omitempty"`
	ImageMime        string    `json:"image_mime,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Unit is an organizational unit that can hold equipment.
type Unit struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}
