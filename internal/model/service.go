package model

import (
	"time"

	"github.com/google/uuid"
)

type Service struct {
	Base
	VendorID    uuid.UUID `db:"vendor_id" json:"vendor_id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Duration    int       `db:"duration" json:"duration"` // in minutes
	Price       float64   `db:"price" json:"price"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

type CreateServiceRequest struct {
	Name        string  `json:"name" binding:"required,max=200"`
	Description string  `json:"description" binding:"max=2000"`
	Duration    int     `json:"duration" binding:"required,gt=0"`
	Price       float64 `json:"price" binding:"gte=0"`
	Active      *bool   `json:"active"`
}

type UpdateServiceRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Duration    *int     `json:"duration"`
	Price       *float64 `json:"price"`
	Active      *bool    `json:"active"`
}
