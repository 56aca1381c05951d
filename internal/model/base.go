package model

import (
	"github.com/google/uuid"
)

type Base struct {
	ID uuid.UUID `db:"id" json:"id"`
}
