package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type VendorStatus string

const (
	VendorStatusActive          VendorStatus = "active"
	VendorStatusPendingApproval VendorStatus = "pending_approval"
	VendorStatusRejected        VendorStatus = "rejected"
	VendorStatusSuspended       VendorStatus = "suspended"
)

func (s VendorStatus) Valid() bool {
	switch s {
	case VendorStatusActive, VendorStatusPendingApproval, VendorStatusRejected, VendorStatusSuspended:
		return true
	}
	return false
}

// DayHours is one weekday entry of a vendor's operating hours.
// Open and Close are 24-hour "HH:mm" strings.
type DayHours struct {
	Open     string `json:"open"`
	Close    string `json:"close"`
	IsClosed bool   `json:"is_closed"`
}

// OperatingHours maps lowercase weekday names ("monday" .. "sunday") to
// that day's hours. An absent weekday means closed. Stored as JSONB;
// validated at the write boundary and treated defensively at read time.
type OperatingHours map[string]DayHours

func (h OperatingHours) Value() (driver.Value, error) {
	if h == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(h)
}

func (h *OperatingHours) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, h)
	case string:
		return json.Unmarshal([]byte(v), h)
	case nil:
		*h = OperatingHours{}
		return nil
	default:
		return fmt.Errorf("unsupported operating hours type %T", src)
	}
}

// WeekdayKey returns the lowercase weekday name used as the map key.
func WeekdayKey(date time.Time) string {
	return strings.ToLower(date.Weekday().String())
}

// Validate checks every entry at the write boundary: HH:mm format and
// open strictly before close for non-closed days.
func (h OperatingHours) Validate() error {
	for day, entry := range h {
		if !validWeekday(day) {
			return fmt.Errorf("unknown weekday %q", day)
		}
		if entry.IsClosed {
			continue
		}
		open, err := ParseClock(entry.Open)
		if err != nil {
			return fmt.Errorf("%s: %w", day, err)
		}
		closeAt, err := ParseClock(entry.Close)
		if err != nil {
			return fmt.Errorf("%s: %w", day, err)
		}
		if open >= closeAt {
			return fmt.Errorf("%s: open %s must be before close %s", day, entry.Open, entry.Close)
		}
	}
	return nil
}

func validWeekday(day string) bool {
	switch day {
	case "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday":
		return true
	}
	return false
}

type Vendor struct {
	Base
	OwnerID        uuid.UUID      `db:"owner_id" json:"owner_id"`
	Name           string         `db:"name" json:"name"`
	Description    string         `db:"description" json:"description"`
	Address        string         `db:"address" json:"address"`
	Status         VendorStatus   `db:"status" json:"status"`
	OperatingHours OperatingHours `db:"operating_hours" json:"operating_hours"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

type CreateVendorRequest struct {
	Name           string         `json:"name" binding:"required,max=200"`
	Description    string         `json:"description" binding:"max=2000"`
	Address        string         `json:"address" binding:"max=500"`
	OperatingHours OperatingHours `json:"operating_hours" binding:"omitempty,dive,keys,weekday,endkeys"`
}

type UpdateVendorRequest struct {
	Name           *string         `json:"name"`
	Description    *string         `json:"description"`
	Address        *string         `json:"address"`
	Status         *VendorStatus   `json:"status"`
	OperatingHours *OperatingHours `json:"operating_hours" binding:"omitempty,dive,keys,weekday,endkeys"`
}
