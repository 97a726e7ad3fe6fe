package models

import (
	"time"

	"gorm.io/gorm"
)

type Table struct {
	gorm.Model
	Number    int    `json:"number" gorm:"uniqueIndex;not null"`
	Capacity  int    `json:"capacity" gorm:"not null"`
	Available bool   `json:"available" gorm:"default:true"`
	Location  string `json:"location"` // e.g. indoor, terrace, window
}

type ReservationStatus string

const (
	ReservationPending    ReservationStatus = "pending"
	ReservationConfirmed  ReservationStatus = "confirmed"
	ReservationInProgress ReservationStatus = "in_progress"
	ReservationCompleted  ReservationStatus = "completed"
	ReservationCancelled  ReservationStatus = "cancelled"
)

func (s ReservationStatus) Valid() bool {
	switch s {
	case ReservationPending, ReservationConfirmed, ReservationInProgress,
		ReservationCompleted, ReservationCancelled:
		return true
	}
	return false
}

// ActiveReservationStatuses are the states that occupy a table for
// conflict checking.
var ActiveReservationStatuses = []ReservationStatus{
	ReservationPending, ReservationConfirmed, ReservationInProgress,
}

// OccupancyDuration is how long a reservation is presumed to hold its
// table, regardless of party size.
const OccupancyDuration = 2 * time.Hour

// Reservation books a table for a date and start time. Date is stored as
// "2006-01-02" and start time as "15:04" so the overlap arithmetic stays
// independent of time zones.
type Reservation struct {
	gorm.Model
	ClientID  uint              `json:"client_id" gorm:"not null;index"`
	Client    User              `json:"client,omitempty" gorm:"foreignKey:ClientID;constraint:OnDelete:RESTRICT"`
	TableID   uint              `json:"table_id" gorm:"not null;index:idx_table_date"`
	Table     Table             `json:"table,omitempty" gorm:"foreignKey:TableID;constraint:OnDelete:RESTRICT"`
	Date      string            `json:"date" gorm:"not null;index:idx_table_date"`
	StartTime string            `json:"start_time" gorm:"not null"`
	PartySize int               `json:"party_size" gorm:"not null"`
	Status    ReservationStatus `json:"status" gorm:"not null;default:'pending'"`
	Notes     string            `json:"notes"`
}

// Window returns the half-open occupancy interval [start, start+2h) as
// minutes since midnight.
func (r *Reservation) Window() (startMin, endMin int, err error) {
	t, err := time.Parse("15:04", r.StartTime)
	if err != nil {
		return 0, 0, err
	}
	startMin = t.Hour()*60 + t.Minute()
	endMin = startMin + int(OccupancyDuration.Minutes())
	return startMin, endMin, nil
}
