package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"restaurante-go/models"
	"restaurante-go/utils"
)

// ReservationService books tables and guards the fixed two-hour
// occupancy windows against overlaps.
type ReservationService struct {
	DB     *gorm.DB
	Mailer *utils.Mailer

	// Now is swappable for tests of the date >= today rule.
	Now func() time.Time
}

func NewReservationService(db *gorm.DB, mailer *utils.Mailer) *ReservationService {
	return &ReservationService{DB: db, Mailer: mailer, Now: time.Now}
}

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

func parseSlot(date, start string) (startMin int, err error) {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return 0, Validationf("date", "must be YYYY-MM-DD")
	}
	t, err := time.Parse(timeLayout, start)
	if err != nil {
		return 0, Validationf("start_time", "must be HH:MM")
	}
	return t.Hour()*60 + t.Minute(), nil
}

// overlaps applies the half-open interval test: two windows conflict
// unless one ends at or before the other starts.
func overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return !(aEnd <= bStart || bEnd <= aStart)
}

// HasConflict reports whether an active reservation already occupies the
// table within [start, start+2h) on the given date. excludeID skips the
// reservation being edited; pass 0 when creating.
func (s *ReservationService) HasConflict(tableID uint, date, start string, excludeID uint) (bool, error) {
	return s.hasConflict(s.DB, tableID, date, start, excludeID)
}

func (s *ReservationService) hasConflict(tx *gorm.DB, tableID uint, date, start string, excludeID uint) (bool, error) {
	startMin, err := parseSlot(date, start)
	if err != nil {
		return false, err
	}
	endMin := startMin + int(models.OccupancyDuration.Minutes())

	query := tx.Where("table_id = ? AND date = ? AND status IN ?",
		tableID, date, models.ActiveReservationStatuses)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var existing []models.Reservation
	if err := query.Find(&existing).Error; err != nil {
		return false, err
	}

	for _, r := range existing {
		otherStart, otherEnd, err := r.Window()
		if err != nil {
			continue
		}
		if overlaps(startMin, endMin, otherStart, otherEnd) {
			return true, nil
		}
	}
	return false, nil
}

// Create books a table. Validates that the date is not in the past and
// the party fits the table, then rejects overlapping slots with
// ConflictError. The new reservation starts out pending.
func (s *ReservationService) Create(clientID, tableID uint, date, start string, partySize int, notes string) (*models.Reservation, error) {
	if _, err := parseSlot(date, start); err != nil {
		return nil, err
	}
	if partySize < 1 {
		return nil, Validationf("party_size", "must be at least 1")
	}
	today := s.Now().Format(dateLayout)
	if date < today {
		return nil, Validationf("date", "cannot book a past date")
	}

	var reservation models.Reservation
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var table models.Table
		if err := tx.Where("available = ?", true).First(&table, tableID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "table"}
			}
			return err
		}
		if partySize > table.Capacity {
			return Validationf("party_size", "table %d seats %d people", table.Number, table.Capacity)
		}

		conflict, err := s.hasConflict(tx, tableID, date, start, 0)
		if err != nil {
			return err
		}
		if conflict {
			return Conflictf("table %d is not available at %s on %s", table.Number, start, date)
		}

		reservation = models.Reservation{
			ClientID:  clientID,
			TableID:   tableID,
			Date:      date,
			StartTime: start,
			PartySize: partySize,
			Status:    models.ReservationPending,
			Notes:     notes,
		}
		return tx.Create(&reservation).Error
	})
	if err != nil {
		return nil, err
	}

	created, err := s.Get(reservation.ID)
	if err != nil {
		return nil, err
	}
	s.Mailer.ReservationConfirmation(created.Client.Email, created.Client.Username, created)
	return created, nil
}

// Get returns a reservation with its table and client preloaded.
func (s *ReservationService) Get(id uint) (*models.Reservation, error) {
	var reservation models.Reservation
	err := s.DB.Preload("Table").Preload("Client").First(&reservation, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "reservation"}
		}
		return nil, err
	}
	return &reservation, nil
}

// Cancel sets a reservation to cancelled. Completed and already
// cancelled reservations cannot be cancelled.
func (s *ReservationService) Cancel(id uint) (*models.Reservation, error) {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var reservation models.Reservation
		if err := tx.First(&reservation, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "reservation"}
			}
			return err
		}
		if reservation.Status == models.ReservationCompleted || reservation.Status == models.ReservationCancelled {
			return InvalidStatef("cannot cancel a %s reservation", reservation.Status)
		}
		return tx.Model(&reservation).Update("status", models.ReservationCancelled).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(id)
}

// UpdateStatus moves a reservation to a new state (staff operation).
func (s *ReservationService) UpdateStatus(id uint, status models.ReservationStatus) (*models.Reservation, error) {
	if !status.Valid() {
		return nil, InvalidStatef("unknown reservation status %q", status)
	}
	if status == models.ReservationCancelled {
		return s.Cancel(id)
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var reservation models.Reservation
		if err := tx.First(&reservation, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "reservation"}
			}
			return err
		}
		if reservation.Status == models.ReservationCancelled {
			return InvalidStatef("reservation is cancelled")
		}
		return tx.Model(&reservation).Update("status", status).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(id)
}

// ListAvailableTables returns the tables marked available that are not
// occupied by an active reservation overlapping the requested slot.
func (s *ReservationService) ListAvailableTables(date, start string) ([]models.Table, error) {
	startMin, err := parseSlot(date, start)
	if err != nil {
		return nil, err
	}
	endMin := startMin + int(models.OccupancyDuration.Minutes())

	var active []models.Reservation
	err = s.DB.Where("date = ? AND status IN ?", date, models.ActiveReservationStatuses).
		Find(&active).Error
	if err != nil {
		return nil, err
	}

	occupied := make(map[uint]bool)
	for _, r := range active {
		otherStart, otherEnd, err := r.Window()
		if err != nil {
			continue
		}
		if overlaps(startMin, endMin, otherStart, otherEnd) {
			occupied[r.TableID] = true
		}
	}

	var tables []models.Table
	if err := s.DB.Where("available = ?", true).Order("number").Find(&tables).Error; err != nil {
		return nil, err
	}

	free := make([]models.Table, 0, len(tables))
	for _, t := range tables {
		if !occupied[t.ID] {
			free = append(free, t)
		}
	}
	return free, nil
}

// ListForUser returns the reservations a user may see: clients their
// own, staff all of them. Sorted by date then time, newest first.
func (s *ReservationService) ListForUser(user *models.User) ([]models.Reservation, error) {
	query := s.DB.Preload("Table").Order("date DESC, start_time DESC")
	if user.Role == models.RoleClient {
		query = query.Where("client_id = ?", user.ID)
	}

	var reservations []models.Reservation
	if err := query.Find(&reservations).Error; err != nil {
		return nil, err
	}
	if reservations == nil {
		reservations = []models.Reservation{}
	}
	return reservations, nil
}
