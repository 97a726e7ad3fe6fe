package models

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Role string

const (
	RoleClient Role = "client"
	RoleWaiter Role = "waiter"
	RoleAdmin  Role = "admin"
)

const (
	OpBrowseMenu      = "browse_menu"
	OpManageCart      = "manage_cart"
	OpCheckout        = "checkout"
	OpViewOwnOrders   = "view_own_orders"
	OpManageOrders    = "manage_orders"
	OpManageCatalog   = "manage_catalog"
	OpManageInventory = "manage_inventory"
	OpManageTables    = "manage_tables"
	OpMakeReservation = "make_reservation"
	OpViewAllBookings = "view_all_bookings"
	OpGenerateReports = "generate_reports"
	OpManageUsers     = "manage_users"
)

var rolePermissions = map[Role][]string{
	RoleClient: {
		OpBrowseMenu, OpManageCart, OpCheckout, OpViewOwnOrders, OpMakeReservation,
	},
	RoleWaiter: {
		OpBrowseMenu, OpViewOwnOrders, OpManageOrders, OpManageCatalog, OpViewAllBookings,
	},
}

// Can reports whether the role is allowed to perform the named operation.
// All role checks go through here instead of being scattered across handlers.
func (r Role) Can(op string) bool {
	if r == RoleAdmin {
		return true
	}
	for _, a := range rolePermissions[r] {
		if a == op {
			return true
		}
	}
	return false
}

type User struct {
	gorm.Model
	Username string `json:"username" gorm:"uniqueIndex;not null"`
	Email    string `json:"email" gorm:"uniqueIndex;not null"`
	Password string `json:"-" gorm:"not null"`
	Role     Role   `json:"role" gorm:"not null;default:'client'"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// HashPassword hashes the user's password
func (u *User) HashPassword(password string) error {
	passwordInBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(passwordInBytes)
	return nil
}

// CheckPassword checks if the provided password matches the user's password
func (u *User) CheckPassword(providedPassword string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(providedPassword))
}

// PendingRegistration holds a registration until the emailed verification
// link is followed. The password arrives already hashed; no plaintext is
// ever stored.
type PendingRegistration struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Username     string    `json:"username" gorm:"not null"`
	Email        string    `json:"email" gorm:"not null;index"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Role         Role      `json:"role" gorm:"not null;default:'client'"`
	Phone        string    `json:"phone"`
	Address      string    `json:"address"`
	ExpiresAt    time.Time `json:"expires_at" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`
}

func (p *PendingRegistration) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PasswordResetToken is a single-use token emailed to the user.
type PasswordResetToken struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    uint       `json:"user_id" gorm:"not null;index"`
	User      User       `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	ExpiresAt time.Time  `json:"expires_at" gorm:"not null"`
	UsedAt    *time.Time `json:"used_at"`
	CreatedAt time.Time  `json:"created_at"`
}

func (t *PasswordResetToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
