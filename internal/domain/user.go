package domain

import (
	"crypto/sha256" // Password pre-hashing
	"encoding/hex"  // Digest encoding
	"strings"       // String manipulation
	"time"          // Timestamps
	"unicode/utf8"  // Password length in characters

	"golang.org/x/crypto/bcrypt" // Password hashing
)

// Nicknames of the preset users
const (
	KoelkastNickname = "koelkast"
	GuestNickname    = "guest"
)

// Password length bounds
const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

// User Model
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`                                    // Primary key
	Nickname       string    `gorm:"size:191;uniqueIndex;not null" json:"nickname"`           // Unique nickname
	Name           string    `gorm:"not null" json:"name"`                                    // First name
	LastName       string    `gorm:"not null" json:"last_name"`                               // Last name
	Password       string    `gorm:"not null;default:''" json:"-"`                            // Hashed password
	Avatar         string    `json:"avatar"`                                                  // Avatar location, optional since uploads are not handled
	Balance        int64     `gorm:"not null;default:0" json:"balance"`                       // Local balance in cents
	Private        bool      `gorm:"not null;default:false" json:"private"`                   // Hidden from public listings
	Admin          bool      `gorm:"not null;default:false" json:"admin"`                     // Administrator flag
	Koelkast       bool      `gorm:"not null;default:false" json:"koelkast"`                  // Shared fridge account
	QuickpayHidden bool      `gorm:"not null;default:false" json:"quickpay_hidden"`           // Hide the quickpay button
	DagschotelID   *uint     `json:"dagschotel_id"`                                           // Preferred product
	Dagschotel     *Product  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"` // Preferred product relation
	OrdersCount    int64     `gorm:"not null;default:0" json:"orders_count"`                  // Cached number of orders
	Frecency       int64     `gorm:"not null;default:0;index" json:"frecency"`                // Recency weighted order score
	Orders         []Order   `json:"-"`                                                       // Orders of the user
	CreatedAt      time.Time `json:"created_at"`                                              // Creation time
	UpdatedAt      time.Time `json:"updated_at"`                                              // Last update time
}

// FullName returns the first and last name joined by a space
func (u *User) FullName() string {
	return strings.TrimSpace(u.Name + " " + u.LastName)
}

// IsGuest reports whether u is the guest preset
func (u *User) IsGuest() bool {
	return u != nil && u.Nickname == GuestNickname
}

// IsPreset reports whether u is one of the shared preset accounts
func (u *User) IsPreset() bool {
	return u.IsGuest() || u.Nickname == KoelkastNickname
}

// Validate checks the persisted attributes and returns the first failure
func (u *User) Validate() error {
	switch {
	case strings.TrimSpace(u.Nickname) == "":
		return &ValidationError{Field: "nickname", Message: "Nickname can't be blank"}
	case strings.TrimSpace(u.Name) == "":
		return &ValidationError{Field: "name", Message: "Name can't be blank"}
	case strings.TrimSpace(u.LastName) == "":
		return &ValidationError{Field: "last_name", Message: "Last name can't be blank"}
	}
	return nil
}

// ValidatePassword checks a raw password and its confirmation
func ValidatePassword(password, confirmation string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength {
		return &ValidationError{Field: "password", Message: "Password is too short (minimum is 8 characters)"}
	}
	if n > MaxPasswordLength {
		return &ValidationError{Field: "password", Message: "Password is too long (maximum is 128 characters)"}
	}
	if password != confirmation {
		return &ValidationError{Field: "password_confirmation", Message: "Password confirmation doesn't match Password"}
	}
	return nil
}

// SetPassword validates and hashes password into u.Password
func (u *User) SetPassword(password, confirmation string) error {
	if err := ValidatePassword(password, confirmation); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword(digest(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hash)
	return nil
}

// CheckPassword compares password against the stored hash
func (u *User) CheckPassword(password string) bool {
	if u.Password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.Password), digest(password)) == nil
}

// digest keeps passwords up to MaxPasswordLength within bcrypt's 72 byte input limit
func digest(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	return []byte(hex.EncodeToString(sum[:]))
}

// KoelkastPreset returns the attributes of the shared fridge account
func KoelkastPreset() User {
	return User{
		Nickname: KoelkastNickname,
		Name:     "Koelkast",
		LastName: "Koelkast",
		Koelkast: true,
		Private:  true,
	}
}

// GuestPreset returns the attributes of the fallback guest account
func GuestPreset() User {
	return User{
		Nickname: GuestNickname,
		Name:     "Guest",
		LastName: "Guest",
	}
}
