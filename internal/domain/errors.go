package domain

import "errors" // Sentinel errors

// Lookup errors returned by the store
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrProductNotFound = errors.New("product not found")
)

// ErrNicknameTaken is returned when a nickname collides with an existing user
var ErrNicknameTaken = &ValidationError{Field: "nickname", Message: "Nickname has already been taken"}

// ValidationError is a user facing reason a change was refused
type ValidationError struct {
	Field   string // Offending attribute
	Message string // Human readable message
}

func (e *ValidationError) Error() string { return e.Message }

// IsValidation reports whether err is a validation failure and returns its message
func IsValidation(err error) (string, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message, true
	}
	return "", false
}
