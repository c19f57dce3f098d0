package ledger

import "tap_system/internal/domain"

// ValidationError is the error returned for refused orders.
type ValidationError = domain.ValidationError

// IsValidation reports whether err is a validation failure and returns its message.
func IsValidation(err error) (string, bool) { return domain.IsValidation(err) }

func validateCount(count int) *ValidationError {
	if count <= 0 {
		return &ValidationError{Field: "count", Message: "Count must be greater than 0"}
	}
	return nil
}

func validateProduct(p *domain.Product) *ValidationError {
	if !p.ForSale {
		return &ValidationError{Field: "product", Message: p.Name + " is not for sale"}
	}
	return nil
}
