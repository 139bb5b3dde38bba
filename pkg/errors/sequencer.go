package errors

import "fmt"

// InsufficientFeeError reports an underpaid submission. It carries both the
// required minimum and what the caller actually attached so the caller can
// retry with a corrected fee.
type InsufficientFeeError struct {
	Required uint64
	Provided uint64
}

// Error implements the error interface.
func (e *InsufficientFeeError) Error() string {
	return fmt.Sprintf("insufficient fee: required %d, provided %d", e.Required, e.Provided)
}

// Is makes the error match ErrInsufficientFee under errors.Is.
func (e *InsufficientFeeError) Is(target error) bool {
	return target == ErrInsufficientFee
}
