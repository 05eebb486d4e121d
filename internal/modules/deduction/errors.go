package deduction

import "errors"

var (
	ErrDeductionNotFound = errors.New("deduction not found")
	ErrDeductionApplied  = errors.New("deduction is applied and immutable")
	ErrInvalidType       = errors.New("invalid deduction type")
	ErrInvalidAmount     = errors.New("deduction amount must be positive")
)
