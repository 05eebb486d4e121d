package payment

import "errors"

var (
	ErrPaymentNotFound   = errors.New("progress payment not found")
	ErrContractNotFound  = errors.New("contract not found")
	ErrContractDraft     = errors.New("contract is not approved")
	ErrBadNumber         = errors.New("progress payment number is out of sequence")
	ErrDeductionNotFound = errors.New("deduction not found")
	ErrDeductionApplied  = errors.New("deduction is already applied")
	ErrDeductionMismatch = errors.New("deduction belongs to another contract")
	ErrBadMonth          = errors.New("month must be yyyy-MM")
	ErrBadStatus         = errors.New("invalid progress payment status")
)
