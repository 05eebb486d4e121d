package contract

import "errors"

var (
	ErrContractNotFound = errors.New("contract not found")
	ErrNotDraft         = errors.New("contract is not a draft")
	ErrAlreadyApproved  = errors.New("contract is already approved")
	ErrHasPayments      = errors.New("contract has progress payments")
	ErrNoItems          = errors.New("contract needs at least one item")
)
