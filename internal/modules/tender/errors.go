package tender

import "errors"

var (
	ErrTenderNotFound = errors.New("tender not found")
	ErrInvalidStage   = errors.New("invalid tender stage")
)
