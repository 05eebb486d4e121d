package allowlist

import "errors"

var (
	ErrNotAllowlisted     = errors.New("email is not allowlisted")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
