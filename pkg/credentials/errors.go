package credentials

import "errors"

var (
	ErrInvalidPinFormat = errors.New("PIN must be 4-8 digits")
	ErrEmptySecretValue = errors.New("empty value cannot be hashed")
	ErrFailedToHash     = errors.New("failed to hash value")
)
