package services

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidTransition  = errors.New("invalid navigation transition")
	ErrForbidden          = errors.New("forbidden")
	ErrBridgeUnavailable  = errors.New("robot bridge unavailable")
)
