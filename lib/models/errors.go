package models

import "errors"

// Error kinds shared by the access and workflow packages. Callers wrap them
// with context and classify them with errors.Is.
var (
	// ErrNotFound means the referenced approval request (or user) does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState means the request is no longer pending.
	ErrInvalidState = errors.New("request already resolved")
	// ErrAccessDenied means the actor's effective permissions are insufficient.
	ErrAccessDenied = errors.New("access denied")
	// ErrValidation means a required input is missing or malformed.
	ErrValidation = errors.New("validation failed")
	// ErrConfiguration means the role registry refers to something undefined.
	ErrConfiguration = errors.New("configuration error")
)
