package service

import "errors"

var (
	ErrNotFound         = errors.New("error not found")
	ErrAllocationExists = errors.New("error allocation already exists for this key and date")
	ErrAlreadyExists    = errors.New("error already exists")
	ErrTickInProgress   = errors.New("error update already in progress")
	ErrInvalidInput     = errors.New("error invalid input")
	ErrUnauthorized     = errors.New("error unauthorized")
	ErrForbidden        = errors.New("error forbidden")
	ErrNotConfigured    = errors.New("error not configured")
)
