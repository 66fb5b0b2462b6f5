package repository

import "errors"

var (
	ErrAlreadyExists = errors.New("error already exists")
	ErrNotFound      = errors.New("error not found")
	// ErrSerialization marks a conflict the database resolved by aborting the transaction; safe to retry.
	ErrSerialization = errors.New("error serialization conflict")
)
