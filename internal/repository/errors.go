package repository

import "errors"

var (
	// ErrInvalidPayment indicates a payment record is missing required fields
	ErrInvalidPayment = errors.New("invalid payment record")

	// ErrPaymentNotFound indicates no matching payment exists
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrRepositoryUnavailable indicates the repository is unavailable
	ErrRepositoryUnavailable = errors.New("repository unavailable")
)
