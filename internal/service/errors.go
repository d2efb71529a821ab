package service

import "errors"

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrDuplicate           = errors.New("already exists")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInsufficientPayment = errors.New("amount received is less than total")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrUnauthenticated     = errors.New("not authenticated")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrNothingToReturn     = errors.New("nothing to return")
	ErrEmptyExport         = errors.New("nothing to export")
)
