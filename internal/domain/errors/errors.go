package errors

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrUnknownProduct = errors.New("unknown product")
	ErrRefundFailed   = errors.New("refund failed")
)
