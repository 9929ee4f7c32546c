package expense

import "errors"

var (
	ErrExpenseNotFound = errors.New("expense not found")
	ErrReceiptTooLarge = errors.New("receipt exceeds the maximum size of 10MB")
	ErrReceiptNotImage = errors.New("receipt must be a JPEG or PNG image")
	ErrAlreadyReviewed = errors.New("expense has already been reviewed")
)
