package data

import "errors"

// Shared sentinel errors for the local stores.
var (
	ErrKeyRequired  = errors.New("key cannot be empty")
	ErrCodeRequired = errors.New("barcode cannot be empty")
)
