package model

import "errors"

// Error kinds shared by stores, the service and the HTTP layer.
// Callers wrap them with fmt.Errorf("...: %w", ...) and match with errors.Is.
var (
	ErrNotFound         = errors.New("item not found")
	ErrValidation       = errors.New("validation failed")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrUpload           = errors.New("upload failed")
	ErrFileTooLarge     = errors.New("file exceeds maximum upload size")
)
