package file_service

import "errors"

var (
	ErrSizeExceedsDisk = errors.New("file size exceeds disk limit")
	ErrInvalidSize     = errors.New("file size must be positive")
	ErrFileTooLarge    = errors.New("file needs more blocks than direct slots can address")
)
