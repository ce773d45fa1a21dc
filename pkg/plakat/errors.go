package plakat

import "errors"

var (
	// ErrInvalidSpec is returned for non-positive or non-finite dimensions, or an unknown page size.
	ErrInvalidSpec = errors.New("invalid poster spec")
	// ErrDecode is returned when image bytes cannot be decoded.
	ErrDecode = errors.New("unable to decode image")
	// ErrInvalidState is returned when an operation needs a loaded image.
	ErrInvalidState = errors.New("no image loaded")
	// ErrIO is returned when reading or writing a file fails.
	ErrIO = errors.New("i/o failure")
)
