package scan

import "errors"

var (
	ErrScannerUnavailable = errors.New("scanner unavailable")
	ErrInvalidTransition  = errors.New("invalid scan state transition")
	ErrLookupFailed       = errors.New("product lookup failed")
	ErrDecoderRunning     = errors.New("decoder already running")
)
