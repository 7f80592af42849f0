package core

import "errors"

var (
	ErrPatternNotFound = errors.New("pattern not found")
	ErrConnClosed      = errors.New("connection closed")
	ErrBackpressure    = errors.New("backpressure")
)
