package models

import (
	"errors"
	"fmt"
)

// Error classes shared across layers. Handlers map them to HTTP statuses with
// errors.Is, so wrap them instead of replacing them.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrNotConnected = errors.New("platform not connected")
)

// ErrStalePost means a post left the expected status, or is held by an
// in-flight publish, between read and write.
var ErrStalePost = fmt.Errorf("%w: post state changed concurrently", ErrConflict)
