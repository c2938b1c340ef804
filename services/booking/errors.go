package booking

import (
	"errors"
	"fmt"
)

// Error codes for the reservation engine.
const (
	CodeSlotConflict    = "slotConflict"
	CodeNotFound        = "notFound"
	CodeAlreadyTerminal = "alreadyTerminal"
	CodeTimeoutExceeded = "timeoutExceeded"
	CodeValidation      = "validationError"
)

// BookingError is the typed error surfaced by every reservation operation.
type BookingError struct {
	Code    string
	Message string
}

func (e *BookingError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewSlotConflictError(msg string) error {
	return &BookingError{Code: CodeSlotConflict, Message: msg}
}

func NewNotFoundError(msg string) error {
	return &BookingError{Code: CodeNotFound, Message: msg}
}

func NewAlreadyTerminalError(msg string) error {
	return &BookingError{Code: CodeAlreadyTerminal, Message: msg}
}

func NewTimeoutExceededError(msg string) error {
	return &BookingError{Code: CodeTimeoutExceeded, Message: msg}
}

func NewValidationError(msg string) error {
	return &BookingError{Code: CodeValidation, Message: msg}
}

// ErrCode extracts the booking error code, or "" for non-booking errors.
func ErrCode(err error) string {
	var be *BookingError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}
