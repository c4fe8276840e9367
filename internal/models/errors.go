package models

import "errors"

var (
	ErrUnparseableDate    = errors.New("unparseable date")
	ErrUnparseableTime    = errors.New("unparseable time")
	ErrInvalidInterval    = errors.New("invalid interval: end must be after start")
	ErrPastDate           = errors.New("date is in the past")
	ErrSlotConflict       = errors.New("slot conflict")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrBookingNotFound    = errors.New("booking not found")
	ErrBookingClosed      = errors.New("booking already declined")
	ErrInvalidStatus      = errors.New("invalid booking status")
	ErrDuplicateRequestID = errors.New("duplicate request id")
)
