package domain

import "errors"

var (
	// ErrNotFound is returned by stores when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateTicketID is returned when an insert loses a ticket ID race.
	ErrDuplicateTicketID = errors.New("duplicate ticket id")
	// ErrForbidden is returned when an admin touches another agency's data.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidStatus is returned for a status outside the lifecycle.
	ErrInvalidStatus = errors.New("invalid status")
)
