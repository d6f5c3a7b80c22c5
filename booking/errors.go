package booking

import "errors"

var (
	// ErrRepositoryRequired is returned when a repository is not provided.
	ErrRepositoryRequired = errors.New("repository required")

	// ErrUnavailable is returned when booking a technician who is not accepting work.
	ErrUnavailable = errors.New("technician is not available")

	// ErrInvalidTransition is returned when a booking cannot move to the requested status.
	ErrInvalidTransition = errors.New("invalid booking status transition")

	// ErrAlreadyRated is returned when rating a booking a second time.
	ErrAlreadyRated = errors.New("booking already rated")
)
