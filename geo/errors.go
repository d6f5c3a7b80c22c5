package geo

import "errors"

var (
	// ErrKeyRequired is returned when no subscription key is configured.
	ErrKeyRequired = errors.New("maps subscription key required")

	// ErrNoResults is returned when an address does not resolve to a position.
	ErrNoResults = errors.New("address did not resolve")

	// ErrNoRoute is returned when no route connects the two points.
	ErrNoRoute = errors.New("no route found")

	// ErrUnexpectedStatus is returned for a non-200 maps response.
	ErrUnexpectedStatus = errors.New("unexpected maps response status")
)
