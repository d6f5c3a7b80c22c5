package vertex

import "errors"

var (
	// ErrTokenEndpointMissing is returned when a token broker is selected but its URL is empty.
	ErrTokenEndpointMissing = errors.New("vertex: token endpoint url is empty")

	// ErrTokenExchange indicates the access token could not be obtained.
	ErrTokenExchange = errors.New("vertex: token exchange failed")

	// ErrUnexpectedStatus indicates a non-200 response from the prediction endpoint.
	ErrUnexpectedStatus = errors.New("vertex: unexpected response status")

	// ErrMalformedResponse indicates predictions missing, miscounted, or of the wrong length.
	ErrMalformedResponse = errors.New("vertex: malformed prediction response")
)
