package errors

import "net/http"

// HTTPStatus maps a domain error to the HTTP status code the API surface
// reports for it. Unknown errors are treated as internal.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case Is(err, ErrNotFound):
		return http.StatusNotFound
	case Is(err, ErrUnauthorized):
		return http.StatusForbidden
	case Is(err, ErrInsufficientFee):
		return http.StatusPaymentRequired
	case Is(err, ErrMalformedInput):
		return http.StatusBadRequest
	case Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	case Is(err, ErrAlreadyFinalized):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
