package lists

import "errors"

var (
	ErrListNotFound    = errors.New("list not found")
	ErrItemNotFound    = errors.New("item not found")
	ErrRatingNotFound  = errors.New("rating not found")
	ErrForbidden       = errors.New("action not allowed")
	ErrUnauthenticated = errors.New("authentication required")
	ErrInvalidInput    = errors.New("invalid input")
)
