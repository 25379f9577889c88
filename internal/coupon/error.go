package coupon

import "errors"

var (
	ErrMalformedValidation = errors.New("malformed coupon validation response")
)
