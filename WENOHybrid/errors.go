package WENOHybrid

import "errors"

var (
	ErrInvalidFieldSize   = errors.New("field size does not match mesh")
	ErrUnsupportedOrder   = errors.New("unsupported polynomial order")
	ErrCoefficientCount   = errors.New("coefficient count does not match basis table")
	ErrInvalidConfig      = errors.New("invalid scheme configuration")
	ErrMissingCounterpart = errors.New("missing counterpart data on coupled face")
	ErrExchangeTimeout    = errors.New("coupled face exchange timed out")
)
