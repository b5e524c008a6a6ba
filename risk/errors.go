package risk

import "errors"

var (
	ErrDeltaLimit    = errors.New("portfolio delta limit exceed")
	ErrGammaLimit    = errors.New("portfolio gamma limit exceed")
	ErrVegaLimit     = errors.New("portfolio vega limit exceed")
	ErrPositionLimit = errors.New("open position limit exceed")
	ErrDrift         = errors.New("portfolio totals drift")
)
