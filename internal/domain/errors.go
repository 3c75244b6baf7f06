package domain

import "errors"

// VenueError is a known failure reported by a venue client, e.g. a rejected
// login or an API limit. Unknown failures are plain errors.
type VenueError struct {
	Exchange ExchangeType
	Op       string // "place", "cancel", "update", "replace"
	Code     string
	Err      error
}

func (e *VenueError) Error() string {
	msg := string(e.Exchange) + " " + e.Op
	if e.Code != "" {
		msg += " [" + e.Code + "]"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *VenueError) Unwrap() error {
	return e.Err
}

// NewVenueError creates a known venue error.
func NewVenueError(exchange ExchangeType, op, code string, err error) *VenueError {
	return &VenueError{Exchange: exchange, Op: op, Code: code, Err: err}
}

// IsVenueError reports whether err is a known venue failure.
func IsVenueError(err error) bool {
	var ve *VenueError
	return errors.As(err, &ve)
}

// ControlError is an admission rejection raised by a trading control.
type ControlError struct {
	Control string
	Msg     string
}

func (e *ControlError) Error() string {
	return e.Control + ": " + e.Msg
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrInvalidTransition is returned when a status change would move an
	// order backwards or out of a terminal state.
	ErrInvalidTransition = errors.New("invalid order state transition")

	// ErrInvalidCustomerRef is returned for a customer order ref that was not
	// built by CustomerOrderRef.
	ErrInvalidCustomerRef = errors.New("invalid customer order ref")

	// ErrUnknownMarket is returned when a market id is not registered.
	ErrUnknownMarket = errors.New("unknown market")

	// ErrMarketNotTraded is returned when an order's strategy is limited to
	// other markets.
	ErrMarketNotTraded = errors.New("market not traded by strategy")

	// ErrUnknownStrategy is returned when no strategy matches a name or hash.
	ErrUnknownStrategy = errors.New("unknown strategy")

	// ErrUnknownClient is returned when no venue client is registered for an order.
	ErrUnknownClient = errors.New("unknown client")

	// ErrQueueFull is returned when an exchange worker cannot accept more packages.
	ErrQueueFull = errors.New("execution queue full")

	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")
)
