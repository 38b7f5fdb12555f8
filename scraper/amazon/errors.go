package amazon

import "errors"

var (
	// ErrRenderTimeout is returned when the result grid never renders within the wait timeout.
	ErrRenderTimeout = errors.New("amazon: search results did not render")
	// ErrBotDetected is returned when the site serves a verification page instead of results.
	ErrBotDetected = errors.New("amazon: bot verification page served")
)
