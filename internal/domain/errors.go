package domain

import "errors"

var (
	// ErrNoCredential indicates the user has no stored credential for the
	// requested provider. This is a configuration problem, not a transient
	// one: retrying cannot succeed until the user links the provider.
	ErrNoCredential = errors.New("no credential on file")

	// ErrUnsupportedProvider is returned for provider names the service does
	// not integrate with.
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrUnknownMetric is returned for metric names outside the closed set.
	ErrUnknownMetric = errors.New("unknown metric")
)

// IsConfiguration reports whether err is a configuration failure rather than
// a transient I/O failure. Configuration failures fail a task permanently;
// transient ones are left to the queue's redelivery policy.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrNoCredential) ||
		errors.Is(err, ErrUnsupportedProvider) ||
		errors.Is(err, ErrUnknownMetric)
}
