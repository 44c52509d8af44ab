package domain

import "errors"

var (
	// ErrInvalidConfiguration is returned when a job configuration fails validation
	ErrInvalidConfiguration = errors.New("invalid job configuration")

	// ErrUnresolvedRole is returned when a role URI matches no vocabulary term
	ErrUnresolvedRole = errors.New("could not locate role term")

	// ErrMissingArtifact is returned when the subject has no media or file for the source role
	ErrMissingArtifact = errors.New("could not locate source artifact")

	// ErrLoopDetected is returned when the derivative media is the source media itself
	ErrLoopDetected = errors.New("source and derivative media are the same")

	// ErrHeaderBuild is returned when a header handler cannot build the message headers
	ErrHeaderBuild = errors.New("failed to build message headers")

	// ErrEntityNotFound is returned when a subject or user cannot be loaded
	ErrEntityNotFound = errors.New("entity not found")

	// ErrUnknownAction is returned when an action name is not configured
	ErrUnknownAction = errors.New("unknown action")

	// ErrUnsupportedSubject is returned when a job kind cannot run on the given subject
	ErrUnsupportedSubject = errors.New("unsupported subject for job")
)

// ConfigurationError wraps operator-fixable failures discovered before any network call
type ConfigurationError struct {
	Op  string
	Err error
}

func (e *ConfigurationError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(op string, err error) error {
	return &ConfigurationError{Op: op, Err: err}
}

// TransportError wraps broker failures: unreachable broker or rejected publish
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return "broker " + e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a new transport error
func NewTransportError(op string, err error) error {
	return &TransportError{Op: op, Err: err}
}

// IsLoop reports whether err is the benign loop short-circuit
func IsLoop(err error) bool {
	return errors.Is(err, ErrLoopDetected)
}

// IsTransport reports whether err came from the broker
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
