package session

// modelNotFoundError is returned when a requested model name is not present
// in the last scan.
type modelNotFoundError struct{ name string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.name }

// ErrModelNotFound returns an error for a missing model name.
func ErrModelNotFound(name string) error { return modelNotFoundError{name: name} }

// IsModelNotFound reports whether the error indicates a missing model name.
func IsModelNotFound(err error) bool {
	_, ok := err.(modelNotFoundError)
	return ok
}

type unknownImplementationError struct{ name string }

func (e unknownImplementationError) Error() string { return "unknown implementation: " + e.name }

// ErrUnknownImplementation returns an error for an unsupported backend name.
func ErrUnknownImplementation(name string) error { return unknownImplementationError{name: name} }

// IsUnknownImplementation reports whether err names a backend that is not in
// the capability table (return 400).
func IsUnknownImplementation(err error) bool {
	_, ok := err.(unknownImplementationError)
	return ok
}
