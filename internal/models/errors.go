package models

import "fmt"

// ValidationError represents malformed request parameters or a malformed
// wire payload, detected before or immediately after transport.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}

// TransportError represents a non-2xx HTTP response or a network failure
// while talking to the measurement API.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("request to %s failed with status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransient returns true as transport failures may succeed on a later call
func (e *TransportError) IsTransient() bool {
	return true
}

// SchemaMismatchError represents a response payload that does not fit the
// domain model selected by the requested granularity.
type SchemaMismatchError struct {
	Granularity Granularity
	Reason      string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("response does not match %q measurement schema: %s", e.Granularity, e.Reason)
}

// IsTransient returns false as a schema mismatch is a contract violation
func (e *SchemaMismatchError) IsTransient() bool {
	return false
}
