package genai

import "fmt"

// TransportError means the endpoint never produced a usable response: every
// attempt failed on the network, on a non-OK status, or on a broken response
// envelope.
type TransportError struct {
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("generation request failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// FormatError means the endpoint answered but the model text did not match
// the required JSON shape. Format failures are never retried.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "generation response format invalid: " + e.Reason
}
