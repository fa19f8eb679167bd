package domain

import "fmt"

// InvalidInputError reports malformed or incomplete input: empty stop
// lists, stops with neither coordinate nor address, out-of-range pair
// indices. Always fatal, never retried.
type InvalidInputError struct {
	StopID string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.StopID != "" {
		return fmt.Sprintf("invalid input: stop %q: %s", e.StopID, e.Reason)
	}
	return "invalid input: " + e.Reason
}

// ResolutionError reports a failed address-to-coordinate resolution:
// the provider could not match the address or signalled a failure.
type ResolutionError struct {
	Address string
	Status  string
	Err     error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("geocode %q: %v", e.Address, e.Err)
	}
	return fmt.Sprintf("geocode %q: provider status %q", e.Address, e.Status)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// UpstreamError reports a rejected request, malformed payload, or
// network failure from the travel-matrix provider. Fatal for the whole
// build; no partial matrix is ever returned.
type UpstreamError struct {
	Status int
	Detail string
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("routes provider: %v", e.Err)
	}
	if e.Status != 0 {
		return fmt.Sprintf("routes provider: HTTP %d: %s", e.Status, e.Detail)
	}
	return "routes provider: " + e.Detail
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// InfeasibleError reports that no assignment satisfies capacity,
// precedence, and horizon constraints within the search budget. Distinct
// from an upstream failure: the model itself is unsatisfiable or the
// search ran out of time.
type InfeasibleError struct {
	Vehicles int
	Capacity int
	Reason   string
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf(
		"no feasible route found (vehicles=%d capacity=%d): %s",
		e.Vehicles, e.Capacity, e.Reason,
	)
}
