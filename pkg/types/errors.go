// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
)

// ErrInvalidInput matches every input validation failure via errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// Enrichment stages reported in PerItemFetchError and metrics labels.
const (
	StageMetadata   = "metadata"
	StageCrossRef   = "cross_reference"
	StageUnexpected = "unexpected"
)

// InvalidDateError reports a since-date that is not a calendar date in
// YYYY-MM-DD form. It is raised before any network call.
type InvalidDateError struct {
	Value string
	Err   error
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date %q: use YYYY-MM-DD", e.Value)
}

func (e *InvalidDateError) Unwrap() error { return e.Err }

// Is makes InvalidDateError match ErrInvalidInput.
func (e *InvalidDateError) Is(target error) bool { return target == ErrInvalidInput }

// InvalidInputError reports malformed user input other than a date:
// identifier lists, criterion files, configuration values.
type InvalidInputError struct {
	// Input names what was being read (a file path, a flag, a config key).
	Input  string
	Reason string
	Err    error
}

func (e *InvalidInputError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Input, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidInputError) Unwrap() error { return e.Err }

// Is makes InvalidInputError match ErrInvalidInput.
func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

// UpstreamUnavailableError reports a non-success response from the discovery
// service. It aborts the run.
type UpstreamUnavailableError struct {
	Service    string
	StatusCode int
	// Err carries detail when the status was fine but the body was unusable.
	Err        error
}

func (e *UpstreamUnavailableError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode >= 200 && e.StatusCode < 300:
		return fmt.Sprintf("%s service returned an unusable response (HTTP %d): %v", e.Service, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s service unavailable (HTTP %d): %v", e.Service, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s service unavailable (HTTP %d)", e.Service, e.StatusCode)
}

func (e *UpstreamUnavailableError) Unwrap() error { return e.Err }

// TransportError reports a network-level failure (timeout, refused
// connection) talking to the discovery service. It aborts the run.
type TransportError struct {
	Service string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s service request failed: %v", e.Service, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// PerItemFetchError reports one failed enrichment sub-fetch. It never
// propagates out of the enrichment client; the field degrades to absent.
type PerItemFetchError struct {
	Identifier string
	Stage      string
	// StatusCode is zero for transport and decode failures.
	StatusCode int
	Err        error
}

func (e *PerItemFetchError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err == nil:
		return fmt.Sprintf("%s fetch for %s: HTTP %d", e.Stage, e.Identifier, e.StatusCode)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s fetch for %s: HTTP %d: %v", e.Stage, e.Identifier, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("%s fetch for %s: %v", e.Stage, e.Identifier, e.Err)
	}
}

func (e *PerItemFetchError) Unwrap() error { return e.Err }

// UnexpectedEnrichmentFailure reports an enrichment attempt that aborted
// outright (a recovered panic). The orchestrator substitutes an empty record.
type UnexpectedEnrichmentFailure struct {
	Identifier string
	Cause      any
}

func (e *UnexpectedEnrichmentFailure) Error() string {
	return fmt.Sprintf("enrichment of %s aborted: %v", e.Identifier, e.Cause)
}

// Unwrap exposes the cause when it was itself an error.
func (e *UnexpectedEnrichmentFailure) Unwrap() error {
	if err, ok := e.Cause.(error); ok {
		return err
	}
	return nil
}

// IsDiscoveryFailure reports whether err came from an unreachable or failing
// discovery service.
func IsDiscoveryFailure(err error) bool {
	var upstream *UpstreamUnavailableError
	var transport *TransportError
	return errors.As(err, &upstream) || errors.As(err, &transport)
}
