// Package dispatcherrors contains the error kinds returned by the admission and dispatch core.
// Callers should look for these types using errors.As, since they are usually wrapped
// (e.g., by errors.WithMessage) before reaching the caller.
//
// If several configuration problems are found at once (e.g., when validating a config file),
// return a multierror.Error from package github.com/hashicorp/go-multierror wrapping the
// individual errors.
package dispatcherrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrConfiguration is returned whenever a job or the dispatcher itself is configured in a way
// that prevents an admission decision from being made, e.g., a family-specific judge applies
// but the resource snapshot has no entry for the family, or an integer-valued job property
// holds a non-numeric value.
type ErrConfiguration struct {
	// Name of the offending setting, e.g., "sql.env.parallelism" or "engineType"
	Key string
	// The invalid value that was provided
	Value interface{}
	// Optional message included with the error message
	Message string
}

func (err *ErrConfiguration) Error() (s string) {
	if err.Key != "" {
		s = fmt.Sprintf("invalid configuration value %q for %q", fmt.Sprint(err.Value), err.Key)
	} else {
		s = "invalid configuration"
	}
	if err.Message != "" {
		s = s + fmt.Sprintf("; %s", err.Message)
	}
	return
}

// ErrLoad is returned when a plugin loader fails to produce an execution client,
// e.g., because the artifact is missing, the type can't be found or it has the wrong shape.
type ErrLoad struct {
	ArtifactPath string
	TypeId       string
	Message      string
	// Underlying cause; may be nil
	Err error
}

func (err *ErrLoad) Error() string {
	s := fmt.Sprintf("failed to load %q from artifact %q", err.TypeId, err.ArtifactPath)
	if err.Message != "" {
		s = s + fmt.Sprintf("; %s", err.Message)
	}
	if err.Err != nil {
		s = s + fmt.Sprintf(": %s", err.Err)
	}
	return s
}

func (err *ErrLoad) Unwrap() error {
	return err.Err
}

// ErrBackendIO is returned by execution clients that can't reach the engine backend.
type ErrBackendIO struct {
	// Endpoint that was being contacted, e.g., "http://flink-master:8081/jobs"
	Endpoint string
	Err      error
}

func (err *ErrBackendIO) Error() string {
	if err.Err == nil {
		return fmt.Sprintf("backend %s unreachable", err.Endpoint)
	}
	return fmt.Sprintf("backend %s unreachable: %s", err.Endpoint, err.Err)
}

func (err *ErrBackendIO) Unwrap() error {
	return err.Err
}

// Kind is a coarse classification of errors, used for metric labels and CLI exit codes.
type Kind string

const (
	KindNone          Kind = "none"
	KindConfiguration Kind = "configuration"
	KindLoad          Kind = "load"
	KindBackendIO     Kind = "backend_io"
	KindUnknown       Kind = "unknown"
)

// KindFromError maps error types to a Kind.
// Uses errors.As to look through the chain of errors, as opposed to just considering the topmost error in the chain.
func KindFromError(err error) Kind {
	if err == nil {
		return KindNone
	}
	{
		var e *ErrConfiguration
		if errors.As(err, &e) {
			return KindConfiguration
		}
	}
	{
		var e *ErrLoad
		if errors.As(err, &e) {
			return KindLoad
		}
	}
	{
		var e *ErrBackendIO
		if errors.As(err, &e) {
			return KindBackendIO
		}
	}
	return KindUnknown
}
