package model

import (
	"errors"
	"fmt"
)

// ErrorKind tags why a pipeline run failed.
type ErrorKind string

const (
	ErrorKindNotFound                 ErrorKind = "not_found"
	ErrorKindDataStoreFailure         ErrorKind = "data_store_failure"
	ErrorKindGenerativeServiceFailure ErrorKind = "generative_service_failure"
)

// PipelineError is the terminal error carried by a PipelineState.
type PipelineError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// NotFoundError reports an unknown customer id.
func NotFoundError(msg string) *PipelineError {
	return &PipelineError{Kind: ErrorKindNotFound, Message: msg}
}

// DataStoreError reports a failed data-store query.
func DataStoreError(msg string, cause error) *PipelineError {
	return &PipelineError{Kind: ErrorKindDataStoreFailure, Message: msg, Cause: cause}
}

// GenerativeError reports a failed or malformed generative-service call.
func GenerativeError(msg string, cause error) *PipelineError {
	return &PipelineError{Kind: ErrorKindGenerativeServiceFailure, Message: msg, Cause: cause}
}

// IsKind reports whether err is a PipelineError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}
