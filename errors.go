package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cenkalti/backoff/v4"
)

// ErrorKind is the failure taxonomy applied at component boundaries.
type ErrorKind string

const (
	ErrKindNetwork    ErrorKind = "network"
	ErrKindRPC        ErrorKind = "rpc"
	ErrKindRateLimit  ErrorKind = "rate_limit"
	ErrKindValidation ErrorKind = "validation"
)

// RetryHandle describes how to re-issue a failed operation. It is a plain
// descriptor rather than a closure so errors stay serializable.
type RetryHandle struct {
	Operation string   `json:"operation"`
	Params    []string `json:"params,omitempty"`
}

// ClassifiedError is the single error type public methods surface.
type ClassifiedError struct {
	Kind        ErrorKind    `json:"kind"`
	Message     string       `json:"message"`
	Recoverable bool         `json:"recoverable"`
	Retry       *RetryHandle `json:"retry,omitempty"`

	cause error
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ClassifiedError) Unwrap() error { return e.cause }

// classifyRPCError maps a transport-level failure into the taxonomy.
// "method not found" style errors mean the endpoint simply does not offer the
// method and retrying is pointless; rate limits are retryable with backoff;
// everything else is treated as a transient network problem.
func classifyRPCError(op string, params []string, err error) *ClassifiedError {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "method not found"),
		strings.Contains(msg, "does not exist"),
		strings.Contains(msg, "not supported"),
		strings.Contains(msg, "unsupported method"):
		return &ClassifiedError{
			Kind:        ErrKindRPC,
			Message:     fmt.Sprintf("%s is not supported by this endpoint: %v", op, err),
			Recoverable: false,
			cause:       err,
		}
	case strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "too many requests"),
		strings.Contains(msg, "429"):
		return &ClassifiedError{
			Kind:        ErrKindRateLimit,
			Message:     fmt.Sprintf("%s was rate limited: %v", op, err),
			Recoverable: true,
			Retry:       &RetryHandle{Operation: op, Params: params},
			cause:       err,
		}
	default:
		return &ClassifiedError{
			Kind:        ErrKindNetwork,
			Message:     fmt.Sprintf("%s failed: %v", op, err),
			Recoverable: true,
			Retry:       &RetryHandle{Operation: op, Params: params},
			cause:       err,
		}
	}
}

// validationError marks a malformed response shape. Never retried.
func validationError(op, detail string) *ClassifiedError {
	return &ClassifiedError{
		Kind:        ErrKindValidation,
		Message:     fmt.Sprintf("%s returned malformed data: %s", op, detail),
		Recoverable: false,
	}
}

// wrapOperation tags an error with the public operation it escaped from.
// Classified errors pass through (gaining a retry handle if recoverable);
// anything else becomes a generic recoverable network error.
func wrapOperation(op, network string, err error) *ClassifiedError {
	var cerr *ClassifiedError
	if errors.As(err, &cerr) {
		if cerr.Recoverable && cerr.Retry == nil {
			cerr.Retry = &RetryHandle{Operation: op, Params: []string{network}}
		}
		return cerr
	}
	return &ClassifiedError{
		Kind:        ErrKindNetwork,
		Message:     fmt.Sprintf("%s: %v", op, err),
		Recoverable: true,
		Retry:       &RetryHandle{Operation: op, Params: []string{network}},
		cause:       err,
	}
}

// withRetries runs fn under an exponential, jittered backoff capped at
// maxRetries additional attempts. Validation and other non-recoverable
// classified errors are returned immediately.
func withRetries(ctx context.Context, maxRetries uint64, fn func() error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx)
	return backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}
		var cerr *ClassifiedError
		if errors.As(err, &cerr) && !cerr.Recoverable {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}
