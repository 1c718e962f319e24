package domain

import (
	"errors"
	"fmt"
	"strings"
)

const (
	TARGET_KIND_CHARGER = "charger"
	TARGET_KIND_CIRCUIT = "circuit"
)

var (
	ErrTargetNotFound  = errors.New("target not found")
	ErrUnknownService  = errors.New("unknown service")
	ErrInvalidCallData = errors.New("invalid service data")
	ErrServiceTimeout  = errors.New("service call timed out")
)

// TargetNotFoundError is returned when no proxy in the registry carries the requested id.
type TargetNotFoundError struct {
	Kind string
	Id   any
}

func (err TargetNotFoundError) Error() string {
	return fmt.Sprintf("Could not find %s %v", err.Kind, err.Id)
}

func (err TargetNotFoundError) Is(target error) bool {
	return target == ErrTargetNotFound
}

type UnknownServiceError struct {
	Domain  string
	Service string
}

func (err UnknownServiceError) Error() string {
	return fmt.Sprintf("unknown service %s.%s", err.Domain, err.Service)
}

func (err UnknownServiceError) Is(target error) bool {
	return target == ErrUnknownService
}

type DuplicateServiceError struct {
	Domain  string
	Service string
}

func (err DuplicateServiceError) Error() string {
	return fmt.Sprintf("service %s.%s already registered", err.Domain, err.Service)
}

// ValidationError describes a single field rejected by a Schema.
type ValidationError struct {
	Key    string
	Reason string
	Value  any
}

func (err *ValidationError) Error() string {
	if err.Value == nil {
		return fmt.Sprintf("%s: %s", err.Key, err.Reason)
	}
	return fmt.Sprintf("%s: %s (got %v)", err.Key, err.Reason, err.Value)
}

func (err *ValidationError) Is(target error) bool {
	return target == ErrInvalidCallData
}

// SchemaError aggregates every ValidationError found in one call.
type SchemaError struct {
	Errors []*ValidationError
}

func (err *SchemaError) Error() string {
	msgs := make([]string, 0, len(err.Errors))
	for _, e := range err.Errors {
		msgs = append(msgs, e.Error())
	}
	return fmt.Sprintf("invalid service data: %s", strings.Join(msgs, "; "))
}

func (err *SchemaError) Unwrap() []error {
	errs := make([]error, 0, len(err.Errors))
	for _, e := range err.Errors {
		errs = append(errs, e)
	}
	return errs
}
