package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is the root of every validation failure. Such errors are
	// reported synchronously and must not be retried.
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmptyInput signals that an operation received no work. The optimizer
	// treats an empty batch as a valid result; reaching the sequencer with an
	// empty bin is an internal invariant violation.
	ErrEmptyInput = errors.New("empty input")
)

// InvalidInputError describes a rejected field value.
type InvalidInputError struct {
	Field  string
	Value  any
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %s=%v", ErrInvalidInput, e.Field, e.Value)
	}
	return fmt.Sprintf("%s: %s=%v: %s", ErrInvalidInput, e.Field, e.Value, e.Reason)
}

func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

// InvalidCoordinateError is returned when a latitude or longitude is out of range.
type InvalidCoordinateError struct {
	ItemID string
	Lat    float64
	Lon    float64
}

func (e *InvalidCoordinateError) Error() string {
	return fmt.Sprintf("%s: coordinates of %q out of range: lat=%v lon=%v", ErrInvalidInput, e.ItemID, e.Lat, e.Lon)
}

func (e *InvalidCoordinateError) Unwrap() error { return ErrInvalidInput }

// EmptyInputError is returned by Op when it was handed nothing to process.
type EmptyInputError struct {
	Op string
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, ErrEmptyInput)
}

func (e *EmptyInputError) Unwrap() error { return ErrEmptyInput }
