package model

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedModel marks a structural reference that could not be
	// resolved. It never aborts a run.
	ErrMalformedModel = errors.New("malformed model")
	// ErrEmptyProgram is the only fatal model error.
	ErrEmptyProgram = errors.New("program has no contracts")
)

type MalformedModelError struct {
	Entity    string
	Reference string
	Reason    string
}

func (e *MalformedModelError) Error() string {
	return fmt.Sprintf("malformed model: %s: %s %q", e.Entity, e.Reason, e.Reference)
}

func (e *MalformedModelError) Unwrap() error { return ErrMalformedModel }

func malformed(entity, reason, ref string) error {
	return &MalformedModelError{Entity: entity, Reference: ref, Reason: reason}
}
