package commands

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

const (
	codeValidation     = "PRESS_COMMAND_VALIDATION_FAILED"
	codeContextCancel  = "PRESS_COMMAND_CANCELED"
	codeContextTimeout = "PRESS_COMMAND_TIMEOUT"
	codeExecuteFailed  = "PRESS_COMMAND_FAILED"
)

func wrapValidationError(err error) error {
	if err == nil || goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, "command validation failed").
		WithTextCode(codeValidation)
}

func wrapContextError(err error) error {
	if err == nil || goerrors.IsWrapped(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return goerrors.Wrap(err, goerrors.CategoryCommand, "command deadline exceeded").
			WithTextCode(codeContextTimeout)
	}
	return goerrors.Wrap(err, goerrors.CategoryCommand, "command cancelled").
		WithTextCode(codeContextCancel)
}

// wrapExecuteError passes errors already categorised by go-errors through.
func wrapExecuteError(err error) error {
	if err == nil || goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryCommand, "command execution failed").
		WithTextCode(codeExecuteFailed)
}
