// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - error types and exit codes shared by all commands.
//
// Handlers always return errors; Run decides how to display them.

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/inkwell/internal/cloud"
	"github.com/jeranaias/inkwell/internal/config"
	"github.com/jeranaias/inkwell/internal/document"
	"github.com/jeranaias/inkwell/internal/ollama"
	"github.com/jeranaias/inkwell/internal/provider"
	"github.com/jeranaias/inkwell/internal/reconcile"
	"github.com/jeranaias/inkwell/internal/storage"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates a config file or settings error
	ExitConfigError = 3
	// ExitProviderError indicates the model could not be reached or refused
	ExitProviderError = 4
	// ExitNotFoundError indicates a missing file or journal entry
	ExitNotFoundError = 5
	// ExitCanceled indicates the user interrupted a generation
	ExitCanceled = 130
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrConfig marks failures to load or save the configuration.
var ErrConfig = errors.New("config")

// ValidationError represents invalid user input.
type ValidationError struct {
	Field   string
	Value   string
	Reason  string
	Example string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
	ID       string
	Err      error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// GenerationError reports a generation that ran but did not complete.
type GenerationError struct {
	Result reconcile.Result
}

func (e *GenerationError) Error() string {
	if e.Result.Err != nil {
		return fmt.Sprintf("generation %s: %v", e.Result.Status, e.Result.Err)
	}
	return "generation " + e.Result.Status.String()
}

func (e *GenerationError) Unwrap() error { return e.Result.Err }

// NewValidationError creates a new validation error.
func NewValidationError(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// NewValidationErrorWithExample creates a validation error with an example.
func NewValidationErrorWithExample(field, value, reason, example string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason, Example: example}
}

// ErrMissingArgument creates an error for a missing required argument.
func ErrMissingArgument(argName, usage string) error {
	return NewValidationErrorWithExample(argName, "", "required argument missing", usage)
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// GetExitCode maps an error to the process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var validationErr *ValidationError
	var notFoundErr *NotFoundError
	var genErr *GenerationError
	var cfgErr config.ValidateErrors
	var apiErr *cloud.APIError
	var clientErr *ollama.ClientError

	switch {
	case errors.As(err, &validationErr),
		errors.Is(err, document.ErrOutOfRange),
		errors.Is(err, document.ErrInvalidEncoding),
		errors.Is(err, provider.ErrEmptyPrompt):
		return ExitUsageError
	case errors.As(err, &cfgErr), errors.Is(err, ErrConfig):
		return ExitConfigError
	case errors.As(err, &notFoundErr), errors.Is(err, storage.ErrNotFound):
		return ExitNotFoundError
	case errors.Is(err, context.Canceled):
		return ExitCanceled
	case errors.As(err, &genErr):
		if genErr.Result.Status == reconcile.StatusCanceled {
			return ExitCanceled
		}
		if errors.As(err, &apiErr) || errors.As(err, &clientErr) {
			return ExitProviderError
		}
		return ExitGeneralError
	case errors.Is(err, cloud.ErrNotConfigured),
		errors.As(err, &apiErr),
		errors.As(err, &clientErr):
		return ExitProviderError
	}
	return ExitGeneralError
}

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError writes err to w, as JSON when jsonMode is set.
func DisplayError(w io.Writer, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		out := map[string]any{
			"success":    false,
			"error":      err.Error(),
			"error_type": errorType(err),
			"exit_code":  GetExitCode(err),
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
	if hint := errorHint(err); hint != "" {
		fmt.Fprintf(w, "%s\n", DimStyle.Render(hint))
	}
}

func errorType(err error) string {
	switch GetExitCode(err) {
	case ExitUsageError:
		return "validation_error"
	case ExitConfigError:
		return "config_error"
	case ExitProviderError:
		return "provider_error"
	case ExitNotFoundError:
		return "not_found_error"
	case ExitCanceled:
		return "canceled"
	}
	return "generic_error"
}

func errorHint(err error) string {
	switch {
	case ollama.IsNotRunning(err):
		return "Is Ollama running? Start it with: ollama serve"
	case ollama.IsModelNotFound(err):
		return "Pull the model first: ollama pull <model>"
	case ollama.IsTimeout(err):
		return "Ollama did not answer in time; a large model may still be loading."
	case errors.Is(err, cloud.ErrNotConfigured):
		return "Set cloud.api_key in the config or export INKWELL_API_KEY."
	}
	return ""
}
