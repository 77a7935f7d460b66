package nexus

import (
	"errors"

	"github.com/m-mizutani/goerr/v2"
)

var (
	// ErrInvalidInput is returned before a run starts when the caller's
	// query or overrides are out of allowed bounds.
	ErrInvalidInput = errors.New("invalid research input")

	// ErrRunAborted is returned when the run context is cancelled between
	// stages. The trace up to the last completed stage is preserved.
	ErrRunAborted = errors.New("research run aborted")
)

var (
	// ErrTagMalformedOutput marks errors from the structured extractor when
	// no valid JSON object can be recovered from model output.
	ErrTagMalformedOutput = goerr.NewTag("malformed_output")

	// ErrTagExternalCall marks failures of an external collaborator call
	// (model inference or a search tool backend).
	ErrTagExternalCall = goerr.NewTag("external_call_failure")

	// ErrTagValidation marks caller input validation failures.
	ErrTagValidation = goerr.NewTag("validation_failure")
)
