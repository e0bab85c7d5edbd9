package apperrors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrDependentVersions = errors.New("dataset has dependent versions")
	ErrLocalValidation   = errors.New("local validation failed")
	ErrNoRules           = errors.New("no validation rules defined")
	ErrNoSelection       = errors.New("no dataset selected")
	ErrSuperseded        = errors.New("response superseded by a newer request")
	ErrSelectionFull     = errors.New("two versions already selected")
	ErrUploadInProgress  = errors.New("an upload is already in progress")
)
