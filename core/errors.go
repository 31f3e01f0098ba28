package core

import "github.com/pkg/errors"

// NonFieldErrors is the key under which errors that do not belong to a single field are reported.
const NonFieldErrors = "__all__"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// FieldErrors returns the error messages keyed by field.
// A ValidationError without fields is reported under NonFieldErrors.
func (err ValidationError) FieldErrors() map[string]string {
	fldErrs := make(map[string]string, len(err.Fields)+1)
	for _, fErr := range err.Fields {
		fldErrs[fErr.Field] = fErr.Error
	}
	if len(err.Fields) == 0 && err.Err != nil {
		fldErrs[NonFieldErrors] = err.Err.Error()
	}
	return fldErrs
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
