// internal/form/submit.go
//
// Forms subsystem: consolidated Submit helper.
//
// Context
//   Most handlers want one call that parses the POST body, validates input,
//   executes configured actions, and returns the clean map or a validation
//   error.  HandleSubmit provides that so component code stays terse.
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"net/http"
)

// HandleSubmit parses r, validates against formID, executes default actions,
// and returns the clean data.  On validation failure it returns an error
// accepted by IsValidationError and FieldErrors.  On unexpected system
// failures it returns a generic error.
func HandleSubmit(formID string, r *http.Request, actx ActionCtx) (map[string]any, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}

	clean, errs := ValidateForm(formID, r.PostForm)
	if len(errs) > 0 {
		return nil, validationError{Fields: errs}
	}

	if actx.Ctx == nil {
		actx.Ctx = r.Context()
	}
	ExecuteActions(formID, clean, actx)
	return clean, nil
}

// IsValidationError reports whether err came from failed ValidateForm.
func IsValidationError(err error) bool {
	var ve validationError
	return errors.As(err, &ve)
}

// String returns data[key] as a string, or "".
func String(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}
