// internal/form/validate.go
//
// Forms subsystem: server-side validation.
//
// Context
//   Browsers enforce required, pattern, and length only when they feel like
//   it, so every posted form is checked again here against its definition.
//   Form-level checks come first: a missing or forged CSRF token, or a
//   render timestamp that is too fresh or too old, rejects the submission
//   without looking at the fields.  Each field is then checked by type.
//
//   Values come back trimmed but never HTML-escaped.  Templates escape on
//   output, and the backend must receive what the visitor typed.  Passwords
//   keep surrounding spaces.
//
// Notes
//   •  Form-level problems use ErrorField{Name: ""}; the renderer lists them
//      above the fields.
//   •  Full sentences, two spaces after periods, Oxford commas.
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// maxFormAge bounds how long a rendered form stays submittable.
const maxFormAge = 30 * time.Minute

var checkVar = validator.New()

// ErrorField is one user-facing validation message.  An empty Name marks a
// form-level message.
type ErrorField struct {
	Name    string
	Message string
}

// validationError carries the field list through HandleSubmit.
type validationError struct{ Fields []ErrorField }

func (validationError) Error() string { return "form validation failed" }

// FieldErrors extracts the list from a HandleSubmit error, or nil.
func FieldErrors(err error) []ErrorField {
	var ve validationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	return nil
}

// ValidateForm checks posted against formID and returns the clean values,
// or the problems found.
func ValidateForm(formID string, posted url.Values) (map[string]any, []ErrorField) {
	fd, ok := GetFormDef(formID)
	if !ok {
		return nil, []ErrorField{{Message: "Unknown form."}}
	}

	if tok := posted.Get("csrf_token"); tok == "" || !VerifyToken(tok) {
		return nil, []ErrorField{{Message: "Security token invalid.  Please refresh and try again."}}
	}
	if msg := checkTiming(posted.Get("render_ts"), fd.minFill); msg != "" {
		return nil, []ErrorField{{Message: msg}}
	}

	clean := make(map[string]any, len(fd.Fields))
	var errs []ErrorField
	for i := range fd.Fields {
		f := &fd.Fields[i]
		raw := first(posted, f.Name)
		if f.Type != "password" {
			raw = strings.TrimSpace(raw)
		}
		if raw == "" {
			if f.Required {
				errs = append(errs, ErrorField{f.Name, f.message("This field is required.")})
			}
			continue
		}
		val, msg := f.sanitize(raw)
		if msg != "" {
			errs = append(errs, ErrorField{f.Name, msg})
			continue
		}
		clean[f.Name] = val
	}
	return clean, errs
}

// checkTiming returns a user-facing message when the render timestamp is
// missing, too recent (bots), or expired.
func checkTiming(tsRaw string, minFill time.Duration) string {
	if tsRaw == "" {
		return "Timestamp missing.  Please reload the page."
	}
	ts, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		return "Bad timestamp.  Please retry."
	}
	age := time.Since(time.UnixMicro(ts))
	switch {
	case age < minFill:
		return "Form submitted too quickly.  Please enter the fields manually."
	case age > maxFormAge:
		return "Form expired.  Please reload and submit again."
	}
	return ""
}

// sanitize checks one non-empty value.
func (f *FieldDef) sanitize(v string) (any, string) {
	n := utf8.RuneCountInString(v)
	if f.MinLength > 0 && n < f.MinLength {
		return nil, fmt.Sprintf("Must be at least %d characters.", f.MinLength)
	}
	if f.MaxLength > 0 && n > f.MaxLength {
		return nil, fmt.Sprintf("Must be at most %d characters.", f.MaxLength)
	}
	if f.re != nil && !f.re.MatchString(v) {
		return nil, f.message("Input does not match the required format.")
	}

	switch f.Type {
	case "email":
		if checkVar.Var(v, "email") != nil {
			return nil, f.message("Enter a valid email address.")
		}
	case "number":
		if checkVar.Var(v, "numeric") != nil {
			return nil, f.message("Enter a number.")
		}
	case "date":
		if _, err := time.Parse(time.DateOnly, v); err != nil {
			return nil, f.message("Enter a date as YYYY-MM-DD.")
		}
	case "select", "radio":
		if !f.allows(v) {
			return nil, f.message("Choose one of the listed options.")
		}
	case "checkbox":
		return true, ""
	}
	return v, ""
}

func (f *FieldDef) allows(v string) bool {
	for _, o := range f.Options {
		if o == v {
			return true
		}
	}
	return false
}

// message prefers the definition's own error text.
func (f *FieldDef) message(fallback string) string {
	if f.ErrorMsg != "" {
		return f.ErrorMsg
	}
	return fallback
}

func first(v url.Values, key string) string {
	if vals := v[key]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}
