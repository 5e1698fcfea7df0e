// internal/form/renderer.go
//
// Forms subsystem: HTML renderer.
//
// Context
//   RenderForm turns a registered FormDef into the inner markup of a form:
//   labelled inputs, a CSRF token, and a render timestamp.  It deliberately
//   omits the <form> element so the page template decides method, action,
//   and submit button.  Output is produced by one html/template, so every
//   value is escaped by context.
//
// Markup
//
//	<div class="bizdir-form" data-form="auth/login">
//	  <ul class="form-errors" role="alert">…</ul>        form-level errors
//	  <div class="form-field">
//	    <label for="fld-auth-login-mobile">…</label>
//	    <input id="fld-auth-login-mobile" name="mobile" …>
//	    <span class="error" id="fld-auth-login-mobile-err">…</span>
//	  </div>
//	  <input type="hidden" name="csrf_token" …>
//	  <input type="hidden" name="render_ts" …>
//	</div>
//
// Notes
//   •  Ids are "fld-<form id with / as ->-<field>", so two forms on one page
//      never collide.
//   •  Password inputs are never prefilled.
//   •  Full sentences, two spaces after periods, Oxford commas.
//
//------------------------------------------------------------------------------

package form

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"
)

// RenderOptions carries per-render input.
type RenderOptions struct {
	Prefill map[string]string // field name → value
	Errors  []ErrorField      // from a failed submission
}

type fieldView struct {
	*FieldDef
	ID    string
	Value string
	Error string
}

type formView struct {
	ID       string
	Errors   []string
	Fields   []fieldView
	Token    string
	RenderTS int64
}

var formTmpl = template.Must(template.New("form").Parse(`
{{- define "attrs" -}}
{{ if .Required }} required{{ end -}}
{{ if gt .MinLength 0 }} minlength="{{ .MinLength }}"{{ end -}}
{{ if gt .MaxLength 0 }} maxlength="{{ .MaxLength }}"{{ end -}}
{{ with .Placeholder }} placeholder="{{ . }}"{{ end -}}
{{ with .Autocomplete }} autocomplete="{{ . }}"{{ end -}}
{{ if .Error }} aria-invalid="true" aria-describedby="{{ .ID }}-err"{{ end -}}
{{- end -}}

<div class="bizdir-form" data-form="{{ .ID }}">
{{ with .Errors }}<ul class="form-errors" role="alert">
{{ range . }}<li>{{ . }}</li>
{{ end }}</ul>
{{ end -}}
{{ range .Fields -}}
{{ if eq .Type "hidden" -}}
<input type="hidden" name="{{ .Name }}" value="{{ .Value }}">
{{ else -}}
<div class="form-field">
{{ if ne .Type "radio" }}<label for="{{ .ID }}">{{ .Label }}</label>
{{ else }}<span class="label">{{ .Label }}</span>
{{ end -}}
{{ if eq .Type "textarea" -}}
<textarea id="{{ .ID }}" name="{{ .Name }}" rows="5"{{ template "attrs" . }}>{{ .Value }}</textarea>
{{ else if eq .Type "select" -}}
{{ $v := .Value -}}
<select id="{{ .ID }}" name="{{ .Name }}"{{ template "attrs" . }}>
{{ if not $v }}<option value="">Choose…</option>
{{ end }}{{ range .Options }}<option value="{{ . }}"{{ if eq . $v }} selected{{ end }}>{{ . }}</option>
{{ end }}</select>
{{ else if eq .Type "radio" -}}
{{ $f := . -}}
{{ range $i, $o := .Options }}<div class="radio-option"><input id="{{ $f.ID }}-{{ $i }}" name="{{ $f.Name }}" type="radio" value="{{ $o }}"{{ if eq $o $f.Value }} checked{{ end }}{{ if $f.Required }} required{{ end }}><label for="{{ $f.ID }}-{{ $i }}">{{ $o }}</label></div>
{{ end -}}
{{ else if eq .Type "checkbox" -}}
<input id="{{ .ID }}" name="{{ .Name }}" type="checkbox"{{ if and .Value (ne .Value "false") }} checked{{ end }}{{ if .Required }} required{{ end }}>
{{ else -}}
<input id="{{ .ID }}" name="{{ .Name }}" type="{{ .Type }}"{{ if eq .Type "tel" }} inputmode="numeric"{{ end }}{{ with .Pattern }} pattern="{{ . }}"{{ end }}{{ template "attrs" . }}{{ if and .Value (ne .Type "password") }} value="{{ .Value }}"{{ end }}>
{{ end -}}
<span class="error" id="{{ .ID }}-err" aria-live="polite">{{ .Error }}</span>
</div>
{{ end -}}
{{ end -}}
<input type="hidden" name="csrf_token" value="{{ .Token }}">
<input type="hidden" name="render_ts" value="{{ .RenderTS }}">
</div>`))

// RenderForm returns the inner markup for formID.
func RenderForm(formID string, opts RenderOptions) (template.HTML, error) {
	fd, ok := GetFormDef(formID)
	if !ok {
		return "", fmt.Errorf("form: render: unknown form %q", formID)
	}
	tok, err := GenerateToken()
	if err != nil {
		return "", fmt.Errorf("form: render %s: csrf token: %w", formID, err)
	}

	fieldErrs := make(map[string]string, len(opts.Errors))
	v := formView{ID: fd.ID, Token: tok, RenderTS: time.Now().UnixMicro()}
	for _, e := range opts.Errors {
		switch {
		case e.Name == "":
			v.Errors = append(v.Errors, e.Message)
		case fieldErrs[e.Name] == "":
			fieldErrs[e.Name] = e.Message
		}
	}

	prefix := "fld-" + strings.ReplaceAll(fd.ID, "/", "-") + "-"
	for i := range fd.Fields {
		f := &fd.Fields[i]
		v.Fields = append(v.Fields, fieldView{
			FieldDef: f,
			ID:       prefix + f.Name,
			Value:    opts.Prefill[f.Name],
			Error:    fieldErrs[f.Name],
		})
	}

	var buf bytes.Buffer
	if err := formTmpl.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("form: render %s: %w", formID, err)
	}
	return template.HTML(buf.String()), nil
}
