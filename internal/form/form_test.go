package form

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"

	"github.com/yanizio/bizdir/internal/message"
	"github.com/yanizio/bizdir/internal/widget"
)

const signupYAML = `
id: test/signup
title: Sign up
min_fill: 0s
fields:
  - name: name
    label: Name
    type: text
    required: true
    maxlength: 10
  - name: mobile
    label: Mobile
    type: tel
    required: true
    pattern: "[0-9]{10,13}"
  - name: email
    label: Email
    type: email
  - name: rating
    label: Rating
    type: select
    options: ["1", "2", "3", "4", "5"]
  - name: next
    type: hidden
actions:
  - type: event
    kind: signup.succeeded
    subject_field: mobile
  - type: log
`

func init() {
	SetSecret([]byte("0123456789abcdef0123456789abcdef"))
}

func registerSignup(t *testing.T) {
	t.Helper()
	fsys := fstest.MapFS{"forms/signup.yaml": {Data: []byte(signupYAML)}}
	if err := RegisterFS(fsys, "forms"); err != nil {
		t.Fatalf("RegisterFS: %v", err)
	}
}

// hiddenMeta renders the form and returns its csrf_token and render_ts.
func hiddenMeta(t *testing.T, id string) url.Values {
	t.Helper()
	out, err := RenderForm(id, RenderOptions{})
	if err != nil {
		t.Fatal(err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(out)))
	if err != nil {
		t.Fatal(err)
	}
	v := url.Values{}
	tok, _ := doc.Find(`input[name="csrf_token"]`).Attr("value")
	v.Set("csrf_token", tok)
	v.Set("render_ts", strconv.FormatInt(time.Now().Add(-5*time.Second).UnixMicro(), 10))
	return v
}

func TestRegisterFSAddsWidget(t *testing.T) {
	registerSignup(t)
	if _, ok := GetFormDef("test/signup"); !ok {
		t.Fatal("form not registered")
	}
	if widget.Lookup("test/signup") == nil {
		t.Fatal("widget not registered")
	}
}

func TestRenderFormMarkup(t *testing.T) {
	registerSignup(t)
	out, err := RenderForm("test/signup", RenderOptions{
		Prefill: map[string]string{"name": "Asha", "rating": "4", "next": "/business/121"},
		Errors:  []ErrorField{{Name: "mobile", Message: "Bad number."}, {Message: "Try again."}},
	})
	if err != nil {
		t.Fatal(err)
	}
	doc, _ := goquery.NewDocumentFromReader(strings.NewReader(string(out)))

	if v, _ := doc.Find("#fld-test-signup-name").Attr("value"); v != "Asha" {
		t.Errorf("name prefill = %q", v)
	}
	if _, ok := doc.Find("#fld-test-signup-mobile").Attr("required"); !ok {
		t.Errorf("mobile not required")
	}
	if got := doc.Find(`option[selected]`).Text(); got != "4" {
		t.Errorf("selected option = %q", got)
	}
	if v, _ := doc.Find(`input[type="hidden"][name="next"]`).Attr("value"); v != "/business/121" {
		t.Errorf("hidden next = %q", v)
	}
	if got := doc.Find(".form-errors li").Text(); got != "Try again." {
		t.Errorf("form error = %q", got)
	}
	if got := doc.Find("#fld-test-signup-mobile").Parent().Find(".error").Text(); got != "Bad number." {
		t.Errorf("field error = %q", got)
	}
	if doc.Find(`input[name="csrf_token"]`).Length() != 1 {
		t.Errorf("csrf token missing")
	}
}

func TestValidateForm(t *testing.T) {
	registerSignup(t)

	tests := []struct {
		name     string
		fields   map[string]string
		wantErrs []string
	}{
		{"valid", map[string]string{"name": "Asha", "mobile": "9876543210", "rating": "5"}, nil},
		{"missing required", map[string]string{"mobile": "9876543210"}, []string{"name"}},
		{"pattern anchored", map[string]string{"name": "Asha", "mobile": "98765x43210"}, []string{"mobile"}},
		{"too long", map[string]string{"name": "Asha Ramakrishnan", "mobile": "9876543210"}, []string{"name"}},
		{"bad email", map[string]string{"name": "Asha", "mobile": "9876543210", "email": "nope"}, []string{"email"}},
		{"bad option", map[string]string{"name": "Asha", "mobile": "9876543210", "rating": "9"}, []string{"rating"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := hiddenMeta(t, "test/signup")
			for k, val := range tt.fields {
				v.Set(k, val)
			}
			_, errs := ValidateForm("test/signup", v)
			var got []string
			for _, e := range errs {
				got = append(got, e.Name)
			}
			if diff := cmp.Diff(tt.wantErrs, got); diff != "" {
				t.Fatalf("error fields (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidateKeepsRawText(t *testing.T) {
	registerSignup(t)
	v := hiddenMeta(t, "test/signup")
	v.Set("name", " A&B ")
	v.Set("mobile", "9876543210")
	clean, errs := ValidateForm("test/signup", v)
	if len(errs) != 0 {
		t.Fatalf("errs = %v", errs)
	}
	if clean["name"] != "A&B" {
		t.Fatalf("name = %q, want trimmed and unescaped", clean["name"])
	}
}

func TestCSRFAndTiming(t *testing.T) {
	registerSignup(t)

	v := hiddenMeta(t, "test/signup")
	v.Set("csrf_token", "forged")
	if _, errs := ValidateForm("test/signup", v); len(errs) != 1 || errs[0].Name != "" {
		t.Fatalf("forged token errs = %v", errs)
	}

	if msg := checkTiming(strconv.FormatInt(time.Now().UnixMicro(), 10), DefaultMinFill); msg == "" {
		t.Fatal("instant submit should fail the default min fill")
	}
	if msg := checkTiming(strconv.FormatInt(time.Now().Add(-time.Hour).UnixMicro(), 10), 0); msg == "" {
		t.Fatal("hour-old form should be expired")
	}
}

func TestHandleSubmitPublishesEvent(t *testing.T) {
	registerSignup(t)

	bus := message.NewBus()
	var got []message.Event
	bus.Subscribe(func(_ context.Context, ev message.Event) { got = append(got, ev) })

	v := hiddenMeta(t, "test/signup")
	v.Set("name", "Asha")
	v.Set("mobile", "9876543210")
	req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(v.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	data, err := HandleSubmit("test/signup", req, ActionCtx{Bus: bus, UserID: "u1"})
	if err != nil {
		t.Fatalf("HandleSubmit: %v", err)
	}
	if String(data, "mobile") != "9876543210" {
		t.Fatalf("data = %v", data)
	}
	if len(got) != 1 || got[0].Kind != message.SignupSucceeded || got[0].Subject != "9876543210" || got[0].UserID != "u1" {
		t.Fatalf("events = %+v", got)
	}
}

func TestHandleSubmitValidationError(t *testing.T) {
	registerSignup(t)
	v := hiddenMeta(t, "test/signup")
	req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(v.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	_, err := HandleSubmit("test/signup", req, ActionCtx{})
	if !IsValidationError(err) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if fe := FieldErrors(err); len(fe) != 2 {
		t.Fatalf("FieldErrors = %v", fe)
	}
}

func TestParseFormDefRejects(t *testing.T) {
	tests := map[string]string{
		"unknown event kind": "id: x/a\nfields: [{name: a, label: A, type: text}]\nactions: [{type: event, kind: nope}]",
		"unknown action":     "id: x/a\nfields: [{name: a, label: A, type: text}]\nactions: [{type: email}]",
		"no id":              "fields: [{name: a, label: A, type: text}]",
		"bad regex":          "id: x/a\nfields: [{name: a, label: A, type: text, pattern: '('}]",
		"bad min_fill":       "id: x/a\nmin_fill: soon\nfields: [{name: a, label: A, type: text}]",
		"duplicate field":    "id: x/a\nfields: [{name: a, label: A, type: text}, {name: a, label: B, type: text}]",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseFormDef([]byte(doc), name); err == nil {
				t.Fatal("want error")
			}
		})
	}
}

func TestRenderNeverEchoesPassword(t *testing.T) {
	fd, err := ParseFormDef([]byte(`
id: test/pw
fields:
  - {name: password, label: Password, type: password, required: true}
  - {name: phone, label: Phone, type: tel, autocomplete: tel}
`), "pw")
	if err != nil {
		t.Fatal(err)
	}
	register(fd)

	out, err := RenderForm("test/pw", RenderOptions{
		Prefill: map[string]string{"password": "hunter2", "phone": "98"},
		Errors:  []ErrorField{{Name: "password", Message: "Wrong."}},
	})
	if err != nil {
		t.Fatal(err)
	}
	doc, _ := goquery.NewDocumentFromReader(strings.NewReader(string(out)))
	pw := doc.Find("#fld-test-pw-password")
	if _, has := pw.Attr("value"); has {
		t.Error("password prefilled")
	}
	if v, _ := pw.Attr("aria-describedby"); v != "fld-test-pw-password-err" {
		t.Errorf("aria-describedby = %q", v)
	}
	if v, _ := doc.Find("#fld-test-pw-phone").Attr("inputmode"); v != "numeric" {
		t.Errorf("tel inputmode = %q", v)
	}
}

func TestFieldCheckRejects(t *testing.T) {
	tests := map[string]FieldDef{
		"reserved":       {Name: "csrf_token", Label: "x", Type: "text"},
		"select options": {Name: "a", Label: "A", Type: "select"},
		"no label":       {Name: "a", Type: "text"},
		"lengths":        {Name: "a", Label: "A", Type: "text", MinLength: 5, MaxLength: 2},
		"type":           {Name: "a", Label: "A", Type: "color"},
	}
	for name, f := range tests {
		t.Run(name, func(t *testing.T) {
			if err := f.check(); err == nil {
				t.Fatal("want error")
			}
		})
	}
}
