// internal/backend/auth.go
//
// Write endpoints: login, registration, and review relay.
//
// Context
// -------
// The PHP API answers login and registration with a loose envelope:
//
//	{"status":"success","token":"…","user":{…}}
//	{"status":"error","message":"Invalid credentials"}
//
// Some deployments return `id` instead of `token`, others put the profile
// under `data`.  AuthResult flattens those variants.  A non-2xx answer that
// still carries a JSON envelope is reported as an unsuccessful AuthResult
// rather than an error, so handlers can show the backend's message.
//
// Review submissions are relayed verbatim: status and body go back to the
// browser untouched and only transport failures are errors.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// AuthResult is the flattened login/registration envelope.
type AuthResult struct {
	OK      bool
	Token   string
	UserID  string
	Message string
	User    map[string]any
}

// Registration is the JSON profile sent to register.php.
type Registration struct {
	Name     string `json:"name"     validate:"required,max=100"`
	Mobile   string `json:"mobile"   validate:"required,numeric,min=10,max=13"`
	Email    string `json:"email"    validate:"omitempty,email"`
	City     string `json:"city"     validate:"omitempty,max=80"`
	Password string `json:"password" validate:"required,min=6"`
}

// Relay is an upstream answer passed through without interpretation.
type Relay struct {
	Status      int
	ContentType string
	Body        []byte
}

// Login posts mobile and password as a form.
func (c *Client) Login(ctx context.Context, mobile, password string) (*AuthResult, error) {
	req := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{"mobile": mobile, "password": password})
	body, err := c.do(ctx, PathLogin, req, postMethod)
	return authResult(body, err)
}

// Register validates reg and posts it as JSON.
func (c *Client) Register(ctx context.Context, reg Registration) (*AuthResult, error) {
	if err := validate.Struct(reg); err != nil {
		return nil, fmt.Errorf("backend: registration: %w", err)
	}
	req := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reg)
	body, err := c.do(ctx, PathRegister, req, postMethod)
	return authResult(body, err)
}

// SubmitReview forwards a JSON review body and relays the answer.
func (c *Client) SubmitReview(ctx context.Context, body []byte) (*Relay, error) {
	req := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body)
	resp, err := c.exec(ctx, PathSubmitReview, req, postMethod)
	if err != nil {
		return nil, err
	}
	return &Relay{
		Status:      resp.StatusCode(),
		ContentType: resp.Header().Get("Content-Type"),
		Body:        resp.Bytes(),
	}, nil
}

/*──────────────────────────── envelope decoding ───────────────────────────*/

// authResult decodes body, or the body attached to a *StatusError.
func authResult(body []byte, err error) (*AuthResult, error) {
	if err != nil {
		var se *StatusError
		if !errors.As(err, &se) {
			return nil, err
		}
		res, perr := parseAuth(se.Body)
		if perr != nil {
			return nil, err
		}
		res.OK = false
		return res, nil
	}
	return parseAuth(body)
}

func parseAuth(body []byte) (*AuthResult, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("backend: auth envelope: %w", err)
	}

	res := &AuthResult{
		Token:   scalar(raw["token"]),
		Message: scalar(raw["message"]),
	}
	if strings.EqualFold(scalar(raw["status"]), "success") {
		res.OK = true
	}
	if b, ok := raw["success"].(bool); ok && b {
		res.OK = true
	}

	for _, key := range []string{"user", "data"} {
		if u, ok := raw[key].(map[string]any); ok {
			res.User = u
			break
		}
	}

	res.UserID = scalar(raw["id"])
	if res.UserID == "" && res.User != nil {
		for _, key := range []string{"id", "user_id", "userId"} {
			if id := scalar(res.User[key]); id != "" {
				res.UserID = id
				break
			}
		}
	}
	if res.Token == "" && res.User != nil {
		res.Token = scalar(res.User["token"])
	}
	// Older login.php builds answer with only an id.
	if res.Token == "" {
		res.Token = res.UserID
	}
	return res, nil
}

// scalar renders JSON strings and numbers as text; anything else is "".
func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}
