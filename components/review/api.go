package review

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	sessctx "github.com/yanizio/bizdir/internal/auth"
	"github.com/yanizio/bizdir/internal/logger"
	"github.com/yanizio/bizdir/internal/message"
	"github.com/yanizio/bizdir/internal/requestinfo"
)

// maxBody caps what a browser may post to the proxy.
const maxBody = 64 << 10

type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (c *Component) apiSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if requestinfo.IsBot(ctx) {
		writeError(w, r, http.StatusForbidden, "automated submissions are not accepted")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "review too large")
			return
		}
		writeError(w, r, http.StatusBadRequest, "could not read request body")
		return
	}
	payload, err := withSession(r, body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "request body must be a JSON object")
		return
	}

	uid, _ := sessctx.UserID(ctx)
	subject := businessOf(payload)

	relay, err := c.backend.SubmitReview(ctx, payload)
	if err != nil {
		logger.FromContext(ctx).Warn("review relay failed", zap.Error(err))
		c.publish(ctx, message.Event{Kind: message.ReviewFailed, UserID: uid, Subject: subject,
			Detail: map[string]string{"reason": "transport"}})
		writeError(w, r, http.StatusBadGateway, "review service unreachable")
		return
	}

	ok := relay.Status >= 200 && relay.Status < 300
	if len(bytes.TrimSpace(relay.Body)) == 0 || !json.Valid(relay.Body) {
		status := relay.Status
		if ok {
			status = http.StatusBadGateway
		}
		msg := "empty response from review service"
		if len(bytes.TrimSpace(relay.Body)) != 0 {
			msg = "invalid response from review service"
		}
		logger.FromContext(ctx).Warn("review relay unusable body",
			zap.Int("upstream_status", relay.Status), zap.Int("bytes", len(relay.Body)))
		c.publish(ctx, message.Event{Kind: message.ReviewFailed, UserID: uid, Subject: subject,
			Detail: map[string]string{"reason": "body", "status": strconv.Itoa(relay.Status)}})
		writeError(w, r, status, msg)
		return
	}

	kind := message.ReviewSubmitted
	if !ok {
		kind = message.ReviewFailed
	}
	c.publish(ctx, message.Event{Kind: kind, UserID: uid, Subject: subject,
		Detail: map[string]string{"status": strconv.Itoa(relay.Status)}})

	ct := relay.ContentType
	if ct == "" {
		ct = "application/json"
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(relay.Status)
	_, _ = w.Write(relay.Body)
}

// withSession checks that body is a JSON object and adds the visitor's
// user id and token when the browser did not send them.  The token lives
// in the session cookie, out of reach of page scripts.
func withSession(r *http.Request, body []byte) ([]byte, error) {
	var obj map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, errors.New("review: body is not a JSON object")
	}
	s := sessctx.Session(r.Context())
	if !s.LoggedIn() {
		return body, nil
	}
	changed := false
	if _, has := obj["token"]; !has {
		obj["token"] = s.AuthToken
		changed = true
	}
	if uid, ok := sessctx.UserID(r.Context()); ok {
		if _, has := obj["user_id"]; !has {
			obj["user_id"] = uid
			changed = true
		}
	}
	if !changed {
		return body, nil
	}
	return json.Marshal(obj)
}

// businessOf extracts business_id for event subjects.  Missing is "".
func businessOf(payload []byte) string {
	var obj map[string]any
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil {
		return ""
	}
	switch v := obj["business_id"].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	}
	return ""
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Status: "error", Message: msg}); err != nil {
		logger.FromContext(r.Context()).Warn("json encode failed", zap.Error(err))
	}
}
