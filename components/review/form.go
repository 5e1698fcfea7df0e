package review

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	sessctx "github.com/yanizio/bizdir/internal/auth"
	"github.com/yanizio/bizdir/internal/form"
	"github.com/yanizio/bizdir/internal/logger"
	"github.com/yanizio/bizdir/internal/message"
	"github.com/yanizio/bizdir/internal/requestinfo"
	"github.com/yanizio/bizdir/internal/routing"
	"github.com/yanizio/bizdir/internal/session"
)

var validate = validator.New()

// Submission is the JSON body the form post sends to submit_review.php.
type Submission struct {
	BusinessID string `json:"business_id" validate:"required,max=32"`
	UserID     string `json:"user_id,omitempty"`
	Token      string `json:"token"       validate:"required"`
	Rating     int    `json:"rating"      validate:"min=1,max=5"`
	Comment    string `json:"comment"     validate:"required,max=2000"`
}

const (
	msgThanks  = "Thank you.  Your review was submitted."
	msgInvalid = "Please choose a rating and write a short review."
	msgFailed  = "We could not submit your review.  Please try again."
)

func (c *Component) formSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if requestinfo.IsBot(ctx) {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	next := backTo(r.PostFormValue("next"), "/business/"+url.PathEscape(id))

	s := sessctx.Session(ctx)
	if !s.LoggedIn() {
		s.SetFlash(session.FlashLogin, "1")
		commit(w, r)
		c.publish(ctx, message.Event{Kind: message.LoginRequired, Subject: id})
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}
	uid, _ := sessctx.UserID(ctx)

	data, err := form.HandleSubmit("review/submit", r, form.ActionCtx{Bus: c.bus, UserID: uid})
	if err != nil {
		c.finish(w, r, next, msgInvalid)
		return
	}
	rating, _ := strconv.Atoi(form.String(data, "rating"))
	sub := Submission{
		BusinessID: id,
		UserID:     uid,
		Token:      s.AuthToken,
		Rating:     rating,
		Comment:    form.String(data, "comment"),
	}
	if err := validate.Struct(sub); err != nil {
		c.finish(w, r, next, msgInvalid)
		return
	}
	body, err := json.Marshal(sub)
	if err != nil {
		logger.FromContext(ctx).Error("review encode failed", zap.Error(err))
		c.finish(w, r, next, msgFailed)
		return
	}

	relay, err := c.backend.SubmitReview(ctx, body)
	if err != nil {
		logger.FromContext(ctx).Warn("review submit failed", zap.Error(err))
		c.publish(ctx, message.Event{Kind: message.ReviewFailed, UserID: uid, Subject: id,
			Detail: map[string]string{"reason": "transport"}})
		c.finish(w, r, next, msgFailed)
		return
	}
	if ok, msg := accepted(relay.Status, relay.Body); !ok {
		c.publish(ctx, message.Event{Kind: message.ReviewFailed, UserID: uid, Subject: id,
			Detail: map[string]string{"status": strconv.Itoa(relay.Status)}})
		if msg == "" {
			msg = msgFailed
		}
		c.finish(w, r, next, msg)
		return
	}
	c.publish(ctx, message.Event{Kind: message.ReviewSubmitted, UserID: uid, Subject: id,
		Detail: map[string]string{"rating": strconv.Itoa(rating)}})
	c.finish(w, r, next, msgThanks)
}

// finish flashes msg and sends the visitor back to the business page.
func (c *Component) finish(w http.ResponseWriter, r *http.Request, next, msg string) {
	sessctx.Session(r.Context()).SetFlash(session.FlashNotice, msg)
	commit(w, r)
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// accepted reads submit_review.php's envelope.  A 2xx without a JSON body
// counts as failure; the backend message, if any, is returned for display.
func accepted(status int, body []byte) (bool, string) {
	var env map[string]any
	if err := json.Unmarshal(body, &env); err != nil {
		return false, ""
	}
	msg, _ := env["message"].(string)
	if status < 200 || status >= 300 {
		return false, msg
	}
	if st, ok := env["status"].(string); ok && !strings.EqualFold(st, "success") {
		return false, msg
	}
	if b, ok := env["success"].(bool); ok && !b {
		return false, msg
	}
	return true, msg
}

// backTo keeps next when it points at a business page, else fallback.
func backTo(next, fallback string) string {
	if n := routing.SafeNext(next); strings.HasPrefix(n, "/business/") {
		return n
	}
	return fallback
}

func commit(w http.ResponseWriter, r *http.Request) {
	if err := sessctx.Commit(w, r); err != nil {
		logger.FromContext(r.Context()).Warn("session commit failed", zap.Error(err))
	}
}
