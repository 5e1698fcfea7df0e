// components/review/review.go
//
// Review component: JSON proxy and HTML form post.
//
// Context
// -------
// Reviews are stored by submit_review.php.  bizdir never interprets them;
// it relays.  Two entry points exist:
//
//   POST /api/reviews               same-origin proxy for browser scripts.
//                                   The JSON body goes upstream as-is
//                                   (plus the session's user id and token),
//                                   and status and body come back verbatim.
//   POST /business/{id}/review      the no-script form on the business page.
//                                   Anonymous visitors get the login flash
//                                   and are sent back; logged-in visitors
//                                   submit and return with a notice.
//
// Every outcome is published on the bus as review.submitted or
// review.failed.  Requests classified as bots are refused with 403.
//
// Notes
// -----
// • An upstream body that is empty or not JSON is replaced by an error
//   envelope.  When upstream claimed 2xx the proxy answers 502 instead.
// • Oxford commas, two spaces after periods.
//
//------------------------------------------------------------------------------

package review

import (
	"context"
	"embed"
	"errors"
	"io/fs"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/bizdir/internal/backend"
	"github.com/yanizio/bizdir/internal/component"
	"github.com/yanizio/bizdir/internal/message"
)

//go:embed forms
var files embed.FS

// Compile-time assertions.
var (
	_ component.Component    = (*Component)(nil)
	_ component.Initializer  = (*Component)(nil)
	_ component.FormProvider = (*Component)(nil)
)

// Backend is satisfied by *backend.Client.
type Backend interface {
	SubmitReview(ctx context.Context, body []byte) (*backend.Relay, error)
}

// Component relays reviews to the backend.
type Component struct {
	backend Backend
	bus     *message.Bus
}

// Name returns the canonical component key.
func (c *Component) Name() string { return "review" }

// Forms exposes forms/.
func (c *Component) Forms() fs.FS { return files }

// Init wires the backend and bus.  Without d.Backend a backend set
// beforehand (tests) is used.
func (c *Component) Init(d component.Deps) error {
	if d.Backend != nil {
		c.backend = d.Backend
	}
	if c.backend == nil {
		return errors.New("review: backend is required")
	}
	c.bus = d.Bus
	return nil
}

// Routes registers the proxy and the form post.
func (c *Component) Routes(r chi.Router) {
	r.Post("/api/reviews", c.apiSubmit)
	r.Post("/business/{id}/review", c.formSubmit)
}

func (c *Component) publish(ctx context.Context, ev message.Event) {
	if c.bus != nil {
		c.bus.Publish(ctx, ev)
	}
}

// Register component at program start.
func init() { component.Register(&Component{}) }
