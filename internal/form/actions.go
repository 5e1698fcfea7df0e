// internal/form/actions.go
//
// Forms subsystem: post-submit actions.
//
// Context
//   A FormDef may declare default actions.  ExecuteActions dispatches them
//   after validation succeeds and before the handler talks to the backend.
//   Two types exist:
//
//     event  publishes a message.Event of the configured kind on the bus.
//            Params: kind (required, a known message.Kind), subject_field
//            (optional, a field whose clean value becomes Event.Subject).
//     log    writes one INFO line with the form id and field names, never
//            values, so passwords stay out of the log.
//
//   Actions never fail the request.  Errors are logged and the flow goes on.
//
//------------------------------------------------------------------------------

package form

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/yanizio/bizdir/internal/logger"
	"github.com/yanizio/bizdir/internal/message"
)

// ActionCtx carries request-scoped helpers for action execution.  A nil Bus
// turns event actions into no-ops.
type ActionCtx struct {
	Ctx    context.Context
	Bus    *message.Bus
	UserID string
}

// ExecuteActions performs all YAML-declared actions for formID.
func ExecuteActions(formID string, data map[string]any, actx ActionCtx) {
	fd, ok := GetFormDef(formID)
	if !ok || len(fd.Actions) == 0 {
		return
	}
	if actx.Ctx == nil {
		actx.Ctx = context.Background()
	}

	for _, ac := range fd.Actions {
		var err error
		switch ac.Type {
		case "event":
			err = runEvent(fd, ac.Params, data, actx)
		case "log":
			runLog(fd, data, actx)
		default:
			err = fmt.Errorf("unsupported action %q", ac.Type)
		}
		if err != nil {
			logger.FromContext(actx.Ctx).Warn("form action failed",
				zap.String("form", fd.ID),
				zap.String("action", ac.Type),
				zap.Error(err))
		}
	}
}

// validateAction runs at load time.
func validateAction(ac ActionDef) error {
	switch ac.Type {
	case "event":
		kind, _ := ac.Params["kind"].(string)
		if kind == "" {
			return errors.New("event action requires 'kind'")
		}
		if !message.Known(message.Kind(kind)) {
			return fmt.Errorf("unknown event kind %q", kind)
		}
		return nil
	case "log":
		return nil
	default:
		return fmt.Errorf("unrecognized action type %q", ac.Type)
	}
}

// -----------------------------------------------------------------------------
// Event action
// -----------------------------------------------------------------------------

func runEvent(fd *FormDef, p map[string]any, data map[string]any, actx ActionCtx) error {
	if actx.Bus == nil {
		return nil
	}
	kind, _ := p["kind"].(string)
	ev := message.Event{
		Kind:    message.Kind(kind),
		UserID:  actx.UserID,
		Subject: fd.ID,
		Detail:  map[string]string{"form": fd.ID},
	}
	if field, _ := p["subject_field"].(string); field != "" {
		if v, ok := data[field]; ok {
			ev.Subject = fmt.Sprint(v)
		}
	}
	actx.Bus.Publish(actx.Ctx, ev)
	return nil
}

// -----------------------------------------------------------------------------
// Log action
// -----------------------------------------------------------------------------

func runLog(fd *FormDef, data map[string]any, actx ActionCtx) {
	names := make([]string, 0, len(data))
	for k := range data {
		names = append(names, k)
	}
	sort.Strings(names)
	logger.FromContext(actx.Ctx).Info("form submitted",
		zap.String("form", fd.ID),
		zap.Strings("fields", names))
}
