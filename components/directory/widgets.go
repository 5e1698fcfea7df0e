package directory

import (
	"github.com/yanizio/bizdir/internal/page"
	"github.com/yanizio/bizdir/internal/view"
	"github.com/yanizio/bizdir/internal/widget"
)

var _ widget.Widget = (*categoriesWidget)(nil)

// categoriesWidget lists top-level categories.  Params: "limit" (int).
//
//	{{ widget .Ctx "directory/categories" (dict "limit" 8) }}
type categoriesWidget struct{ c *Component }

func (w *categoriesWidget) ID() string { return "directory/categories" }

func (w *categoriesWidget) Render(pc *page.Context, params map[string]any) (string, int, error) {
	limit, _ := params["limit"].(int)
	links := categoryLinks(w.c.catalog.Entries(pc.Request.Context()), limit)
	html, policy, err := w.c.view.RenderToString(pc, "directory", "widget_categories", links)
	if err != nil {
		return "", int(view.CacheSkip), err
	}
	return string(html), int(policy), nil
}
