package view

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/PuerkitoBio/goquery"

	"github.com/yanizio/bizdir/internal/page"
	"github.com/yanizio/bizdir/internal/theme"
	"github.com/yanizio/bizdir/internal/widget"
)

var layoutFS = fstest.MapFS{
	"templates/layout.html": {Data: []byte(
		`{{ define "layout" }}<html><head>{{ .Head.Title }}</head><body>` +
			`<nav>{{ widget .Ctx "test/hello" (dict "who" "nav") }}</nav>` +
			`<main>{{ template "content" . }}</main></body></html>{{ end }}`)},
}

var compFS = fstest.MapFS{
	"templates/_card.html": {Data: []byte(`{{ define "card" }}<li class="card">{{ . }}</li>{{ end }}`)},
	"templates/list.html": {Data: []byte(
		`{{ define "content" }}<ul>{{ range .Data }}{{ template "card" . }}{{ end }}</ul>{{ end }}`)},
	"templates/snippet.html": {Data: []byte(`<b>{{ .Data }}</b>`)},
}

type helloWidget struct{}

func (helloWidget) ID() string { return "test/hello" }
func (helloWidget) Render(_ *page.Context, p map[string]any) (string, int, error) {
	return "hello " + p["who"].(string), int(CacheDefault), nil
}

func init() { widget.Register(helloWidget{}) }

func newEngine(layers ...fstest.MapFS) *Engine {
	th := theme.New("test")
	for _, l := range layers {
		th.Layers = append(th.Layers, l)
	}
	th.Layers = append(th.Layers, layoutFS)
	e := New(th, 16)
	e.Register("shop", compFS)
	return e
}

func newPage(path string) (*page.Context, *httptest.ResponseRecorder) {
	rr := httptest.NewRecorder()
	return page.New(rr, httptest.NewRequest(http.MethodGet, path, nil)), rr
}

func TestRenderWrapsLayout(t *testing.T) {
	e := newEngine()
	pc, rr := newPage("/shop")
	pc.Head.SetTitle("Shops")

	if err := e.Render(pc, rr, "shop", "list", []string{"a", "b"}, CacheDefault); err != nil {
		t.Fatalf("Render: %v", err)
	}
	doc, err := goquery.NewDocumentFromReader(rr.Body)
	if err != nil {
		t.Fatal(err)
	}
	if got := doc.Find("title").Text(); got != "Shops" {
		t.Errorf("title = %q", got)
	}
	if got := doc.Find("main li.card").Length(); got != 2 {
		t.Errorf("cards = %d, want 2", got)
	}
	if got := doc.Find("nav").Text(); got != "hello nav" {
		t.Errorf("widget = %q", got)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestThemeOverrideWins(t *testing.T) {
	override := fstest.MapFS{
		"components/shop/templates/snippet.html": {Data: []byte(`<i>{{ .Data }}</i>`)},
	}
	e := newEngine(override)
	pc, _ := newPage("/")

	got, _, err := e.RenderToString(pc, "shop", "snippet", "x")
	if err != nil {
		t.Fatal(err)
	}
	if got != "<i>x</i>" {
		t.Fatalf("RenderToString = %q", got)
	}
}

func TestRenderToStringFromComponent(t *testing.T) {
	e := newEngine()
	pc, _ := newPage("/")
	got, policy, err := e.RenderToString(pc, "shop", "snippet", "<x>")
	if err != nil {
		t.Fatal(err)
	}
	if got != "<b>&lt;x&gt;</b>" || policy != CacheDefault {
		t.Fatalf("got %q policy %d", got, policy)
	}
}

func TestMissingTemplate(t *testing.T) {
	e := newEngine()
	pc, rr := newPage("/")
	err := e.Render(pc, rr, "shop", "nope", nil, CacheDefault)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if rr.Body.Len() != 0 {
		t.Fatalf("body written on failure: %q", rr.Body.String())
	}
}

func TestErrorPage(t *testing.T) {
	e := newEngine()
	pc, rr := newPage("/category/nowhere/cat0")
	e.Error(pc, rr, http.StatusNotFound, "Category not found.")

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
	doc, _ := goquery.NewDocumentFromReader(rr.Body)
	if got := doc.Find("main p").First().Text(); got != "Category not found." {
		t.Fatalf("message = %q", got)
	}
}

func TestEmbeddedBaseThemeRenders(t *testing.T) {
	e := New(theme.Base(), 8)
	e.Register("shop", compFS)
	pc, rr := newPage("/")
	if err := e.Render(pc, rr, "shop", "list", []string{"a"}, CacheSkip); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if rr.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("CacheSkip should disable caching")
	}
	doc, _ := goquery.NewDocumentFromReader(rr.Body)
	if doc.Find(`link[href="/themes/base/assets/css/site.css"]`).Length() != 1 {
		t.Errorf("stylesheet link missing")
	}
}
