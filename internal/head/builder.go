// internal/head/builder.go
//
// The Builder collects everything that should appear inside a page's
// <head> element.  It is scoped to a single request.  Handlers and widgets
// push tags into the builder, then the theme's base layout decides where to
// emit each slice.
//
// Features
// --------
//   - SetTitle, SetSiteName – one <title>; the site name is appended.
//   - Description, Canonical – the two tags every directory page carries.
//   - Meta, Link, Script     – arbitrary pre-escaped tags, deduplicated.
//   - JSONLD, JSONLDValue    – structured data wrapped in
//     <script type="application/ld+json">…</script>.
//   - Render helpers         – concat methods that return template.HTML.
package head

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"html/template"
	"strings"
	"sync"
)

// Builder is guarded by a mutex so widgets rendering in parallel can still
// push tags safely.
type Builder struct {
	mu sync.Mutex

	title    string
	siteName string

	metas   []string
	links   []string
	scripts []string
	jsonLD  []string

	seen map[string]struct{}
}

func New() *Builder {
	return &Builder{seen: make(map[string]struct{})}
}

// ------------------------------------------------------------------
// Single-value helpers
// ------------------------------------------------------------------

// SetTitle overrides the page <title>.  The last caller wins.
func (b *Builder) SetTitle(t string) {
	b.mu.Lock()
	b.title = t
	b.mu.Unlock()
}

// SetSiteName sets the suffix appended to every title.
func (b *Builder) SetSiteName(n string) {
	b.mu.Lock()
	b.siteName = n
	b.mu.Unlock()
}

// SiteName returns the configured site name.
func (b *Builder) SiteName() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.siteName
}

// PageTitle is the plain title text, "Page | Site" or whichever half is set.
func (b *Builder) PageTitle() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case b.title != "" && b.siteName != "":
		return b.title + " | " + b.siteName
	case b.title != "":
		return b.title
	default:
		return b.siteName
	}
}

// Title returns a fully formed <title> tag or an empty string.
func (b *Builder) Title() template.HTML {
	t := b.PageTitle()
	if t == "" {
		return ""
	}
	return template.HTML("<title>" + template.HTMLEscapeString(t) + "</title>")
}

// Description adds <meta name="description">.  Text is escaped here.
func (b *Builder) Description(text string) {
	if text == "" {
		return
	}
	b.add("meta:description", &b.metas,
		`<meta name="description" content="`+template.HTMLEscapeString(text)+`">`)
}

// Canonical adds <link rel="canonical">.
func (b *Builder) Canonical(href string) {
	if href == "" {
		return
	}
	b.add("link:canonical", &b.links,
		`<link rel="canonical" href="`+template.HTMLEscapeString(href)+`">`)
}

// ------------------------------------------------------------------
// Slice helpers with deduplication
// ------------------------------------------------------------------

func (b *Builder) Meta(tag string)   { b.add("meta:"+tag, &b.metas, tag) }
func (b *Builder) Link(tag string)   { b.add("link:"+tag, &b.links, tag) }
func (b *Builder) Script(tag string) { b.add("script:"+tag, &b.scripts, tag) }
func (b *Builder) JSONLD(js string)  { b.add("jsonld:"+hash(js), &b.jsonLD, js) }

// JSONLDValue marshals v and adds it as a JSON-LD block.  encoding/json
// escapes <, >, and & so a value can never close the script element.
func (b *Builder) JSONLDValue(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b.JSONLD(string(raw))
	return nil
}

func (b *Builder) add(key string, tgt *[]string, tag string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, dup := b.seen[key]; dup {
		return
	}
	b.seen[key] = struct{}{}
	*tgt = append(*tgt, tag)
}

// hash creates a short, stable key for JSON-LD strings.
func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}

// ------------------------------------------------------------------
// Rendering helpers called from theme templates
// ------------------------------------------------------------------

func (b *Builder) Metas() template.HTML   { return b.concat(b.metas) }
func (b *Builder) Links() template.HTML   { return b.concat(b.links) }
func (b *Builder) Scripts() template.HTML { return b.concat(b.scripts) }

// JSON returns all JSON-LD blocks wrapped in <script> tags.
func (b *Builder) JSON() template.HTML {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.jsonLD) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, js := range b.jsonLD {
		sb.WriteString(`<script type="application/ld+json">`)
		sb.WriteString(js)
		sb.WriteString(`</script>`)
	}
	return template.HTML(sb.String())
}

// concat joins pre-escaped tags without a separator.
func (b *Builder) concat(sl []string) template.HTML {
	b.mu.Lock()
	defer b.mu.Unlock()
	return template.HTML(strings.Join(sl, ""))
}
