// internal/form/definition.go
//
// Forms subsystem: YAML definitions and the form registry.
//
// Context
//   bizdir's forms (login, signup, logout, review) are declared in YAML next
//   to the component that owns them.  A definition names the form, lists its
//   fields in display order, and lists the actions to run once a submission
//   validates.  Components hand their embedded "forms/" directory to
//   RegisterFS at boot; cmd/web then calls RegisterDir on the active theme's
//   "forms/" directory so a theme can replace any form by reusing its id.
//
// Schema
//
//	id: review/submit          # "<component>/<name>", required
//	title: Write a review
//	min_fill: 2s               # fastest plausible human submit (default 2s)
//	fields:
//	  - name: rating           # post key, required, unique
//	    label: Rating          # required unless hidden
//	    type: select           # see fieldTypes
//	    options: ["5", "4"]    # required for select and radio
//	    required: true
//	    minlength / maxlength / pattern / placeholder / autocomplete / error
//	actions:
//	  - type: event            # see actions.go
//	    kind: review.submitted
//
// Notes
//   •  Everything a bad definition can get wrong is checked in ParseFormDef,
//      so a typo stops the boot instead of surfacing on a visitor's submit.
//   •  Patterns are compiled once, anchored like the HTML pattern attribute.
//   •  Full sentences, two spaces after periods, Oxford commas.
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultMinFill applies when a form sets no min_fill.
const DefaultMinFill = 2 * time.Second

// fieldTypes are the input types the renderer and validator understand.
var fieldTypes = map[string]bool{
	"text": true, "textarea": true, "email": true, "tel": true,
	"password": true, "number": true, "date": true, "hidden": true,
	"select": true, "radio": true, "checkbox": true,
}

// FormDef is one parsed YAML definition.
type FormDef struct {
	ID      string      `yaml:"id"`
	Title   string      `yaml:"title"`
	MinFill string      `yaml:"min_fill"`
	Fields  []FieldDef  `yaml:"fields"`
	Actions []ActionDef `yaml:"actions"`

	minFill time.Duration
}

// FieldDef describes one input.  Validation rules live inline so the server
// enforces what the HTML attributes only hint at.
type FieldDef struct {
	Name         string   `yaml:"name"`
	Label        string   `yaml:"label"`
	Type         string   `yaml:"type"`
	Placeholder  string   `yaml:"placeholder"`
	Autocomplete string   `yaml:"autocomplete"`
	Required     bool     `yaml:"required"`
	MinLength    int      `yaml:"minlength"`
	MaxLength    int      `yaml:"maxlength"`
	Pattern      string   `yaml:"pattern"`
	Options      []string `yaml:"options"`
	ErrorMsg     string   `yaml:"error"`

	re *regexp.Regexp // Pattern, anchored
}

// ActionDef configures one post-submit action.  Params hold the remaining
// keys inline; validateAction checks what each type needs.
type ActionDef struct {
	Type   string         `yaml:"type"`
	Params map[string]any `yaml:",inline"`
}

/*──────────────────────────── registry ────────────────────────────────────*/

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*FormDef)
)

// GetFormDef returns the definition registered under id.
func GetFormDef(id string) (*FormDef, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	fd, ok := registry[id]
	return fd, ok
}

// register stores fd, replacing any earlier definition with the same id, and
// exposes it as a widget of the same key.
func register(fd *FormDef) {
	registryMu.Lock()
	registry[fd.ID] = fd
	registryMu.Unlock()
	registerWidget(fd.ID)
}

/*──────────────────────────── loading ─────────────────────────────────────*/

// ParseFormDef parses and checks one YAML document.  src names it in errors.
// The registry is not touched.
func ParseFormDef(raw []byte, src string) (*FormDef, error) {
	var fd FormDef
	if err := yaml.Unmarshal(raw, &fd); err != nil {
		return nil, fmt.Errorf("form %s: parse: %w", src, err)
	}
	if err := fd.check(src); err != nil {
		return nil, err
	}
	return &fd, nil
}

// RegisterFS registers every *.yaml below dir in fsys.  A missing dir
// registers nothing.
func RegisterFS(fsys fs.FS, dir string) error {
	err := fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".yaml") {
			return nil
		}
		raw, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("form %s: read: %w", p, err)
		}
		fd, err := ParseFormDef(raw, p)
		if err != nil {
			return err
		}
		register(fd)
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// RegisterDir is RegisterFS over an OS directory.
func RegisterDir(dir string) error {
	if dir == "" {
		return errors.New("form: RegisterDir: empty directory")
	}
	return RegisterFS(os.DirFS(dir), ".")
}

/*──────────────────────────── checks ──────────────────────────────────────*/

func (fd *FormDef) check(src string) error {
	if fd.ID == "" {
		return fmt.Errorf("form %s: missing id", src)
	}
	if len(fd.Fields) == 0 {
		return fmt.Errorf("form %s: no fields", src)
	}

	fd.minFill = DefaultMinFill
	if fd.MinFill != "" {
		d, err := time.ParseDuration(fd.MinFill)
		if err != nil || d < 0 {
			return fmt.Errorf("form %s: bad min_fill %q", src, fd.MinFill)
		}
		fd.minFill = d
	}

	seen := make(map[string]bool, len(fd.Fields))
	for i := range fd.Fields {
		f := &fd.Fields[i]
		if err := f.check(); err != nil {
			return fmt.Errorf("form %s: %w", src, err)
		}
		if seen[f.Name] {
			return fmt.Errorf("form %s: duplicate field %q", src, f.Name)
		}
		seen[f.Name] = true
	}

	for i, ac := range fd.Actions {
		if err := validateAction(ac); err != nil {
			return fmt.Errorf("form %s: action %d: %w", src, i, err)
		}
	}
	return nil
}

func (f *FieldDef) check() error {
	switch {
	case f.Name == "":
		return errors.New("field without name")
	case f.Name == "csrf_token" || f.Name == "render_ts":
		return fmt.Errorf("field %q: reserved name", f.Name)
	case !fieldTypes[f.Type]:
		return fmt.Errorf("field %q: unknown type %q", f.Name, f.Type)
	case f.Label == "" && f.Type != "hidden":
		return fmt.Errorf("field %q: missing label", f.Name)
	case f.MinLength < 0 || f.MaxLength < 0:
		return fmt.Errorf("field %q: negative length", f.Name)
	case f.MaxLength > 0 && f.MinLength > f.MaxLength:
		return fmt.Errorf("field %q: minlength above maxlength", f.Name)
	case (f.Type == "select" || f.Type == "radio") && len(f.Options) == 0:
		return fmt.Errorf("field %q: %s needs options", f.Name, f.Type)
	}
	if f.Pattern != "" {
		re, err := regexp.Compile(`^(?:` + f.Pattern + `)$`)
		if err != nil {
			return fmt.Errorf("field %q: pattern: %w", f.Name, err)
		}
		f.re = re
	}
	return nil
}
