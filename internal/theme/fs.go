// fs.go holds a tiny helper for collecting template files when glob
// patterns such as "**/*.html" are not available in the standard library.
package theme

import (
	"errors"
	"io/fs"
	"path"
	"strings"
)

// CollectHTML walks dir inside fsys and returns every *.html path whose base
// name passes keep (nil keeps all).  Missing directories yield nil, nil.
//
//	partials, _ := CollectHTML(layer, "templates", IsPartial)
//	tpl.ParseFS(layer, partials...)
func CollectHTML(fsys fs.FS, dir string, keep func(string) bool) ([]string, error) {
	var files []string
	err := fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".html") {
			return nil
		}
		if keep == nil || keep(path.Base(p)) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return files, nil
}

// IsPartial reports the "_name.html" convention for shared sub-templates.
func IsPartial(name string) bool { return strings.HasPrefix(name, "_") }
