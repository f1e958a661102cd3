package luaengine

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileLoader is a Loader backed by a directory of `<script>.lua` files
// (SPEC_FULL.md §4.11: production wiring resolves script names against
// an on-disk tree the same way resourcedb/memstore resolves its own
// fixture, rather than embedding scripts in the binary).
type FileLoader struct {
	dir string
}

// NewFileLoader builds a FileLoader rooted at dir.
func NewFileLoader(dir string) FileLoader {
	return FileLoader{dir: dir}
}

func (l FileLoader) Load(script string) (string, error) {
	path := filepath.Join(l.dir, script+".lua")
	src, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("luaengine: load %q: %w", script, err)
	}
	return string(src), nil
}

var _ Loader = FileLoader{}
