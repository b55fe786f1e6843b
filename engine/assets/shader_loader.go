package assets

import (
	"fmt"
	"io/fs"
	"strings"
)

// LoadShader reads the shading function of a custom program from fsys.
// The file holds the body of `vec4 shade(vec2 uv)`; blank lines and
// `//` comment lines are kept, trailing NULs are stripped.
func LoadShader(fsys fs.FS, name string) (string, error) {
	b, err := fs.ReadFile(fsys, name)
	if err != nil {
		return "", fmt.Errorf("load shader %q: %w", name, err)
	}
	src := strings.TrimRight(string(b), "\x00")
	if strings.TrimSpace(src) == "" {
		return "", fmt.Errorf("load shader %q: empty source", name)
	}
	return src, nil
}
