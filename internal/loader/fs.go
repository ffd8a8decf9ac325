package loader

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/zym-lang/zym/internal/linemap"
)

// FileReader returns a ReadFunc that reads logical loader paths directly off
// the real filesystem, rooted at root and qualified with ext (config's
// SourceFileExt, ".zym", in the normal case) when the path doesn't already
// carry an extension. It never builds a line map of its own, so the loader
// treats every line of the file as originating at that file's own line
// numbers — the common case for files that haven't already passed through
// some other line-mapping stage. This is the convenience a real embedder
// (cmd/zym) reaches for; the core Loader stays filesystem-agnostic so it
// runs equally well against an in-memory module set, e.g. in tests.
func FileReader(root, ext string) ReadFunc {
	return func(path string) ([]byte, *linemap.Map, error) {
		rel := path
		if filepath.Ext(rel) == "" && ext != "" {
			rel += ext
		}
		full := filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(rel, "/")))
		src, err := os.ReadFile(full)
		if err != nil {
			return nil, nil, err
		}
		return src, nil, nil
	}
}
