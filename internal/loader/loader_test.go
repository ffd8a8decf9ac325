package loader

import (
	"strings"
	"testing"

	"github.com/zym-lang/zym/internal/linemap"
)

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"a/b/c":     "a/b/c",
		"a/./b":     "a/b",
		"a/b/../c":  "a/c",
		"../a":      "../a",
		"../../a":   "../../a",
		"a/../../b": "../b",
		"/a/b/../c": "/a/c",
		`a\b\c`:     "a/b/c",
	}
	for in, want := range cases {
		if got := normalizePath(in); got != want {
			t.Errorf("normalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolveImportPath(t *testing.T) {
	cases := []struct{ dir, literal, want string }{
		{"a/b", "c.zym", "a/b/c.zym"},
		{"a/b", "../c.zym", "a/c.zym"},
		{"", "c.zym", "c.zym"},
		{"a/b", "/root.zym", "/root.zym"},
	}
	for _, c := range cases {
		if got := resolveImportPath(c.dir, c.literal); got != c.want {
			t.Errorf("resolveImportPath(%q, %q) = %q, want %q", c.dir, c.literal, got, c.want)
		}
	}
}

func TestFactoryNameRoundTrip(t *testing.T) {
	path := "util/math-helpers.zym"
	encoded := encodeFactoryName(path)
	decoded, ok := decodeFactoryName(encoded)
	if !ok {
		t.Fatalf("decodeFactoryName(%q) reported not-ours", encoded)
	}
	if decoded != path {
		t.Fatalf("round trip: got %q, want %q", decoded, path)
	}

	hashed := hashFactoryName(path)
	if _, ok := decodeFactoryName(hashed); ok {
		t.Fatalf("hashed factory name %q should not decode", hashed)
	}
}

// memReader builds a ReadFunc over an in-memory module set, for tests that
// don't want to touch a real filesystem.
func memReader(files map[string]string) ReadFunc {
	return func(path string) ([]byte, *linemap.Map, error) {
		src, ok := files[path]
		if !ok {
			return nil, nil, &notFoundErr{path}
		}
		return []byte(src), nil, nil
	}
}

type notFoundErr struct{ path string }

func (e *notFoundErr) Error() string { return "module not found: " + e.path }

func TestLoadStitchesTwoModules(t *testing.T) {
	files := map[string]string{
		"main.zym": "import(\"util.zym\")\nprint(1)\n",
		"util.zym": "var x = 1\n",
	}
	l := NewLoader(Options{Read: memReader(files)})
	res, err := l.Load("main.zym")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(res.ModuleOrder) != 2 || res.ModuleOrder[0] != "main.zym" || res.ModuleOrder[1] != "util.zym" {
		t.Fatalf("unexpected module order: %v", res.ModuleOrder)
	}
	if strings.Contains(res.Source, `import(`) {
		t.Fatalf("import call not rewritten:\n%s", res.Source)
	}
	if !strings.Contains(res.Source, "func _") {
		t.Fatalf("expected a wrapped factory function in combined source:\n%s", res.Source)
	}
	wantLines := strings.Count(res.Source, "\n") + 1
	if res.LineMap.Len() != wantLines {
		t.Fatalf("line map length %d, want %d", res.LineMap.Len(), wantLines)
	}
}

func TestLoadDetectsCycle(t *testing.T) {
	files := map[string]string{
		"a.zym": "import(\"b.zym\")\n",
		"b.zym": "import(\"a.zym\")\n",
	}
	l := NewLoader(Options{Read: memReader(files)})
	_, err := l.Load("a.zym")
	if err == nil {
		t.Fatalf("expected a cycle error")
	}
	if !strings.Contains(err.Error(), "cycle") {
		t.Fatalf("expected cycle diagnostic, got: %v", err)
	}
}

func TestLoadDetectsDuplicateSymbolImport(t *testing.T) {
	files := map[string]string{
		"main.zym": "import a from \"a.zym\";\nimport a from \"b.zym\";\n",
		"a.zym":    "var v = 1\n",
		"b.zym":    "var v = 2\n",
	}
	l := NewLoader(Options{Read: memReader(files)})
	_, err := l.Load("main.zym")
	if err == nil {
		t.Fatalf("expected a duplicate-symbol error")
	}
	if !strings.Contains(err.Error(), "duplicate import") {
		t.Fatalf("expected duplicate-import diagnostic, got: %v", err)
	}
}

func TestLoadRewritesBoundSymbolCalls(t *testing.T) {
	files := map[string]string{
		"main.zym": "import helper from \"helper.zym\";\nhelper()\n",
		"helper.zym": "print(1)\n",
	}
	l := NewLoader(Options{Read: memReader(files)})
	res, err := l.Load("main.zym")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if strings.Contains(res.Source, "helper()") {
		t.Fatalf("bare symbol call was not rewritten to a factory call:\n%s", res.Source)
	}
	if strings.Contains(res.Source, "import helper") {
		t.Fatalf("import statement was not erased:\n%s", res.Source)
	}
}

func TestDebugManifestIsWrittenWhenRequested(t *testing.T) {
	files := map[string]string{
		"main.zym": "import(\"util.zym\")\n",
		"util.zym": "var x = 1\n",
	}
	l := NewLoader(Options{Read: memReader(files), WriteDebugOutput: true, DebugNames: true})
	res, err := l.Load("main.zym")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.DebugManifest == "" {
		t.Fatalf("expected a debug manifest")
	}
	if !strings.Contains(res.DebugManifest, "util.zym") {
		t.Fatalf("expected manifest to mention util.zym:\n%s", res.DebugManifest)
	}
}
