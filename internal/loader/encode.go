package loader

import (
	"fmt"
	"strings"
)

// encodeReplacer/decodeReplacer implement spec.md §4.2's invertible factory
// name encoding for debug_names mode: "/" -> "_slash_", "." -> "_dot_",
// "-" -> "_dash_", " " -> "_space_".
var encodeReplacer = strings.NewReplacer(
	"/", "_slash_",
	".", "_dot_",
	"-", "_dash_",
	" ", "_space_",
)

var decodeReplacer = strings.NewReplacer(
	"_slash_", "/",
	"_dot_", ".",
	"_dash_", "-",
	"_space_", " ",
)

const debugFactoryPrefix = "__module_"

// encodeFactoryName produces the debug_names factory name for a resolved
// module path.
func encodeFactoryName(path string) string {
	return debugFactoryPrefix + encodeReplacer.Replace(path)
}

// decodeFactoryName inverts encodeFactoryName, letting the compiler recover
// a readable module name from a factory function's own name (spec.md
// §4.2's "the decoder is used by the compiler to recover a readable module
// name").
func decodeFactoryName(name string) (string, bool) {
	if !strings.HasPrefix(name, debugFactoryPrefix) {
		return "", false
	}
	return decodeReplacer.Replace(name[len(debugFactoryPrefix):]), true
}

// djb2 is Bernstein's hash, used for spec.md §4.2's non-debug factory names
// (a one-way hash keeps generated names short and collision-unlikely
// without needing the encoding's reversibility).
func djb2(s string) uint32 {
	var h uint32 = 5381
	for i := 0; i < len(s); i++ {
		h = h*33 + uint32(s[i])
	}
	return h
}

func hashFactoryName(path string) string {
	return fmt.Sprintf("_%x", djb2(path))
}

// factoryNameFor picks the debug or hashed factory name for path per the
// loader's debugNames setting.
func factoryNameFor(path string, debugNames bool) string {
	if debugNames {
		return encodeFactoryName(path)
	}
	return hashFactoryName(path)
}
