package loader

import "strings"

// normalizePath implements spec.md §4.2's path normalization: split on "/"
// and "\", eliminate "." segments, and collapse ".." against the
// accumulated stack, preserving a leading ".." that has nothing left to
// collapse against (the path escapes above whatever root the caller is
// resolving relative to, which the Read callback is left to reject or
// honor).
func normalizePath(p string) string {
	abs := strings.HasPrefix(p, "/")
	parts := strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' })
	stack := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			if n := len(stack); n > 0 && stack[n-1] != ".." {
				stack = stack[:n-1]
			} else {
				stack = append(stack, "..")
			}
		default:
			stack = append(stack, part)
		}
	}
	joined := strings.Join(stack, "/")
	if abs {
		return "/" + joined
	}
	return joined
}

// dirOf returns the logical directory component of a normalized loader
// path, in the same "/"-joined namespace normalizePath operates in.
func dirOf(p string) string {
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return ""
	}
	return p[:i]
}

// resolveImportPath resolves a literal import path against the directory
// of the importing file (spec.md §4.2: "the imported path is resolved
// relative to the importing file's directory").
func resolveImportPath(fromDir, literal string) string {
	if strings.HasPrefix(literal, "/") {
		return normalizePath(literal)
	}
	if fromDir == "" {
		return normalizePath(literal)
	}
	return normalizePath(fromDir + "/" + literal)
}
