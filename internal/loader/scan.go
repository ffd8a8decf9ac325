package loader

import (
	"regexp"
	"strings"

	"github.com/zym-lang/zym/internal/linemap"
	"github.com/zym-lang/zym/internal/zymerr"
)

// reImportCall matches `import("<literal path>")` (spec.md §4.2's
// side-effecting form). Both patterns below restrict whitespace to
// horizontal tabs/spaces and exclude newlines from the string-literal
// character class, so a match can never cross a line boundary — the
// loader's line-count-preserving rewrite (every source line maps to
// exactly one transformed line) depends on that. `\b` before "import"
// gives the word-boundary rule spec.md asks for (the character preceding
// "import" is either absent or a non-identifier byte), in addition to the
// character immediately after, which \b also covers on its trailing side
// only when followed directly by a non-word byte; the explicit
// `[ \t]*\(` requirement after "import" makes the distinction from a
// plain identifier like "importer" unambiguous regardless.
var reImportCall = regexp.MustCompile(`\bimport[ \t]*\([ \t]*"((?:[^"\\\n]|\\.)*)"[ \t]*\)`)

// reImportFrom matches `import <symbol> from "<literal path>"` (spec.md
// §4.2's binding form), with an optional trailing `;` absorbed into the
// match so it gets erased along with the rest of the statement.
var reImportFrom = regexp.MustCompile(`\bimport[ \t]+([A-Za-z_][A-Za-z0-9_]*)[ \t]+from[ \t]+"((?:[^"\\\n]|\\.)*)"[ \t]*;?`)

func unescapeLiteral(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(s[i])
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// resolveFunc loads (recursively, through the owning Loader) the module at
// the already-resolved logical path target, returning the factory name the
// caller should rewrite its import reference to.
type resolveFunc func(target string, line int) (factoryName string, err error)

// symbolBinding records the first resolution of an `import sym from "…"`
// binding within one file, for spec.md §4.2's duplicate-symbol-import
// detection.
type symbolBinding struct {
	target  string
	factory string
	line    int
}

// transformModule applies spec.md §4.2's body transformation to one
// module's raw source, line by line: `import("…")` becomes a factory
// call, `import sym from "…"` erases to a blank line after recording the
// binding, and every bare `sym(` call site is rewritten to `factory(` in
// a second pass once every binding in the file is known. It returns the
// transformed text as a slice of lines (never more or fewer than src's own
// line count, preserving the loader's line-map invariant) with one
// linemap.Entry per line, resolved against lm (or, when lm is nil, an
// identity mapping onto modulePath's own lines).
func transformModule(modulePath string, src []byte, lm *linemap.Map, resolve resolveFunc) ([]string, []linemap.Entry, error) {
	dir := dirOf(modulePath)
	srcLines := strings.Split(string(src), "\n")
	outLines := make([]string, len(srcLines))
	entries := make([]linemap.Entry, len(srcLines))
	seen := make(map[string]symbolBinding)

	var failure error
	for i, line := range srcLines {
		lineNo := i + 1
		entries[i] = sourceEntry(modulePath, lm, lineNo)

		transformed := reImportFrom.ReplaceAllStringFunc(line, func(match string) string {
			if failure != nil {
				return match
			}
			sub := reImportFrom.FindStringSubmatch(match)
			sym, literal := sub[1], unescapeLiteral(sub[2])
			target := resolveImportPath(dir, literal)
			factory, err := resolve(target, lineNo)
			if err != nil {
				failure = err
				return match
			}
			if prior, ok := seen[sym]; ok && prior.target != target {
				failure = &zymerr.Diagnostic{
					Kind:    zymerr.KindLoad,
					Module:  modulePath,
					Line:    lineNo,
					Message: duplicateSymbolMessage(sym, prior, target, lineNo),
				}
				return match
			}
			seen[sym] = symbolBinding{target: target, factory: factory, line: lineNo}
			return ""
		})
		if failure != nil {
			return nil, nil, failure
		}

		transformed = reImportCall.ReplaceAllStringFunc(transformed, func(match string) string {
			if failure != nil {
				return match
			}
			sub := reImportCall.FindStringSubmatch(match)
			literal := unescapeLiteral(sub[1])
			target := resolveImportPath(dir, literal)
			factory, err := resolve(target, lineNo)
			if err != nil {
				failure = err
				return match
			}
			return factory + "()"
		})
		if failure != nil {
			return nil, nil, failure
		}

		outLines[i] = transformed
	}

	for sym, bound := range seen {
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(sym) + `\(`)
		for i, line := range outLines {
			outLines[i] = re.ReplaceAllString(line, bound.factory+"(")
		}
	}

	return outLines, entries, nil
}

func sourceEntry(modulePath string, lm *linemap.Map, line int) linemap.Entry {
	if lm != nil && line <= lm.Len() {
		return lm.At(line)
	}
	return linemap.Entry{File: modulePath, Line: line}
}

func duplicateSymbolMessage(sym string, prior symbolBinding, second string, secondLine int) string {
	return "duplicate import of `" + sym + "`: first imported from \"" + prior.target +
		"\" at line " + itoa(prior.line) + ", again from \"" + second + "\" at line " + itoa(secondLine)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}
