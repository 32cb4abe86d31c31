package rag

import "strings"

// SDK wrapper shapes that occasionally leak into raw completions when a
// content block is stringified instead of unwrapped.
var wrappers = []struct {
	prefix, suffix string
}{
	{`[TextBlock(text="`, `", type='text')]`},
	{`[TextBlock(text="`, `", type="text")]`},
	{`[TextBlock(text=`, `, type='text')]`},
	{`[TextBlock(text=`, `, type="text")]`},
}

// Clean strips SDK wrapper artifacts from a raw completion. It runs to
// a fixpoint: trimming surrounding quotes can expose a wrapper that was
// not visible on the first pass, so passes repeat until the text stops
// changing. Every pass shrinks the text, so the loop terminates, and a
// second Clean of already-clean output is a no-op.
func Clean(s string) string {
	for {
		next := cleanOnce(s)
		if next == s {
			return next
		}
		s = next
	}
}

func cleanOnce(s string) string {
	s = strings.TrimSpace(s)

	for _, w := range wrappers {
		if strings.HasPrefix(s, w.prefix) && strings.HasSuffix(s, w.suffix) && len(s) >= len(w.prefix)+len(w.suffix) {
			s = s[len(w.prefix) : len(s)-len(w.suffix)]
			s = strings.ReplaceAll(s, `\"`, `"`)
			s = strings.ReplaceAll(s, `\n`, "\n")
			s = strings.ReplaceAll(s, `", type='text')`, "")
			s = strings.ReplaceAll(s, `", type="text")`, "")
			break
		}
	}

	return strings.Trim(s, ` '"`)
}
