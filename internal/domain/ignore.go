package domain

import (
	"strings"
	"unicode"

	m "github.com/mouse-blink/phpguard/internal/model"
	"github.com/mouse-blink/phpguard/internal/phpast"
)

const ignoreDirective = "phpguard:ignore"

type ignoreRule struct {
	all   bool
	codes map[string]struct{}
}

func (r ignoreRule) ignores(code string) bool {
	if r.all {
		return true
	}

	if len(r.codes) == 0 {
		return false
	}

	_, ok := r.codes[strings.ToLower(code)]

	return ok
}

func mergeIgnoreRule(dst *ignoreRule, src ignoreRule) {
	if src.all {
		dst.all = true
		dst.codes = nil

		return
	}

	if dst.all || len(src.codes) == 0 {
		return
	}

	if dst.codes == nil {
		dst.codes = make(map[string]struct{}, len(src.codes))
	}

	for code := range src.codes {
		dst.codes[code] = struct{}{}
	}
}

// parseIgnoreDirective understands the three PHP comment styles:
//
//	// phpguard:ignore
//	# phpguard:ignore missing-guard
//	/* phpguard:ignore no-exit, extra-statements */
//
// In a block comment the directive may start any line of the block.
func parseIgnoreDirective(commentText string) (ignoreRule, bool) {
	for _, line := range commentLines(commentText) {
		if rule, ok := parseDirectiveLine(line); ok {
			return rule, true
		}
	}

	return ignoreRule{}, false
}

// commentLines strips the comment markers, including the leading * of each
// docblock line.
func commentLines(commentText string) []string {
	s := strings.TrimSpace(commentText)

	switch {
	case strings.HasPrefix(s, "//"):
		return []string{strings.TrimSpace(strings.TrimPrefix(s, "//"))}
	case strings.HasPrefix(s, "#"):
		return []string{strings.TrimSpace(strings.TrimPrefix(s, "#"))}
	case strings.HasPrefix(s, "/*"):
		s = strings.TrimSuffix(strings.TrimPrefix(s, "/*"), "*/")
		lines := strings.Split(s, "\n")

		for i, l := range lines {
			lines[i] = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(l), "*"))
		}

		return lines
	}

	return []string{s}
}

func parseDirectiveLine(s string) (ignoreRule, bool) {
	if !strings.HasPrefix(s, ignoreDirective) {
		return ignoreRule{}, false
	}

	// phpguard:ignored is not a directive
	if next := strings.TrimPrefix(s, ignoreDirective); next != "" && !unicode.IsSpace(rune(next[0])) {
		return ignoreRule{}, false
	}

	rest := strings.TrimSpace(strings.TrimPrefix(s, ignoreDirective))
	if rest == "" {
		return ignoreRule{all: true}, true
	}

	parts := strings.Split(rest, ",")
	rule := ignoreRule{codes: make(map[string]struct{}, len(parts))}

	for _, part := range parts {
		code := strings.ToLower(strings.TrimSpace(part))
		if code == "" {
			continue
		}

		rule.codes[code] = struct{}{}
	}

	if len(rule.codes) == 0 {
		rule.all = true
		rule.codes = nil
	}

	return rule, true
}

// ignoreIndex holds the directives of one file. Directives before the first
// statement apply to the whole file; any other directive applies to its own
// line, or to the next line when the comment stands alone.
type ignoreIndex struct {
	file ignoreRule
	line map[int]ignoreRule
}

func buildIgnoreIndex(file *phpast.File) ignoreIndex {
	idx := ignoreIndex{line: make(map[int]ignoreRule)}
	first := file.FirstLine()

	for _, c := range file.Comments {
		r, ok := parseIgnoreDirective(c.Text)
		if !ok {
			continue
		}

		if first == 0 || c.Line < first {
			mergeIgnoreRule(&idx.file, r)

			continue
		}

		target := c.Line
		if c.Leading {
			target += strings.Count(c.Text, "\n") + 1
		}

		current := idx.line[target]
		mergeIgnoreRule(&current, r)
		idx.line[target] = current
	}

	return idx
}

// filter drops the findings silenced by a directive. Parse errors are never
// silenced since no directive could be read.
func (idx ignoreIndex) filter(findings []m.Finding) []m.Finding {
	if !idx.file.all && len(idx.file.codes) == 0 && len(idx.line) == 0 {
		return findings
	}

	kept := findings[:0:0]

	for _, f := range findings {
		if idx.file.ignores(f.Code) {
			continue
		}

		if r, ok := idx.line[f.Line]; ok && f.Line > 0 && r.ignores(f.Code) {
			continue
		}

		kept = append(kept, f)
	}

	return kept
}
