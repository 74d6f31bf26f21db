// Package ruleengine matches segments against a rule catalog: a regex test
// plus post-filter predicates (IsExists, NotContains), honoring each rule's
// Split/Whole validation mode, and computes the "stripped command" used
// for display and audit.
package ruleengine

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/kaplanelad/shellfirm-go/internal/env"
	"github.com/kaplanelad/shellfirm-go/internal/rules"
	"github.com/kaplanelad/shellfirm-go/internal/unicode"
)

// Match is one rule that fired, together with the segment that triggered it.
type Match struct {
	Rule    rules.Rule
	Segment string
}

// StrippedCommandRegex matches balanced single- or double-quoted
// substrings, used to compute the stripped command. Stripping never
// changes match results — matches are always computed from the raw text.
var StrippedCommandRegex = regexp.MustCompile(`'[^']*'|"[^"]*"`)

// Strip removes string literals from command, for display/audit purposes
// only.
func Strip(command string) string {
	return StrippedCommandRegex.ReplaceAllString(command, "")
}

// Run matches every active rule against every segment (or, for
// Whole-validation-mode rules, against the whole command), deduplicating
// by rule id. The unicode obfuscation scanner contributes a synthetic
// match when it flags any segment.
func Run(e env.Environment, activeCatalog []rules.Rule, wholeCommand string, segments []string) []Match {
	seen := map[string]bool{}
	var out []Match

	for _, r := range activeCatalog {
		if r.ValidationMode == rules.ValidationWhole {
			if matchOne(e, r, wholeCommand) {
				if !seen[r.ID] {
					seen[r.ID] = true
					out = append(out, Match{Rule: r, Segment: wholeCommand})
				}
			}
			continue
		}
		for _, seg := range segments {
			if seen[r.ID] {
				break
			}
			if matchOne(e, r, seg) {
				seen[r.ID] = true
				out = append(out, Match{Rule: r, Segment: seg})
			}
		}
	}

	if obf := scanObfuscation(activeCatalog, segments); obf != nil && !seen[obf.Rule.ID] {
		out = append(out, *obf)
	}

	return out
}

func matchOne(e env.Environment, r rules.Rule, text string) bool {
	if !r.TestRe.MatchString(text) {
		return false
	}
	if len(r.Filters) == 0 {
		return true
	}
	caps := r.TestRe.FindStringSubmatch(text)
	for filterType, param := range r.Filters {
		switch filterType {
		case rules.FilterIsExists:
			idx, err := strconv.Atoi(param)
			if err != nil || idx >= len(caps) {
				continue // missing data: safe side, predicate holds
			}
			if !isExists(e, caps[idx]) {
				return false
			}
		case rules.FilterNotContains:
			if strings.Contains(text, param) {
				return false
			}
		}
	}
	return true
}

// isExists evaluates the IsExists predicate: tilde-expand, treat wildcards
// as a safe default of true, resolve relative to cwd, and probe. Any error
// also evaluates to true (safe side).
func isExists(e env.Environment, capture string) bool {
	path := strings.TrimSpace(capture)
	if path == "" {
		return true
	}
	if strings.HasPrefix(path, "~") {
		home, ok := e.HomeDir()
		if !ok {
			return true
		}
		path = strings.Replace(path, "~", home, 1)
	}
	if strings.Contains(path, "*") {
		return true
	}
	if !filepath.IsAbs(path) {
		cwd, err := e.Cwd()
		if err != nil {
			return true
		}
		path = filepath.Join(cwd, path)
	}
	return e.PathExists(path)
}

// scanObfuscation runs the unicode scanner over every segment; if any
// segment is flagged, returns a synthetic match for whichever catalog rule
// fits the worst threat found there: base:unicode_obfuscation for a
// block-severity threat (zero-width, bidi override, tag or control
// character — something that can hide a command's true effect entirely),
// base:unicode_homoglyph for a segment that only carries audit-severity
// homoglyphs (visually confusable, but nothing hidden). Either rule must
// be present in the active catalog or its match is skipped.
func scanObfuscation(activeCatalog []rules.Rule, segments []string) *Match {
	byID := map[string]*rules.Rule{}
	for i := range activeCatalog {
		switch activeCatalog[i].ID {
		case "base:unicode_obfuscation", "base:unicode_homoglyph":
			byID[activeCatalog[i].ID] = &activeCatalog[i]
		}
	}
	if len(byID) == 0 {
		return nil
	}
	for _, seg := range segments {
		result := unicode.Scan(seg)
		if result.Clean {
			continue
		}
		id := "base:unicode_homoglyph"
		if result.HasBlockLevel() {
			id = "base:unicode_obfuscation"
		}
		if rule, ok := byID[id]; ok {
			return &Match{Rule: *rule, Segment: seg}
		}
	}
	return nil
}

// PathExistsRelative is exported for tests that want to probe isExists'
// cwd-resolution behavior against a real directory without going through
// the full Run pipeline.
func PathExistsRelative(e env.Environment, capture string) bool {
	return isExists(e, capture)
}
