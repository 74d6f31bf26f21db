package ruleengine

import (
	"regexp"
	"testing"

	"github.com/kaplanelad/shellfirm-go/internal/env"
	"github.com/kaplanelad/shellfirm-go/internal/rules"
)

func mustRule(id, pattern string, filters map[rules.FilterType]string) rules.Rule {
	return rules.Rule{
		ID:       id,
		TestRe:   regexp.MustCompile(pattern),
		From:     "test",
		Severity: rules.SeverityMedium,
		Filters:  filters,
	}
}

func TestRunMatchesBySegment(t *testing.T) {
	catalog := []rules.Rule{
		mustRule("test:1", `test-1`, nil),
		mustRule("test:2", `test-(1|2)`, nil),
	}
	e := env.NewMock()

	matches := Run(e, catalog, "test-1", []string{"test-1"})
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d: %#v", len(matches), matches)
	}

	matches = Run(e, catalog, "unknown command", []string{"unknown command"})
	if len(matches) != 0 {
		t.Fatalf("expected 0 matches, got %d", len(matches))
	}
}

func TestRunDedupesAcrossSegments(t *testing.T) {
	catalog := []rules.Rule{mustRule("test:dup", `foo`, nil)}
	e := env.NewMock()

	matches := Run(e, catalog, "foo && foo", []string{"foo", "foo"})
	if len(matches) != 1 {
		t.Fatalf("expected 1 deduped match, got %d", len(matches))
	}
}

func TestIsExistsFilter(t *testing.T) {
	r := mustRule("test:exists", `cat .* > (.*)`, map[rules.FilterType]string{
		rules.FilterIsExists: "1",
	})
	e := env.NewMock()
	e.Cwd_ = "/tmp/app"

	matches := Run(e, []rules.Rule{r}, "cat x > /tmp/app/out.txt", []string{"cat x > /tmp/app/out.txt"})
	if len(matches) != 0 {
		t.Fatalf("expected no match when path does not exist, got %d", len(matches))
	}

	e.ExistingPaths["/tmp/app/out.txt"] = true
	matches = Run(e, []rules.Rule{r}, "cat x > /tmp/app/out.txt", []string{"cat x > /tmp/app/out.txt"})
	if len(matches) != 1 {
		t.Fatalf("expected match when path exists, got %d", len(matches))
	}
}

func TestNotContainsFilter(t *testing.T) {
	r := mustRule("test:notcontains", `delete`, map[rules.FilterType]string{
		rules.FilterNotContains: "--dry-run",
	})
	e := env.NewMock()

	matches := Run(e, []rules.Rule{r}, "delete", []string{"delete"})
	if len(matches) != 1 {
		t.Fatalf("expected match without --dry-run, got %d", len(matches))
	}

	matches = Run(e, []rules.Rule{r}, "delete --dry-run", []string{"delete --dry-run"})
	if len(matches) != 0 {
		t.Fatalf("expected no match with --dry-run, got %d", len(matches))
	}
}

func TestStripRemovesStringLiterals(t *testing.T) {
	got := Strip(`echo "hello world" 'more text'`)
	want := `echo  `
	if got != want {
		t.Errorf("Strip() = %q, want %q", got, want)
	}
}

func TestStripIsIdempotent(t *testing.T) {
	in := `echo "a" 'b'`
	once := Strip(in)
	twice := Strip(once)
	if once != twice {
		t.Errorf("Strip is not idempotent: once=%q twice=%q", once, twice)
	}
}

func TestRunSynthesizesBlockLevelUnicodeMatch(t *testing.T) {
	obfRule := rules.Rule{ID: "base:unicode_obfuscation", TestRe: regexp.MustCompile(`^\x00unsatisfiable\x00$`), From: "base", Severity: rules.SeverityHigh}
	homoglyphRule := rules.Rule{ID: "base:unicode_homoglyph", TestRe: regexp.MustCompile(`^\x00unsatisfiable\x00$`), From: "base", Severity: rules.SeverityMedium}
	e := env.NewMock()

	segment := "ls​ -la"
	matches := Run(e, []rules.Rule{obfRule, homoglyphRule}, segment, []string{segment})
	if len(matches) != 1 {
		t.Fatalf("expected 1 synthetic match, got %d", len(matches))
	}
	if matches[0].Rule.ID != "base:unicode_obfuscation" {
		t.Errorf("expected block-severity threat to escalate to unicode_obfuscation, got %s", matches[0].Rule.ID)
	}
}

func TestRunSynthesizesHomoglyphOnlyUnicodeMatch(t *testing.T) {
	obfRule := rules.Rule{ID: "base:unicode_obfuscation", TestRe: regexp.MustCompile(`^\x00unsatisfiable\x00$`), From: "base", Severity: rules.SeverityHigh}
	homoglyphRule := rules.Rule{ID: "base:unicode_homoglyph", TestRe: regexp.MustCompile(`^\x00unsatisfiable\x00$`), From: "base", Severity: rules.SeverityMedium}
	e := env.NewMock()

	segment := "cаt secrets.txt" // Cyrillic а, no block-severity threat alongside it
	matches := Run(e, []rules.Rule{obfRule, homoglyphRule}, segment, []string{segment})
	if len(matches) != 1 {
		t.Fatalf("expected 1 synthetic match, got %d", len(matches))
	}
	if matches[0].Rule.ID != "base:unicode_homoglyph" {
		t.Errorf("expected homoglyph-only threat to map to unicode_homoglyph, got %s", matches[0].Rule.ID)
	}
}

func TestWholeValidationMode(t *testing.T) {
	r := rules.Rule{
		ID:             "base:execute_all_history_commands",
		TestRe:         regexp.MustCompile(`history\s*\|\s*bash`),
		From:           "base",
		ValidationMode: rules.ValidationWhole,
	}
	e := env.NewMock()

	// Segmented form would never see "history | bash" as one segment.
	segments := []string{"history", "bash"}
	matches := Run(e, []rules.Rule{r}, "history | bash", segments)
	if len(matches) != 1 {
		t.Fatalf("expected whole-mode match despite segmentation, got %d", len(matches))
	}
}
