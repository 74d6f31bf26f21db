package segment

import (
	"reflect"
	"strings"
	"testing"

	"mvdan.cc/sh/v3/syntax"
)

func TestSplit(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"simple", "echo hello", []string{"echo hello"}},
		{"and", "echo a && echo b", []string{"echo a", "echo b"}},
		{"or", "false || echo b", []string{"false", "echo b"}},
		{"pipe", "cat f | grep x", []string{"cat f", "grep x"}},
		{"background", "sleep 1 & echo done", []string{"sleep 1", "echo done"}},
		{"semicolon", "echo a; echo b", []string{"echo a", "echo b"}},
		{"repeated-operator", "echo a &&&& echo b", []string{"echo a", "echo b"}},
		{
			"quoted-pipe-not-split",
			`echo "a | b"`,
			[]string{`echo "a | b"`},
		},
		{
			"single-quoted-semicolon-not-split",
			`echo 'a; b'`,
			[]string{`echo 'a; b'`},
		},
		{
			"escaped-quote-inside-double",
			`echo "say \"hi\""`,
			[]string{`echo "say \"hi\""`},
		},
		{
			"function-definition-kept-whole",
			`echo hello && :(){ :|:& };:`,
			[]string{"echo hello", ":(){ :|:& }", ":"},
		},
		{"empty-segments-dropped", "echo a &&  && echo b", []string{"echo a", "echo b"}},
		{"whitespace-only", "   ", nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Split(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Split(%q) = %#v, want %#v", tc.in, got, tc.want)
			}
		})
	}
}

func TestSplitRoundTrip(t *testing.T) {
	in := `git commit -m "wip: fix 'thing'" && git push`
	segments := Split(in)
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d: %#v", len(segments), segments)
	}
	if segments[1] != "git push" {
		t.Errorf("second segment = %q, want %q", segments[1], "git push")
	}
	rejoined := strings.Join(segments, " && ")
	if again := Split(rejoined); !reflect.DeepEqual(again, segments) {
		t.Errorf("Split(%q) = %#v, want %#v", rejoined, again, segments)
	}
}

// countTopLevelStmts flattens a well-formed shell program's statement tree
// into the count of leaf commands joined by pipelines or logical operators,
// the same grouping Split produces for &&, ||, |, and ;.
func countTopLevelStmts(t *testing.T, input string) int {
	t.Helper()
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash))
	file, err := parser.Parse(strings.NewReader(input), "")
	if err != nil {
		t.Fatalf("reference parser rejected %q: %v", input, err)
	}
	count := 0
	var walk func(*syntax.Stmt)
	walk = func(stmt *syntax.Stmt) {
		switch c := stmt.Cmd.(type) {
		case *syntax.BinaryCmd:
			walk(c.X)
			walk(c.Y)
		default:
			count++
		}
	}
	for _, stmt := range file.Stmts {
		walk(stmt)
	}
	return count
}

// TestSplitAgreesWithReferenceParser cross-checks the hand-rolled
// quote-state scanner against mvdan.cc/sh/v3's shell grammar on
// well-formed input: for commands built only from &&, ||, |, and ;, the
// segment count Split produces must match the reference parser's
// top-level-statement count for the same input.
func TestSplitAgreesWithReferenceParser(t *testing.T) {
	inputs := []string{
		`echo hello`,
		`echo a && echo b`,
		`false || echo b`,
		`cat f | grep x`,
		`echo a; echo b`,
		`echo "a | b"`,
		`echo 'a; b'`,
		`git commit -m "wip: fix 'thing'" && git push`,
		`ls -la | grep foo | wc -l`,
		`make build && make test || echo failed; echo done`,
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			want := countTopLevelStmts(t, in)
			got := len(Split(in))
			if got != want {
				t.Errorf("Split(%q) produced %d segments, reference parser counted %d statements", in, got, want)
			}
		})
	}
}
