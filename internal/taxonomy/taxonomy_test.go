package taxonomy

import "testing"

func TestLoadNoDuplicates(t *testing.T) {
	cat, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cat.Groups) == 0 {
		t.Fatal("expected at least one group")
	}
	seen := map[string]bool{}
	for _, g := range cat.Groups {
		if seen[g.Name] {
			t.Errorf("duplicate group %q", g.Name)
		}
		seen[g.Name] = true
		if g.Title == "" {
			t.Errorf("group %q missing title", g.Name)
		}
		if g.Description == "" {
			t.Errorf("group %q missing description", g.Name)
		}
	}
}

func TestDescribeKnownGroup(t *testing.T) {
	cat, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	g := cat.Describe("git")
	if g.Title == "" {
		t.Error("expected a non-empty title for the git group")
	}
}

func TestDescribeUnknownGroupFallsBack(t *testing.T) {
	cat, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	g := cat.Describe("made-up-group")
	if g.Name != "made-up-group" {
		t.Errorf("expected fallback Name to echo input, got %q", g.Name)
	}
}
