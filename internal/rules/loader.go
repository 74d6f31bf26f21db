package rules

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed checks/*.yaml
var builtinChecksFS embed.FS

// GetAll parses every embedded built-in YAML file into a catalog of Rules,
// compiling each regex once. Duplicate IDs across files are a fatal error.
func GetAll() ([]Rule, error) {
	entries, err := fs.ReadDir(builtinChecksFS, "checks")
	if err != nil {
		return nil, fmt.Errorf("read embedded checks dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".yaml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var out []Rule
	seen := map[string]bool{}
	for _, name := range names {
		data, err := builtinChecksFS.ReadFile(filepath.Join("checks", name))
		if err != nil {
			return nil, fmt.Errorf("read embedded check file %s: %w", name, err)
		}
		parsed, err := parseCatalog(data)
		if err != nil {
			return nil, fmt.Errorf("parse embedded check file %s: %w", name, err)
		}
		for _, r := range parsed {
			if seen[r.ID] {
				return nil, fmt.Errorf("duplicate rule id %q (file %s)", r.ID, name)
			}
			seen[r.ID] = true
			out = append(out, r)
		}
	}
	return out, nil
}

// LoadCustomDir loads every *.yaml file in dir and appends its rules to
// base, returning a fatal error on duplicate IDs (including collisions
// with base) or a malformed regex. A missing dir is not an error — it
// simply contributes nothing.
func LoadCustomDir(dir string, base []Rule) ([]Rule, error) {
	seen := map[string]bool{}
	for _, r := range base {
		seen[r.ID] = true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return base, nil
		}
		return nil, fmt.Errorf("read custom checks dir %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".yaml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	out := append([]Rule{}, base...)
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read custom check file %s: %w", name, err)
		}
		parsed, err := parseCatalog(data)
		if err != nil {
			return nil, fmt.Errorf("parse custom check file %s: %w", name, err)
		}
		for _, r := range parsed {
			if seen[r.ID] {
				return nil, fmt.Errorf("duplicate rule id %q (file %s)", r.ID, name)
			}
			seen[r.ID] = true
			out = append(out, r)
		}
	}
	return out, nil
}

func parseCatalog(data []byte) ([]Rule, error) {
	var raws []rawRule
	if err := yaml.Unmarshal(data, &raws); err != nil {
		return nil, err
	}
	out := make([]Rule, 0, len(raws))
	for _, raw := range raws {
		r, err := compile(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Groups returns the sorted, de-duplicated list of group names ("from"
// fields) present in the catalog.
func Groups(catalog []Rule) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range catalog {
		if !seen[r.From] {
			seen[r.From] = true
			out = append(out, r.From)
		}
	}
	sort.Strings(out)
	return out
}

// ActiveFilter narrows the catalog to the rules eligible for this session:
// enabled groups, not explicitly disabled, not ignored by id, and at or
// above the minimum reporting severity.
type ActiveFilter struct {
	EnabledGroups  []string
	DisabledGroups []string
	IgnoredIDs     []string
	MinSeverity    Severity
}

// Active returns the subset of catalog that survives this filter.
func (f ActiveFilter) Active(catalog []Rule) []Rule {
	enabled := toSet(f.EnabledGroups)
	disabled := toSet(f.DisabledGroups)
	ignored := toSet(f.IgnoredIDs)

	var out []Rule
	for _, r := range catalog {
		if len(enabled) > 0 && !enabled[r.From] {
			continue
		}
		if disabled[r.From] {
			continue
		}
		if ignored[r.ID] {
			continue
		}
		if r.Severity < f.MinSeverity {
			continue
		}
		out = append(out, r)
	}
	return out
}

func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, i := range items {
		s[i] = true
	}
	return s
}
