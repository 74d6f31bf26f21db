// Package taxonomy describes the rule-group catalog: a short human-readable
// title and description per group ("base", "fs", "git", "docker",
// "kubernetes", "database", …), embedded at build time. Consumed by the
// MCP get_policy tool and the "shellfirm policy groups" CLI command.
package taxonomy

import (
	"embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed groups.yaml
var groupsFS embed.FS

// Group describes one rule group.
type Group struct {
	Name        string `yaml:"group"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// Catalog is the loaded, indexed set of groups.
type Catalog struct {
	Groups []Group
	ByName map[string]Group
}

// Load parses the embedded groups.yaml into a Catalog. Duplicate group
// names are a fatal error, mirroring the rule catalog's own duplicate-id
// check.
func Load() (*Catalog, error) {
	data, err := groupsFS.ReadFile("groups.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded groups.yaml: %w", err)
	}
	var groups []Group
	if err := yaml.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("parse embedded groups.yaml: %w", err)
	}

	cat := &Catalog{ByName: make(map[string]Group, len(groups))}
	for _, g := range groups {
		if _, dup := cat.ByName[g.Name]; dup {
			return nil, fmt.Errorf("duplicate taxonomy group %q", g.Name)
		}
		cat.ByName[g.Name] = g
		cat.Groups = append(cat.Groups, g)
	}
	sort.Slice(cat.Groups, func(i, j int) bool { return cat.Groups[i].Name < cat.Groups[j].Name })
	return cat, nil
}

// Describe returns the group's title/description, or a generic fallback
// for a group name not present in the embedded catalog (e.g. a group
// introduced only by custom or project-policy rules).
func (c *Catalog) Describe(name string) Group {
	if g, ok := c.ByName[name]; ok {
		return g
	}
	return Group{Name: name, Title: name, Description: "custom rule group"}
}
