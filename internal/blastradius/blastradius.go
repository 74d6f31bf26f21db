// Package blastradius estimates the runtime impact of a matched command,
// tagged by scope. Every estimator is read-only, shells out through
// internal/env with a bounded timeout, and never returns an error. When a
// probe fails, an estimator either returns no result or falls back to a
// shorter description built from the command text, without the figure
// that probe would have supplied; the docker system prune estimator
// counts a failed probe as zero.
package blastradius

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kaplanelad/shellfirm-go/internal/env"
)

// Scope is a total order: Resource < Project < Namespace < Machine.
type Scope int

const (
	ScopeResource Scope = iota
	ScopeProject
	ScopeNamespace
	ScopeMachine
)

func (s Scope) String() string {
	switch s {
	case ScopeResource:
		return "RESOURCE"
	case ScopeProject:
		return "PROJECT"
	case ScopeNamespace:
		return "NAMESPACE"
	case ScopeMachine:
		return "MACHINE"
	default:
		return "UNKNOWN"
	}
}

// Info is one estimator's result: a scope tag and a human-readable line.
type Info struct {
	Scope       Scope
	Description string
}

// Timeout bounds every subprocess call an estimator makes.
const Timeout = 3 * time.Second

type estimatorFunc func(e env.Environment, command string, re *regexp.Regexp) (Info, bool)

var estimators = map[string]estimatorFunc{
	"fs:recursively_delete":                computeFsRecursiveDelete,
	"fs:move_to_dev_null":                  computeFsMoveToDevNull,
	"fs:flush_file":                        computeFsFlushFile,
	"fs:recursively_chmod":                 computeFsRecursiveChmod,
	"fs:delete_find_files":                 computeFsDeleteFind,
	"fs-strict:any_deletion":               computeFsStrictAnyDeletion,
	"fs-strict:folder_deletion":            computeFsStrictFolderDeletion,
	"fs-strict:change_permissions":         computeFsStrictChangePermissions,
	"git:reset":                            computeGitReset,
	"git:delete_all":                       computeGitDeleteAll,
	"git:clean_force":                      computeGitCleanForce,
	"git:force_push":                       computeGitForcePush,
	"git:force_delete_branch":              computeGitForceDeleteBranch,
	"git:force_checkout":                   computeGitForceCheckout,
	"git:filter_branch":                    computeGitFilterBranch,
	"git-strict:add_all":                   computeGitStrictAddAll,
	"git-strict:commit_all":                computeGitStrictCommitAll,
	"docker:system_prune_all":              computeDockerSystemPrune,
	"docker:force_remove_all_containers":   computeDockerForceRemoveContainers,
	"docker:volume_prune":                  computeDockerVolumePrune,
	"docker:stop_all_containers":           computeDockerStopAll,
	"kubernetes:delete_namespace":          computeKubernetesDeleteNamespace,
}

// Compute dispatches by check id. Unmatched ids contribute no result.
func Compute(checkID string, checkRegex *regexp.Regexp, command string, e env.Environment) (Info, bool) {
	fn, ok := estimators[checkID]
	if !ok {
		return Info{}, false
	}
	return fn(e, command, checkRegex)
}

// MatchForCompute is the minimal shape ComputeForMatches needs from a match.
type MatchForCompute struct {
	CheckID string
	Regex   *regexp.Regexp
	Segment string
}

// ComputeForMatches computes blast radius for each match, using the
// matched segment if known, else falling back to strippedCommand.
func ComputeForMatches(matches []MatchForCompute, strippedCommand string, e env.Environment) map[string]Info {
	out := map[string]Info{}
	for _, m := range matches {
		text := m.Segment
		if text == "" {
			text = strippedCommand
		}
		if info, ok := Compute(m.CheckID, m.Regex, text, e); ok {
			out[m.CheckID] = info
		}
	}
	return out
}

// --- helpers ---

func captureGroup(re *regexp.Regexp, command string, group int) (string, bool) {
	if re == nil {
		return "", false
	}
	caps := re.FindStringSubmatch(command)
	if group >= len(caps) {
		return "", false
	}
	val := strings.TrimSpace(caps[group])
	if val == "" {
		return "", false
	}
	return val, true
}

func fsScopeForPath(path string) Scope {
	if path == "/" || path == "/*" {
		return ScopeMachine
	}
	return ScopeProject
}

func isDirectory(e env.Environment, path string) bool {
	_, ok := e.RunCommand("test", []string{"-d", path}, Timeout)
	return ok
}

func countFilesAt(e env.Environment, path string) (int, bool) {
	out, ok := e.RunCommand("find", []string{path, "-type", "f"}, Timeout)
	if !ok {
		return 0, false
	}
	return countLines(out), true
}

func getSize(e env.Environment, path string) (string, bool) {
	out, ok := e.RunCommand("du", []string{"-sh", path}, Timeout)
	if !ok {
		return "", false
	}
	return parseDuOutput(out), true
}

func parseDuOutput(out string) string {
	line := out
	if idx := strings.IndexByte(out, '\n'); idx >= 0 {
		line = out[:idx]
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func countLines(out string) int {
	n := 0
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

func formatCount(n int, noun string) string {
	return fmt.Sprintf("%s %s", formatNumber(n), pluralize(n, noun))
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return noun
	}
	return noun + "s"
}

func formatNumber(n int) string {
	s := strconv.Itoa(n)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}

// --- fs group ---

func computeFsRecursiveDelete(e env.Environment, command string, re *regexp.Regexp) (Info, bool) {
	path, ok := captureGroup(re, command, 1)
	if !ok {
		return Info{}, false
	}
	scope := fsScopeForPath(path)
	count, hasCount := countFilesAt(e, path)
	size, hasSize := getSize(e, path)
	if !hasCount && !hasSize {
		return Info{}, false
	}
	var desc string
	switch {
	case hasCount && hasSize:
		desc = fmt.Sprintf("Deletes ~%s (%s) in %s", formatCount(count, "file"), size, path)
	case hasCount:
		desc = fmt.Sprintf("Deletes ~%s in %s", formatCount(count, "file"), path)
	default:
		desc = fmt.Sprintf("Deletes %s (%s)", path, size)
	}
	return Info{Scope: scope, Description: desc}, true
}

func computeFsMoveToDevNull(e env.Environment, command string, re *regexp.Regexp) (Info, bool) {
	path, ok := captureGroup(re, command, 1)
	if !ok {
		return Info{}, false
	}
	size, ok := getSize(e, path)
	if !ok {
		return Info{}, false
	}
	return Info{Scope: ScopeResource, Description: fmt.Sprintf("Discards %s (%s)", path, size)}, true
}

func computeFsFlushFile(e env.Environment, command string, re *regexp.Regexp) (Info, bool) {
	path, ok := captureGroup(re, command, 1)
	if !ok {
		return Info{}, false
	}
	size, hasSize := getSize(e, path)
	if hasSize {
		return Info{Scope: ScopeResource, Description: fmt.Sprintf("Flushes 1 file (%s)", size)}, true
	}
	return Info{Scope: ScopeResource, Description: "Flushes 1 file"}, true
}

func computeFsRecursiveChmod(e env.Environment, command string, re *regexp.Regexp) (Info, bool) {
	path, ok := captureGroup(re, command, 2)
	if !ok {
		return Info{}, false
	}
	count, ok := countFilesAt(e, path)
	if !ok {
		return Info{}, false
	}
	return Info{
		Scope:       fsScopeForPath(path),
		Description: fmt.Sprintf("Affects permissions on ~%s", formatCount(count, "file")),
	}, true
}

func computeFsDeleteFind(e env.Environment, command string, _ *regexp.Regexp) (Info, bool) {
	path := findCommandPath(command)
	count, ok := countFilesAt(e, path)
	if !ok {
		return Info{}, false
	}
	return Info{
		Scope:       fsScopeForPath(path),
		Description: fmt.Sprintf("Deletes ~%s under %s", formatCount(count, "file"), path),
	}, true
}

// findCommandPath extracts the first non-flag token after "find".
func findCommandPath(command string) string {
	tokens := strings.Fields(command)
	for i, t := range tokens {
		if t == "find" && i+1 < len(tokens) {
			for _, cand := range tokens[i+1:] {
				if !strings.HasPrefix(cand, "-") {
					return cand
				}
			}
		}
	}
	return "."
}

func computeFsStrictAnyDeletion(e env.Environment, command string, re *regexp.Regexp) (Info, bool) {
	return fsStrictPathVariant(e, command, re, "Deletes")
}

func computeFsStrictFolderDeletion(e env.Environment, command string, re *regexp.Regexp) (Info, bool) {
	return fsStrictPathVariant(e, command, re, "Removes directory")
}

func computeFsStrictChangePermissions(e env.Environment, command string, re *regexp.Regexp) (Info, bool) {
	path, ok := captureGroup(re, command, 2)
	if !ok {
		return Info{}, false
	}
	return Info{Scope: fsScopeForPath(path), Description: fmt.Sprintf("Changes permissions on %s", path)}, true
}

func fsStrictPathVariant(e env.Environment, command string, re *regexp.Regexp, verb string) (Info, bool) {
	path, ok := captureGroup(re, command, 1)
	if !ok {
		return Info{}, false
	}
	scope := fsScopeForPath(path)
	if isDirectory(e, path) {
		count, hasCount := countFilesAt(e, path)
		if hasCount {
			return Info{Scope: scope, Description: fmt.Sprintf("%s %s (~%s)", verb, path, formatCount(count, "file"))}, true
		}
	}
	return Info{Scope: scope, Description: fmt.Sprintf("%s %s", verb, path)}, true
}

// --- git group ---

func computeGitReset(e env.Environment, _ string, _ *regexp.Regexp) (Info, bool) {
	unstaged, okU := e.RunCommand("git", []string{"diff", "--name-only"}, Timeout)
	staged, okS := e.RunCommand("git", []string{"diff", "--cached", "--name-only"}, Timeout)
	if !okU && !okS {
		return Info{}, false
	}
	count := countLines(unstaged) + countLines(staged)
	if count == 0 {
		return Info{}, false
	}
	return Info{Scope: ScopeProject, Description: fmt.Sprintf("Resets %s", formatCount(count, "modified file"))}, true
}

func computeGitDeleteAll(e env.Environment, _ string, _ *regexp.Regexp) (Info, bool) {
	out, ok := e.RunCommand("git", []string{"ls-files"}, Timeout)
	if !ok {
		return Info{}, false
	}
	count := countLines(out)
	return Info{Scope: ScopeProject, Description: fmt.Sprintf("Deletes %s", formatCount(count, "tracked file"))}, true
}

func computeGitCleanForce(e env.Environment, _ string, _ *regexp.Regexp) (Info, bool) {
	out, ok := e.RunCommand("git", []string{"clean", "-dn"}, Timeout)
	if !ok {
		return Info{}, false
	}
	count := countLines(out)
	return Info{Scope: ScopeProject, Description: fmt.Sprintf("Removes %s", formatCount(count, "untracked file/directory"))}, true
}

func computeGitForcePush(e env.Environment, command string, _ *regexp.Regexp) (Info, bool) {
	branch, ok := extractGitPushBranch(command)
	if !ok {
		out, okBranch := e.RunCommand("git", []string{"rev-parse", "--abbrev-ref", "HEAD"}, Timeout)
		if !okBranch {
			return Info{}, false
		}
		branch = out
	}
	ref := fmt.Sprintf("origin/%s..HEAD", branch)
	out, ok := e.RunCommand("git", []string{"rev-list", "--count", ref}, Timeout)
	count := 0
	if ok {
		count, _ = strconv.Atoi(strings.TrimSpace(out))
	}
	if count == 0 {
		return Info{Scope: ScopeProject, Description: fmt.Sprintf("Force-pushes to origin/%s", branch)}, true
	}
	return Info{
		Scope:       ScopeProject,
		Description: fmt.Sprintf("Force-pushes %s to origin/%s", formatCount(count, "commit"), branch),
	}, true
}

func extractGitPushBranch(command string) (string, bool) {
	tokens := strings.Fields(command)
	for i, t := range tokens {
		if t != "push" {
			continue
		}
		for _, cand := range tokens[i+1:] {
			if strings.HasPrefix(cand, "-") {
				continue
			}
			parts := strings.Split(cand, ":")
			return parts[len(parts)-1], true
		}
	}
	return "", false
}

func computeGitForceDeleteBranch(_ env.Environment, command string, _ *regexp.Regexp) (Info, bool) {
	tokens := strings.Fields(command)
	for i, t := range tokens {
		if t == "-D" && i+1 < len(tokens) {
			return Info{Scope: ScopeResource, Description: fmt.Sprintf("Force-deletes branch %s", tokens[i+1])}, true
		}
	}
	return Info{}, false
}

func computeGitForceCheckout(e env.Environment, _ string, _ *regexp.Regexp) (Info, bool) {
	out, ok := e.RunCommand("git", []string{"diff", "--name-only"}, Timeout)
	if !ok {
		return Info{}, false
	}
	count := countLines(out)
	return Info{Scope: ScopeResource, Description: fmt.Sprintf("Discards changes in %s", formatCount(count, "file"))}, true
}

func computeGitFilterBranch(e env.Environment, _ string, _ *regexp.Regexp) (Info, bool) {
	out, ok := e.RunCommand("git", []string{"rev-list", "--count", "HEAD"}, Timeout)
	if !ok {
		return Info{}, false
	}
	count, _ := strconv.Atoi(strings.TrimSpace(out))
	return Info{Scope: ScopeProject, Description: fmt.Sprintf("Rewrites history of %s", formatCount(count, "commit"))}, true
}

func computeGitStrictAddAll(e env.Environment, _ string, _ *regexp.Regexp) (Info, bool) {
	out, ok := e.RunCommand("git", []string{"status", "--short"}, Timeout)
	if !ok {
		return Info{}, false
	}
	count := countLines(out)
	return Info{Scope: ScopeProject, Description: fmt.Sprintf("Stages %s", formatCount(count, "file"))}, true
}

func computeGitStrictCommitAll(e env.Environment, _ string, _ *regexp.Regexp) (Info, bool) {
	out, ok := e.RunCommand("git", []string{"status", "--short"}, Timeout)
	if !ok {
		return Info{}, false
	}
	count := countLines(out)
	return Info{Scope: ScopeProject, Description: fmt.Sprintf("Commits all changes across %s", formatCount(count, "file"))}, true
}

// --- docker group ---

func dockerCount(e env.Environment, args ...string) (int, bool) {
	out, ok := e.RunCommand("docker", args, Timeout)
	if !ok {
		return 0, false
	}
	return countLines(out), true
}

func computeDockerSystemPrune(e env.Environment, _ string, _ *regexp.Regexp) (Info, bool) {
	images, _ := dockerCount(e, "images", "-q")
	containers, _ := dockerCount(e, "ps", "-aq")
	volumes, _ := dockerCount(e, "volume", "ls", "-q")
	if images == 0 && containers == 0 && volumes == 0 {
		return Info{}, false
	}
	return Info{
		Scope: ScopeMachine,
		Description: fmt.Sprintf("Prunes up to %s images, %s containers, %s volumes",
			formatNumber(images), formatNumber(containers), formatNumber(volumes)),
	}, true
}

func computeDockerForceRemoveContainers(e env.Environment, _ string, _ *regexp.Regexp) (Info, bool) {
	count, ok := dockerCount(e, "ps", "-q")
	if !ok {
		return Info{}, false
	}
	return Info{Scope: ScopeMachine, Description: fmt.Sprintf("Removes %s", formatCount(count, "running container"))}, true
}

func computeDockerVolumePrune(e env.Environment, _ string, _ *regexp.Regexp) (Info, bool) {
	count, ok := dockerCount(e, "volume", "ls", "-q")
	if !ok {
		return Info{}, false
	}
	return Info{Scope: ScopeMachine, Description: fmt.Sprintf("Prunes %s", formatCount(count, "unused volume"))}, true
}

func computeDockerStopAll(e env.Environment, _ string, _ *regexp.Regexp) (Info, bool) {
	count, ok := dockerCount(e, "ps", "-q")
	if !ok {
		return Info{}, false
	}
	return Info{Scope: ScopeMachine, Description: fmt.Sprintf("Stops %s", formatCount(count, "running container"))}, true
}

// --- kubernetes group ---

func computeKubernetesDeleteNamespace(e env.Environment, command string, re *regexp.Regexp) (Info, bool) {
	ns, ok := extractNamespace(command)
	if !ok {
		return Info{}, false
	}
	binary, ok := captureGroup(re, command, 1)
	if !ok {
		binary = "kubectl"
	}
	out, ok := e.RunCommand(binary, []string{"get", "all", "-n", ns, "--no-headers"}, Timeout)
	if !ok {
		return Info{Scope: ScopeNamespace, Description: fmt.Sprintf("Deletes namespace '%s'", ns)}, true
	}
	count := countLines(out)
	if count == 0 {
		return Info{Scope: ScopeNamespace, Description: fmt.Sprintf("Deletes namespace '%s'", ns)}, true
	}
	return Info{
		Scope:       ScopeNamespace,
		Description: fmt.Sprintf("Deletes namespace '%s' with %s", ns, formatCount(count, "resource")),
	}, true
}

func extractNamespace(command string) (string, bool) {
	tokens := strings.Fields(command)
	for i, t := range tokens {
		if (t == "ns" || t == "namespace") && i+1 < len(tokens) {
			cand := tokens[i+1]
			if strings.HasPrefix(cand, "-") {
				return "", false
			}
			return cand, true
		}
	}
	return "", false
}
