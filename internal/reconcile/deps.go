package reconcile

import (
	"fmt"
	"sort"
	"strings"
)

// HostModuleFunc reports whether a dependency id is provided by the host
// platform itself. Host-module deps never participate in validation.
type HostModuleFunc func(id string) bool

// DependencyGraph answers direct and transitive required-plugin queries over
// a registry. It is rebuilt on demand and owned by the session loop.
type DependencyGraph struct {
	registry     *Registry
	isHostModule HostModuleFunc
}

// NewDependencyGraph creates a graph over the registry.
func NewDependencyGraph(registry *Registry, isHostModule HostModuleFunc) *DependencyGraph {
	if isHostModule == nil {
		isHostModule = func(string) bool { return false }
	}
	return &DependencyGraph{registry: registry, isHostModule: isHostModule}
}

// Required returns the direct non-optional, non-host dependency ids of a
// plugin.
func (g *DependencyGraph) Required(id string) []string {
	d := g.registry.Find(id)
	if d == nil {
		return nil
	}
	var out []string
	for _, depID := range d.RequiredDependencyIDs() {
		if !g.isHostModule(depID) {
			out = append(out, depID)
		}
	}
	return out
}

// TransitiveRequired returns the full closure of required dependency ids of
// a plugin, in breadth-first order, excluding the plugin itself.
func (g *DependencyGraph) TransitiveRequired(id string) []string {
	seen := map[string]bool{id: true}
	var out []string
	queue := g.Required(id)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if seen[next] {
			continue
		}
		seen[next] = true
		out = append(out, next)
		queue = append(queue, g.Required(next)...)
	}
	return out
}

// Dependents returns the ids of enabled, non-deleted plugins that require id
// directly or transitively.
func (g *DependencyGraph) Dependents(id string) []string {
	var out []string
	for _, d := range g.registry.All() {
		if d.ID == id || d.Deleted || !d.IsEnabled() || d.ImplementationDetail {
			continue
		}
		for _, req := range g.TransitiveRequired(d.ID) {
			if req == id {
				out = append(out, d.ID)
				break
			}
		}
	}
	return out
}

// Unsatisfied returns, per enabled loaded plugin, the direct required
// dependencies that are missing, deleted or disabled.
func (g *DependencyGraph) Unsatisfied() map[string][]string {
	result := make(map[string][]string)
	for _, d := range g.registry.All() {
		if !d.Loaded || d.Deleted || !d.IsEnabled() {
			continue
		}
		for _, depID := range g.Required(d.ID) {
			dep := g.registry.Find(depID)
			if dep == nil || dep.Deleted || !dep.IsEnabled() {
				result[d.ID] = append(result[d.ID], depID)
			}
		}
	}
	return result
}

// ValidationError aggregates every unmet hard dependency found at apply time
// into a single failure, so the whole apply aborts with one message.
type ValidationError struct {
	// Missing maps a dependency display name to the plugins requiring it.
	Missing []string
}

func (e *ValidationError) Error() string {
	quoted := make([]string, len(e.Missing))
	for i, name := range e.Missing {
		quoted[i] = fmt.Sprintf("%q", name)
	}
	return fmt.Sprintf("unable to apply changes: requires %s", strings.Join(quoted, ", "))
}

// Validate checks all enabled plugins for unmet hard dependencies and
// returns a consolidated ValidationError naming them, or nil.
func (g *DependencyGraph) Validate() error {
	unsat := g.Unsatisfied()
	if len(unsat) == 0 {
		return nil
	}

	names := make(map[string]bool)
	for _, depIDs := range unsat {
		for _, depID := range depIDs {
			name := depID
			if dep := g.registry.Find(depID); dep != nil {
				name = dep.Name
			}
			names[name] = true
		}
	}

	missing := make([]string, 0, len(names))
	for name := range names {
		missing = append(missing, name)
	}
	sort.Strings(missing)
	return &ValidationError{Missing: missing}
}
