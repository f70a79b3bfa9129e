package rules

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/datatide-labs/datatide/pkg/dataset"
)

// Builder constructs a rule from an arbitrary key-value configuration.
type Builder func(ctx context.Context, cfg map[string]any, env BuildEnv) (Rule, error)

// BuildEnv carries the collaborators builders need beyond their config,
// currently just the loader used to stage on-disk reference datasets.
type BuildEnv struct {
	Loader ReferenceLoader
}

// ReferenceLoader stages an on-disk dataset into the engine. Implemented by
// *dataset.Engine.
type ReferenceLoader interface {
	Load(ctx context.Context, name, path, format string) (*dataset.Dataset, error)
}

// Definition is a registry entry: a named, tagged rule type and its builder.
type Definition struct {
	Name        string
	Description string
	Tags        []string
	Build       Builder
}

// HasTag reports whether the definition carries the tag (case-insensitive).
func (d Definition) HasTag(tag string) bool {
	tag = strings.ToLower(tag)
	for _, t := range d.Tags {
		if strings.ToLower(t) == tag {
			return true
		}
	}
	return false
}

// Registry is an append-only catalog of rule definitions keyed by
// lowercased type name. Construct one per process and inject it into the
// configuration layer; tests can build fresh registries freely.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Register adds a definition. Registering a name twice (case-insensitive)
// fails with a DuplicateRuleError; nothing is ever silently shadowed.
func (r *Registry) Register(def Definition) error {
	key := strings.ToLower(def.Name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[key]; exists {
		return &DuplicateRuleError{Name: def.Name}
	}
	r.defs[key] = def
	return nil
}

// Lookup returns the definition registered under the name
// (case-insensitive), or an UnknownRuleTypeError.
func (r *Registry) Lookup(name string) (Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.defs[strings.ToLower(name)]
	if !ok {
		return Definition{}, &UnknownRuleTypeError{Type: name, Available: r.names()}
	}
	return def, nil
}

// List returns all definitions sorted by name. A non-empty tag filters to
// definitions carrying it (case-insensitive).
func (r *Registry) List(tag string) []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.defs))
	for _, def := range r.defs {
		if tag != "" && !def.HasTag(tag) {
			continue
		}
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// names returns registered names sorted; callers must hold the lock.
func (r *Registry) names() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnknownRuleTypeError is returned when a rule type is not registered.
type UnknownRuleTypeError struct {
	Type      string
	Available []string
}

func (e *UnknownRuleTypeError) Error() string {
	return fmt.Sprintf("unknown rule type %q (available: %v)", e.Type, e.Available)
}

// DuplicateRuleError is returned when a rule type name is registered twice.
type DuplicateRuleError struct {
	Name string
}

func (e *DuplicateRuleError) Error() string {
	return fmt.Sprintf("rule type %q is already registered", e.Name)
}
