package provider

import (
	"sort"
	"sync"

	"github.com/alienxp03/courtroom/internal/core"
)

// Registry records which generator serves each courtroom role. Roles bound
// to the same account share one generator, so a health check or a rate
// limit is seen once per account rather than once per role.
type Registry struct {
	mu       sync.RWMutex
	byName   map[string]Provider
	bindings map[core.Role]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:   make(map[string]Provider),
		bindings: make(map[core.Role]string),
	}
}

// Bind attaches p to role and returns the generator the role will actually
// use. When a generator with the same name is already bound elsewhere, that
// one is reused and p is discarded. Rebinding a role drops its previous
// generator once no other role uses it.
func (r *Registry) Bind(role core.Role, p Provider) Provider {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if existing, ok := r.byName[name]; ok {
		p = existing
	} else {
		r.byName[name] = p
	}

	prev, had := r.bindings[role]
	r.bindings[role] = name
	if had && prev != name && len(r.rolesLocked(prev)) == 0 {
		delete(r.byName, prev)
	}
	return p
}

// For returns the generator bound to role.
func (r *Registry) For(role core.Role) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byName[r.bindings[role]]
	return p, ok
}

// Binding returns the name of the generator bound to role, or "" if the
// role is unbound.
func (r *Registry) Binding(role core.Role) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bindings[role]
}

// Bindings returns a copy of the role to generator name map.
func (r *Registry) Bindings() map[core.Role]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[core.Role]string, len(r.bindings))
	for role, name := range r.bindings {
		out[role] = name
	}
	return out
}

// Roles returns the roles served by the named generator, in cast order.
func (r *Registry) Roles(name string) []core.Role {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rolesLocked(name)
}

func (r *Registry) rolesLocked(name string) []core.Role {
	var roles []core.Role
	for _, role := range core.Roles {
		if r.bindings[role] == name {
			roles = append(roles, role)
		}
	}
	return roles
}

// List returns the bound generators sorted by name.
func (r *Registry) List() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]Provider, 0, len(r.byName))
	for _, p := range r.byName {
		providers = append(providers, p)
	}
	sort.Slice(providers, func(i, j int) bool { return providers[i].Name() < providers[j].Name() })
	return providers
}

// Names returns the names of the bound generators, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unconfigured returns the names of bound generators that lack credentials.
// Pinging them would only spend a timeout.
func (r *Registry) Unconfigured() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for name, p := range r.byName {
		if !p.Available() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
