package providers

import (
	"fmt"
	"sort"

	"github.com/yourusername/misc-installer-go/internal/domain"
)

// Registry holds the providers by key
type Registry struct {
	providers map[string]domain.Provider
}

// screens is a UI that keeps one screen per framework
type screens interface {
	Screen(framework string) domain.UI
}

// NewRegistry builds every provider from the configuration. When deps.UI
// keeps per-framework screens, each provider reports through its own.
func NewRegistry(cfg *domain.Config, deps Deps) *Registry {
	path := func(name string) string {
		return cfg.Install.InstallPath(Category, name)
	}
	depsFor := func(name string) Deps {
		d := deps
		if s, ok := deps.UI.(screens); ok {
			d.UI = s.Screen(name)
		}
		return d
	}

	r := &Registry{providers: make(map[string]domain.Provider)}
	r.Register(NewPopcorntime(path("popcorntime"), cfg.Vendor("popcorntime"), depsFor("popcorntime")))
	r.Register(NewDrjava(path("drjava"), cfg.Vendor("drjava"), depsFor("drjava")))
	r.Register(NewProcessing(path("processing"), cfg.Vendor("processing"), depsFor("processing")))
	return r
}

// Register adds or replaces a provider
func (r *Registry) Register(p domain.Provider) {
	if r.providers == nil {
		r.providers = make(map[string]domain.Provider)
	}
	r.providers[p.Descriptor().Key()] = p
}

// Get returns the provider registered under name
func (r *Registry) Get(name string) (domain.Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownFramework, name)
	}
	return p, nil
}

// Names returns the registered keys in order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns the providers ordered by key
func (r *Registry) All() []domain.Provider {
	var all []domain.Provider
	for _, name := range r.Names() {
		all = append(all, r.providers[name])
	}
	return all
}

var (
	_ domain.Provider        = (*Popcorntime)(nil)
	_ domain.Provider        = (*Drjava)(nil)
	_ domain.Provider        = (*Processing)(nil)
	_ domain.CustomInstaller = (*Drjava)(nil)
	_ domain.ArchiveLayout   = (*Processing)(nil)
	_ domain.VersionReporter = (*Processing)(nil)
	_ domain.Remover         = (*Popcorntime)(nil)
)
