// Package attr implements the attribute view system described in
// spec.md §4.5: a composable set of Providers (basic, owner, posix, unix,
// dos, acl, user), each declaring a fixed attribute schema and an
// inheritance relationship to other views, and an AttributeService that
// resolves "view:name" keys against the enabled provider set.
package attr

import (
	"reflect"

	"github.com/mutagen-io/memfs/pkg/memfs/errs"
	"github.com/mutagen-io/memfs/pkg/memfs/tree"
)

// View names for the built-in providers.
const (
	ViewBasic = "basic"
	ViewOwner = "owner"
	ViewPosix = "posix"
	ViewUnix  = "unix"
	ViewDOS   = "dos"
	ViewACL   = "acl"
	ViewUser  = "user"
)

// Provider computes and validates the attributes of a single view.
type Provider interface {
	// ViewName returns the view's name, e.g. "basic".
	ViewName() string

	// Inherits returns the view names this provider reads from when
	// computing derived attributes. Enabling a provider transitively
	// enables everything it (transitively) inherits.
	Inherits() []string

	// Schema returns the view's fixed attribute names and their expected
	// Go types, used to type-check SetAttribute calls. The "user" provider
	// has no fixed schema and returns nil; its names are arbitrary and are
	// handled specially by AttributeService.
	Schema() map[string]reflect.Type

	// DefaultValues computes this view's initial attribute values for a
	// newly created file, given any user-configured default overrides
	// (addressed by bare attribute name within this view).
	DefaultValues(userDefaults map[string]any) map[string]any

	// Settable reports whether name may ever be changed via SetAttribute
	// (whether at creation time or later). Attributes that are always
	// computed from other state (e.g. basic's fileKey, unix's nlink) are
	// never settable.
	Settable(name string) bool

	// Read computes this view's current values for file, given the
	// already-computed values of every view it inherits (keyed by bare
	// name, merged across the inherited closure). Implementations read
	// through to file's stored attributes and underlying state as needed.
	Read(file *tree.File, inherited map[string]any) map[string]any
}

// providerRegistry holds the built-in providers, keyed by view name.
var providerRegistry = map[string]Provider{
	ViewBasic: basicProvider{},
	ViewOwner: ownerProvider{},
	ViewPosix: posixProvider{},
	ViewUnix:  unixProvider{},
	ViewDOS:   dosProvider{},
	ViewACL:   aclProvider{},
	ViewUser:  userProvider{},
}

// closure computes the transitive closure of a set of requested view
// names over the Inherits relationship.
func closure(requested []string) (map[string]Provider, error) {
	enabled := make(map[string]Provider)
	var visit func(name string) error
	visit = func(name string) error {
		if _, ok := enabled[name]; ok {
			return nil
		}
		p, ok := providerRegistry[name]
		if !ok {
			return errs.Newf(errs.Unsupported, "unknown attribute view: %s", name)
		}
		enabled[name] = p
		for _, dep := range p.Inherits() {
			if err := visit(dep); err != nil {
				return err
			}
		}
		return nil
	}
	for _, name := range requested {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return enabled, nil
}

// dependencyOrder topologically sorts the given provider set so that every
// provider appears after everything it inherits from (per DESIGN NOTES §9
// / spec.md §4.5's "walks providers in dependency order").
func dependencyOrder(enabled map[string]Provider) []Provider {
	var order []Provider
	visited := make(map[string]bool)
	var visit func(p Provider)
	visit = func(p Provider) {
		if visited[p.ViewName()] {
			return
		}
		visited[p.ViewName()] = true
		for _, dep := range p.Inherits() {
			if depProvider, ok := enabled[dep]; ok {
				visit(depProvider)
			}
		}
		order = append(order, p)
	}
	// Iterate in a fixed, deterministic order (registry declaration order)
	// so the topological sort's output is stable across runs.
	for _, name := range []string{ViewBasic, ViewOwner, ViewPosix, ViewUnix, ViewDOS, ViewACL, ViewUser} {
		if p, ok := enabled[name]; ok {
			visit(p)
		}
	}
	return order
}
