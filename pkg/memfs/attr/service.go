package attr

import (
	"reflect"
	"strings"
	"time"

	"github.com/mutagen-io/memfs/pkg/memfs/errs"
	"github.com/mutagen-io/memfs/pkg/memfs/tree"
)

// Service resolves "view:name" attribute keys against a fixed, enabled set
// of Providers (the transitive closure of a configured view list),
// implementing the algorithms of spec.md §4.5.
type Service struct {
	enabled map[string]Provider
	order   []Provider // dependency order: a view always follows everything it inherits
}

// NewService enables the given view names (and everything they
// transitively inherit) and returns a Service for operating on files under
// that configuration.
func NewService(views ...string) (*Service, error) {
	enabled, err := closure(views)
	if err != nil {
		return nil, err
	}
	return &Service{enabled: enabled, order: dependencyOrder(enabled)}, nil
}

// splitKey splits a "view:name" key, defaulting to the basic view if no
// "view:" prefix is present.
func splitKey(key string) (view, name string) {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i], key[i+1:]
	}
	return ViewBasic, key
}

// providerFor returns the enabled provider for view, or an error if that
// view is not enabled.
func (s *Service) providerFor(view string) (Provider, error) {
	p, ok := s.enabled[view]
	if !ok {
		return nil, errs.Newf(errs.Unsupported, "attribute view not supported: %s", view)
	}
	return p, nil
}

// SetInitialAttributes walks the enabled providers in dependency order,
// inserting each one's computed defaults, then applies userOverrides
// ("view:name" -> value). An override naming an attribute that is not
// settable, or a view that is not enabled, fails with Unsupported; an
// override naming an unknown fixed-schema name, or carrying a value of the
// wrong type, fails with InvalidArgument.
func (s *Service) SetInitialAttributes(file *tree.File, userDefaults map[string]any, userOverrides map[string]any) error {
	for _, p := range s.order {
		view := p.ViewName()
		viewDefaults := map[string]any{}
		for k, v := range userDefaults {
			if strings.HasPrefix(k, view+":") {
				viewDefaults[strings.TrimPrefix(k, view+":")] = v
			}
		}
		for name, value := range p.DefaultValues(viewDefaults) {
			file.SetAttribute(view+":"+name, value)
		}
	}

	for key, value := range userOverrides {
		if err := s.setAttributeChecked(file, key, value); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) setAttributeChecked(file *tree.File, key string, value any) error {
	view, name := splitKey(key)
	p, err := s.providerFor(view)
	if err != nil {
		return err
	}

	schema := p.Schema()
	if schema != nil {
		if _, ok := schema[name]; !ok {
			return errs.Newf(errs.InvalidArgument, "unknown attribute: %s", key)
		}
	}
	if !p.Settable(name) {
		return errs.Newf(errs.Unsupported, "attribute is not settable: %s", key)
	}
	if schema != nil {
		if value == nil || !reflect.TypeOf(value).AssignableTo(schema[name]) {
			return errs.Newf(errs.InvalidArgument, "attribute %s expects a value of type %s, got %T", key, schema[name], value)
		}
	} else if _, ok := value.([]byte); !ok {
		return errs.Newf(errs.InvalidArgument, "user attribute %s expects a []byte value, got %T", key, value)
	}

	if view == ViewBasic {
		switch name {
		case "creationTime":
			t := value.(time.Time)
			file.SetTimes(&t, nil, nil)
			return nil
		case "lastAccessTime":
			t := value.(time.Time)
			file.SetTimes(nil, &t, nil)
			return nil
		case "lastModifiedTime":
			t := value.(time.Time)
			file.SetTimes(nil, nil, &t)
			return nil
		}
	}

	file.SetAttribute(key, value)
	return nil
}

// SetAttribute sets a single "view:name" attribute on an already-created
// file, applying the same settability and schema checks as
// SetInitialAttributes' override pass.
func (s *Service) SetAttribute(file *tree.File, key string, value any) error {
	return s.setAttributeChecked(file, key, value)
}

// GetAttribute returns the value of a "view:name" key: the value stored on
// the file if there is one, otherwise the value the view's provider
// computes (e.g. basic:size). The view must be enabled and must itself
// define name (an attribute defined by an inherited view is not visible
// through a dependent view's own prefix).
func (s *Service) GetAttribute(file *tree.File, key string) (any, error) {
	view, name := splitKey(key)
	p, err := s.providerFor(view)
	if err != nil {
		return nil, err
	}
	if schema := p.Schema(); schema != nil {
		if _, ok := schema[name]; !ok {
			return nil, errs.Newf(errs.InvalidArgument, "unknown attribute: %s", key)
		}
	}
	if value, ok := file.Attribute(key); ok {
		return value, nil
	}
	if p.Schema() != nil {
		all, err := s.readAllForView(file, view)
		if err != nil {
			return nil, err
		}
		if value, ok := all[name]; ok {
			return value, nil
		}
	}
	return nil, errs.Newf(errs.NotFound, "attribute not set: %s", key)
}

// ReadAttributes implements readAttributes(file, "view:*") (returns every
// attribute visible through view, including those it inherits, keyed by
// bare name) as well as readAttributes(file, "view:name1", "view:name2",
// ...) (returns just the requested names). Mixing "*" with explicit names
// in the same call is a format error.
func (s *Service) ReadAttributes(file *tree.File, keys ...string) (map[string]any, error) {
	if len(keys) == 0 {
		return nil, errs.New(errs.InvalidArgument, "no attribute names requested")
	}

	view, first := splitKey(keys[0])
	wildcard := first == "*"
	for _, key := range keys[1:] {
		v, name := splitKey(key)
		if v != view {
			return nil, errs.New(errs.InvalidArgument, "cannot mix views in a single readAttributes call")
		}
		if (name == "*") != wildcard {
			return nil, errs.New(errs.InvalidArgument, "cannot mix \"*\" with explicit attribute names")
		}
	}

	if wildcard {
		return s.readAllForView(file, view)
	}

	result := make(map[string]any, len(keys))
	for _, key := range keys {
		_, name := splitKey(key)
		value, err := s.GetAttribute(file, view+":"+name)
		if err != nil {
			return nil, err
		}
		result[name] = value
	}
	return result, nil
}

// readAllForView computes view's full attribute map, including everything
// it transitively inherits, keyed by bare attribute name.
func (s *Service) readAllForView(file *tree.File, view string) (map[string]any, error) {
	if view == ViewUser {
		return file.AttributesByView(ViewUser), nil
	}

	p, err := s.providerFor(view)
	if err != nil {
		return nil, err
	}

	// Compute dependency-ordered results for p and everything it
	// transitively inherits, merging as we go so p's Read sees its
	// dependencies' already-computed values.
	closureSet, err := closure([]string{view})
	if err != nil {
		return nil, err
	}
	merged := map[string]any{}
	for _, dep := range dependencyOrder(closureSet) {
		merged2 := map[string]any{}
		for k, v := range merged {
			merged2[k] = v
		}
		for k, v := range dep.Read(file, merged) {
			merged2[k] = v
		}
		merged = merged2
		if dep.ViewName() == p.ViewName() {
			break
		}
	}
	return merged, nil
}

// DeleteUserAttribute removes a "user:name" attribute, failing with
// NotFound (with a message naming the attribute) if it was never set.
func (s *Service) DeleteUserAttribute(file *tree.File, name string) error {
	if !file.DeleteAttribute(ViewUser + ":" + name) {
		return errs.Newf(errs.NotFound, "no such user attribute: %s", name)
	}
	return nil
}
