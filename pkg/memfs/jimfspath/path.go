// Package jimfspath implements the path value object used throughout memfs:
// an optional root name plus an ordered list of name components, with
// resolve/relativize/subpath operations and URI round-tripping.
package jimfspath

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/mutagen-io/memfs/pkg/memfs/pathtype"
)

// Path is an immutable path value: an optional root plus an ordered list of
// name components. A Path with no root and no names is the empty path,
// which represents the working directory when resolved.
type Path struct {
	pathType *pathtype.PathType
	root     *pathtype.Name
	names    []pathtype.Name
}

// New constructs a Path directly from a root and names. Most callers should
// use Parse instead.
func New(pt *pathtype.PathType, root *pathtype.Name, names []pathtype.Name) *Path {
	return &Path{pathType: pt, root: root, names: append([]pathtype.Name(nil), names...)}
}

// Parse parses a raw path string using the given PathType.
func Parse(pt *pathtype.PathType, raw string) (*Path, error) {
	result, err := pt.Parse(raw)
	if err != nil {
		return nil, err
	}
	return fromParseResult(pt, result), nil
}

func fromParseResult(pt *pathtype.PathType, result pathtype.ParseResult) *Path {
	var root *pathtype.Name
	if result.Root != nil {
		n := pt.CanonicalizeName(*result.Root)
		root = &n
	}
	names := make([]pathtype.Name, len(result.Names))
	for i, raw := range result.Names {
		names[i] = pt.CanonicalizeName(raw)
	}
	return &Path{pathType: pt, root: root, names: names}
}

// PathType returns the PathType this Path was parsed with.
func (p *Path) PathType() *pathtype.PathType {
	return p.pathType
}

// IsAbsolute reports whether the path has a root component.
func (p *Path) IsAbsolute() bool {
	return p.root != nil
}

// IsEmpty reports whether the path has neither a root nor any names; an
// empty path resolves to the working directory.
func (p *Path) IsEmpty() bool {
	return p.root == nil && len(p.names) == 0
}

// Root returns the path's root name, or nil if the path is relative.
func (p *Path) Root() *pathtype.Name {
	return p.root
}

// Names returns the path's ordered name components.
func (p *Path) Names() []pathtype.Name {
	return append([]pathtype.Name(nil), p.names...)
}

// String renders the path back to its flavor-specific string form.
func (p *Path) String() string {
	var rootStr *string
	if p.root != nil {
		s := p.root.Display()
		rootStr = &s
	}
	displays := make([]string, len(p.names))
	for i, n := range p.names {
		displays[i] = n.Display()
	}
	return p.pathType.ToString(rootStr, displays)
}

// Equals reports whether two paths are equal. useCanonical controls whether
// comparison uses canonical or display form, per
// Configuration.pathEqualityUsesCanonicalForm.
func (p *Path) Equals(other *Path, useCanonical bool) bool {
	if (p.root == nil) != (other.root == nil) {
		return false
	}
	if p.root != nil {
		if useCanonical {
			if p.root.Canonical() != other.root.Canonical() {
				return false
			}
		} else if p.root.Display() != other.root.Display() {
			return false
		}
	}
	if len(p.names) != len(other.names) {
		return false
	}
	for i := range p.names {
		if useCanonical {
			if p.names[i].Canonical() != other.names[i].Canonical() {
				return false
			}
		} else if p.names[i].Display() != other.names[i].Display() {
			return false
		}
	}
	return true
}

// Compare lexicographically compares two paths using canonical form,
// root first, then name-by-name.
func Compare(a, b *Path) int {
	ar, br := "", ""
	if a.root != nil {
		ar = a.root.Canonical()
	}
	if b.root != nil {
		br = b.root.Canonical()
	}
	if c := strings.Compare(ar, br); c != 0 {
		return c
	}
	for i := 0; i < len(a.names) && i < len(b.names); i++ {
		if c := strings.Compare(a.names[i].Canonical(), b.names[i].Canonical()); c != 0 {
			return c
		}
	}
	return len(a.names) - len(b.names)
}

// Normalize removes "." segments and resolves ".." segments against
// preceding names where possible, returning a new Path. A path with no "."
// or ".." segments is returned unchanged in value (spec.md §8:
// normalize(path).equals(path) iff path has no "." or ".." segments).
func (p *Path) Normalize() *Path {
	var result []pathtype.Name
	for _, n := range p.names {
		switch {
		case n.IsSelf():
			continue
		case n.IsParent():
			if len(result) > 0 && !result[len(result)-1].IsParent() {
				result = result[:len(result)-1]
			} else if p.root == nil {
				result = append(result, n)
			}
			// If rooted, a leading ".." with nothing to pop is dropped: it
			// cannot go above the root.
		default:
			result = append(result, n)
		}
	}
	return New(p.pathType, p.root, result)
}

// Resolve resolves other against p: if other is absolute, it is returned
// as-is; otherwise p's names are concatenated with other's.
func (p *Path) Resolve(other *Path) *Path {
	if other.IsAbsolute() {
		return other
	}
	if other.IsEmpty() {
		return p
	}
	combined := append(append([]pathtype.Name(nil), p.names...), other.names...)
	return New(p.pathType, p.root, combined)
}

// Relativize computes a path q such that p.Resolve(q) equals other,
// provided both paths share the same rootedness. It returns an error if the
// paths have different roots (relativization across roots is undefined).
func (p *Path) Relativize(other *Path) (*Path, error) {
	if p.IsAbsolute() != other.IsAbsolute() {
		return nil, errors.New("cannot relativize paths with different rootedness")
	}
	if p.IsAbsolute() && p.root.Canonical() != other.root.Canonical() {
		return nil, errors.New("cannot relativize paths with different roots")
	}

	common := 0
	for common < len(p.names) && common < len(other.names) &&
		p.names[common].Canonical() == other.names[common].Canonical() {
		common++
	}

	var result []pathtype.Name
	for i := common; i < len(p.names); i++ {
		result = append(result, pathtype.Parent)
	}
	result = append(result, other.names[common:]...)

	return New(p.pathType, nil, result), nil
}

// Subpath returns the subpath from beginIndex (inclusive) to endIndex
// (exclusive) over the name components, always relative.
func (p *Path) Subpath(beginIndex, endIndex int) (*Path, error) {
	if beginIndex < 0 || endIndex > len(p.names) || beginIndex > endIndex {
		return nil, errors.Errorf("invalid subpath range [%d, %d) for path with %d names", beginIndex, endIndex, len(p.names))
	}
	return New(p.pathType, nil, p.names[beginIndex:endIndex]), nil
}

// StartsWith reports whether p begins with other's root (if any) and
// leading name components.
func (p *Path) StartsWith(other *Path) bool {
	if other.IsAbsolute() {
		if !p.IsAbsolute() || p.root.Canonical() != other.root.Canonical() {
			return false
		}
	}
	if len(other.names) > len(p.names) {
		return false
	}
	for i, n := range other.names {
		if p.names[i].Canonical() != n.Canonical() {
			return false
		}
	}
	return true
}

// EndsWith reports whether p ends with other's trailing name components
// (and, if other is absolute, that p is too and shares its root).
func (p *Path) EndsWith(other *Path) bool {
	if other.IsAbsolute() {
		return p.IsAbsolute() && p.root.Canonical() == other.root.Canonical() &&
			len(p.names) == len(other.names) && p.StartsWith(other)
	}
	if len(other.names) > len(p.names) {
		return false
	}
	offset := len(p.names) - len(other.names)
	for i, n := range other.names {
		if p.names[offset+i].Canonical() != n.Canonical() {
			return false
		}
	}
	return true
}

// ToURI renders the path as a percent-escaped URI path per spec.md §6.
func (p *Path) ToURI(isDirectory bool) string {
	var rootStr *string
	if p.root != nil {
		s := p.root.Display()
		rootStr = &s
	}
	displays := make([]string, len(p.names))
	for i, n := range p.names {
		displays[i] = n.Display()
	}
	return p.pathType.ToURIPath(rootStr, displays, isDirectory)
}

// FromURI parses a percent-escaped URI path back into a Path.
func FromURI(pt *pathtype.PathType, uriPath string) (*Path, error) {
	result, err := pt.FromURIPath(uriPath)
	if err != nil {
		return nil, err
	}
	return fromParseResult(pt, result), nil
}
