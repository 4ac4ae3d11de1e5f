// Package pathtype implements the flavor-specific parsing, canonicalization,
// and rendering rules for filesystem paths: the Unix, OS X, and Windows path
// syntaxes, Unicode name normalization, and glob pattern compilation.
package pathtype

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/bmatcuk/doublestar/v4"
)

// Flavor identifies which path syntax a PathType implements.
type Flavor uint8

const (
	// FlavorUnix is the Unix path syntax: "/" separator, single root.
	FlavorUnix Flavor = iota
	// FlavorOSX is the Unix path syntax with case-insensitive,
	// Unicode-decomposing canonical comparison.
	FlavorOSX
	// FlavorWindows is the Windows path syntax: drive-letter and UNC roots.
	FlavorWindows
)

// ParseResult is the outcome of parsing a path string: an optional root and
// an ordered list of name components between roots.
type ParseResult struct {
	Root  *string
	Names []string
}

// ParseError reports a parse failure together with the byte offset into the
// input string at which it was detected, per spec.md §4.1's requirement that
// parse failures carry a position index or a precise reason.
type ParseError struct {
	Reason   string
	Position int
}

func (e *ParseError) Error() string {
	return errors.Errorf("invalid path at position %d: %s", e.Position, e.Reason).Error()
}

// PathType holds the parsing, canonicalization, and rendering configuration
// for one path flavor.
type PathType struct {
	flavor                 Flavor
	separator              rune
	alternateSeparators    []rune
	canonicalNormalization Normalization
	displayNormalization   Normalization
	uriScheme              string
}

// reservedWindowsChars are disallowed in any Windows path component.
const reservedWindowsChars = `<>:"|?*`

// New constructs a PathType for the given flavor with the given
// canonical/display normalization sets. Most callers should use Unix, OSX,
// or Windows instead, which supply flavor-appropriate defaults; New exists
// for callers (notably Configuration) that want to override normalization.
func New(flavor Flavor, canonical, display Normalization) (*PathType, error) {
	if err := canonical.validate(); err != nil {
		return nil, errors.Wrap(err, "invalid canonical normalization")
	}
	if err := display.validate(); err != nil {
		return nil, errors.Wrap(err, "invalid display normalization")
	}

	pt := &PathType{
		flavor:                 flavor,
		canonicalNormalization: canonical,
		displayNormalization:   display,
	}

	switch flavor {
	case FlavorUnix, FlavorOSX:
		pt.separator = '/'
		pt.uriScheme = "memfs"
	case FlavorWindows:
		pt.separator = '\\'
		pt.alternateSeparators = []rune{'/'}
		pt.uriScheme = "memfs"
	default:
		return nil, errors.Errorf("unknown path flavor: %d", flavor)
	}

	return pt, nil
}

// Unix returns the default Unix PathType: no canonical or display
// normalization beyond the identity transform.
func Unix() *PathType {
	pt, _ := New(FlavorUnix, 0, 0)
	return pt
}

// OSX returns the default OS X PathType: case-insensitive (Unicode case
// folding) and NFD-decomposing canonical comparison, with no display
// normalization (names are shown to the user exactly as given).
func OSX() *PathType {
	pt, _ := New(FlavorOSX, NFD|CaseFoldUnicode, 0)
	return pt
}

// Windows returns the default Windows PathType: case-insensitive
// (ASCII-range, matching NTFS's common configuration) canonical comparison.
func Windows() *PathType {
	pt, _ := New(FlavorWindows, CaseFoldASCII, 0)
	return pt
}

// Flavor returns the path flavor this PathType implements.
func (pt *PathType) Flavor() Flavor {
	return pt.flavor
}

// Separator returns the primary path separator for this flavor.
func (pt *PathType) Separator() rune {
	return pt.separator
}

// isSeparator reports whether r is the primary or an alternate separator.
func (pt *PathType) isSeparator(r rune) bool {
	if r == pt.separator {
		return true
	}
	for _, alt := range pt.alternateSeparators {
		if r == alt {
			return true
		}
	}
	return false
}

// CanonicalizeName applies this PathType's canonical normalization to a raw
// component string, returning a Name pairing the display and canonical
// forms.
func (pt *PathType) CanonicalizeName(raw string) Name {
	display := pt.displayNormalization.apply(raw)
	canonical := pt.canonicalNormalization.apply(raw)
	return NewCanonicalName(display, canonical)
}

// splitComponents splits a path remainder into non-empty components,
// collapsing consecutive separators, using this PathType's separator set.
func (pt *PathType) splitComponents(s string) []string {
	var components []string
	var current strings.Builder
	for _, r := range s {
		if pt.isSeparator(r) {
			if current.Len() > 0 {
				components = append(components, current.String())
				current.Reset()
			}
			continue
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		components = append(components, current.String())
	}
	return components
}

// Parse parses a raw path string into a ParseResult per this flavor's
// syntax rules.
func (pt *PathType) Parse(path string) (ParseResult, error) {
	switch pt.flavor {
	case FlavorUnix, FlavorOSX:
		return pt.parseUnix(path)
	case FlavorWindows:
		return pt.parseWindows(path)
	default:
		return ParseResult{}, errors.Errorf("unknown path flavor: %d", pt.flavor)
	}
}

func (pt *PathType) parseUnix(path string) (ParseResult, error) {
	for i, r := range path {
		if r == 0 {
			return ParseResult{}, &ParseError{Reason: "NUL character in path", Position: i}
		}
	}

	result := ParseResult{}
	rest := path
	if strings.HasPrefix(path, "/") {
		root := "/"
		result.Root = &root
		rest = path[1:]
	}
	result.Names = pt.splitComponents(rest)
	return result, nil
}

func (pt *PathType) parseWindows(path string) (ParseResult, error) {
	for i, r := range path {
		if r == 0 {
			return ParseResult{}, &ParseError{Reason: "NUL character in path", Position: i}
		}
	}

	result := ParseResult{}
	rest := path

	if root, remainder, ok, err := pt.parseWindowsUNCRoot(path); err != nil {
		return ParseResult{}, err
	} else if ok {
		result.Root = &root
		rest = remainder
	} else if root, remainder, ok := pt.parseWindowsDriveRoot(path); ok {
		result.Root = &root
		rest = remainder
	}

	names := pt.splitComponents(rest)
	for _, name := range names {
		if err := pt.validateWindowsName(name); err != nil {
			return ParseResult{}, err
		}
	}
	result.Names = names
	return result, nil
}

// parseWindowsDriveRoot recognizes "X:\" (the trailing separator is
// required; bare "X:" is a drive-relative path, which this flavor rejects
// as unsupported per spec.md §4.1).
func (pt *PathType) parseWindowsDriveRoot(path string) (root, rest string, ok bool) {
	if len(path) < 2 {
		return "", "", false
	}
	c := path[0]
	if !((c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')) || path[1] != ':' {
		return "", "", false
	}
	if len(path) < 3 || !pt.isSeparator(rune(path[2])) {
		return "", "", false
	}
	root = strings.ToUpper(string(c)) + `:\`
	return root, path[3:], true
}

// parseWindowsUNCRoot recognizes "\\host\share\".
func (pt *PathType) parseWindowsUNCRoot(path string) (root, rest string, ok bool, err error) {
	if len(path) < 2 || !pt.isSeparator(rune(path[0])) || !pt.isSeparator(rune(path[1])) {
		return "", "", false, nil
	}

	remainder := path[2:]
	parts := pt.splitComponents(remainder)
	if len(parts) < 1 || parts[0] == "" {
		return "", "", false, &ParseError{Reason: "UNC path missing host", Position: 0}
	}
	if len(parts) < 2 || parts[1] == "" {
		return "", "", false, &ParseError{Reason: "UNC path missing share", Position: 0}
	}

	host, share := parts[0], parts[1]
	root = `\\` + host + `\` + share + `\`
	rest = stripLeadingComponents(pt, remainder, 2)
	return root, rest, true, nil
}

// stripLeadingComponents removes the first n path components (and their
// separators) from s, returning whatever follows.
func stripLeadingComponents(pt *PathType, s string, n int) string {
	consumed := 0
	i := 0
	runes := []rune(s)
	// Skip any leading separators.
	for i < len(runes) && pt.isSeparator(runes[i]) {
		i++
	}
	for consumed < n && i < len(runes) {
		start := i
		for i < len(runes) && !pt.isSeparator(runes[i]) {
			i++
		}
		if i > start {
			consumed++
		}
		for i < len(runes) && pt.isSeparator(runes[i]) {
			i++
		}
	}
	return string(runes[i:])
}

func (pt *PathType) validateWindowsName(name string) error {
	if strings.ContainsAny(name, reservedWindowsChars) {
		return errors.Errorf("reserved character in path component %q", name)
	}
	if name != strings.TrimRight(name, " ") {
		return errors.Errorf("trailing whitespace in path component %q", name)
	}
	return nil
}

// ToString renders a root and ordered names back to a flavor-appropriate
// path string. Roots always end in a separator (see Unix/OSX/Windows), so
// the root and the joined names can simply be concatenated.
func (pt *PathType) ToString(root *string, names []string) string {
	var b strings.Builder
	if root != nil {
		b.WriteString(*root)
	}
	b.WriteString(strings.Join(names, string(pt.separator)))
	return b.String()
}

// ToURIPath renders a root and ordered names as a percent-escaped URI path
// component, per spec.md §6.
func (pt *PathType) ToURIPath(root *string, names []string, isDirectory bool) string {
	var segments []string

	if root != nil {
		switch pt.flavor {
		case FlavorWindows:
			trimmed := strings.Trim(*root, `\`)
			if strings.HasPrefix(*root, `\\`) {
				// UNC root: "\\host\share\" -> "/host/share". The empty
				// first segment gives a single leading slash, which
				// FromURIPath reads back as the UNC marker; no doubled
				// "//host/share" form is produced.
				parts := strings.Split(trimmed, `\`)
				segments = append(segments, "")
				segments = append(segments, parts...)
			} else {
				// Drive root: "C:\" -> "C:".
				segments = append(segments, strings.TrimSuffix(*root, `\`))
			}
		default:
			segments = append(segments, "")
		}
	}

	segments = append(segments, names...)

	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}

	result := strings.Join(escaped, "/")
	if isDirectory && !strings.HasSuffix(result, "/") {
		result += "/"
	}
	return result
}

// FromURIPath parses a percent-escaped URI path component back into a
// ParseResult, the inverse of ToURIPath.
func (pt *PathType) FromURIPath(uriPath string) (ParseResult, error) {
	trimmed := strings.TrimSuffix(uriPath, "/")
	rawSegments := strings.Split(trimmed, "/")

	segments := make([]string, len(rawSegments))
	for i, s := range rawSegments {
		decoded, err := url.PathUnescape(s)
		if err != nil {
			return ParseResult{}, errors.Wrap(err, "unable to unescape URI path segment")
		}
		segments[i] = decoded
	}

	switch pt.flavor {
	case FlavorWindows:
		if len(segments) >= 1 && segments[0] == "" {
			// UNC form: "" host share names...
			if len(segments) < 3 {
				return ParseResult{}, errors.New("UNC URI path missing host or share")
			}
			root := `\\` + segments[1] + `\` + segments[2] + `\`
			return ParseResult{Root: &root, Names: segments[3:]}, nil
		}
		if len(segments) >= 1 && len(segments[0]) == 2 && segments[0][1] == ':' {
			root := segments[0] + `\`
			return ParseResult{Root: &root, Names: segments[1:]}, nil
		}
		return ParseResult{Names: segments}, nil
	default:
		if len(segments) >= 1 && segments[0] == "" {
			root := "/"
			return ParseResult{Root: &root, Names: segments[1:]}, nil
		}
		return ParseResult{Names: segments}, nil
	}
}

// Matcher matches a single path component (or, for patterns containing "/"
// or "**", a full relative path) against a compiled glob pattern.
type Matcher struct {
	pattern  string
	flavor   Flavor
	canonify func(string) string
}

// CompilePattern compiles a glob pattern (spec.md §6 syntax: "?", "*", "**",
// "[...]", "{a,b,c}", "\" escapes) using this PathType's canonical
// normalization, so that matching behaves identically to equality lookup
// (e.g. a case-folding flavor matches "*.TXT" against "foo.txt").
func (pt *PathType) CompilePattern(pattern string) (*Matcher, error) {
	canonical := pt.canonicalNormalization.apply(pattern)
	if !doublestar.ValidatePattern(canonical) {
		return nil, errors.Errorf("invalid glob pattern: %q", pattern)
	}
	return &Matcher{
		pattern:  canonical,
		flavor:   pt.flavor,
		canonify: pt.canonicalNormalization.apply,
	}, nil
}

// Matches reports whether the given path (using "/" as its separator,
// regardless of flavor) matches the compiled pattern.
func (m *Matcher) Matches(path string) (bool, error) {
	candidate := m.canonify(path)
	return doublestar.Match(m.pattern, candidate)
}
