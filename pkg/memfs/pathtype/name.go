package pathtype

// Name is a filesystem path component, carrying both the form returned to
// callers (display) and the form used for equality and lookup (canonical).
// Two Names are considered equal, and hash equal, based on canonical alone;
// display is purely cosmetic.
type Name struct {
	display   string
	canonical string
}

// NewName constructs a Name whose display and canonical forms are both the
// given raw string. Callers normally obtain Names through a PathType's
// parsing and canonicalization routines rather than calling this directly;
// it exists for tests and for constructing the SELF/PARENT sentinels.
func NewName(raw string) Name {
	return Name{display: raw, canonical: raw}
}

// NewCanonicalName constructs a Name with distinct display and canonical
// forms, as produced by PathType.CanonicalizeName.
func NewCanonicalName(display, canonical string) Name {
	return Name{display: display, canonical: canonical}
}

// Display returns the form of the name that should be shown to users.
func (n Name) Display() string {
	return n.display
}

// Canonical returns the form of the name used for equality and lookup.
func (n Name) Canonical() string {
	return n.canonical
}

// String implements fmt.Stringer, returning the display form.
func (n Name) String() string {
	return n.display
}

// Equal reports whether two names are equal under canonical comparison.
func (n Name) Equal(other Name) bool {
	return n.canonical == other.canonical
}

var (
	// Self is the sentinel name for the "." path component.
	Self = NewName(".")
	// Parent is the sentinel name for the ".." path component.
	Parent = NewName("..")
)

// IsSelf reports whether the name is the "." sentinel, by canonical form.
func (n Name) IsSelf() bool {
	return n.canonical == Self.canonical
}

// IsParent reports whether the name is the ".." sentinel, by canonical form.
func (n Name) IsParent() bool {
	return n.canonical == Parent.canonical
}

// IsDotOrDotDot reports whether the name is either sentinel.
func (n Name) IsDotOrDotDot() bool {
	return n.IsSelf() || n.IsParent()
}

// byDisplay sorts Names by their display string, per the spec's requirement
// that directory snapshots be ordered by display form, not canonical form.
type byDisplay []Name

func (s byDisplay) Len() int           { return len(s) }
func (s byDisplay) Less(i, j int) bool { return s[i].display < s[j].display }
func (s byDisplay) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
