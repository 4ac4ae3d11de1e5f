package pathtype

import "testing"

// TestUnixParseSplitsRootAndNames ensures an absolute Unix path parses into
// a "/" root plus ordered, non-empty components.
func TestUnixParseSplitsRootAndNames(t *testing.T) {
	pt := Unix()
	result, err := pt.Parse("/a//b/c")
	if err != nil {
		t.Fatalf("unable to parse: %v", err)
	}
	if result.Root == nil || *result.Root != "/" {
		t.Fatalf("expected root \"/\", got %v", result.Root)
	}
	expected := []string{"a", "b", "c"}
	if len(result.Names) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, result.Names)
	}
	for i := range expected {
		if result.Names[i] != expected[i] {
			t.Fatalf("expected %v, got %v", expected, result.Names)
		}
	}
}

// TestUnixParseRelativeHasNoRoot ensures a relative path parses with a nil
// root.
func TestUnixParseRelativeHasNoRoot(t *testing.T) {
	pt := Unix()
	result, err := pt.Parse("a/b")
	if err != nil {
		t.Fatalf("unable to parse: %v", err)
	}
	if result.Root != nil {
		t.Fatalf("expected a nil root, got %v", *result.Root)
	}
}

// TestUnixParseRejectsNUL ensures a NUL byte in the path fails with a
// position-carrying ParseError.
func TestUnixParseRejectsNUL(t *testing.T) {
	pt := Unix()
	_, err := pt.Parse("/a\x00b")
	if err == nil {
		t.Fatal("expected an error for a NUL byte")
	}
	parseErr, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("expected a *ParseError, got %T", err)
	}
	if parseErr.Position != 2 {
		t.Fatalf("expected the NUL's position (2), got %d", parseErr.Position)
	}
}

// TestWindowsParseDriveRoot ensures a drive-letter root with its required
// trailing separator parses correctly and is uppercased.
func TestWindowsParseDriveRoot(t *testing.T) {
	pt := Windows()
	result, err := pt.Parse(`c:\foo\bar`)
	if err != nil {
		t.Fatalf("unable to parse: %v", err)
	}
	if result.Root == nil || *result.Root != `C:\` {
		t.Fatalf(`expected root "C:\\", got %v`, result.Root)
	}
	if len(result.Names) != 2 || result.Names[0] != "foo" || result.Names[1] != "bar" {
		t.Fatalf("expected [foo bar], got %v", result.Names)
	}
}

// TestWindowsParseUNCRoot ensures a UNC root parses its host and share into
// the rendered root string.
func TestWindowsParseUNCRoot(t *testing.T) {
	pt := Windows()
	result, err := pt.Parse(`\\host\share\dir`)
	if err != nil {
		t.Fatalf("unable to parse: %v", err)
	}
	if result.Root == nil || *result.Root != `\\host\share\` {
		t.Fatalf(`expected root "\\\\host\\share\\", got %v`, result.Root)
	}
	if len(result.Names) != 1 || result.Names[0] != "dir" {
		t.Fatalf("expected [dir], got %v", result.Names)
	}
}

// TestWindowsParseRejectsReservedCharacter ensures a reserved Windows
// character in a component fails to parse.
func TestWindowsParseRejectsReservedCharacter(t *testing.T) {
	pt := Windows()
	if _, err := pt.Parse(`C:\foo<bar`); err == nil {
		t.Fatal("expected an error for a reserved character")
	}
}

// TestOSXCanonicalizeNameFoldsCase ensures the OS X default canonicalizes
// names case-insensitively while leaving the display form untouched.
func TestOSXCanonicalizeNameFoldsCase(t *testing.T) {
	pt := OSX()
	a := pt.CanonicalizeName("Foo.txt")
	b := pt.CanonicalizeName("FOO.TXT")

	if !a.Equal(b) {
		t.Fatalf("expected %q and %q to canonicalize equal, got %q vs %q", "Foo.txt", "FOO.TXT", a.Canonical(), b.Canonical())
	}
	if a.Display() != "Foo.txt" {
		t.Fatalf("expected display form to be preserved, got %q", a.Display())
	}
}

// TestUnixCanonicalizeNameIsCaseSensitive ensures the Unix default treats
// differently-cased names as distinct.
func TestUnixCanonicalizeNameIsCaseSensitive(t *testing.T) {
	pt := Unix()
	a := pt.CanonicalizeName("Foo")
	b := pt.CanonicalizeName("foo")
	if a.Equal(b) {
		t.Fatal("expected Unix canonicalization to be case-sensitive")
	}
}

// TestToStringRoundTripsParse ensures rendering a parsed Unix path with
// ToString reproduces an equivalent path string.
func TestToStringRoundTripsParse(t *testing.T) {
	pt := Unix()
	result, err := pt.Parse("/a/b/c")
	if err != nil {
		t.Fatalf("unable to parse: %v", err)
	}
	if got := pt.ToString(result.Root, result.Names); got != "/a/b/c" {
		t.Fatalf("expected \"/a/b/c\", got %q", got)
	}
}

// TestToURIPathAndFromURIPathRoundTrip ensures a Unix path survives a
// ToURIPath/FromURIPath round trip.
func TestToURIPathAndFromURIPathRoundTrip(t *testing.T) {
	pt := Unix()
	result, err := pt.Parse("/a/b c/d")
	if err != nil {
		t.Fatalf("unable to parse: %v", err)
	}
	uri := pt.ToURIPath(result.Root, result.Names, false)

	back, err := pt.FromURIPath(uri)
	if err != nil {
		t.Fatalf("unable to parse URI path: %v", err)
	}
	if back.Root == nil || *back.Root != "/" {
		t.Fatalf("expected root \"/\", got %v", back.Root)
	}
	if len(back.Names) != 3 || back.Names[2] != "d" {
		t.Fatalf("expected [a, b c, d], got %v", back.Names)
	}
}

// TestToURIPathWindowsDriveRoot ensures a drive root renders as "C:/..."
// rather than a doubled leading slash.
func TestToURIPathWindowsDriveRoot(t *testing.T) {
	pt := Windows()
	result, err := pt.Parse(`C:\foo`)
	if err != nil {
		t.Fatalf("unable to parse: %v", err)
	}
	if got := pt.ToURIPath(result.Root, result.Names, false); got != "C:/foo" {
		t.Fatalf("expected \"C:/foo\", got %q", got)
	}
}

// TestCompilePatternMatchesGlob ensures a compiled glob matches a
// case-appropriate path and respects the flavor's canonical normalization.
func TestCompilePatternMatchesGlob(t *testing.T) {
	pt := OSX()
	matcher, err := pt.CompilePattern("*.TXT")
	if err != nil {
		t.Fatalf("unable to compile pattern: %v", err)
	}
	ok, err := matcher.Matches("report.txt")
	if err != nil {
		t.Fatalf("unable to match: %v", err)
	}
	if !ok {
		t.Fatal("expected a case-folding flavor to match \"*.TXT\" against \"report.txt\"")
	}
}

// TestCompilePatternRejectsInvalidGlob ensures an unbalanced bracket fails
// to compile.
func TestCompilePatternRejectsInvalidGlob(t *testing.T) {
	pt := Unix()
	if _, err := pt.CompilePattern("[abc"); err == nil {
		t.Fatal("expected an error for an invalid glob pattern")
	}
}

// TestNewRejectsConflictingNormalization ensures New propagates
// Normalization.validate's at-most-one-of-NFC/NFD rule.
func TestNewRejectsConflictingNormalization(t *testing.T) {
	if _, err := New(FlavorUnix, NFC|NFD, 0); err == nil {
		t.Fatal("expected an error for combining NFC and NFD")
	}
}
